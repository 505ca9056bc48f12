// Package poller periodically pulls accepted submissions from the judge
// service and fans them out to every tracked member.
//
// The same human may be tracked by several tenants under one judge
// account, and the judge is a shared rate-limited resource, so each tick
// groups members by external account and queries the judge once per
// unique account, not once per (tenant, member) pair. The grouping index
// is rebuilt from scratch every tick and discarded; it is never stored.
package poller
