// Package scheduler owns one recurring midnight timer per tenant, each in
// the tenant's own IANA timezone.
//
// # Timer lifecycle
//
// Schedule installs (or replaces) a tenant's timer; Unschedule cancels and
// removes it; Reschedule is the atomic replace used when a tenant's
// timezone changes. A replace installs the new timer before the old one is
// stopped, so a scheduled tenant never has a window with zero timers, and
// the per-tenant run guard keeps the brief two-timer overlap from ever
// producing two concurrent rollovers.
//
// # Firing
//
// A fire loads the tenant, runs the rollover transform, persists the new
// state under optimistic conflict retry, and only then dispatches the
// emitted effects. A fire that arrives while the previous one is still in
// flight is skipped and logged, never queued. Cancelling a timer does not
// interrupt an in-flight handler.
package scheduler
