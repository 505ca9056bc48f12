// Package engine implements the daily rollover: a pure in-memory state
// transition over one Tenant. It never touches storage or the chat
// platform; side effects come back as a value list for the caller to
// dispatch, which is what keeps the algorithm testable on its own.
package engine
