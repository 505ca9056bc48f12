// Package storage persists Tenant records keyed by tenant id.
//
// Drivers:
//   - "file": one JSON document per tenant under a directory
//   - "sqlite": a SQLite database file
//
// Saves are revision-checked: a Save whose in-memory revision no longer
// matches the stored one fails with ErrConflict. Update wraps the
// load-mutate-save cycle with a bounded retry so concurrent writers
// (scheduler rollover vs. poller) never lose updates.
package storage
