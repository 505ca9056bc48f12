package storage

import (
	"context"
	"errors"
	"time"

	"github.com/MRegirouard/StreakCode/internal/model"
)

var (
	// ErrNotFound means no tenant is stored under the given id.
	ErrNotFound = errors.New("tenant not found")
	// ErrConflict means the record changed since it was loaded.
	ErrConflict = errors.New("tenant revision conflict")
)

// Config configures storage.
//
// Driver values:
//   - "file": dependency-free file backend (one JSON doc per tenant)
//   - "sqlite": SQLite database file
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Store is the persistence API used by the scheduler, poller and ops layer.
//
// Load and LoadAll return independent copies: mutating a returned Tenant
// never affects stored state until Save commits it.
type Store interface {
	LoadAll(ctx context.Context) ([]*model.Tenant, error)
	Load(ctx context.Context, id string) (*model.Tenant, error)
	// Save commits t if t.Revision still matches the stored revision
	// (0 for a record that does not exist yet). On success the stored and
	// in-memory revisions are advanced.
	Save(ctx context.Context, t *model.Tenant) error
	Delete(ctx context.Context, id string) error
	Close() error
}
