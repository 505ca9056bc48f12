package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/MRegirouard/StreakCode/internal/model"
)

// maxUpdateAttempts bounds the optimistic-retry loop. Conflicts are rare
// (poller vs. a tenant's own rollover), so a small bound is plenty.
const maxUpdateAttempts = 3

// ErrSkip can be returned by an Update mutation to abandon the write
// without error (nothing to change after seeing fresh state).
var ErrSkip = errors.New("skip update")

// Update runs a read-modify-write cycle against the tenant record,
// retrying on revision conflicts with freshly loaded state. fn must be
// safe to re-run: it receives a fresh copy on every attempt.
func Update(ctx context.Context, s Store, id string, fn func(*model.Tenant) error) (*model.Tenant, error) {
	return update(ctx, s, id, false, fn)
}

// UpdateOrCreate is Update, but a missing record starts from a fresh
// default tenant instead of failing with ErrNotFound.
func UpdateOrCreate(ctx context.Context, s Store, id string, fn func(*model.Tenant) error) (*model.Tenant, error) {
	return update(ctx, s, id, true, fn)
}

func update(ctx context.Context, s Store, id string, create bool, fn func(*model.Tenant) error) (*model.Tenant, error) {
	var lastErr error
	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		t, err := s.Load(ctx, id)
		if errors.Is(err, ErrNotFound) && create {
			t = model.NewTenant(id)
		} else if err != nil {
			return nil, err
		}

		if err := fn(t); err != nil {
			if errors.Is(err, ErrSkip) {
				return t, nil
			}
			return nil, err
		}

		err = s.Save(ctx, t)
		if err == nil {
			return t, nil
		}
		if !errors.Is(err, ErrConflict) {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("update %s: gave up after %d attempts: %w", id, maxUpdateAttempts, lastErr)
}
