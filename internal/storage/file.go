package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/MRegirouard/StreakCode/internal/model"
	logx "github.com/MRegirouard/StreakCode/pkg/logx"
)

// fileStore is a dependency-free persistence backend: one
// <dir>/<tenant-id>.json document per tenant, committed via
// write-temp-then-rename so a crashed write never truncates a record.
type fileStore struct {
	log logx.Logger
	dir string

	mu sync.Mutex
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	dir := strings.TrimSpace(cfg.Path)
	if dir == "" {
		return nil, errors.New("storage.path is required for file driver")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &fileStore{log: log, dir: dir}, nil
}

func (s *fileStore) Close() error { return nil }

func (s *fileStore) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

func (s *fileStore) LoadAll(ctx context.Context) ([]*model.Tenant, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	var out []*model.Tenant
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		t, err := s.readLocked(filepath.Join(s.dir, e.Name()))
		if err != nil {
			// A single corrupt record must not take the whole bot down.
			s.log.Warn("skipping unreadable tenant record",
				logx.String("file", e.Name()), logx.Err(err))
			continue
		}
		if err := t.Validate(); err != nil {
			s.log.Warn("skipping invalid tenant record",
				logx.String("file", e.Name()), logx.Err(err))
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (s *fileStore) Load(ctx context.Context, id string) (*model.Tenant, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.readLocked(s.path(id))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return t, err
}

func (s *fileStore) readLocked(path string) (*model.Tenant, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var t model.Tenant
	if err := json.Unmarshal(b, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *fileStore) Save(ctx context.Context, t *model.Tenant) error {
	_ = ctx
	if t == nil || t.ID == "" {
		return errors.New("save: tenant id is empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, err := s.readLocked(s.path(t.ID))
	switch {
	case errors.Is(err, os.ErrNotExist):
		if t.Revision != 0 {
			return fmt.Errorf("%w: %s (record gone)", ErrConflict, t.ID)
		}
	case err != nil:
		return err
	default:
		if cur.Revision != t.Revision {
			return fmt.Errorf("%w: %s (have %d, stored %d)",
				ErrConflict, t.ID, t.Revision, cur.Revision)
		}
	}

	next := t.Clone()
	next.Revision++
	b, err := json.MarshalIndent(next, "", "\t")
	if err != nil {
		return err
	}

	tmp := s.path(t.ID) + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	if err := os.Rename(tmp, s.path(t.ID)); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	t.Revision = next.Revision
	return nil
}

func (s *fileStore) Delete(ctx context.Context, id string) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	err := os.Remove(s.path(id))
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return err
}
