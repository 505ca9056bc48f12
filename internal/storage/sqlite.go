package storage

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/MRegirouard/StreakCode/internal/model"
	logx "github.com/MRegirouard/StreakCode/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("storage.path is required for sqlite driver")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	st := &sqliteStore{db: db, log: log}
	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) LoadAll(ctx context.Context) ([]*model.Tenant, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, revision, doc FROM tenants`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Tenant
	for rows.Next() {
		var id, doc string
		var rev int64
		if err := rows.Scan(&id, &rev, &doc); err != nil {
			return nil, err
		}
		t, err := decodeTenant(doc, rev)
		if err != nil {
			s.log.Warn("skipping undecodable tenant record",
				logx.String("tenant", id), logx.Err(err))
			continue
		}
		if err := t.Validate(); err != nil {
			s.log.Warn("skipping invalid tenant record",
				logx.String("tenant", id), logx.Err(err))
			continue
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *sqliteStore) Load(ctx context.Context, id string) (*model.Tenant, error) {
	var doc string
	var rev int64
	err := s.db.QueryRowContext(ctx,
		`SELECT revision, doc FROM tenants WHERE id = ?`, id).Scan(&rev, &doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return decodeTenant(doc, rev)
}

func (s *sqliteStore) Save(ctx context.Context, t *model.Tenant) error {
	if t == nil || t.ID == "" {
		return errors.New("save: tenant id is empty")
	}
	next := t.Clone()
	next.Revision++
	b, err := json.Marshal(next)
	if err != nil {
		return err
	}

	if t.Revision == 0 {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO tenants(id, revision, doc) VALUES(?,?,?)`,
			t.ID, next.Revision, string(b))
		if err != nil {
			// UNIQUE violation: someone created the record first.
			return fmt.Errorf("%w: %s", ErrConflict, t.ID)
		}
		t.Revision = next.Revision
		return nil
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE tenants SET revision = ?, doc = ? WHERE id = ? AND revision = ?`,
		next.Revision, string(b), t.ID, t.Revision)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrConflict, t.ID)
	}
	t.Revision = next.Revision
	return nil
}

func (s *sqliteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tenants WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

func decodeTenant(doc string, rev int64) (*model.Tenant, error) {
	var t model.Tenant
	if err := json.Unmarshal([]byte(doc), &t); err != nil {
		return nil, err
	}
	// The column is authoritative; the doc copy may lag behind.
	t.Revision = rev
	return &t, nil
}
