// Package store owns the SQLite database shared by the history, settings and
// alert components.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/mod/semver"
	_ "modernc.org/sqlite" // Pure-Go SQLite driver
)

// DefaultTimeout bounds a single store call made by the pipeline.
const DefaultTimeout = 5 * time.Second

// ErrNewerSchema is returned when the database was written by a newer
// airwatch binary than the one running.
var ErrNewerSchema = errors.New("database was created by a newer version of airwatch")

// Migration is one schema step owned by a component.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

// Store wraps a *sql.DB opened with the modernc SQLite driver.
type Store struct {
	db   *sql.DB
	mu   sync.Mutex
	once sync.Once
}

// New opens (or creates) the database at path. ":memory:" is accepted for
// tests.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}

	// One connection: writes serialize and a :memory: database stays a
	// single database.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite %q: %w", path, err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec %q: %w", p, err)
		}
	}

	return &Store{db: db}, nil
}

// DB returns the underlying connection pool.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping reports whether the database answers. Used by /readyz.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Tx runs fn inside a transaction, committing when fn returns nil.
func (s *Store) Tx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original: %w)", rbErr, err)
		}
		return err
	}
	return tx.Commit()
}

// Migrate applies the component's pending migrations in order. Applied
// versions are tracked per component in _migrations.
func (s *Store) Migrate(ctx context.Context, component string, migrations []Migration) error {
	if err := s.ensureMigrationsTable(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range migrations {
		var count int
		err := s.db.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM _migrations WHERE component = ? AND version = ?",
			component, m.Version,
		).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %s/%d: %w", component, m.Version, err)
		}
		if count > 0 {
			continue
		}

		err = s.Tx(ctx, func(tx *sql.Tx) error {
			if err := m.Up(tx); err != nil {
				return err
			}
			_, err := tx.ExecContext(ctx,
				"INSERT INTO _migrations (component, version, description) VALUES (?, ?, ?)",
				component, m.Version, m.Description,
			)
			return err
		})
		if err != nil {
			return fmt.Errorf("migration %s/%d (%s): %w", component, m.Version, m.Description, err)
		}
	}
	return nil
}

func (s *Store) ensureMigrationsTable(ctx context.Context) error {
	var err error
	s.once.Do(func() {
		_, err = s.db.ExecContext(ctx, `
			CREATE TABLE IF NOT EXISTS _migrations (
				component   TEXT     NOT NULL,
				version     INTEGER  NOT NULL,
				description TEXT     NOT NULL,
				applied_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				PRIMARY KEY (component, version)
			)
		`)
	})
	return err
}

// CheckVersion refuses to open a database last written by a newer binary.
// "dev" on either side always passes.
func (s *Store) CheckVersion(ctx context.Context, current string) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS _schema_meta (
			id          INTEGER  PRIMARY KEY CHECK (id = 1),
			app_version TEXT     NOT NULL,
			updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("ensure schema meta table: %w", err)
	}

	var stored string
	err = s.db.QueryRowContext(ctx, "SELECT app_version FROM _schema_meta WHERE id = 1").Scan(&stored)
	if errors.Is(err, sql.ErrNoRows) {
		_, err = s.db.ExecContext(ctx,
			"INSERT INTO _schema_meta (id, app_version) VALUES (1, ?)", current)
		if err != nil {
			return fmt.Errorf("insert schema version: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("query schema version: %w", err)
	}

	if stored != "dev" && current != "dev" {
		cmp := semver.Compare(normalizeVersion(current), normalizeVersion(stored))
		if cmp < 0 {
			return fmt.Errorf("%w: database=%s, binary=%s", ErrNewerSchema, stored, current)
		}
		if cmp == 0 {
			return nil
		}
	}

	_, err = s.db.ExecContext(ctx,
		"UPDATE _schema_meta SET app_version = ?, updated_at = CURRENT_TIMESTAMP WHERE id = 1", current)
	if err != nil {
		return fmt.Errorf("update schema version: %w", err)
	}
	return nil
}

func normalizeVersion(v string) string {
	if v != "" && v[0] != 'v' {
		return "v" + v
	}
	return v
}
