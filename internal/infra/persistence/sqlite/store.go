// Package sqlite persists store snapshots to a local SQLite file, one row per
// storage key. The schema is managed by embedded goose migrations.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gcms/pkg/domain"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // pure go sqlite driver
)

// Compile-time contract assertions.
var (
	_ domain.Backend   = (*Store)(nil)
	_ domain.KeyLister = (*Store)(nil)
)

const (
	driverName  = "sqlite"
	defaultPath = "gcms.db"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var sqlOpen = sqlx.Open

// Store is a domain.Backend over a single SQLite database file.
type Store struct {
	db   *sqlx.DB
	path string
}

// NewStore opens (creating when needed) the database at path and applies
// pending schema migrations. An empty path falls back to gcms.db.
func NewStore(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		path = defaultPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sqlOpen(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one writer keeps SQLite from returning SQLITE_BUSY under concurrent flushes
	db.SetMaxOpenConns(1)
	if err := migrateSchema(ctx, db.DB); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db, path: path}, nil
}

func migrateSchema(ctx context.Context, db *sql.DB) error {
	sub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("migrations fs: %w", err)
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, db, sub)
	if err != nil {
		return fmt.Errorf("goose provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// Load implements domain.Backend.
func (s *Store) Load(ctx context.Context, key string) ([]byte, error) {
	var payload []byte
	err := s.db.GetContext(ctx, &payload, `SELECT payload FROM snapshots WHERE storage_key = ?`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("select snapshot %s: %w", key, err)
	}
	return payload, nil
}

// Save implements domain.Backend. The upsert is a single statement so the row
// is replaced atomically.
func (s *Store) Save(ctx context.Context, key string, payload []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO snapshots(storage_key, payload, updated_at) VALUES(?, ?, ?)
		ON CONFLICT(storage_key) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		key, payload, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("upsert snapshot %s: %w", key, err)
	}
	return nil
}

// Delete implements domain.Backend; deleting a missing key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM snapshots WHERE storage_key = ?`, key); err != nil {
		return fmt.Errorf("delete snapshot %s: %w", key, err)
	}
	return nil
}

// Keys lists every stored storage key in order.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	keys := []string{}
	if err := s.db.SelectContext(ctx, &keys, `SELECT storage_key FROM snapshots ORDER BY storage_key`); err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	return keys, nil
}

// Driver implements domain.Backend.
func (s *Store) Driver() string { return driverName }

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }

// DB exposes the underlying handle for integration hooks.
func (s *Store) DB() *sqlx.DB { return s.db }

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }
