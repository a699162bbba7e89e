package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"

	"gcms/pkg/domain"
)

func newTempStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(context.Background(), filepath.Join(t.TempDir(), "nested", "gcms.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTempStore(t)
	if s.Driver() != "sqlite" {
		t.Fatalf("unexpected driver %s", s.Driver())
	}
	if _, err := s.Load(ctx, "gcms-storage"); !errors.Is(err, domain.ErrNoSnapshot) {
		t.Fatalf("expected ErrNoSnapshot, got %v", err)
	}
	if err := s.Save(ctx, "gcms-storage", []byte(`{"version":1,"state":{}}`)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.Save(ctx, "gcms-storage", []byte(`{"version":2,"state":{}}`)); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	got, err := s.Load(ctx, "gcms-storage")
	if err != nil || string(got) != `{"version":2,"state":{}}` {
		t.Fatalf("load returned %q %v", got, err)
	}
	if err := s.Save(ctx, "auth-storage", []byte(`{}`)); err != nil {
		t.Fatalf("save auth: %v", err)
	}
	keys, err := s.Keys(ctx)
	if err != nil || len(keys) != 2 || keys[0] != "auth-storage" || keys[1] != "gcms-storage" {
		t.Fatalf("unexpected keys %v %v", keys, err)
	}
	if err := s.Delete(ctx, "auth-storage"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.Delete(ctx, "auth-storage"); err != nil {
		t.Fatalf("delete missing: %v", err)
	}
	if _, err := s.Load(ctx, "auth-storage"); !errors.Is(err, domain.ErrNoSnapshot) {
		t.Fatalf("expected ErrNoSnapshot after delete, got %v", err)
	}
}

func TestStoreReopenKeepsDataAndSchema(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "gcms.db")
	first, err := NewStore(ctx, path)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if err := first.Save(ctx, "opportunities-storage", []byte(`{"version":1}`)); err != nil {
		t.Fatalf("save: %v", err)
	}
	_ = first.Close()

	second, err := NewStore(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = second.Close() }()
	got, err := second.Load(ctx, "opportunities-storage")
	if err != nil || string(got) != `{"version":1}` {
		t.Fatalf("reopened load %q %v", got, err)
	}
	var applied int
	if err := second.DB().GetContext(ctx, &applied, `SELECT COUNT(*) FROM goose_db_version WHERE version_id = 1`); err != nil || applied != 1 {
		t.Fatalf("expected migration 1 recorded once, got %d %v", applied, err)
	}
	if second.Path() != path {
		t.Fatalf("unexpected path %s", second.Path())
	}
}

func TestNewStoreOpenError(t *testing.T) {
	orig := sqlOpen
	sqlOpen = func(string, string) (*sqlx.DB, error) { return nil, errors.New("boom") }
	t.Cleanup(func() { sqlOpen = orig })
	if _, err := NewStore(context.Background(), filepath.Join(t.TempDir(), "x.db")); err == nil {
		t.Fatalf("expected open error")
	}
}

func TestClosedStoreErrors(t *testing.T) {
	ctx := context.Background()
	s := newTempStore(t)
	_ = s.Close()
	if _, err := s.Load(ctx, "k"); err == nil || errors.Is(err, domain.ErrNoSnapshot) {
		t.Fatalf("expected wrapped error from closed db, got %v", err)
	}
	if err := s.Save(ctx, "k", []byte("x")); err == nil {
		t.Fatalf("expected save error")
	}
	if _, err := s.Keys(ctx); err == nil {
		t.Fatalf("expected keys error")
	}
}
