package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	"gcms/internal/infra/persistence/postgres/testutil"
	"gcms/pkg/domain"
)

func newStubStore(t *testing.T) (*Store, *testutil.StubConn) {
	t.Helper()
	db, conn := testutil.NewStubDB()
	restore := OverrideSQLOpen(func(driverName, dsn string) (*sql.DB, error) {
		if driverName != "pgx" || dsn != defaultDSN {
			t.Fatalf("unexpected open %s %s", driverName, dsn)
		}
		return db, nil
	})
	t.Cleanup(restore)
	s, err := NewStore(context.Background(), "")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return s, conn
}

func TestNewStoreCreatesTable(t *testing.T) {
	s, conn := newStubStore(t)
	if s.Driver() != "postgres" || s.DB() == nil {
		t.Fatalf("unexpected store %+v", s)
	}
	if len(conn.Execs) != 1 || !strings.Contains(conn.Execs[0], "CREATE TABLE IF NOT EXISTS snapshots") {
		t.Fatalf("expected snapshots DDL, got %v", conn.Execs)
	}
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, conn := newStubStore(t)
	if _, err := s.Load(ctx, "gcms-storage"); !errors.Is(err, domain.ErrNoSnapshot) {
		t.Fatalf("expected ErrNoSnapshot, got %v", err)
	}
	if err := s.Save(ctx, "gcms-storage", []byte(`{"version":1}`)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.Save(ctx, "gcms-storage", []byte(`{"version":2}`)); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := s.Save(ctx, "auth-storage", []byte(`{}`)); err != nil {
		t.Fatalf("save auth: %v", err)
	}
	if n := len(conn.Tables["snapshots"]); n != 2 {
		t.Fatalf("expected 2 rows after upsert, got %d", n)
	}
	got, err := s.Load(ctx, "gcms-storage")
	if err != nil || string(got) != `{"version":2}` {
		t.Fatalf("load returned %q %v", got, err)
	}
	keys, err := s.Keys(ctx)
	if err != nil || len(keys) != 2 {
		t.Fatalf("keys %v %v", keys, err)
	}
	if err := s.Delete(ctx, "gcms-storage"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Load(ctx, "gcms-storage"); !errors.Is(err, domain.ErrNoSnapshot) {
		t.Fatalf("expected ErrNoSnapshot after delete, got %v", err)
	}
}

func TestStoreSurfacesDriverErrors(t *testing.T) {
	ctx := context.Background()
	s, conn := newStubStore(t)
	conn.FailTables = map[string]bool{"snapshots": true}
	if _, err := s.Load(ctx, "k"); err == nil || errors.Is(err, domain.ErrNoSnapshot) {
		t.Fatalf("expected query failure, got %v", err)
	}
	if err := s.Save(ctx, "k", []byte(`{}`)); err == nil {
		t.Fatalf("expected upsert failure")
	}
	if _, err := s.Keys(ctx); err == nil {
		t.Fatalf("expected list failure")
	}
	conn.FailTables = nil
	conn.FailExec = true
	if err := s.Delete(ctx, "k"); err == nil {
		t.Fatalf("expected delete failure")
	}
}

func TestNewStoreErrors(t *testing.T) {
	restore := OverrideSQLOpen(func(string, string) (*sql.DB, error) { return nil, errors.New("boom") })
	if _, err := NewStore(context.Background(), "postgres://x"); err == nil || !strings.Contains(err.Error(), "open postgres") {
		t.Fatalf("expected open error, got %v", err)
	}
	restore()

	db, conn := testutil.NewStubDB()
	conn.FailExec = true
	restore = OverrideSQLOpen(func(string, string) (*sql.DB, error) { return db, nil })
	defer restore()
	if _, err := NewStore(context.Background(), "postgres://x"); err == nil || !strings.Contains(err.Error(), "ping postgres") {
		t.Fatalf("expected ping error, got %v", err)
	}
}
