package dynamodb

import (
	"context"
	"errors"
	"testing"

	"gcms/pkg/domain"
)

func TestMockStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMockForTests()
	if s.Driver() != "dynamodb" || s.Table() != "mock-table" {
		t.Fatalf("unexpected store %s %s", s.Driver(), s.Table())
	}
	if err := s.EnsureTable(ctx); err != nil {
		t.Fatalf("ensure table: %v", err)
	}
	if err := s.EnsureTable(ctx); err != nil {
		t.Fatalf("second ensure must tolerate an existing table: %v", err)
	}
	if _, err := s.Load(ctx, "gcms-storage"); !errors.Is(err, domain.ErrNoSnapshot) {
		t.Fatalf("expected ErrNoSnapshot, got %v", err)
	}
	for _, payload := range []string{`{"version":1,"state":{}}`, `{"version":2,"state":{}}`} {
		if err := s.Save(ctx, "gcms-storage", []byte(payload)); err != nil {
			t.Fatalf("save: %v", err)
		}
	}
	if err := s.Save(ctx, "auth-storage", []byte(`{"version":1}`)); err != nil {
		t.Fatalf("save auth: %v", err)
	}
	got, err := s.Load(ctx, "gcms-storage")
	if err != nil || string(got) != `{"version":2,"state":{}}` {
		t.Fatalf("load %q %v", got, err)
	}
	keys, err := s.Keys(ctx)
	if err != nil || len(keys) != 2 {
		t.Fatalf("keys %v %v", keys, err)
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

func TestMissingTableSurfacesErrors(t *testing.T) {
	ctx := context.Background()
	s := NewMockForTests()
	if _, err := s.Load(ctx, "k"); err == nil || errors.Is(err, domain.ErrNoSnapshot) {
		t.Fatalf("expected table error, got %v", err)
	}
	if err := s.Save(ctx, "k", []byte(`{}`)); err == nil {
		t.Fatalf("expected save error")
	}
	if err := s.Delete(ctx, "k"); err == nil {
		t.Fatalf("expected delete error")
	}
	if _, err := s.Keys(ctx); err == nil {
		t.Fatalf("expected scan error")
	}
}

func TestNewDefaultsTable(t *testing.T) {
	s, err := New(context.Background(), Config{AccessKeyID: "a", SecretAccessKey: "b"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if s.Table() != "gcms-snapshots" {
		t.Fatalf("unexpected default table %s", s.Table())
	}
}
