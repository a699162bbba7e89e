package testutil

import (
	"context"
	"database/sql/driver"
	"io"
	"testing"
)

func TestStubDBStoresAndQueriesRows(t *testing.T) {
	ctx := context.Background()
	_, conn := NewStubDB()

	if err := conn.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}

	for _, key := range []string{"gcms-storage", "auth-storage"} {
		_, err := conn.ExecContext(ctx, "INSERT INTO snapshots (storage_key, payload) VALUES ($1,$2)", []driver.NamedValue{
			{Value: key},
			{Value: `{"version":1}`},
		})
		if err != nil {
			t.Fatalf("ExecContext insert: %v", err)
		}
	}
	if len(conn.Tables["snapshots"]) != 2 {
		t.Fatalf("expected two snapshot rows, got %v", conn.Tables["snapshots"])
	}

	rows, err := conn.QueryContext(ctx, "SELECT payload FROM snapshots WHERE storage_key = $1", []driver.NamedValue{{Value: "auth-storage"}})
	if err != nil {
		t.Fatalf("QueryContext: %v", err)
	}
	dest := make([]driver.Value, 1)
	if err := rows.Next(dest); err != nil || dest[0] != `{"version":1}` {
		t.Fatalf("unexpected row %v %v", dest, err)
	}
	if err := rows.Next(dest); err != io.EOF {
		t.Fatalf("expected a single filtered row, got %v", err)
	}

	_, err = conn.ExecContext(ctx, "DELETE FROM snapshots WHERE storage_key=$1", []driver.NamedValue{{Value: "gcms-storage"}})
	if err != nil {
		t.Fatalf("ExecContext delete: %v", err)
	}
	all, err := conn.QueryContext(ctx, "select storage_key from snapshots order by storage_key", nil)
	if err != nil {
		t.Fatalf("QueryContext all: %v", err)
	}
	defer func() { _ = all.Close() }()
	if err := all.Next(dest); err != nil || dest[0] != "auth-storage" {
		t.Fatalf("unexpected remaining row %v %v", dest, err)
	}
}

func TestStubUpsertReplacesByFirstColumn(t *testing.T) {
	ctx := context.Background()
	_, conn := NewStubDB()
	q := "INSERT INTO snapshots (storage_key, payload) VALUES ($1,$2) ON CONFLICT (storage_key) DO UPDATE SET payload = EXCLUDED.payload"
	for _, payload := range []string{"a", "b"} {
		if _, err := conn.ExecContext(ctx, q, []driver.NamedValue{{Value: "k"}, {Value: payload}}); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}
	if rows := conn.Tables["snapshots"]; len(rows) != 1 || rows[0]["payload"] != "b" {
		t.Fatalf("expected one replaced row, got %v", rows)
	}
	if _, err := conn.QueryContext(ctx, "SELECT payload FROM snapshots WHERE storage_key = $1", nil); err == nil {
		t.Fatalf("expected missing args error")
	}
}
