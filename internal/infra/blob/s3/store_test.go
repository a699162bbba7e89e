package s3

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"gcms/internal/blob/core"
)

func TestMockStoreRoundTrip(t *testing.T) { //nolint:cyclop
	ctx := context.Background()
	store := NewMockForTests()
	if store.Driver() != core.DriverS3 || store.Bucket() != "mock-bucket" {
		t.Fatalf("unexpected driver or bucket")
	}
	if _, err := store.Head(ctx, "documents/o1/d1/a.txt"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound before put, got %v", err)
	}
	info, err := store.Put(ctx, "documents/o1/d1/a.txt", strings.NewReader("hello"), core.PutOptions{
		ContentType: "text/plain",
		Metadata:    map[string]string{"owner": "gcms"},
	})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Size != 5 || info.ContentType != "text/plain" || info.URL != "s3://mock-bucket/documents/o1/d1/a.txt" {
		t.Fatalf("unexpected info %+v", info)
	}
	if _, err := store.Put(ctx, "documents/o1/d1/a.txt", strings.NewReader("x"), core.PutOptions{}); !errors.Is(err, core.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
	if _, err := store.Put(ctx, "documents/o1/d1/a.txt", strings.NewReader("hello again"), core.PutOptions{Overwrite: true}); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	_, rc, err := store.Get(ctx, "documents/o1/d1/a.txt")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(body) != "hello again" {
		t.Fatalf("unexpected body %q", body)
	}
	if _, err := store.Put(ctx, "documents/o2/d9/b.txt", strings.NewReader("b"), core.PutOptions{}); err != nil {
		t.Fatalf("put b: %v", err)
	}
	list, err := store.List(ctx, "documents/o1/")
	if err != nil || len(list) != 1 || list[0].Key != "documents/o1/d1/a.txt" {
		t.Fatalf("unexpected list %+v %v", list, err)
	}
	if ok, err := store.Delete(ctx, "documents/o1/d1/a.txt"); err != nil || !ok {
		t.Fatalf("delete: %v %v", ok, err)
	}
	if ok, err := store.Delete(ctx, "documents/o1/d1/a.txt"); err != nil || ok {
		t.Fatalf("second delete should report false: %v %v", ok, err)
	}
	if _, _, err := store.Get(ctx, "documents/o1/d1/a.txt"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestPresign(t *testing.T) {
	ctx := context.Background()
	store := NewMockForTests()
	u, err := store.PresignURL(ctx, "k", core.SignedURLOptions{Expiry: time.Minute})
	if err != nil || !strings.Contains(u, "X-Amz-Expires=60") {
		t.Fatalf("unexpected presign %s %v", u, err)
	}
	if _, err := store.PresignURL(ctx, "k", core.SignedURLOptions{Method: "PUT"}); !errors.Is(err, core.ErrUnsupported) {
		t.Fatalf("expected unsupported")
	}
}

func TestNewRequiresBucket(t *testing.T) {
	if _, err := New(context.Background(), Config{}); err == nil {
		t.Fatalf("expected bucket error")
	}
}

func TestDecodeChunked(t *testing.T) {
	got, ok := decodeChunked([]byte("5\r\nhello\r\n0\r\n\r\n"))
	if !ok || string(got) != "hello" {
		t.Fatalf("decode: %q %v", got, ok)
	}
	if _, ok := decodeChunked([]byte("plain body")); ok {
		t.Fatalf("plain body must not decode")
	}
}
