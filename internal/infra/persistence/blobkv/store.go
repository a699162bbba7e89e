// Package blobkv persists store snapshots as JSON objects in a blob store,
// one object per storage key under the snapshots/ prefix.
package blobkv

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"gcms/internal/blob"
	"gcms/pkg/domain"
)

// Compile-time contract assertions.
var (
	_ domain.Backend   = (*Store)(nil)
	_ domain.KeyLister = (*Store)(nil)
)

const prefix = "snapshots/"

// Store is a domain.Backend on top of any blob.Store.
type Store struct {
	blobs blob.Store
}

// NewStore wraps blobs as a snapshot backend.
func NewStore(blobs blob.Store) *Store {
	return &Store{blobs: blobs}
}

func objectKey(key string) string { return prefix + key + ".json" }

// Load implements domain.Backend.
func (s *Store) Load(ctx context.Context, key string) ([]byte, error) {
	_, rc, err := s.blobs.Get(ctx, objectKey(key))
	if errors.Is(err, blob.ErrNotFound) {
		return nil, domain.ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("get snapshot %s: %w", key, err)
	}
	defer func() { _ = rc.Close() }()
	payload, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", key, err)
	}
	return payload, nil
}

// Save implements domain.Backend by overwriting the object.
func (s *Store) Save(ctx context.Context, key string, payload []byte) error {
	_, err := s.blobs.Put(ctx, objectKey(key), bytes.NewReader(payload), blob.PutOptions{
		ContentType: "application/json",
		Metadata:    map[string]string{"storage-key": key},
		Overwrite:   true,
	})
	if err != nil {
		return fmt.Errorf("put snapshot %s: %w", key, err)
	}
	return nil
}

// Delete implements domain.Backend; deleting a missing key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.blobs.Delete(ctx, objectKey(key)); err != nil {
		return fmt.Errorf("delete snapshot %s: %w", key, err)
	}
	return nil
}

// Keys lists the storage keys that currently hold a snapshot.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	infos, err := s.blobs.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	keys := make([]string, 0, len(infos))
	for _, info := range infos {
		name := strings.TrimPrefix(info.Key, prefix)
		if !strings.HasSuffix(name, ".json") || strings.Contains(name, "/") {
			continue
		}
		keys = append(keys, strings.TrimSuffix(name, ".json"))
	}
	return keys, nil
}

// Driver implements domain.Backend.
func (s *Store) Driver() string { return "blob:" + string(s.blobs.Driver()) }
