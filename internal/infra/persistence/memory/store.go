// Package memory provides an in-process snapshot backend for tests and
// ephemeral environments. Nothing survives the process.
package memory

import (
	"bytes"
	"context"
	"sort"
	"sync"

	"gcms/pkg/domain"
)

// Compile-time contract assertions.
var (
	_ domain.Backend   = (*Store)(nil)
	_ domain.KeyLister = (*Store)(nil)
)

// Store keeps one payload per storage key in a map.
type Store struct {
	mu      sync.RWMutex
	records map[string][]byte
}

// NewStore constructs an empty in-memory backend.
func NewStore() *Store {
	return &Store{records: make(map[string][]byte)}
}

// Load returns a copy of the payload stored under key.
func (s *Store) Load(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.records[key]
	if !ok {
		return nil, domain.ErrNoSnapshot
	}
	return bytes.Clone(v), nil
}

// Save replaces the payload under key.
func (s *Store) Save(_ context.Context, key string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[key] = bytes.Clone(payload)
	return nil
}

// Delete removes key; a missing key is not an error.
func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, key)
	return nil
}

// Keys lists stored keys in order.
func (s *Store) Keys(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.records))
	for k := range s.records {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// Driver implements domain.Backend.
func (s *Store) Driver() string { return "memory" }
