package domain

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
)

var (
	// ErrNoSnapshot is returned by a Backend when nothing is stored under a key.
	ErrNoSnapshot = errors.New("no snapshot stored")
	// ErrDuplicateID is returned when an added entity reuses a live or retired id.
	ErrDuplicateID = errors.New("duplicate entity id")
	// ErrNotFound is returned by collaborators and boundary adapters for missing records.
	// Stores never return it: update and remove of a missing id are silent no-ops.
	ErrNotFound = errors.New("not found")
)

// Backend is durable key/value storage holding one serialized snapshot per
// storage key. Save must replace the value atomically per key.
type Backend interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, payload []byte) error
	Delete(ctx context.Context, key string) error
	Driver() string
}

// KeyLister is implemented by backends that can enumerate their stored keys.
type KeyLister interface {
	Keys(ctx context.Context) ([]string, error)
}

// Snapshot is the persisted envelope of one store: a schema version plus an
// object holding exactly the collections that store owns.
type Snapshot struct {
	Version int                        `json:"version"`
	State   map[string]json.RawMessage `json:"state"`
}

// NewID returns a fresh random UUID string for a new entity.
func NewID() string {
	return uuid.NewString()
}
