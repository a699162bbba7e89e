// Package persistence selects and opens the durable snapshot backend the
// stores write to.
package persistence

import (
	"context"
	"fmt"
	"io"

	"gcms/internal/blob"
	"gcms/internal/infra/persistence/blobkv"
	"gcms/internal/infra/persistence/dynamodb"
	"gcms/internal/infra/persistence/memory"
	"gcms/internal/infra/persistence/postgres"
	"gcms/internal/infra/persistence/sqlite"
	"gcms/pkg/domain"
)

// Driver identifies a concrete backend implementation.
type Driver string

const (
	DriverMemory   Driver = "memory"   // in-memory only (tests / ephemeral)
	DriverSQLite   Driver = "sqlite"   // embedded sqlite file
	DriverPostgres Driver = "postgres" // PostgreSQL server
	DriverBlob     Driver = "blob"     // objects in the configured blob store
	DriverDynamoDB Driver = "dynamodb" // DynamoDB table
)

// Config selects a backend. Only the fields of the chosen driver are read.
type Config struct {
	Driver      Driver // default sqlite
	SQLitePath  string
	PostgresDSN string
	Blob        blob.Config
	DynamoDB    dynamodb.Config
}

// Open returns the backend described by cfg. Backends holding connections
// implement io.Closer; release them with Close.
func Open(ctx context.Context, cfg Config) (domain.Backend, error) {
	switch cfg.Driver {
	case "", DriverSQLite:
		return sqlite.NewStore(ctx, cfg.SQLitePath)
	case DriverMemory:
		return memory.NewStore(), nil
	case DriverPostgres:
		return postgres.NewStore(ctx, cfg.PostgresDSN)
	case DriverBlob:
		blobs, err := blob.Open(ctx, cfg.Blob)
		if err != nil {
			return nil, fmt.Errorf("open blob backend: %w", err)
		}
		return blobkv.NewStore(blobs), nil
	case DriverDynamoDB:
		s, err := dynamodb.New(ctx, cfg.DynamoDB)
		if err != nil {
			return nil, err
		}
		if err := s.EnsureTable(ctx); err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %s", cfg.Driver)
	}
}

// Close releases b when it holds resources.
func Close(b domain.Backend) error {
	if c, ok := b.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
