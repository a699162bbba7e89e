// Package store implements the persistent collection stores. Each store owns
// one or more ordered collections, binds them to a single durable record under
// its storage key and flushes the full record after every mutation.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"gcms/internal/migrate"
	"gcms/internal/observability"
	"gcms/pkg/domain"
)

// Option configures a store at construction time.
type Option func(*options)

type options struct {
	logger   *slog.Logger
	recorder observability.Recorder
	newID    func() string
}

// WithLogger sets the structured logger. The default discards output.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithRecorder sets the metrics recorder. The default records nothing.
func WithRecorder(r observability.Recorder) Option {
	return func(o *options) {
		if r != nil {
			o.recorder = r
		}
	}
}

// WithIDGenerator replaces the id generator used by Add for entities without
// an id.
func WithIDGenerator(fn func() string) Option {
	return func(o *options) {
		if fn != nil {
			o.newID = fn
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		recorder: observability.Nop{},
		newID:    domain.NewID,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// slot is one persisted part of a store's state: a collection or the session
// singleton.
type slot interface {
	// encode writes the slot's fields into state.
	encode(state map[string]json.RawMessage) error
	// decode loads the slot from migrated state, substituting defaults for
	// anything missing or malformed. It reports whether a fallback happened.
	decode(state migrate.State) (fellBack bool)
	// snapshot and restore support rollback after a failed flush.
	snapshot() any
	restore(any)
}

// binding ties a store's slots to its durable record.
type binding struct {
	mu       sync.Mutex
	key      string
	chain    migrate.Chain
	backend  domain.Backend
	logger   *slog.Logger
	recorder observability.Recorder
	newID    func() string
	slots    []slot
	// version of the record as loaded; newer-than-current records keep it.
	version int
}

func newBinding(key string, chain migrate.Chain, backend domain.Backend, o options) *binding {
	return &binding{
		key:      key,
		chain:    chain,
		backend:  backend,
		logger:   o.logger.With("store", key),
		recorder: o.recorder,
		newID:    o.newID,
		version:  chain.Current,
	}
}

// Key returns the storage key the store persists under.
func (b *binding) Key() string { return b.key }

// Version returns the schema version the store writes.
func (b *binding) Version() int { return b.version }

// load hydrates every slot from the backend. Only backend errors are
// returned; any problem with the stored payload loads defaults instead.
func (b *binding) load(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	payload, err := b.backend.Load(ctx, b.key)
	if errors.Is(err, domain.ErrNoSnapshot) {
		b.decodeAll(nil)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load %s: %w", b.key, err)
	}

	var env domain.Snapshot
	if err := json.Unmarshal(payload, &env); err != nil {
		b.fallback("malformed", err.Error())
		b.decodeAll(nil)
		return nil
	}
	state, outcome := b.chain.Migrate(migrate.State(env.State), env.Version)
	if outcome.Reset {
		b.fallback("migration", outcome.Reason)
		b.decodeAll(nil)
		return b.flushLocked(ctx)
	}
	if env.Version > b.chain.Current {
		b.logger.Warn("snapshot written by a newer schema, loading best effort",
			"version", env.Version, "current", b.chain.Current)
		b.version = env.Version
	}
	b.decodeAll(state)
	if outcome.Applied > 0 {
		b.recorder.Migration(b.key, outcome.From, outcome.To)
		b.logger.Info("snapshot migrated", "from", outcome.From, "to", outcome.To)
		return b.flushLocked(ctx)
	}
	return nil
}

func (b *binding) decodeAll(state migrate.State) {
	if state == nil {
		state = migrate.State{}
	}
	for _, s := range b.slots {
		if s.decode(state) {
			b.recorder.LoadFallback(b.key, "collection")
		}
	}
}

func (b *binding) fallback(reason, detail string) {
	b.recorder.LoadFallback(b.key, reason)
	b.logger.Warn("persisted snapshot unusable, loading defaults", "reason", reason, "detail", detail)
}

// flushLocked writes the full envelope. Callers hold b.mu.
func (b *binding) flushLocked(ctx context.Context) error {
	start := time.Now()
	payload, err := b.encodeLocked()
	if err == nil {
		err = b.backend.Save(ctx, b.key, payload)
	}
	b.recorder.Flush(b.key, time.Since(start), err)
	if err != nil {
		b.logger.Error("flush failed", "error", err)
		return fmt.Errorf("flush %s: %w", b.key, err)
	}
	return nil
}

func (b *binding) encodeLocked() ([]byte, error) {
	state := make(map[string]json.RawMessage)
	for _, s := range b.slots {
		if err := s.encode(state); err != nil {
			return nil, err
		}
	}
	return json.Marshal(domain.Snapshot{Version: b.version, State: state})
}

// mutate runs fn under the store lock and flushes the result. When fn or the
// flush fails every slot is restored to its prior state. notify runs after
// the lock is released and only on success.
func (b *binding) mutate(ctx context.Context, fn func() (changed bool, err error)) (notify bool, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	saved := make([]any, len(b.slots))
	for i, s := range b.slots {
		saved[i] = s.snapshot()
	}
	changed, err := fn()
	if err == nil && changed {
		err = b.flushLocked(ctx)
	}
	if err != nil {
		for i, s := range b.slots {
			s.restore(saved[i])
		}
		return false, err
	}
	return changed, nil
}
