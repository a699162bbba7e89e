package store

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"sync"

	"gcms/internal/migrate"
	"gcms/pkg/domain"
)

// schema describes how a collection treats its entity type.
type schema[E domain.Entity] struct {
	name  string
	clone func(E) E
	// withID returns e carrying id.
	withID func(e E, id string) E
	// prepare normalises a record on load and before every write.
	prepare func(E) E
	// defaults seeds the collection when nothing usable was persisted.
	defaults func() []E
	// stale reports a loaded record whose derived fields prepare will rewrite.
	stale func(E) bool
}

// Collection is an ordered, id-keyed set of records owned by one store.
// Reads return deep copies; mutations flush the owning store.
type Collection[E domain.Entity] struct {
	b      *binding
	schema schema[E]

	items   []E
	index   map[string]int
	retired map[string]struct{}

	lmu       sync.Mutex
	listeners map[int]func([]E)
	nextL     int
}

func newCollection[E domain.Entity](b *binding, s schema[E]) *Collection[E] {
	if s.prepare == nil {
		s.prepare = func(e E) E { return e }
	}
	c := &Collection[E]{
		b:         b,
		schema:    s,
		index:     make(map[string]int),
		retired:   make(map[string]struct{}),
		listeners: make(map[int]func([]E)),
	}
	b.slots = append(b.slots, c)
	return c
}

// Name returns the collection's key inside the persisted state.
func (c *Collection[E]) Name() string { return c.schema.name }

// List returns every record in insertion order.
func (c *Collection[E]) List() []E {
	c.b.mu.Lock()
	defer c.b.mu.Unlock()
	return c.copyLocked()
}

// Get returns the record with id.
func (c *Collection[E]) Get(id string) (E, bool) {
	c.b.mu.Lock()
	defer c.b.mu.Unlock()
	i, ok := c.index[id]
	if !ok {
		var zero E
		return zero, false
	}
	return c.schema.clone(c.items[i]), true
}

// Len returns the number of live records.
func (c *Collection[E]) Len() int {
	c.b.mu.Lock()
	defer c.b.mu.Unlock()
	return len(c.items)
}

// Add appends e. An empty id is replaced with a generated one; an id that is
// live or was removed earlier is rejected with domain.ErrDuplicateID.
//
// Retired ids are only remembered while the store is open, so callers outside
// the process should go through Create.
func (c *Collection[E]) Add(ctx context.Context, e E) (E, error) {
	return c.insert(ctx, e, false)
}

// Create appends e under a freshly generated id, ignoring any id e carries.
func (c *Collection[E]) Create(ctx context.Context, e E) (E, error) {
	return c.insert(ctx, e, true)
}

func (c *Collection[E]) insert(ctx context.Context, e E, generate bool) (E, error) {
	var added E
	ok, err := c.b.mutate(ctx, func() (bool, error) {
		id := e.EntityID()
		if generate || id == "" {
			id = c.freshIDLocked()
		} else if c.takenLocked(id) {
			return false, fmt.Errorf("%s %q: %w", c.schema.name, id, domain.ErrDuplicateID)
		}
		added = c.schema.prepare(c.schema.withID(c.schema.clone(e), id))
		c.index[id] = len(c.items)
		c.items = append(c.items, added)
		return true, nil
	})
	if err != nil {
		var zero E
		return zero, err
	}
	c.done(ok, "add")
	return c.schema.clone(added), nil
}

// Update merges p onto the record with id. A missing id is a silent no-op,
// logged and counted.
func (c *Collection[E]) Update(ctx context.Context, id string, p domain.Patch[E]) error {
	if p == nil {
		return nil
	}
	ok, err := c.b.mutate(ctx, func() (bool, error) {
		i, found := c.index[id]
		if !found {
			return false, nil
		}
		next := p.Apply(c.schema.clone(c.items[i]))
		c.items[i] = c.schema.prepare(c.schema.withID(next, id))
		return true, nil
	})
	if err != nil {
		return err
	}
	if !ok {
		c.noop("update", id)
		return nil
	}
	c.done(true, "update")
	return nil
}

// Remove deletes the record with id. It never cascades to other collections.
// A missing id is a silent no-op, logged and counted.
func (c *Collection[E]) Remove(ctx context.Context, id string) error {
	ok, err := c.b.mutate(ctx, func() (bool, error) {
		i, found := c.index[id]
		if !found {
			return false, nil
		}
		c.items = append(c.items[:i:i], c.items[i+1:]...)
		c.retired[id] = struct{}{}
		c.reindexLocked()
		return true, nil
	})
	if err != nil {
		return err
	}
	if !ok {
		c.noop("remove", id)
		return nil
	}
	c.done(true, "remove")
	return nil
}

// Clear removes every record. Cleared ids stay retired.
func (c *Collection[E]) Clear(ctx context.Context) error {
	return c.replace(ctx, nil, "clear")
}

// replace swaps the whole collection for items. Ids that disappear are
// retired; ids present in items are live again.
func (c *Collection[E]) replace(ctx context.Context, items []E, action string) error {
	ok, err := c.b.mutate(ctx, func() (bool, error) {
		for _, e := range c.items {
			c.retired[e.EntityID()] = struct{}{}
		}
		c.items = make([]E, 0, len(items))
		for _, e := range items {
			delete(c.retired, e.EntityID())
			c.items = append(c.items, c.schema.prepare(c.schema.clone(e)))
		}
		c.reindexLocked()
		return true, nil
	})
	if err != nil {
		return err
	}
	c.done(ok, action)
	return nil
}

// Subscribe registers fn to receive a fresh copy of the collection after
// every successful mutation. The returned func cancels the subscription.
func (c *Collection[E]) Subscribe(fn func([]E)) (cancel func()) {
	c.lmu.Lock()
	defer c.lmu.Unlock()
	id := c.nextL
	c.nextL++
	c.listeners[id] = fn
	return func() {
		c.lmu.Lock()
		defer c.lmu.Unlock()
		delete(c.listeners, id)
	}
}

func (c *Collection[E]) done(changed bool, action string) {
	if !changed {
		return
	}
	c.b.recorder.Mutation(c.b.key, c.schema.name, action)
	c.lmu.Lock()
	fns := make([]func([]E), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.lmu.Unlock()
	for _, fn := range fns {
		fn(c.List())
	}
}

func (c *Collection[E]) noop(action, id string) {
	c.b.recorder.NoOp(c.b.key, c.schema.name, action)
	c.b.logger.Debug("mutation matched no record", "collection", c.schema.name, "action", action, "id", id)
}

func (c *Collection[E]) takenLocked(id string) bool {
	if _, ok := c.index[id]; ok {
		return true
	}
	_, ok := c.retired[id]
	return ok
}

func (c *Collection[E]) freshIDLocked() string {
	for {
		id := c.b.newID()
		if id != "" && !c.takenLocked(id) {
			return id
		}
	}
}

func (c *Collection[E]) reindexLocked() {
	clear(c.index)
	for i, e := range c.items {
		c.index[e.EntityID()] = i
	}
}

func (c *Collection[E]) copyLocked() []E {
	out := make([]E, len(c.items))
	for i, e := range c.items {
		out[i] = c.schema.clone(e)
	}
	return out
}

type collectionState[E any] struct {
	items   []E
	retired map[string]struct{}
}

func (c *Collection[E]) snapshot() any {
	return collectionState[E]{items: c.copyLocked(), retired: maps.Clone(c.retired)}
}

func (c *Collection[E]) restore(v any) {
	st := v.(collectionState[E])
	c.items = st.items
	c.retired = st.retired
	c.reindexLocked()
}

func (c *Collection[E]) encode(state map[string]json.RawMessage) error {
	raw, err := json.Marshal(c.items)
	if err != nil {
		return fmt.Errorf("encode %s: %w", c.schema.name, err)
	}
	state[c.schema.name] = raw
	return nil
}

func (c *Collection[E]) decode(state migrate.State) bool {
	raw, ok := state[c.schema.name]
	if ok && string(raw) == "null" {
		ok = false
	}
	var records []E
	fellBack := false
	if ok {
		if err := json.Unmarshal(raw, &records); err != nil {
			c.b.logger.Warn("collection unreadable, loading defaults", "collection", c.schema.name, "error", err)
			records, ok, fellBack = nil, false, true
		}
	}
	if !ok && c.schema.defaults != nil {
		records = c.schema.defaults()
	}
	c.items = make([]E, 0, len(records))
	clear(c.index)
	for _, e := range records {
		id := e.EntityID()
		if id == "" {
			continue
		}
		if _, dup := c.index[id]; dup {
			c.b.logger.Warn("dropping duplicate id on load", "collection", c.schema.name, "id", id)
			continue
		}
		if c.schema.stale != nil && c.schema.stale(e) {
			c.b.logger.Info("recomputing stale derived fields on load", "collection", c.schema.name, "id", id)
		}
		c.index[id] = len(c.items)
		c.items = append(c.items, c.schema.prepare(e))
	}
	return fellBack
}
