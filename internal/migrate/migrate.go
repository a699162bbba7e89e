// Package migrate maps persisted store state written by an older schema
// version onto the current one through an ordered chain of single-step
// migrations.
package migrate

import (
	"encoding/json"
	"fmt"
)

// State is the raw persisted state of one store: collection name to raw JSON.
type State map[string]json.RawMessage

// Clone returns a shallow copy of the state with copied payload bytes.
func (s State) Clone() State {
	if s == nil {
		return nil
	}
	out := make(State, len(s))
	for k, v := range s {
		out[k] = append(json.RawMessage(nil), v...)
	}
	return out
}

// Step migrates state written at version v to version v+1. A step returns an
// error when the input is unrecoverable; the chain then falls back to defaults.
type Step func(State) (State, error)

// Chain is the ordered set of steps for one store keyed by source version.
type Chain struct {
	Current int
	Steps   map[int]Step
}

// Outcome describes what Migrate did.
type Outcome struct {
	From    int
	To      int
	Applied int
	// Reset is set when the chain could not complete and the caller must load defaults.
	Reset  bool
	Reason string
}

// Migrate applies every step from version from up to c.Current. It never
// panics: a missing step, a failing step or a panicking step yields a nil
// state with Outcome.Reset set. A from version newer than Current is returned
// unchanged.
func (c Chain) Migrate(state State, from int) (out State, outcome Outcome) {
	outcome = Outcome{From: from, To: c.Current}
	if from < 0 {
		outcome.Reset = true
		outcome.Reason = fmt.Sprintf("invalid version %d", from)
		return nil, outcome
	}
	if from >= c.Current {
		outcome.To = from
		return state, outcome
	}
	cur := state.Clone()
	for v := from; v < c.Current; v++ {
		step, ok := c.Steps[v]
		if !ok {
			outcome.Reset = true
			outcome.Reason = fmt.Sprintf("no migration from version %d", v)
			return nil, outcome
		}
		next, err := runStep(step, cur)
		if err != nil {
			outcome.Reset = true
			outcome.Reason = fmt.Sprintf("migrate %d->%d: %v", v, v+1, err)
			return nil, outcome
		}
		cur = next
		outcome.Applied++
	}
	return cur, outcome
}

func runStep(step Step, state State) (out State, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return step(state)
}

// Reset is a step that discards all persisted collections so the store loads
// its schema defaults.
func Reset(State) (State, error) {
	return State{}, nil
}

// Identity is a step for version bumps with no shape change.
func Identity(s State) (State, error) {
	return s, nil
}

// EachRecord rewrites every record of the named collection. Records are
// decoded as generic JSON objects; a collection that is not an array of
// objects is dropped so that the store falls back to its default.
func EachRecord(s State, collection string, fn func(map[string]any)) State {
	raw, ok := s[collection]
	if !ok {
		return s
	}
	var records []map[string]any
	if err := json.Unmarshal(raw, &records); err != nil {
		delete(s, collection)
		return s
	}
	for _, r := range records {
		if r != nil {
			fn(r)
		}
	}
	encoded, err := json.Marshal(records)
	if err != nil {
		delete(s, collection)
		return s
	}
	s[collection] = encoded
	return s
}
