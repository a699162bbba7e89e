package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"gcms/internal/migrate"
	"gcms/pkg/domain"
)

// SessionStore persists the singleton authentication state.
type SessionStore struct {
	*binding
	session sessionSlot

	lmu       sync.Mutex
	listeners map[int]func(domain.Session)
	nextL     int
}

// OpenSession loads the session store from backend.
func OpenSession(ctx context.Context, backend domain.Backend, opts ...Option) (*SessionStore, error) {
	b := newBinding(SessionKey, sessionChain, backend, buildOptions(opts))
	s := &SessionStore{binding: b, listeners: make(map[int]func(domain.Session))}
	b.slots = append(b.slots, &s.session)
	if err := b.load(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Current returns a copy of the session.
func (s *SessionStore) Current() domain.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneSession(s.session.value)
}

// SetAuthenticated stores a successful auth result verbatim.
func (s *SessionStore) SetAuthenticated(ctx context.Context, res domain.AuthResult) error {
	user := res.User
	token := res.Token
	return s.set(ctx, domain.Session{User: &user, IsAuthenticated: true, Token: &token}, "login")
}

// Login calls the auth collaborator and stores its result. A failed call
// leaves the session untouched.
func (s *SessionStore) Login(ctx context.Context, auth domain.Authenticator, email, password string) (domain.User, error) {
	res, err := auth.Login(ctx, email, password)
	if err != nil {
		return domain.User{}, fmt.Errorf("login: %w", err)
	}
	if err := s.SetAuthenticated(ctx, res); err != nil {
		return domain.User{}, err
	}
	return res.User, nil
}

// Register creates an account through the auth collaborator and signs it in.
func (s *SessionStore) Register(ctx context.Context, auth domain.Authenticator, reg domain.Registration) (domain.User, error) {
	res, err := auth.Register(ctx, reg)
	if err != nil {
		return domain.User{}, fmt.Errorf("register: %w", err)
	}
	if err := s.SetAuthenticated(ctx, res); err != nil {
		return domain.User{}, err
	}
	return res.User, nil
}

// Logout signs out and deletes the durable record.
func (s *SessionStore) Logout(ctx context.Context) error {
	s.mu.Lock()
	prev := s.session.value
	s.session.value = domain.Session{}
	if err := s.backend.Delete(ctx, s.key); err != nil {
		s.session.value = prev
		s.mu.Unlock()
		return fmt.Errorf("logout: %w", err)
	}
	s.mu.Unlock()
	s.recorder.Mutation(s.key, "session", "logout")
	s.notify()
	return nil
}

// Subscribe registers fn to receive the session after every change.
func (s *SessionStore) Subscribe(fn func(domain.Session)) (cancel func()) {
	s.lmu.Lock()
	defer s.lmu.Unlock()
	id := s.nextL
	s.nextL++
	s.listeners[id] = fn
	return func() {
		s.lmu.Lock()
		defer s.lmu.Unlock()
		delete(s.listeners, id)
	}
}

func (s *SessionStore) set(ctx context.Context, next domain.Session, action string) error {
	_, err := s.mutate(ctx, func() (bool, error) {
		s.session.value = cloneSession(next)
		return true, nil
	})
	if err != nil {
		return err
	}
	s.recorder.Mutation(s.key, "session", action)
	s.notify()
	return nil
}

func (s *SessionStore) notify() {
	s.lmu.Lock()
	fns := make([]func(domain.Session), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.lmu.Unlock()
	for _, fn := range fns {
		fn(s.Current())
	}
}

// sessionSlot persists the session as the three top-level state fields.
type sessionSlot struct {
	value domain.Session
}

func (s *sessionSlot) encode(state map[string]json.RawMessage) error {
	fields := map[string]any{
		"user":            s.value.User,
		"isAuthenticated": s.value.IsAuthenticated,
		"token":           s.value.Token,
	}
	for k, v := range fields {
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode session %s: %w", k, err)
		}
		state[k] = raw
	}
	return nil
}

func (s *sessionSlot) decode(state migrate.State) bool {
	s.value = domain.Session{}
	if len(state) == 0 {
		return false
	}
	raw, err := json.Marshal(state)
	if err != nil {
		return true
	}
	var v domain.Session
	if err := json.Unmarshal(raw, &v); err != nil {
		return true
	}
	if v.IsAuthenticated && (v.Token == nil || *v.Token == "") {
		return true
	}
	s.value = v
	return false
}

func (s *sessionSlot) snapshot() any { return cloneSession(s.value) }

func (s *sessionSlot) restore(v any) { s.value = v.(domain.Session) }
