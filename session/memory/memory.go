// Package memory provides an in-memory session store, suitable for
// tests and single-process applications that do not need durability.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/smallnest/deepresearch/session"
)

// Store keeps sessions in a map guarded by a RWMutex. Save and Load
// both deep-copy, so callers and the store never share mutable state.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*session.State
}

var _ session.Store = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{sessions: make(map[string]*session.State)}
}

// Save stores a copy of the session.
func (s *Store) Save(ctx context.Context, st *session.State) error {
	if st == nil || st.ID == "" {
		return fmt.Errorf("session id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[st.ID] = st.Clone()
	return nil
}

// Load returns a copy of the session, or session.ErrNotFound.
func (s *Store) Load(ctx context.Context, id string) (*session.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", session.ErrNotFound, id)
	}
	return st.Clone(), nil
}

// List returns all session IDs in lexical order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Delete removes the session. Deleting a missing ID is a no-op.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}
