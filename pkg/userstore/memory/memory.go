// Package memory provides an in-memory implementation of
// userstore.Store for testing and development. Records are lost when
// the process restarts.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/pforte-dev/pforte/pkg/userstore"
)

// Store is an in-memory user store.
type Store struct {
	mu    sync.RWMutex
	users map[string]*userstore.User // keyed by ID
}

// Ensure Store implements userstore.Store at compile time.
var _ userstore.Store = (*Store)(nil)

// New creates an empty in-memory store.
func New() *Store {
	return &Store{users: make(map[string]*userstore.User)}
}

// Get retrieves a user by ID.
func (s *Store) Get(_ context.Context, id string) (*userstore.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, userstore.ErrNotFound
	}
	return u.Clone(), nil
}

// GetByUsername retrieves a user by username.
func (s *Store) GetByUsername(_ context.Context, username string) (*userstore.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Username == username {
			return u.Clone(), nil
		}
	}
	return nil, userstore.ErrNotFound
}

// List returns all users sorted by username for deterministic output.
func (s *Store) List(_ context.Context) ([]*userstore.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*userstore.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

// Create inserts a new user.
func (s *Store) Create(_ context.Context, u *userstore.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[u.ID]; exists {
		return userstore.ErrConflict
	}
	for _, existing := range s.users {
		if existing.Username == u.Username {
			return userstore.ErrConflict
		}
	}

	s.users[u.ID] = u.Clone()
	return nil
}

// Update replaces an existing user record.
func (s *Store) Update(_ context.Context, u *userstore.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[u.ID]; !exists {
		return userstore.ErrNotFound
	}
	s.users[u.ID] = u.Clone()
	return nil
}

// Delete physically removes a record.
func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[id]; !exists {
		return userstore.ErrNotFound
	}
	delete(s.users, id)
	return nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error { return nil }
