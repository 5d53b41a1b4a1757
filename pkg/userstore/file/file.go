// Package file provides the default userstore.Store backend: a single
// JSON document on disk. All mutations are serialized behind one mutex
// and persisted with a write-to-temp-then-rename so a crash mid-write
// never corrupts the store.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/pforte-dev/pforte/pkg/userstore"
)

// documentVersion is written into the metadata block of every persisted
// document.
const documentVersion = 1

// document is the persisted JSON shape.
type document struct {
	Users    map[string]*userstore.User `json:"users"`
	Metadata metadata                   `json:"metadata"`
}

type metadata struct {
	Version int `json:"version"`
}

// Store is a JSON-file-backed user store. The full document is held in
// memory; every mutation rewrites the file atomically.
type Store struct {
	path string

	mu    sync.Mutex
	users map[string]*userstore.User
}

// Ensure Store implements userstore.Store at compile time.
var _ userstore.Store = (*Store)(nil)

// Open loads the store from path, creating an empty document if the
// file does not exist yet.
func Open(path string) (*Store, error) {
	s := &Store{
		path:  path,
		users: make(map[string]*userstore.User),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return s, nil
		}
		return nil, fmt.Errorf("reading user store: %w", err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing user store %s: %w", path, err)
	}
	if doc.Users != nil {
		s.users = doc.Users
	}

	return s, nil
}

// Get retrieves a user by ID.
func (s *Store) Get(_ context.Context, id string) (*userstore.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, userstore.ErrNotFound
	}
	return u.Clone(), nil
}

// GetByUsername retrieves a user by username.
func (s *Store) GetByUsername(_ context.Context, username string) (*userstore.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Username == username {
			return u.Clone(), nil
		}
	}
	return nil, userstore.ErrNotFound
}

// List returns all users sorted by username.
func (s *Store) List(_ context.Context) ([]*userstore.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*userstore.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

// Create inserts a new user and persists the document.
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
	return s.persistLocked()
}

// Update replaces an existing record and persists the document.
func (s *Store) Update(_ context.Context, u *userstore.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[u.ID]; !exists {
		return userstore.ErrNotFound
	}

	s.users[u.ID] = u.Clone()
	return s.persistLocked()
}

// Delete physically removes a record and persists the document.
func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[id]; !exists {
		return userstore.ErrNotFound
	}

	delete(s.users, id)
	return s.persistLocked()
}

// Close is a no-op: every mutation is persisted immediately.
func (s *Store) Close() error { return nil }

// persistLocked writes the document to a temp file in the same
// directory and renames it over the store path. Must be called with the
// mutex held.
func (s *Store) persistLocked() error {
	doc := document{
		Users:    s.users,
		Metadata: metadata{Version: documentVersion},
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling user store: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".users-*.json")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing user store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing user store: %w", err)
	}
	return nil
}
