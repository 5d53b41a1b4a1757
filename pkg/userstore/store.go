package userstore

import (
	"context"
	"errors"
)

// Sentinel errors for store operations.
var (
	// ErrNotFound is returned when no user matches the lookup.
	ErrNotFound = errors.New("user not found")

	// ErrConflict is returned when a user with the same ID or username
	// already exists.
	ErrConflict = errors.New("user already exists")
)

// Store is the contract all user store backends implement. Mutations
// are serialized by the backend; callers never coordinate writers.
type Store interface {
	// Get retrieves a user by ID. Returns ErrNotFound if absent.
	Get(ctx context.Context, id string) (*User, error)

	// GetByUsername retrieves a user by username. Returns ErrNotFound
	// if absent.
	GetByUsername(ctx context.Context, username string) (*User, error)

	// List returns all users, active and inactive.
	List(ctx context.Context) ([]*User, error)

	// Create inserts a new user. Returns ErrConflict when the ID or
	// username is taken.
	Create(ctx context.Context, u *User) error

	// Update replaces an existing user record by ID. Returns
	// ErrNotFound if absent.
	Update(ctx context.Context, u *User) error

	// Delete physically removes a record. Normal flows deactivate
	// instead; this exists for explicit purges only.
	Delete(ctx context.Context, id string) error

	// Close releases backend resources.
	Close() error
}
