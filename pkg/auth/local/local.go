// Package local verifies username/password credentials against the
// durable user store.
package local

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/pforte-dev/pforte/pkg/auth"
	"github.com/pforte-dev/pforte/pkg/userstore"
)

// ErrInvalidCredentials is returned for any rejected login: unknown
// username, wrong password, inactive account, or an account not enabled
// for local auth. Callers surface one generic message for all of them.
var ErrInvalidCredentials = errors.New("invalid username or password")

// dummyHash keeps the bcrypt cost on the unknown-username path so the
// response time does not reveal whether an account exists.
var dummyHash = []byte("$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy")

// Verifier checks local credentials.
type Verifier struct {
	store userstore.Store
}

// New creates a local credential verifier backed by the given store.
func New(store userstore.Store) *Verifier {
	return &Verifier{store: store}
}

// Verify checks the username/password pair and returns the authenticated
// principal. The error is ErrInvalidCredentials for every rejection
// reason; anything else is a store failure.
func (v *Verifier) Verify(ctx context.Context, username, password string) (*auth.Principal, error) {
	if username == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := v.store.GetByUsername(ctx, username)
	if errors.Is(err, userstore.ErrNotFound) {
		bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("looking up user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	if !user.Active {
		return nil, ErrInvalidCredentials
	}
	if !user.UsableWith(userstore.MethodLocal) {
		return nil, ErrInvalidCredentials
	}

	return &auth.Principal{
		ID:          user.ID,
		DisplayName: user.Username,
		RawGroups:   user.InternalGroups,
		Method:      auth.MethodLocal,
	}, nil
}

// HashPassword produces a bcrypt hash suitable for User.PasswordHash.
func HashPassword(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(h), nil
}
