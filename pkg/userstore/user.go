package userstore

import (
	"slices"
	"time"
)

// MethodLocal is the authentication method assumed for legacy records
// that predate the AuthMethods field.
const MethodLocal = "local"

// User is a durable record in the local auth store. Records are created
// by admin or self-signup flows and deactivated rather than deleted.
type User struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"passwordHash,omitempty"`
	Active       bool   `json:"active"`

	// InternalGroups are platform-assigned groups, independent of any
	// identity provider's group claims.
	InternalGroups []string `json:"internalGroups"`

	// AuthMethods lists the methods this user may authenticate with.
	// Empty means legacy: local only.
	AuthMethods []string `json:"authMethods"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Methods returns the applicable authentication methods, defaulting to
// local for legacy records with no explicit method.
func (u *User) Methods() []string {
	if len(u.AuthMethods) == 0 {
		return []string{MethodLocal}
	}
	return u.AuthMethods
}

// UsableWith reports whether the user may authenticate with the method.
func (u *User) UsableWith(method string) bool {
	return slices.Contains(u.Methods(), method)
}

// InGroup reports whether the user directly carries the group.
func (u *User) InGroup(name string) bool {
	return slices.Contains(u.InternalGroups, name)
}

// Clone returns a deep copy, so callers can mutate without aliasing
// store-held state.
func (u *User) Clone() *User {
	cp := *u
	cp.InternalGroups = slices.Clone(u.InternalGroups)
	cp.AuthMethods = slices.Clone(u.AuthMethods)
	return &cp
}
