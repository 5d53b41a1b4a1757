package userstore

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/pforte-dev/pforte/pkg/authz"
	"github.com/pforte-dev/pforte/pkg/observability"
)

// The admin-rescue checks preserve one invariant: the store always
// contains at least one active user who can reach the admin group
// through a currently-enabled authentication method. They are
// preventive checks, not recovery operations; user-management endpoints
// consult them before allowing a mutation.

// HasAnyAdmin reports whether any active user's effective groups
// include an admin group and at least one of the user's applicable
// authentication methods is enabled. A disabled method's
// otherwise-qualifying admin does not count: the invariant is about
// reachable admin access, not stored records.
func HasAnyAdmin(ctx context.Context, store Store, cfg *authz.Config, methodEnabled map[string]bool) (bool, error) {
	users, err := store.List(ctx)
	if err != nil {
		return false, fmt.Errorf("listing users: %w", err)
	}

	for _, u := range users {
		if !u.Active || !isAdmin(u, cfg) {
			continue
		}
		for _, method := range u.Methods() {
			if methodEnabled[method] {
				return true, nil
			}
		}
	}
	return false, nil
}

// AssignAdminGroup idempotently adds the admin group to a user's
// internal groups. It reports whether a change was made: false when the
// group is already present or the user does not exist. Intended to be
// invoked the moment HasAnyAdmin is false and any user successfully
// authenticates, self-healing a lockout.
func AssignAdminGroup(ctx context.Context, store Store, userID, adminGroup string) (bool, error) {
	u, err := store.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("loading user %s: %w", userID, err)
	}

	if slices.Contains(u.InternalGroups, adminGroup) {
		return false, nil
	}

	u = u.Clone()
	u.InternalGroups = append(u.InternalGroups, adminGroup)
	u.UpdatedAt = time.Now().UTC()

	if err := store.Update(ctx, u); err != nil {
		return false, fmt.Errorf("updating user %s: %w", userID, err)
	}

	observability.AdminRescueTotal.WithLabelValues("assign").Inc()
	return true, nil
}

// IsLastAdmin reports whether exactly one active user carries the admin
// group and it is this user. Callers use it to veto demotion or
// deactivation of that user.
func IsLastAdmin(ctx context.Context, store Store, cfg *authz.Config, userID string) (bool, error) {
	users, err := store.List(ctx)
	if err != nil {
		return false, fmt.Errorf("listing users: %w", err)
	}

	var admins []*User
	for _, u := range users {
		if u.Active && isAdmin(u, cfg) {
			admins = append(admins, u)
		}
	}

	return len(admins) == 1 && admins[0].ID == userID, nil
}

// isAdmin reports whether the user's effective groups, expanded through
// inheritance, include any configured admin group.
func isAdmin(u *User, cfg *authz.Config) bool {
	effective := authz.ExpandGroups(u.InternalGroups, cfg)
	for _, admin := range cfg.AdminGroups {
		if _, ok := effective[admin]; ok {
			return true
		}
	}
	return false
}
