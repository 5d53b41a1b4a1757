package auth

import (
	"context"

	"github.com/pforte-dev/pforte/pkg/authz"
)

// principalKey is a private type for the principal context key.
type principalKey struct{}

// permissionsKey is a private type for the permission-set context key.
type permissionsKey struct{}

// SetPrincipal stores the authenticated principal in the context.
func SetPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext retrieves the authenticated principal.
// Returns nil if no principal is set (identity was never resolved).
func PrincipalFromContext(ctx context.Context) *Principal {
	if v, ok := ctx.Value(principalKey{}).(*Principal); ok {
		return v
	}
	return nil
}

// SetPermissions stores the resolved permission set in the context.
func SetPermissions(ctx context.Context, ps authz.PermissionSet) context.Context {
	return context.WithValue(ctx, permissionsKey{}, ps)
}

// PermissionsFromContext retrieves the resolved permission set.
// The second return value is false when identity resolution never ran.
func PermissionsFromContext(ctx context.Context) (authz.PermissionSet, bool) {
	v, ok := ctx.Value(permissionsKey{}).(authz.PermissionSet)
	return v, ok
}
