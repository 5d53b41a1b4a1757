// Package ldap authenticates username/password credentials against one
// or more directory servers. The wire protocol lives behind the
// BindVerifier interface; this package owns provider selection and the
// mapping of a verified directory entry onto a gateway principal.
package ldap

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/pforte-dev/pforte/pkg/auth"
)

// ErrInvalidCredentials is returned when the directory rejects the bind.
var ErrInvalidCredentials = errors.New("invalid username or password")

// ErrUnknownProvider is returned when a login names a provider that is
// not registered.
var ErrUnknownProvider = errors.New("unknown ldap provider")

// Entry is a verified directory entry.
type Entry struct {
	Username    string
	DisplayName string
	Groups      []string
}

// BindVerifier performs the actual directory bind and group lookup.
// Implementations return ErrInvalidCredentials (wrapped or not) when
// the directory rejects the credentials; any other error is treated as
// a directory failure, not a rejection.
type BindVerifier interface {
	VerifyBind(ctx context.Context, username, password string) (*Entry, error)
}

// Registry holds the configured directory providers in registration order.
type Registry struct {
	providers map[string]BindVerifier
	order     []string
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]BindVerifier)}
}

// Register adds a named provider. Re-registering a name replaces it.
func (r *Registry) Register(name string, v BindVerifier) {
	if _, exists := r.providers[name]; !exists {
		r.order = append(r.order, name)
	}
	r.providers[name] = v
}

// Names returns the registered provider names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Verify authenticates against the named provider. An empty provider
// name selects the first registered provider.
func (r *Registry) Verify(ctx context.Context, provider, username, password string) (*auth.Principal, error) {
	if username == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	if provider == "" {
		if len(r.order) == 0 {
			return nil, ErrUnknownProvider
		}
		provider = r.order[0]
	}

	v, ok := r.providers[provider]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, provider)
	}

	entry, err := v.VerifyBind(ctx, username, password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("ldap provider %q: %w", provider, err)
	}

	groups := make([]string, len(entry.Groups))
	copy(groups, entry.Groups)
	sort.Strings(groups)

	name := entry.DisplayName
	if name == "" {
		name = entry.Username
	}

	return &auth.Principal{
		ID:          entry.Username,
		DisplayName: name,
		RawGroups:   groups,
		Method:      auth.MethodLDAP,
	}, nil
}
