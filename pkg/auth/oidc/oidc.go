// Package oidc drives the OpenID Connect redirect flow. The gateway
// never speaks the token-endpoint protocol itself: code exchange and ID
// token validation live behind the CodeVerifier interface, while this
// package owns the provider registry, authorize-URL construction, and
// the mapping of verified claims onto a gateway principal.
package oidc

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/pforte-dev/pforte/pkg/auth"
)

// ErrUnknownProvider is returned when a flow names an unregistered provider.
var ErrUnknownProvider = errors.New("unknown oidc provider")

// ErrCallbackFailed is returned when code exchange or claim validation
// did not yield an authenticated identity.
var ErrCallbackFailed = errors.New("callback verification failed")

// Claims is the verified identity returned by a CodeVerifier.
type Claims struct {
	Subject     string
	DisplayName string
	Groups      []string
}

// CodeVerifier exchanges an authorization code for verified claims.
type CodeVerifier interface {
	Exchange(ctx context.Context, code, redirectURI string) (*Claims, error)
}

// Provider is one configured OIDC identity provider.
type Provider struct {
	// Name is the stable identifier used in routes and throttle records.
	Name string

	// Label is the human-readable button text on the login gate.
	Label string

	// AuthorizeURL is the provider's authorization endpoint.
	AuthorizeURL string

	// ClientID identifies the gateway at the provider.
	ClientID string

	// Scopes requested at authorization. Default: openid profile email.
	Scopes string

	// Verifier performs the code exchange for this provider.
	Verifier CodeVerifier
}

// Registry holds the configured providers in registration order.
type Registry struct {
	providers map[string]*Provider
	order     []string
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]*Provider)}
}

// Register adds a provider. Re-registering a name replaces it.
func (r *Registry) Register(p *Provider) {
	if p.Scopes == "" {
		p.Scopes = "openid profile email"
	}
	if _, exists := r.providers[p.Name]; !exists {
		r.order = append(r.order, p.Name)
	}
	r.providers[p.Name] = p
}

// Get returns the named provider.
func (r *Registry) Get(name string) (*Provider, bool) {
	p, ok := r.providers[name]
	return p, ok
}

// Providers returns the registered providers in registration order.
func (r *Registry) Providers() []*Provider {
	out := make([]*Provider, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.providers[name])
	}
	return out
}

// AuthURL builds the full authorization URL for the named provider.
// redirectURI is the gateway's callback endpoint; returnURL is where
// the gate should land after the round trip and rides in state.
func (r *Registry) AuthURL(name, redirectURI, returnURL string) (string, error) {
	p, ok := r.providers[name]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}

	u, err := url.Parse(p.AuthorizeURL)
	if err != nil {
		return "", fmt.Errorf("provider %q authorize URL: %w", name, err)
	}

	q := u.Query()
	q.Set("response_type", "code")
	q.Set("client_id", p.ClientID)
	q.Set("redirect_uri", redirectURI)
	q.Set("scope", p.Scopes)
	if returnURL != "" {
		q.Set("state", returnURL)
	}
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// HandleCallback exchanges the authorization code and returns the
// authenticated principal.
func (r *Registry) HandleCallback(ctx context.Context, name, code, redirectURI string) (*auth.Principal, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
	if code == "" {
		return nil, fmt.Errorf("%w: missing code", ErrCallbackFailed)
	}

	claims, err := p.Verifier.Exchange(ctx, code, redirectURI)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCallbackFailed, err)
	}
	if claims == nil || claims.Subject == "" {
		return nil, fmt.Errorf("%w: empty subject", ErrCallbackFailed)
	}

	display := claims.DisplayName
	if display == "" {
		display = claims.Subject
	}

	return &auth.Principal{
		ID:          claims.Subject,
		DisplayName: display,
		RawGroups:   claims.Groups,
		Method:      auth.MethodOIDC,
	}, nil
}
