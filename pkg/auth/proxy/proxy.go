// Package proxy authenticates requests from a trusted reverse proxy
// that has already verified the caller upstream and forwards the
// identity in headers. Enable only when the gateway is unreachable
// except through that proxy: the headers are trusted verbatim.
package proxy

import (
	"context"
	"net/http"
	"strings"

	"github.com/pforte-dev/pforte/pkg/auth"
)

// Config holds the trusted header names.
type Config struct {
	// UserHeader carries the authenticated username. Default: "X-Forwarded-User".
	UserHeader string

	// GroupsHeader carries the caller's group list. Default: "X-Forwarded-Groups".
	GroupsHeader string

	// GroupSeparator splits the groups header value. Default: ",".
	GroupSeparator string
}

func (c *Config) applyDefaults() {
	if c.UserHeader == "" {
		c.UserHeader = "X-Forwarded-User"
	}
	if c.GroupsHeader == "" {
		c.GroupsHeader = "X-Forwarded-Groups"
	}
	if c.GroupSeparator == "" {
		c.GroupSeparator = ","
	}
}

// Authenticator trusts reverse-proxy identity headers.
type Authenticator struct {
	cfg Config
}

// New creates a proxy-header authenticator.
func New(cfg Config) *Authenticator {
	cfg.applyDefaults()
	return &Authenticator{cfg: cfg}
}

// Authenticate reads the configured identity headers.
//
// Decision outcomes:
//   - Abstain: user header absent or empty
//   - Yes: user header present; groups parsed from the groups header
//
// There is no No outcome: the proxy is the verifier, so a present
// header is by definition a verified identity.
func (a *Authenticator) Authenticate(_ context.Context, r *http.Request) auth.Result {
	username := strings.TrimSpace(r.Header.Get(a.cfg.UserHeader))
	if username == "" {
		return auth.Result{Decision: auth.Abstain}
	}

	var groups []string
	if raw := r.Header.Get(a.cfg.GroupsHeader); raw != "" {
		for _, g := range strings.Split(raw, a.cfg.GroupSeparator) {
			if g = strings.TrimSpace(g); g != "" {
				groups = append(groups, g)
			}
		}
	}

	return auth.Result{
		Decision: auth.Yes,
		Principal: &auth.Principal{
			ID:          username,
			DisplayName: username,
			RawGroups:   groups,
			Method:      auth.MethodProxy,
		},
	}
}
