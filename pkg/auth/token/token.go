// Package token issues and verifies the gateway's own bearer tokens.
//
// Tokens are HS256-signed JWTs carrying the principal's identity, raw
// groups, and the method that originally authenticated it. Every login
// flow (local, LDAP, OIDC callback, NTLM callback) converges on one of
// these tokens; the bearer Authenticator is what re-establishes the
// principal on subsequent requests.
package token

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"github.com/pforte-dev/pforte/pkg/auth"
)

// Config holds the token issuer/verifier configuration.
type Config struct {
	// Secret is the HMAC signing key. Required, non-empty.
	Secret []byte

	// Issuer is stamped into and required from the iss claim.
	// Default: "pforte".
	Issuer string

	// TTL is the token lifetime. Default: 24h.
	TTL time.Duration

	// now is overridable in tests.
	now func() time.Time
}

func (c *Config) applyDefaults() {
	if c.Issuer == "" {
		c.Issuer = "pforte"
	}
	if c.TTL == 0 {
		c.TTL = 24 * time.Hour
	}
	if c.now == nil {
		c.now = time.Now
	}
}

// claims is the gateway token payload.
type claims struct {
	jwtlib.RegisteredClaims
	Name   string   `json:"name,omitempty"`
	Groups []string `json:"groups,omitempty"`
	Method string   `json:"method"`
}

// Issuer creates signed gateway tokens.
type Issuer struct {
	cfg Config
}

// NewIssuer creates a token issuer.
func NewIssuer(cfg Config) (*Issuer, error) {
	if len(cfg.Secret) == 0 {
		return nil, fmt.Errorf("token: empty signing secret")
	}
	cfg.applyDefaults()
	return &Issuer{cfg: cfg}, nil
}

// Issue creates a signed token for the principal, valid for the
// configured TTL (or ttl when positive, so per-method session timeouts
// can override the default).
func (i *Issuer) Issue(p *auth.Principal, ttl time.Duration) (string, error) {
	if p == nil || p.ID == "" {
		return "", fmt.Errorf("token: principal with empty id")
	}
	if ttl <= 0 {
		ttl = i.cfg.TTL
	}

	now := i.cfg.now()
	c := claims{
		RegisteredClaims: jwtlib.RegisteredClaims{
			Issuer:    i.cfg.Issuer,
			Subject:   p.ID,
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(now.Add(ttl)),
		},
		Name:   p.DisplayName,
		Groups: p.RawGroups,
		Method: string(p.Method),
	}

	return jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, c).SignedString(i.cfg.Secret)
}

// Authenticator validates gateway bearer tokens.
type Authenticator struct {
	cfg Config
}

// NewAuthenticator creates a bearer-token authenticator.
func NewAuthenticator(cfg Config) (*Authenticator, error) {
	if len(cfg.Secret) == 0 {
		return nil, fmt.Errorf("token: empty signing secret")
	}
	cfg.applyDefaults()
	return &Authenticator{cfg: cfg}, nil
}

// CookieName is the cookie carrying the gateway token for flows that
// cannot set an Authorization header (OIDC and NTLM redirects land the
// browser back on the gate page with only a cookie to show for it).
const CookieName = "pforte_token"

// Authenticate extracts a bearer token from the Authorization header,
// falling back to the token cookie, and validates it.
//
// Decision outcomes:
//   - Abstain: no bearer header and no token cookie
//   - No: token present but invalid (expired, bad signature, wrong issuer)
//   - Yes: valid token with populated Principal
func (a *Authenticator) Authenticate(_ context.Context, r *http.Request) auth.Result {
	tokenStr := ""
	header := r.Header.Get("Authorization")
	switch {
	case strings.HasPrefix(header, "Bearer "):
		tokenStr = strings.TrimPrefix(header, "Bearer ")
	case header != "":
		return auth.Result{Decision: auth.Abstain}
	default:
		cookie, err := r.Cookie(CookieName)
		if err != nil {
			return auth.Result{Decision: auth.Abstain}
		}
		tokenStr = cookie.Value
	}

	if tokenStr == "" {
		return auth.Result{Decision: auth.No, Err: fmt.Errorf("empty bearer token")}
	}

	parsed, err := jwtlib.ParseWithClaims(tokenStr, &claims{},
		func(t *jwtlib.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return a.cfg.Secret, nil
		},
		jwtlib.WithValidMethods([]string{"HS256"}),
		jwtlib.WithIssuer(a.cfg.Issuer),
		jwtlib.WithTimeFunc(a.cfg.now),
	)
	if err != nil {
		return auth.Result{Decision: auth.No, Err: fmt.Errorf("invalid token: %w", err)}
	}

	c, ok := parsed.Claims.(*claims)
	if !ok || !parsed.Valid || c.Subject == "" {
		return auth.Result{Decision: auth.No, Err: fmt.Errorf("invalid token claims")}
	}

	method := auth.Method(c.Method)
	if method == "" {
		method = auth.MethodLocal
	}

	return auth.Result{
		Decision: auth.Yes,
		Principal: &auth.Principal{
			ID:          c.Subject,
			DisplayName: c.Name,
			RawGroups:   c.Groups,
			Method:      method,
		},
	}
}
