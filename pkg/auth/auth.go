package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/pforte-dev/pforte/pkg/debug"
)

// Method identifies how a principal authenticated.
type Method string

const (
	MethodLocal     Method = "local"
	MethodLDAP      Method = "ldap"
	MethodNTLM      Method = "ntlm"
	MethodOIDC      Method = "oidc"
	MethodProxy     Method = "proxy"
	MethodAnonymous Method = "anonymous"
)

// Decision represents the three possible outcomes of authentication.
type Decision int

const (
	// Yes means credentials are valid. The chain stops and the principal is used.
	Yes Decision = iota

	// No means credentials are present but invalid. The chain stops and the
	// request is rejected.
	No

	// Abstain means this authenticator cannot handle the credentials type.
	// The chain continues to the next authenticator.
	Abstain
)

// Result carries the outcome of an authentication attempt.
type Result struct {
	Decision  Decision
	Principal *Principal // populated only when Decision == Yes
	Err       error      // populated only when Decision == No
}

// Principal represents an authenticated caller.
type Principal struct {
	// ID is the unique identifier (required, non-empty).
	ID string

	// DisplayName is a human-readable name for status responses.
	DisplayName string

	// RawGroups holds the unexpanded group names attached to the caller,
	// as supplied by the identity source (store, IdP, proxy headers).
	// Permission expansion happens in the authz layer.
	RawGroups []string

	// Method records how the caller authenticated.
	Method Method
}

// IsAnonymous reports whether the principal is the anonymous placeholder.
func (p *Principal) IsAnonymous() bool {
	return p == nil || p.Method == MethodAnonymous
}

// AnonymousPrincipal returns the placeholder principal used when anonymous
// access is enabled and no credentials were presented.
func AnonymousPrincipal() *Principal {
	return &Principal{ID: "anonymous", DisplayName: "Anonymous", Method: MethodAnonymous}
}

// Authenticator examines request credentials and returns a three-outcome vote.
type Authenticator interface {
	Authenticate(ctx context.Context, r *http.Request) Result
}

// Sentinel errors.
var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrForbidden       = errors.New("access denied")
	ErrTooManyRequests = errors.New("rate limit exceeded")
)

// Chain evaluates authenticators in order using three-outcome voting.
type Chain struct {
	// Authenticators are evaluated left to right.
	Authenticators []Authenticator

	// AnonymousEnabled controls the result when no valid credential is
	// found: when true the anonymous principal is produced, both on
	// all-abstain and on a rejected credential (a stale token must not
	// lock out a visitor the deployment would admit empty-handed).
	// Otherwise the request has no identity and the result is No.
	AnonymousEnabled bool
}

// Authenticate runs the chain. Stops on the first Yes or No.
// Without a Yes, the anonymous policy decides.
func (c *Chain) Authenticate(ctx context.Context, r *http.Request) Result {
	result := Result{Decision: No, Err: ErrUnauthenticated}

	for _, authn := range c.Authenticators {
		result = authn.Authenticate(ctx, r)
		if result.Decision == Yes {
			return result
		}
		if result.Decision == No {
			break
		}
		result = Result{Decision: No, Err: ErrUnauthenticated}
	}

	if c.AnonymousEnabled {
		if result.Err != nil && !errors.Is(result.Err, ErrUnauthenticated) {
			debug.Log("auth", "invalid credential, continuing as anonymous", "error", result.Err)
		}
		return Result{Decision: Yes, Principal: AnonymousPrincipal()}
	}

	return result
}
