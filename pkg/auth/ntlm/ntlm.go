// Package ntlm drives the Windows NTLM handshake at the login endpoint.
// The handshake itself (type-1/2/3 message parsing, domain controller
// validation) lives behind the Negotiator interface; this package owns
// the multi-round HTTP contract and the principal mapping.
package ntlm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pforte-dev/pforte/pkg/auth"
)

// ErrHandshakeFailed is returned when the negotiator rejects the
// client's type-3 response.
var ErrHandshakeFailed = errors.New("ntlm handshake failed")

// Identity is a verified Windows account.
type Identity struct {
	Username string
	Domain   string
	Groups   []string
}

// Outcome is one negotiator step: either a challenge to return to the
// client (handshake continues) or a verified identity (handshake done).
type Outcome struct {
	// Challenge, when non-empty, is the base64 type-2 message the
	// handler must send back in WWW-Authenticate.
	Challenge string

	// Identity is set when the handshake completed.
	Identity *Identity
}

// Negotiator advances the NTLM handshake by one step. message is the
// base64 payload from the Authorization header.
type Negotiator interface {
	Negotiate(ctx context.Context, message string) (*Outcome, error)
}

// Flow drives the handshake against the HTTP Authorization header.
type Flow struct {
	negotiator Negotiator
}

// NewFlow creates an NTLM login flow. A nil negotiator yields a flow
// that starts handshakes but rejects every message.
func NewFlow(n Negotiator) *Flow {
	return &Flow{negotiator: n}
}

// StepResult tells the login handler what to send next.
type StepResult struct {
	// Challenge for the WWW-Authenticate header; empty when Done.
	Challenge string

	// Principal set when Done.
	Principal *auth.Principal

	// Done reports whether the handshake completed.
	Done bool
}

// Step advances the handshake given the raw Authorization header value.
// An empty or non-NTLM header starts a new handshake (empty challenge,
// the handler replies 401 with a bare "NTLM" challenge).
func (f *Flow) Step(ctx context.Context, authorization string) (*StepResult, error) {
	const scheme = "NTLM "

	if authorization == "" || !strings.HasPrefix(authorization, scheme) {
		return &StepResult{}, nil
	}

	message := strings.TrimSpace(strings.TrimPrefix(authorization, scheme))
	if message == "" {
		return &StepResult{}, nil
	}

	if f.negotiator == nil {
		return nil, fmt.Errorf("%w: no negotiator configured", ErrHandshakeFailed)
	}

	outcome, err := f.negotiator.Negotiate(ctx, message)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHandshakeFailed, err)
	}

	if outcome.Identity != nil {
		id := outcome.Identity
		if id.Username == "" {
			return nil, fmt.Errorf("%w: empty username", ErrHandshakeFailed)
		}
		principalID := id.Username
		if id.Domain != "" {
			principalID = id.Domain + "\\" + id.Username
		}
		return &StepResult{
			Done: true,
			Principal: &auth.Principal{
				ID:          principalID,
				DisplayName: id.Username,
				RawGroups:   id.Groups,
				Method:      auth.MethodNTLM,
			},
		}, nil
	}

	if outcome.Challenge == "" {
		return nil, fmt.Errorf("%w: negotiator returned neither challenge nor identity", ErrHandshakeFailed)
	}

	return &StepResult{Challenge: outcome.Challenge}, nil
}
