// Package gate implements the pre-bootstrap login gate: the decision
// layer that runs before the main application loads and determines
// whether to load it, redirect to an identity provider, or drive a
// self-contained login flow.
//
// The machine is an immutable State value and a single pure Update
// function. Update never performs I/O; it returns the next State plus a
// list of Commands, and the Driver executes those against pluggable
// interfaces. Rendering is equally pure: Render maps a State to a view
// tree.
package gate

import "time"

// DefaultRedirectWindow bounds auto-redirect loops per provider.
const DefaultRedirectWindow = 5 * time.Minute

// Phase is the gate's top-level state.
type Phase int

const (
	PhaseInit Phase = iota
	PhaseLoading
	PhaseLoadApp
	PhaseAwaitingOidcCallback
	PhaseAwaitingNtlmCallback
	PhaseRedirecting
	PhaseShowLogin
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseInit:
		return "Init"
	case PhaseLoading:
		return "Loading"
	case PhaseLoadApp:
		return "LoadApp"
	case PhaseAwaitingOidcCallback:
		return "AwaitingOidcCallback"
	case PhaseAwaitingNtlmCallback:
		return "AwaitingNtlmCallback"
	case PhaseRedirecting:
		return "Redirecting"
	case PhaseShowLogin:
		return "ShowLogin"
	default:
		return "Unknown"
	}
}

// LoginPhase is the sub-state within PhaseShowLogin.
type LoginPhase int

const (
	LoginMethodSelection LoginPhase = iota
	LoginCredentialsForm
	LoginSubmitting
	LoginError
)

// MethodOption is one entry of the ordered method list resolved from an
// auth-status response. Resolving availability once into this list
// replaces per-method boolean flags scattered through the flow.
type MethodOption struct {
	// Method is the credential mechanism: local, ldap, oidc, ntlm.
	Method string

	// Provider distinguishes entries of multi-provider methods (oidc).
	Provider string

	// Label is the human-readable button/heading text.
	Label string

	// Available reports whether the method is currently enabled.
	Available bool

	// RedirectURL is the navigation target for redirect methods.
	RedirectURL string
}

// Status is the gate's view of the auth-status endpoint.
type Status struct {
	Authenticated    bool
	AnonymousEnabled bool
	ProxyEnabled     bool

	// Methods is the ordered option list; only Available entries render.
	Methods []MethodOption

	// AutoRedirect names the provider to redirect to without showing
	// the login form. Empty means no auto-redirect is configured.
	AutoRedirect string

	// AutoRedirectURL is the navigation target for AutoRedirect.
	AutoRedirectURL string

	// AutoRedirectWindow is the server-advertised throttle window
	// between automatic redirects. Zero falls back to the driver's
	// configured window.
	AutoRedirectWindow time.Duration

	// User is the display name when Authenticated.
	User string
}

// available returns the available entries of the ordered method list.
func (s *Status) available() []MethodOption {
	var out []MethodOption
	for _, m := range s.Methods {
		if m.Available {
			out = append(out, m)
		}
	}
	return out
}

// hasMethod reports whether the named method is available.
func (s *Status) hasMethod(method string) bool {
	for _, m := range s.Methods {
		if m.Available && m.Method == method {
			return true
		}
	}
	return false
}

// Page describes the environment the gate starts in, parsed from the
// host page before the first event.
type Page struct {
	// HasMount reports whether the login-UI mount point exists.
	HasMount bool

	// Token is a bearer token returned by an OIDC provider round trip.
	Token string

	// NtlmSuccess is set when the URL carries ntlm=success.
	NtlmSuccess bool

	// Logout is set when the current navigation is itself a logout.
	Logout bool
}

// State is the immutable gate state. Update returns a new value; nothing
// mutates a State in place.
type State struct {
	Phase  Phase
	Login  LoginPhase
	Status *Status

	// ActiveMethod is the selected credentials method (local or ldap).
	ActiveMethod string

	// Error is the message shown with the credentials form.
	Error string

	// Overlay marks the gate as shown on top of a live session after
	// an expiry signal, rather than at initial page load.
	Overlay bool

	// Visible reports whether the gate UI is currently shown.
	Visible bool

	// Logout carries Page.Logout through the status decision.
	Logout bool
}

// NewState returns the initial state.
func NewState() State {
	return State{Phase: PhaseInit}
}
