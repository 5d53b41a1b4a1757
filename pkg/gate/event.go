package gate

// Event is an input to Update. Events come from the driver: initial
// page inspection, network results, user actions, and the session
// expiry signal.
type Event interface{ isEvent() }

// Start begins the flow with the parsed page environment.
type Start struct{ Page Page }

// StatusReceived delivers an auth-status response.
type StatusReceived struct{ Status *Status }

// StatusFailed reports a failed status fetch (network error).
type StatusFailed struct{ Err error }

// ThrottleResult answers a CheckRedirectThrottle command.
type ThrottleResult struct {
	Provider string
	Allowed  bool
}

// MethodChosen is the user picking a credentials method on the
// method-selection screen.
type MethodChosen struct{ Method string }

// BackToMethods returns from the credentials form to method selection.
type BackToMethods struct{}

// SubmitCredentials is the user submitting the credentials form.
type SubmitCredentials struct {
	Username string
	Password string
}

// LoginSucceeded delivers a successful login with the issued token.
type LoginSucceeded struct{ Token string }

// LoginFailed delivers a rejected login. Message is the server's error
// text, empty when only a generic message is available.
type LoginFailed struct{ Message string }

// SessionExpired is the global signal requesting the gate be shown as
// an overlay on top of a live session.
type SessionExpired struct{}

func (Start) isEvent()             {}
func (StatusReceived) isEvent()    {}
func (StatusFailed) isEvent()      {}
func (ThrottleResult) isEvent()    {}
func (MethodChosen) isEvent()      {}
func (BackToMethods) isEvent()     {}
func (SubmitCredentials) isEvent() {}
func (LoginSucceeded) isEvent()    {}
func (LoginFailed) isEvent()       {}
func (SessionExpired) isEvent()    {}
