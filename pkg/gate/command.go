package gate

// Command is an effect requested by Update and executed by the Driver.
// Update never performs effects itself.
type Command interface{ isCommand() }

// FetchStatus queries the auth-status endpoint. The driver answers with
// StatusReceived or StatusFailed.
type FetchStatus struct{}

// SubmitLogin calls the method-specific login endpoint. The driver
// answers with LoginSucceeded or LoginFailed.
type SubmitLogin struct {
	Method   string
	Provider string
	Username string
	Password string
}

// StoreToken persists the bearer token in client storage.
type StoreToken struct{ Token string }

// DiscardToken removes any stored bearer token.
type DiscardToken struct{}

// ReplaceURL strips the named query parameters from the address bar
// without reloading.
type ReplaceURL struct{ StripParams []string }

// Navigate performs a full-page navigation.
type Navigate struct{ URL string }

// CheckRedirectThrottle asks whether the per-provider redirect window
// has elapsed. The driver answers with ThrottleResult.
type CheckRedirectThrottle struct{ Provider string }

// RecordRedirectAttempt stamps the provider's throttle record with the
// current time.
type RecordRedirectAttempt struct{ Provider string }

// ShowUI renders the gate for the current state.
type ShowUI struct{}

// HideUI removes the gate.
type HideUI struct{}

// EmitSuccess fires the login-success signal for the host page.
type EmitSuccess struct{}

// InjectDeferredAssets inserts the recorded stylesheet/preload/module
// tags before the gate unmounts, for pre-bundled host pages.
type InjectDeferredAssets struct{}

func (FetchStatus) isCommand()           {}
func (SubmitLogin) isCommand()           {}
func (StoreToken) isCommand()            {}
func (DiscardToken) isCommand()          {}
func (ReplaceURL) isCommand()            {}
func (Navigate) isCommand()              {}
func (CheckRedirectThrottle) isCommand() {}
func (RecordRedirectAttempt) isCommand() {}
func (ShowUI) isCommand()                {}
func (HideUI) isCommand()                {}
func (EmitSuccess) isCommand()           {}
func (InjectDeferredAssets) isCommand()  {}

// callbackParams are the query parameters stripped after a provider
// round trip.
var callbackParams = []string{"token", "provider", "ntlm", "error"}
