package gate

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pforte-dev/pforte/pkg/debug"
	"github.com/pforte-dev/pforte/pkg/gate/view"
)

// StatusClient talks to the gateway's status and login endpoints.
type StatusClient interface {
	FetchStatus(ctx context.Context) (*Status, error)

	// Login calls the method-specific login endpoint and returns the
	// issued token. A server-side rejection is returned as *Rejection
	// so its message can be shown; any other error is a transport
	// failure.
	Login(ctx context.Context, method, provider, username, password string) (string, error)
}

// Rejection is a login refused by the server.
type Rejection struct{ Message string }

func (r *Rejection) Error() string { return r.Message }

// TokenStore holds the bearer token between page loads.
type TokenStore interface {
	Store(token string)
	Discard()
}

// ThrottleStore records per-provider auto-redirect attempts.
type ThrottleStore interface {
	LastAttempt(provider string) (time.Time, bool)
	RecordAttempt(provider string, at time.Time)
}

// Navigator controls the address bar.
type Navigator interface {
	Navigate(url string)
	ReplaceURL(stripParams []string)
}

// UI is the rendering surface the gate draws on.
type UI interface {
	Show(tree *view.Node)
	Hide()
	EmitSuccess()
	InjectDeferredAssets()
}

// Driver runs the gate machine: it feeds events through Update and
// executes the returned commands against the injected interfaces.
// Every dependency is an interface, so the full flow runs in tests
// without a UI runtime or a network.
type Driver struct {
	status   StatusClient
	tokens   TokenStore
	throttle ThrottleStore
	nav      Navigator
	ui       UI

	// Window is the per-provider auto-redirect throttle window.
	window time.Duration
	now    func() time.Time

	mu    sync.Mutex
	state State
}

// DriverConfig wires a Driver.
type DriverConfig struct {
	Status   StatusClient
	Tokens   TokenStore
	Throttle ThrottleStore
	Nav      Navigator
	UI       UI

	// RedirectWindow overrides DefaultRedirectWindow when positive.
	RedirectWindow time.Duration

	// Now is overridable in tests.
	Now func() time.Time
}

// NewDriver creates a Driver in the initial state.
func NewDriver(cfg DriverConfig) *Driver {
	window := cfg.RedirectWindow
	if window <= 0 {
		window = DefaultRedirectWindow
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Driver{
		status:   cfg.Status,
		tokens:   cfg.Tokens,
		throttle: cfg.Throttle,
		nav:      cfg.Nav,
		ui:       cfg.UI,
		window:   window,
		now:      now,
		state:    NewState(),
	}
}

// State returns a snapshot of the current state.
func (d *Driver) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Dispatch feeds an event through the machine, executing commands and
// any synchronously produced follow-up events until the machine is
// quiescent.
func (d *Driver) Dispatch(ctx context.Context, ev Event) {
	d.mu.Lock()
	defer d.mu.Unlock()

	queue := []Event{ev}
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]

		state, cmds := Update(d.state, next)
		debug.Trace("gate", "event dispatched",
			"event", fmt.Sprintf("%T", next),
			"phase", state.Phase.String(),
			"commands", len(cmds),
		)
		d.state = state

		for _, cmd := range cmds {
			if followUp := d.execute(ctx, cmd); followUp != nil {
				queue = append(queue, followUp)
			}
		}
	}
}

// execute performs one command. Commands that complete with a result
// return the follow-up event.
func (d *Driver) execute(ctx context.Context, cmd Command) Event {
	switch cmd := cmd.(type) {
	case FetchStatus:
		status, err := d.status.FetchStatus(ctx)
		if err != nil {
			return StatusFailed{Err: err}
		}
		return StatusReceived{Status: status}

	case SubmitLogin:
		token, err := d.status.Login(ctx, cmd.Method, cmd.Provider, cmd.Username, cmd.Password)
		if err != nil {
			if rej, ok := err.(*Rejection); ok {
				return LoginFailed{Message: rej.Message}
			}
			return LoginFailed{}
		}
		return LoginSucceeded{Token: token}

	case StoreToken:
		d.tokens.Store(cmd.Token)

	case DiscardToken:
		d.tokens.Discard()

	case ReplaceURL:
		d.nav.ReplaceURL(cmd.StripParams)

	case Navigate:
		d.nav.Navigate(cmd.URL)

	case CheckRedirectThrottle:
		window := d.window
		if st := d.state.Status; st != nil && st.AutoRedirectWindow > 0 {
			window = st.AutoRedirectWindow
		}
		last, ok := d.throttle.LastAttempt(cmd.Provider)
		allowed := !ok || d.now().Sub(last) >= window
		return ThrottleResult{Provider: cmd.Provider, Allowed: allowed}

	case RecordRedirectAttempt:
		d.throttle.RecordAttempt(cmd.Provider, d.now())

	case ShowUI:
		d.ui.Show(Render(d.state))

	case HideUI:
		d.ui.Hide()

	case EmitSuccess:
		d.ui.EmitSuccess()

	case InjectDeferredAssets:
		d.ui.InjectDeferredAssets()
	}

	return nil
}

// MemoryThrottle is an in-memory ThrottleStore.
type MemoryThrottle struct {
	mu      sync.Mutex
	records map[string]time.Time
}

// NewMemoryThrottle creates an empty throttle store.
func NewMemoryThrottle() *MemoryThrottle {
	return &MemoryThrottle{records: make(map[string]time.Time)}
}

// LastAttempt returns the recorded attempt time for the provider.
func (m *MemoryThrottle) LastAttempt(provider string) (time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.records[provider]
	return t, ok
}

// RecordAttempt stamps the provider's record.
func (m *MemoryThrottle) RecordAttempt(provider string, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[provider] = at
}
