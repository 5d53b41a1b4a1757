package gate

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/pforte-dev/pforte/pkg/gate/view"
)

// fakeClient scripts the status and login endpoints.
type fakeClient struct {
	status     *Status
	statusErr  error
	loginToken string
	loginErr   error

	statusCalls int
	loginCalls  int
}

func (f *fakeClient) FetchStatus(_ context.Context) (*Status, error) {
	f.statusCalls++
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	return f.status, nil
}

func (f *fakeClient) Login(_ context.Context, _, _, _, _ string) (string, error) {
	f.loginCalls++
	if f.loginErr != nil {
		return "", f.loginErr
	}
	return f.loginToken, nil
}

type fakeTokens struct {
	token  string
	stored bool
}

func (f *fakeTokens) Store(token string) { f.token, f.stored = token, true }
func (f *fakeTokens) Discard()           { f.token, f.stored = "", false }

type fakeNav struct {
	navigations []string
	replaced    [][]string
}

func (f *fakeNav) Navigate(url string)             { f.navigations = append(f.navigations, url) }
func (f *fakeNav) ReplaceURL(stripParams []string) { f.replaced = append(f.replaced, stripParams) }

type fakeUI struct {
	shown    []*view.Node
	hidden   int
	success  int
	injected int
}

func (f *fakeUI) Show(tree *view.Node)  { f.shown = append(f.shown, tree) }
func (f *fakeUI) Hide()                 { f.hidden++ }
func (f *fakeUI) EmitSuccess()          { f.success++ }
func (f *fakeUI) InjectDeferredAssets() { f.injected++ }

type harness struct {
	driver *Driver
	client *fakeClient
	tokens *fakeTokens
	nav    *fakeNav
	ui     *fakeUI
	now    *time.Time
}

func newHarness(client *fakeClient) *harness {
	now := time.Unix(1_700_000_000, 0)
	h := &harness{
		client: client,
		tokens: &fakeTokens{},
		nav:    &fakeNav{},
		ui:     &fakeUI{},
		now:    &now,
	}
	h.driver = NewDriver(DriverConfig{
		Status:   client,
		Tokens:   h.tokens,
		Throttle: NewMemoryThrottle(),
		Nav:      h.nav,
		UI:       h.ui,
		Now:      func() time.Time { return *h.now },
	})
	return h
}

func TestDriver_LocalLoginFlow(t *testing.T) {
	h := newHarness(&fakeClient{status: localOnlyStatus(), loginToken: "tok-abc"})
	ctx := context.Background()

	h.driver.Dispatch(ctx, Start{Page: Page{HasMount: true}})
	if got := h.driver.State().Phase; got != PhaseShowLogin {
		t.Fatalf("Phase = %v, want ShowLogin", got)
	}
	if len(h.ui.shown) == 0 {
		t.Fatal("gate never rendered")
	}

	h.driver.Dispatch(ctx, SubmitCredentials{Username: "alice", Password: "hunter2"})

	if got := h.driver.State().Phase; got != PhaseLoadApp {
		t.Fatalf("Phase = %v, want LoadApp", got)
	}
	if h.tokens.token != "tok-abc" {
		t.Errorf("stored token = %q", h.tokens.token)
	}
	if h.ui.success != 1 || h.ui.hidden != 1 || h.ui.injected != 1 {
		t.Errorf("ui calls = success:%d hidden:%d injected:%d", h.ui.success, h.ui.hidden, h.ui.injected)
	}
}

func TestDriver_RejectedLoginShowsMessage(t *testing.T) {
	h := newHarness(&fakeClient{
		status:   localOnlyStatus(),
		loginErr: &Rejection{Message: "account disabled"},
	})
	ctx := context.Background()

	h.driver.Dispatch(ctx, Start{Page: Page{HasMount: true}})
	h.driver.Dispatch(ctx, SubmitCredentials{Username: "alice", Password: "hunter2"})

	s := h.driver.State()
	if s.Login != LoginError || s.Error != "account disabled" {
		t.Errorf("Login = %v, Error = %q", s.Login, s.Error)
	}
}

func TestDriver_TransportFailureGenericMessage(t *testing.T) {
	h := newHarness(&fakeClient{
		status:   localOnlyStatus(),
		loginErr: fmt.Errorf("connection reset"),
	})
	ctx := context.Background()

	h.driver.Dispatch(ctx, Start{Page: Page{HasMount: true}})
	h.driver.Dispatch(ctx, SubmitCredentials{Username: "alice", Password: "hunter2"})

	s := h.driver.State()
	if s.Error == "" || s.Error == "connection reset" {
		t.Errorf("Error = %q, want generic message", s.Error)
	}
}

func TestDriver_CallbackTokenDiscardedWhenUnauthenticated(t *testing.T) {
	h := newHarness(&fakeClient{status: localOnlyStatus()})
	ctx := context.Background()

	h.driver.Dispatch(ctx, Start{Page: Page{HasMount: true, Token: "tok-stale"}})

	// Token was stored during the callback, then discarded after the
	// status re-check came back unauthenticated.
	if h.tokens.stored {
		t.Errorf("stale token still stored: %q", h.tokens.token)
	}
	if got := h.driver.State().Phase; got != PhaseShowLogin {
		t.Errorf("Phase = %v, want ShowLogin", got)
	}
	if len(h.nav.replaced) == 0 {
		t.Error("callback params never stripped")
	}
}

func TestDriver_RedirectThrottle(t *testing.T) {
	status := &Status{
		AutoRedirect:    "okta",
		AutoRedirectURL: "https://idp.example.com/authorize",
	}
	h := newHarness(&fakeClient{status: status})
	ctx := context.Background()

	// First load: redirect happens.
	h.driver.Dispatch(ctx, Start{Page: Page{HasMount: true}})
	if len(h.nav.navigations) != 1 {
		t.Fatalf("navigations = %d, want 1", len(h.nav.navigations))
	}
	if h.nav.navigations[0] != "https://idp.example.com/authorize" {
		t.Errorf("navigated to %q", h.nav.navigations[0])
	}

	// Second load two minutes later: throttled, login form instead.
	*h.now = h.now.Add(2 * time.Minute)
	h2 := *h
	h2.driver = NewDriver(DriverConfig{
		Status: h.client, Tokens: h.tokens, Throttle: h.driver.throttle,
		Nav: h.nav, UI: h.ui, Now: func() time.Time { return *h.now },
	})
	h2.driver.Dispatch(ctx, Start{Page: Page{HasMount: true}})
	if len(h.nav.navigations) != 1 {
		t.Fatalf("navigations = %d after throttled attempt, want 1", len(h.nav.navigations))
	}
	if got := h2.driver.State().Phase; got != PhaseShowLogin {
		t.Errorf("Phase = %v, want ShowLogin", got)
	}

	// Third load after the window: redirect allowed again.
	*h.now = h.now.Add(4 * time.Minute)
	h3 := NewDriver(DriverConfig{
		Status: h.client, Tokens: h.tokens, Throttle: h.driver.throttle,
		Nav: h.nav, UI: h.ui, Now: func() time.Time { return *h.now },
	})
	h3.Dispatch(ctx, Start{Page: Page{HasMount: true}})
	if len(h.nav.navigations) != 2 {
		t.Errorf("navigations = %d after window elapsed, want 2", len(h.nav.navigations))
	}
}

func TestDriver_ConfigurableRedirectWindow(t *testing.T) {
	status := &Status{AutoRedirect: "okta", AutoRedirectURL: "https://idp/auth"}
	client := &fakeClient{status: status}
	throttle := NewMemoryThrottle()
	nav := &fakeNav{}
	now := time.Unix(1_700_000_000, 0)

	mk := func() *Driver {
		return NewDriver(DriverConfig{
			Status: client, Tokens: &fakeTokens{}, Throttle: throttle,
			Nav: nav, UI: &fakeUI{},
			RedirectWindow: 30 * time.Second,
			Now:            func() time.Time { return now },
		})
	}

	mk().Dispatch(context.Background(), Start{Page: Page{HasMount: true}})
	now = now.Add(45 * time.Second)
	mk().Dispatch(context.Background(), Start{Page: Page{HasMount: true}})

	if len(nav.navigations) != 2 {
		t.Errorf("navigations = %d, want 2 (45s > 30s window)", len(nav.navigations))
	}
}

func TestDriver_StatusWindowOverridesConfigured(t *testing.T) {
	status := &Status{
		AutoRedirect:       "okta",
		AutoRedirectURL:    "https://idp/auth",
		AutoRedirectWindow: 10 * time.Minute,
	}
	client := &fakeClient{status: status}
	throttle := NewMemoryThrottle()
	nav := &fakeNav{}
	now := time.Unix(1_700_000_000, 0)

	mk := func() *Driver {
		return NewDriver(DriverConfig{
			Status: client, Tokens: &fakeTokens{}, Throttle: throttle,
			Nav: nav, UI: &fakeUI{},
			RedirectWindow: 30 * time.Second,
			Now:            func() time.Time { return now },
		})
	}

	mk().Dispatch(context.Background(), Start{Page: Page{HasMount: true}})
	now = now.Add(45 * time.Second)
	mk().Dispatch(context.Background(), Start{Page: Page{HasMount: true}})

	if len(nav.navigations) != 1 {
		t.Errorf("navigations = %d, want 1 (45s < server-advertised 10m window)", len(nav.navigations))
	}
}

func TestDriver_StatusFailureLoadsApp(t *testing.T) {
	h := newHarness(&fakeClient{statusErr: fmt.Errorf("boom")})

	h.driver.Dispatch(context.Background(), Start{Page: Page{HasMount: true}})
	if got := h.driver.State().Phase; got != PhaseLoadApp {
		t.Errorf("Phase = %v, want LoadApp (optimistic)", got)
	}
}
