package auth

import (
	"context"
	"net/http"
	"testing"
	"time"
)

// mockAuthn is a test authenticator with configurable behavior.
type mockAuthn struct {
	result Result
}

func (m *mockAuthn) Authenticate(_ context.Context, _ *http.Request) Result {
	return m.result
}

func TestChain_FirstYesStops(t *testing.T) {
	chain := &Chain{
		Authenticators: []Authenticator{
			&mockAuthn{result: Result{Decision: Yes, Principal: &Principal{ID: "alice", Method: MethodLocal}}},
			&mockAuthn{result: Result{Decision: No, Err: ErrUnauthenticated}},
		},
	}

	r, _ := http.NewRequest("GET", "/", nil)
	result := chain.Authenticate(context.Background(), r)

	if result.Decision != Yes {
		t.Errorf("Decision = %d, want Yes", result.Decision)
	}
	if result.Principal.ID != "alice" {
		t.Errorf("ID = %q, want %q", result.Principal.ID, "alice")
	}
}

func TestChain_FirstNoStops(t *testing.T) {
	chain := &Chain{
		Authenticators: []Authenticator{
			&mockAuthn{result: Result{Decision: No, Err: ErrUnauthenticated}},
			&mockAuthn{result: Result{Decision: Yes, Principal: &Principal{ID: "bob"}}},
		},
	}

	r, _ := http.NewRequest("GET", "/", nil)
	result := chain.Authenticate(context.Background(), r)

	if result.Decision != No {
		t.Errorf("Decision = %d, want No", result.Decision)
	}
}

func TestChain_AllAbstain_AnonymousDisabled(t *testing.T) {
	chain := &Chain{
		Authenticators: []Authenticator{
			&mockAuthn{result: Result{Decision: Abstain}},
			&mockAuthn{result: Result{Decision: Abstain}},
		},
	}

	r, _ := http.NewRequest("GET", "/", nil)
	result := chain.Authenticate(context.Background(), r)

	if result.Decision != No {
		t.Errorf("Decision = %d, want No", result.Decision)
	}
}

func TestChain_AllAbstain_AnonymousEnabled(t *testing.T) {
	chain := &Chain{
		Authenticators: []Authenticator{
			&mockAuthn{result: Result{Decision: Abstain}},
		},
		AnonymousEnabled: true,
	}

	r, _ := http.NewRequest("GET", "/", nil)
	result := chain.Authenticate(context.Background(), r)

	if result.Decision != Yes {
		t.Errorf("Decision = %d, want Yes", result.Decision)
	}
	if !result.Principal.IsAnonymous() {
		t.Errorf("Principal = %+v, want anonymous", result.Principal)
	}
}

func TestChain_RejectedCredential_AnonymousEnabled(t *testing.T) {
	// A stale or garbled credential must not lock out a visitor that
	// would be admitted with no credential at all.
	chain := &Chain{
		Authenticators: []Authenticator{
			&mockAuthn{result: Result{Decision: No, Err: ErrUnauthenticated}},
		},
		AnonymousEnabled: true,
	}

	r, _ := http.NewRequest("GET", "/", nil)
	r.Header.Set("Authorization", "Bearer expired-garbage")
	result := chain.Authenticate(context.Background(), r)

	if result.Decision != Yes {
		t.Fatalf("Decision = %d, want Yes", result.Decision)
	}
	if !result.Principal.IsAnonymous() {
		t.Errorf("Principal = %+v, want anonymous", result.Principal)
	}
}

func TestChain_Empty(t *testing.T) {
	chain := &Chain{}

	r, _ := http.NewRequest("GET", "/", nil)
	result := chain.Authenticate(context.Background(), r)

	if result.Decision != No {
		t.Errorf("Decision = %d, want No (empty chain)", result.Decision)
	}
}

func TestChain_AbstainThenYes(t *testing.T) {
	chain := &Chain{
		Authenticators: []Authenticator{
			&mockAuthn{result: Result{Decision: Abstain}},
			&mockAuthn{result: Result{Decision: Yes, Principal: &Principal{ID: "u_1", Method: MethodOIDC}}},
		},
	}

	r, _ := http.NewRequest("GET", "/", nil)
	result := chain.Authenticate(context.Background(), r)

	if result.Decision != Yes {
		t.Errorf("Decision = %d, want Yes", result.Decision)
	}
	if result.Principal.Method != MethodOIDC {
		t.Errorf("Method = %q, want oidc", result.Principal.Method)
	}
}

func TestPrincipal_IsAnonymous(t *testing.T) {
	if !AnonymousPrincipal().IsAnonymous() {
		t.Error("AnonymousPrincipal().IsAnonymous() = false")
	}

	p := &Principal{ID: "alice", Method: MethodLocal}
	if p.IsAnonymous() {
		t.Error("local principal reported anonymous")
	}

	var nilP *Principal
	if !nilP.IsAnonymous() {
		t.Error("nil principal should be anonymous")
	}
}

func TestPrincipalContext(t *testing.T) {
	ctx := context.Background()

	if PrincipalFromContext(ctx) != nil {
		t.Error("expected nil principal from empty context")
	}

	p := &Principal{ID: "alice", RawGroups: []string{"users"}}
	ctx = SetPrincipal(ctx, p)
	got := PrincipalFromContext(ctx)
	if got == nil || got.ID != "alice" {
		t.Errorf("got %v, want alice", got)
	}
}

func TestInProcessLimiter(t *testing.T) {
	l := NewInProcessLimiter(2, time.Minute)
	now := time.Unix(1000, 0)
	l.now = func() time.Time { return now }

	if err := l.Allow("alice:1.2.3.4"); err != nil {
		t.Fatalf("first attempt rejected: %v", err)
	}
	if err := l.Allow("alice:1.2.3.4"); err != nil {
		t.Fatalf("second attempt rejected: %v", err)
	}
	if err := l.Allow("alice:1.2.3.4"); err != ErrTooManyRequests {
		t.Fatalf("third attempt: got %v, want ErrTooManyRequests", err)
	}

	// Other keys are independent.
	if err := l.Allow("bob:1.2.3.4"); err != nil {
		t.Fatalf("separate key rejected: %v", err)
	}

	// A new window resets the count.
	now = now.Add(time.Minute)
	if err := l.Allow("alice:1.2.3.4"); err != nil {
		t.Fatalf("attempt after window rejected: %v", err)
	}
}

func TestInProcessLimiter_Disabled(t *testing.T) {
	l := NewInProcessLimiter(0, time.Minute)
	for i := 0; i < 100; i++ {
		if err := l.Allow("k"); err != nil {
			t.Fatalf("disabled limiter rejected: %v", err)
		}
	}
}
