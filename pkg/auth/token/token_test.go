package token

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/pforte-dev/pforte/pkg/auth"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func testPrincipal() *auth.Principal {
	return &auth.Principal{
		ID:          "u_1",
		DisplayName: "Alice",
		RawGroups:   []string{"users", "power"},
		Method:      auth.MethodLocal,
	}
}

func requestWithToken(token string) *http.Request {
	r, _ := http.NewRequest("GET", "/", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	return r
}

func TestIssueAndAuthenticate(t *testing.T) {
	issuer, err := NewIssuer(Config{Secret: testSecret})
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}
	authn, err := NewAuthenticator(Config{Secret: testSecret})
	if err != nil {
		t.Fatalf("NewAuthenticator: %v", err)
	}

	tok, err := issuer.Issue(testPrincipal(), 0)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	result := authn.Authenticate(context.Background(), requestWithToken(tok))
	if result.Decision != auth.Yes {
		t.Fatalf("Decision = %d, want Yes (err: %v)", result.Decision, result.Err)
	}
	p := result.Principal
	if p.ID != "u_1" || p.DisplayName != "Alice" || p.Method != auth.MethodLocal {
		t.Errorf("principal = %+v", p)
	}
	if len(p.RawGroups) != 2 || p.RawGroups[0] != "users" {
		t.Errorf("RawGroups = %v", p.RawGroups)
	}
}

func TestAuthenticate_CookieFallback(t *testing.T) {
	issuer, _ := NewIssuer(Config{Secret: testSecret})
	authn, _ := NewAuthenticator(Config{Secret: testSecret})

	tok, err := issuer.Issue(testPrincipal(), 0)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	r, _ := http.NewRequest("GET", "/", nil)
	r.AddCookie(&http.Cookie{Name: CookieName, Value: tok})

	result := authn.Authenticate(context.Background(), r)
	if result.Decision != auth.Yes {
		t.Fatalf("Decision = %d, want Yes (err: %v)", result.Decision, result.Err)
	}
	if result.Principal.ID != "u_1" {
		t.Errorf("ID = %q", result.Principal.ID)
	}
}

func TestAuthenticate_NoHeader_Abstains(t *testing.T) {
	authn, _ := NewAuthenticator(Config{Secret: testSecret})

	r, _ := http.NewRequest("GET", "/", nil)
	if got := authn.Authenticate(context.Background(), r); got.Decision != auth.Abstain {
		t.Errorf("Decision = %d, want Abstain", got.Decision)
	}

	r.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	if got := authn.Authenticate(context.Background(), r); got.Decision != auth.Abstain {
		t.Errorf("non-bearer: Decision = %d, want Abstain", got.Decision)
	}
}

func TestAuthenticate_WrongSecret_Rejects(t *testing.T) {
	issuer, _ := NewIssuer(Config{Secret: testSecret})
	authn, _ := NewAuthenticator(Config{Secret: []byte("another-secret-another-secret!!!")})

	tok, err := issuer.Issue(testPrincipal(), 0)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	result := authn.Authenticate(context.Background(), requestWithToken(tok))
	if result.Decision != auth.No {
		t.Errorf("Decision = %d, want No", result.Decision)
	}
}

func TestAuthenticate_Expired_Rejects(t *testing.T) {
	past := time.Now().Add(-48 * time.Hour)
	issuer, _ := NewIssuer(Config{Secret: testSecret, now: func() time.Time { return past }})
	authn, _ := NewAuthenticator(Config{Secret: testSecret})

	tok, err := issuer.Issue(testPrincipal(), time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	result := authn.Authenticate(context.Background(), requestWithToken(tok))
	if result.Decision != auth.No {
		t.Errorf("Decision = %d, want No (expired)", result.Decision)
	}
}

func TestAuthenticate_WrongIssuer_Rejects(t *testing.T) {
	issuer, _ := NewIssuer(Config{Secret: testSecret, Issuer: "someone-else"})
	authn, _ := NewAuthenticator(Config{Secret: testSecret})

	tok, _ := issuer.Issue(testPrincipal(), 0)
	result := authn.Authenticate(context.Background(), requestWithToken(tok))
	if result.Decision != auth.No {
		t.Errorf("Decision = %d, want No (issuer mismatch)", result.Decision)
	}
}

func TestAuthenticate_Garbage_Rejects(t *testing.T) {
	authn, _ := NewAuthenticator(Config{Secret: testSecret})
	result := authn.Authenticate(context.Background(), requestWithToken("not.a.jwt"))
	if result.Decision != auth.No {
		t.Errorf("Decision = %d, want No", result.Decision)
	}
}

func TestIssue_SessionTimeoutOverride(t *testing.T) {
	anchor := time.Unix(1_700_000_000, 0)
	issuer, _ := NewIssuer(Config{Secret: testSecret, now: func() time.Time { return anchor }})

	tok, err := issuer.Issue(testPrincipal(), 30*time.Minute)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	// Valid just before the 30-minute mark, invalid just after.
	verifyAt := func(at time.Time) auth.Decision {
		authn, _ := NewAuthenticator(Config{Secret: testSecret, now: func() time.Time { return at }})
		return authn.Authenticate(context.Background(), requestWithToken(tok)).Decision
	}

	if got := verifyAt(anchor.Add(29 * time.Minute)); got != auth.Yes {
		t.Errorf("before expiry: Decision = %d, want Yes", got)
	}
	if got := verifyAt(anchor.Add(31 * time.Minute)); got != auth.No {
		t.Errorf("after expiry: Decision = %d, want No", got)
	}
}

func TestIssue_InvalidInputs(t *testing.T) {
	if _, err := NewIssuer(Config{}); err == nil {
		t.Error("expected error for empty secret")
	}

	issuer, _ := NewIssuer(Config{Secret: testSecret})
	if _, err := issuer.Issue(nil, 0); err == nil {
		t.Error("expected error for nil principal")
	}
	if _, err := issuer.Issue(&auth.Principal{}, 0); err == nil {
		t.Error("expected error for empty principal id")
	}
}
