package oidc

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"testing"

	"github.com/pforte-dev/pforte/pkg/auth"
)

type fakeVerifier struct {
	claims *Claims
	err    error
}

func (f *fakeVerifier) Exchange(_ context.Context, code, _ string) (*Claims, error) {
	if f.err != nil {
		return nil, f.err
	}
	if code != "good-code" {
		return nil, fmt.Errorf("invalid code")
	}
	return f.claims, nil
}

func testRegistry() *Registry {
	r := NewRegistry()
	r.Register(&Provider{
		Name:         "okta",
		Label:        "Sign in with Okta",
		AuthorizeURL: "https://idp.example.com/authorize",
		ClientID:     "pforte-client",
		Verifier:     &fakeVerifier{claims: &Claims{Subject: "alice@example.com", DisplayName: "Alice", Groups: []string{"eng"}}},
	})
	return r
}

func TestAuthURL(t *testing.T) {
	r := testRegistry()

	raw, err := r.AuthURL("okta", "https://gw.example.com/api/auth/oidc/okta/callback", "/chat")
	if err != nil {
		t.Fatalf("AuthURL: %v", err)
	}

	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parsing result: %v", err)
	}
	q := u.Query()
	if q.Get("response_type") != "code" {
		t.Errorf("response_type = %q", q.Get("response_type"))
	}
	if q.Get("client_id") != "pforte-client" {
		t.Errorf("client_id = %q", q.Get("client_id"))
	}
	if q.Get("redirect_uri") != "https://gw.example.com/api/auth/oidc/okta/callback" {
		t.Errorf("redirect_uri = %q", q.Get("redirect_uri"))
	}
	if q.Get("state") != "/chat" {
		t.Errorf("state = %q", q.Get("state"))
	}
	if q.Get("scope") != "openid profile email" {
		t.Errorf("scope = %q", q.Get("scope"))
	}
}

func TestAuthURL_UnknownProvider(t *testing.T) {
	r := testRegistry()
	if _, err := r.AuthURL("nope", "https://gw/cb", ""); !errors.Is(err, ErrUnknownProvider) {
		t.Errorf("err = %v, want ErrUnknownProvider", err)
	}
}

func TestHandleCallback_Success(t *testing.T) {
	r := testRegistry()

	p, err := r.HandleCallback(context.Background(), "okta", "good-code", "https://gw/cb")
	if err != nil {
		t.Fatalf("HandleCallback: %v", err)
	}
	if p.ID != "alice@example.com" || p.Method != auth.MethodOIDC {
		t.Errorf("principal = %+v", p)
	}
	if len(p.RawGroups) != 1 || p.RawGroups[0] != "eng" {
		t.Errorf("RawGroups = %v", p.RawGroups)
	}
}

func TestHandleCallback_BadCode(t *testing.T) {
	r := testRegistry()

	_, err := r.HandleCallback(context.Background(), "okta", "bad-code", "https://gw/cb")
	if !errors.Is(err, ErrCallbackFailed) {
		t.Errorf("err = %v, want ErrCallbackFailed", err)
	}
}

func TestHandleCallback_MissingCode(t *testing.T) {
	r := testRegistry()

	_, err := r.HandleCallback(context.Background(), "okta", "", "https://gw/cb")
	if !errors.Is(err, ErrCallbackFailed) {
		t.Errorf("err = %v, want ErrCallbackFailed", err)
	}
}

func TestHandleCallback_EmptySubject(t *testing.T) {
	r := NewRegistry()
	r.Register(&Provider{
		Name:         "broken",
		AuthorizeURL: "https://idp/authorize",
		Verifier:     &fakeVerifier{claims: &Claims{}},
	})

	_, err := r.HandleCallback(context.Background(), "broken", "good-code", "https://gw/cb")
	if !errors.Is(err, ErrCallbackFailed) {
		t.Errorf("err = %v, want ErrCallbackFailed", err)
	}
}

func TestProviders_Order(t *testing.T) {
	r := testRegistry()
	r.Register(&Provider{Name: "azure", AuthorizeURL: "https://login.example.net/authorize"})

	ps := r.Providers()
	if len(ps) != 2 || ps[0].Name != "okta" || ps[1].Name != "azure" {
		t.Errorf("Providers order = %v", []string{ps[0].Name, ps[1].Name})
	}
}
