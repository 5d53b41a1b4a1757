package ldap

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/pforte-dev/pforte/pkg/auth"
)

// fakeVerifier accepts a single username/password pair.
type fakeVerifier struct {
	username string
	password string
	entry    *Entry
	err      error
}

func (f *fakeVerifier) VerifyBind(_ context.Context, username, password string) (*Entry, error) {
	if f.err != nil {
		return nil, f.err
	}
	if username != f.username || password != f.password {
		return nil, ErrInvalidCredentials
	}
	return f.entry, nil
}

func testRegistry() *Registry {
	r := NewRegistry()
	r.Register("corp", &fakeVerifier{
		username: "alice",
		password: "hunter2",
		entry:    &Entry{Username: "alice", DisplayName: "Alice A.", Groups: []string{"eng", "admins"}},
	})
	r.Register("partners", &fakeVerifier{
		username: "bob",
		password: "sesame",
		entry:    &Entry{Username: "bob", Groups: []string{"external"}},
	})
	return r
}

func TestVerify_Success(t *testing.T) {
	r := testRegistry()

	p, err := r.Verify(context.Background(), "corp", "alice", "hunter2")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if p.ID != "alice" || p.DisplayName != "Alice A." || p.Method != auth.MethodLDAP {
		t.Errorf("principal = %+v", p)
	}
	if len(p.RawGroups) != 2 || p.RawGroups[0] != "admins" {
		t.Errorf("RawGroups = %v, want sorted [admins eng]", p.RawGroups)
	}
}

func TestVerify_DefaultProviderIsFirstRegistered(t *testing.T) {
	r := testRegistry()

	p, err := r.Verify(context.Background(), "", "alice", "hunter2")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if p.ID != "alice" {
		t.Errorf("ID = %q, want alice", p.ID)
	}
}

func TestVerify_RejectedBind(t *testing.T) {
	r := testRegistry()

	_, err := r.Verify(context.Background(), "corp", "alice", "wrong")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("err = %v, want ErrInvalidCredentials", err)
	}
}

func TestVerify_UnknownProvider(t *testing.T) {
	r := testRegistry()

	_, err := r.Verify(context.Background(), "nope", "alice", "hunter2")
	if !errors.Is(err, ErrUnknownProvider) {
		t.Errorf("err = %v, want ErrUnknownProvider", err)
	}
}

func TestVerify_DirectoryFailureIsNotRejection(t *testing.T) {
	r := NewRegistry()
	r.Register("corp", &fakeVerifier{err: fmt.Errorf("connection refused")})

	_, err := r.Verify(context.Background(), "corp", "alice", "hunter2")
	if err == nil || errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("err = %v, want directory failure", err)
	}
}

func TestVerify_DisplayNameFallsBackToUsername(t *testing.T) {
	r := testRegistry()

	p, err := r.Verify(context.Background(), "partners", "bob", "sesame")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if p.DisplayName != "bob" {
		t.Errorf("DisplayName = %q, want bob", p.DisplayName)
	}
}

func TestNames_RegistrationOrder(t *testing.T) {
	r := testRegistry()
	names := r.Names()
	if len(names) != 2 || names[0] != "corp" || names[1] != "partners" {
		t.Errorf("Names = %v", names)
	}
}
