package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/pforte-dev/pforte/pkg/userstore"
)

func testUser(id, username string) *userstore.User {
	now := time.Now().UTC().Truncate(time.Second)
	return &userstore.User{
		ID:             id,
		Username:       username,
		PasswordHash:   "$2a$10$fakehash",
		Active:         true,
		InternalGroups: []string{"users"},
		AuthMethods:    []string{"local"},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func TestOpenMissingFileCreatesEmptyStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")

	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	users, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(users) != 0 {
		t.Errorf("List returned %d users, want 0", len(users))
	}
}

func TestPersistenceRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")
	ctx := context.Background()

	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := store.Create(ctx, testUser("u1", "alice")); err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Reopen from disk.
	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopening: %v", err)
	}

	u, err := reopened.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("Get after reopen: %v", err)
	}
	if u.Username != "alice" || !u.Active || u.PasswordHash == "" {
		t.Errorf("reopened user = %+v", u)
	}
}

// TestPersistedShape pins the on-disk document layout:
// {users:{<id>:{...}}, metadata:{version}}.
func TestPersistedShape(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")
	ctx := context.Background()

	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := store.Create(ctx, testUser("u1", "alice")); err != nil {
		t.Fatalf("Create: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading store file: %v", err)
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("parsing store file: %v", err)
	}

	var users map[string]map[string]any
	if err := json.Unmarshal(doc["users"], &users); err != nil {
		t.Fatalf("parsing users block: %v", err)
	}
	entry, ok := users["u1"]
	if !ok {
		t.Fatal("users block is not keyed by ID")
	}
	for _, field := range []string{"id", "username", "active", "internalGroups", "authMethods", "createdAt", "updatedAt"} {
		if _, ok := entry[field]; !ok {
			t.Errorf("persisted user missing field %q", field)
		}
	}

	var meta struct {
		Version int `json:"version"`
	}
	if err := json.Unmarshal(doc["metadata"], &meta); err != nil {
		t.Fatalf("parsing metadata block: %v", err)
	}
	if meta.Version != 1 {
		t.Errorf("metadata.version = %d, want 1", meta.Version)
	}
}

func TestCreateConflicts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")
	ctx := context.Background()

	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := store.Create(ctx, testUser("u1", "alice")); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := store.Create(ctx, testUser("u1", "other")); err != userstore.ErrConflict {
		t.Errorf("duplicate ID: err = %v, want ErrConflict", err)
	}
	if err := store.Create(ctx, testUser("u2", "alice")); err != userstore.ErrConflict {
		t.Errorf("duplicate username: err = %v, want ErrConflict", err)
	}
}

func TestUpdateMissingUser(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")

	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := store.Update(context.Background(), testUser("ghost", "ghost")); err != userstore.ErrNotFound {
		t.Errorf("Update missing user: err = %v, want ErrNotFound", err)
	}
}

func TestDeletePurges(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")
	ctx := context.Background()

	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := store.Create(ctx, testUser("u1", "alice")); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := store.Delete(ctx, "u1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Get(ctx, "u1"); err != userstore.ErrNotFound {
		t.Errorf("Get after Delete: err = %v, want ErrNotFound", err)
	}
}

// TestConcurrentMutations exercises the single-writer mutex: concurrent
// group assignments must not lose updates.
func TestConcurrentMutations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")
	ctx := context.Background()

	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			u := testUser(fmt.Sprintf("u%d", i), fmt.Sprintf("user%d", i))
			if err := store.Create(ctx, u); err != nil {
				t.Errorf("Create u%d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	users, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(users) != n {
		t.Errorf("List returned %d users, want %d", len(users), n)
	}

	// Reopen and verify nothing was lost on disk either.
	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopening: %v", err)
	}
	users, err = reopened.List(ctx)
	if err != nil {
		t.Fatalf("List after reopen: %v", err)
	}
	if len(users) != n {
		t.Errorf("persisted %d users, want %d", len(users), n)
	}
}

func TestMutatingReturnedUserDoesNotAliasStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")
	ctx := context.Background()

	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := store.Create(ctx, testUser("u1", "alice")); err != nil {
		t.Fatalf("Create: %v", err)
	}

	u, _ := store.Get(ctx, "u1")
	u.InternalGroups = append(u.InternalGroups, "admins")

	again, _ := store.Get(ctx, "u1")
	if again.InGroup("admins") {
		t.Error("mutation of returned user leaked into the store")
	}
}
