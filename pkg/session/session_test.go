package session

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/matzehuels/prereqgraph/pkg/pipeline"
)

func newSession(t *testing.T, ttl time.Duration) *Session {
	t.Helper()
	sess, err := New(pipeline.Options{Department: "CSCI", Input: "prereq.json", Seed: 7}, ttl)
	if err != nil {
		t.Fatal(err)
	}
	return sess
}

func TestNew(t *testing.T) {
	a := newSession(t, time.Hour)
	b := newSession(t, time.Hour)
	if a.ID == b.ID {
		t.Error("IDs should be unique")
	}
	if err := ValidateID(a.ID); err != nil {
		t.Errorf("generated ID %q is invalid: %v", a.ID, err)
	}
	if a.IsExpired() {
		t.Error("fresh session should not be expired")
	}
}

func TestValidateID(t *testing.T) {
	tests := []struct {
		id      string
		wantErr bool
	}{
		{"0b6f1c2e-8a55-4c6e-9d3b-2f1e7a4c9b10", false},
		{"0B6F1C2E-8A55-4C6E-9D3B-2F1E7A4C9B10", true}, // not canonical
		{"../../etc/passwd", true},
		{"", true},
	}
	for _, tt := range tests {
		if err := ValidateID(tt.id); (err != nil) != tt.wantErr {
			t.Errorf("ValidateID(%q) = %v, wantErr %v", tt.id, err, tt.wantErr)
		}
	}
}

func TestPlaceAndClone(t *testing.T) {
	sess := newSession(t, time.Hour)
	sess.Place("CSCI-2300", 1)
	sess.Place("CSCI-2300", 3)

	c := sess.Clone()
	c.Place("CSCI-1100", 0)

	if got := sess.Placements["CSCI-2300"]; got != 3 {
		t.Errorf("placement = %d, want 3", got)
	}
	if _, ok := sess.Placements["CSCI-1100"]; ok {
		t.Error("clone should not share placements")
	}
}

func testStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	sess := newSession(t, time.Hour)
	sess.Place("CSCI-4430", 2)
	if err := store.Set(ctx, sess); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, err := store.Get(ctx, sess.ID)
	if err != nil || got == nil {
		t.Fatalf("Get = %v, %v", got, err)
	}
	if got.Options.Seed != 7 || got.Options.Input != "prereq.json" {
		t.Errorf("options = %+v", got.Options)
	}
	if got.Placements["CSCI-4430"] != 2 {
		t.Errorf("placements = %v", got.Placements)
	}

	// Mutating the returned copy must not change the store.
	got.Place("CSCI-4430", 0)
	again, _ := store.Get(ctx, sess.ID)
	if again.Placements["CSCI-4430"] != 2 {
		t.Error("store returned shared state")
	}

	if err := store.Delete(ctx, sess.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if got, _ := store.Get(ctx, sess.ID); got != nil {
		t.Error("deleted session should be gone")
	}

	expired := newSession(t, -time.Minute)
	_ = store.Set(ctx, expired)
	if got, _ := store.Get(ctx, expired.ID); got != nil {
		t.Error("expired session should not be returned")
	}
	if err := store.Cleanup(ctx); err != nil {
		t.Errorf("Cleanup: %v", err)
	}
}

func TestMemoryStore(t *testing.T) {
	testStore(t, NewMemoryStore())
}

func TestFileStore(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	testStore(t, store)
}

func TestFileStoreCleanupRemovesExpired(t *testing.T) {
	dir := t.TempDir()
	store, _ := NewFileStore(dir)
	ctx := context.Background()

	expired := newSession(t, -time.Minute)
	if err := store.Set(ctx, expired); err != nil {
		t.Fatal(err)
	}
	if err := store.Cleanup(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, expired.ID+".json")); !os.IsNotExist(err) {
		t.Errorf("expired file still present: %v", err)
	}
}

func TestFileStoreRejectsInvalidID(t *testing.T) {
	store, _ := NewFileStore(t.TempDir())
	ctx := context.Background()

	if err := store.Set(ctx, &Session{ID: "../escape", ExpiresAt: time.Now().Add(time.Hour)}); err == nil {
		t.Error("Set should reject a non-UUID id")
	}
	if got, err := store.Get(ctx, "../escape"); got != nil || err != nil {
		t.Errorf("Get = %v, %v; want nil, nil", got, err)
	}
}

func TestFileStoreCleanupRemovesLeftovers(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	live := newSession(t, time.Hour)
	if err := store.Set(ctx, live); err != nil {
		t.Fatal(err)
	}
	corrupt := filepath.Join(dir, newSession(t, time.Hour).ID+".json")
	if err := os.WriteFile(corrupt, []byte("{"), 0o600); err != nil {
		t.Fatal(err)
	}
	stale := filepath.Join(dir, ".tmp-"+live.ID+"-1")
	if err := os.WriteFile(stale, []byte("{}"), 0o600); err != nil {
		t.Fatal(err)
	}
	old := time.Now().Add(-time.Hour)
	if err := os.Chtimes(stale, old, old); err != nil {
		t.Fatal(err)
	}

	if err := store.Cleanup(ctx); err != nil {
		t.Fatal(err)
	}
	for _, gone := range []string{corrupt, stale} {
		if _, err := os.Stat(gone); !os.IsNotExist(err) {
			t.Errorf("%s survived cleanup", filepath.Base(gone))
		}
	}
	if got, _ := store.Get(ctx, live.ID); got == nil {
		t.Error("cleanup removed a live session")
	}
}

func TestNewFileStoreRequiresDir(t *testing.T) {
	if _, err := NewFileStore(""); err == nil {
		t.Error("expected an error for an empty dir")
	}
}
