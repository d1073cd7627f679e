package storage

import (
	"path/filepath"
	"testing"
	"time"
)

func createTestStore(t *testing.T) *SessionStore {
	t.Helper()
	store, err := OpenDir(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Logf("Warning: failed to close store: %v", err)
		}
	})
	return store
}

func TestSessionStoreGetSet(t *testing.T) {
	store := createTestStore(t)

	if _, ok, err := store.Get("s1", "gi_search_state"); err != nil || ok {
		t.Fatalf("expected empty store, got ok=%v err=%v", ok, err)
	}

	if err := store.Set("s1", "gi_search_state", `{"search":"助成金"}`); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := store.Set("s1", "gi_search_state", `{"search":"補助金"}`); err != nil {
		t.Fatalf("Set (update) failed: %v", err)
	}

	v, ok, err := store.Get("s1", "gi_search_state")
	if err != nil || !ok {
		t.Fatalf("Get failed: ok=%v err=%v", ok, err)
	}
	if v != `{"search":"補助金"}` {
		t.Errorf("Expected updated value, got %q", v)
	}

	if err := store.Delete("s1", "gi_search_state"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, ok, _ := store.Get("s1", "gi_search_state"); ok {
		t.Error("value still present after Delete")
	}
}

func TestSessionIsolation(t *testing.T) {
	store := createTestStore(t)

	a := store.Session("a")
	b := store.Session("b")
	if err := a.Save("k", "va"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := b.Save("k", "vb"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if v, _, _ := a.Load("k"); v != "va" {
		t.Errorf("session a = %q, want va", v)
	}
	if v, _, _ := b.Load("k"); v != "vb" {
		t.Errorf("session b = %q, want vb", v)
	}

	if err := store.Clear("a"); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if _, ok, _ := a.Load("k"); ok {
		t.Error("session a survived Clear")
	}
	if _, ok, _ := b.Load("k"); !ok {
		t.Error("Clear removed another session")
	}
}

func TestSessionsAndPurge(t *testing.T) {
	store := createTestStore(t)

	base := time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)
	now := base
	store.now = func() time.Time { return now }

	if err := store.Set("old", "k", "1"); err != nil {
		t.Fatal(err)
	}
	now = base.Add(2 * time.Hour)
	if err := store.Set("fresh", "k", "1"); err != nil {
		t.Fatal(err)
	}
	if err := store.Set("fresh", "k2", "2"); err != nil {
		t.Fatal(err)
	}

	sessions, err := store.Sessions()
	if err != nil {
		t.Fatalf("Sessions failed: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("Expected 2 sessions, got %d", len(sessions))
	}
	if sessions[0].ID != "fresh" || sessions[0].Keys != 2 {
		t.Errorf("unexpected first session %+v", sessions[0])
	}
	if !sessions[1].UpdatedAt.Equal(base) {
		t.Errorf("UpdatedAt = %v, want %v", sessions[1].UpdatedAt, base)
	}

	removed, err := store.Purge(time.Hour)
	if err != nil {
		t.Fatalf("Purge failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("Purge removed %d rows, want 1", removed)
	}
	sessions, _ = store.Sessions()
	if len(sessions) != 1 || sessions[0].ID != "fresh" {
		t.Errorf("unexpected sessions after purge: %+v", sessions)
	}
}

func TestStorePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), DBFile)

	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := store.Set("s", "k", "v"); err != nil {
		t.Fatal(err)
	}
	store.Close()

	store, err = Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer store.Close()
	if v, ok, _ := store.Get("s", "k"); !ok || v != "v" {
		t.Errorf("Get after reopen = %q, %v", v, ok)
	}
}

func TestMemoryStore(t *testing.T) {
	m := NewMemoryStore()
	s := m.Session("tab")
	if _, ok, _ := s.Load("k"); ok {
		t.Fatal("expected empty session")
	}
	if err := s.Save("k", "v"); err != nil {
		t.Fatal(err)
	}
	if v, ok, _ := s.Load("k"); !ok || v != "v" {
		t.Fatalf("Load = %q, %v", v, ok)
	}
	if s.ID() != "tab" {
		t.Errorf("ID() = %q", s.ID())
	}
	m.Clear("tab")
	if _, ok, _ := s.Load("k"); ok {
		t.Error("value survived Clear")
	}
}
