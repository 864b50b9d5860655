package kv

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
)

// exerciseStore runs the behavior every backend must share.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	if _, err := s.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get(missing) error = %v, want ErrNotFound", err)
	}

	if err := s.Set(ctx, "titanlift_draft_legs", `[{"exerciseId":"2"}]`); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Set(ctx, "titanlift_draft_arms", "[]"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Set(ctx, "titanlift_sessions", "[]"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, err := s.Get(ctx, "titanlift_draft_legs")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != `[{"exerciseId":"2"}]` {
		t.Errorf("Get = %q", got)
	}

	// Overwrite keeps a single entry.
	if err := s.Set(ctx, "titanlift_draft_legs", "[]"); err != nil {
		t.Fatalf("Set overwrite: %v", err)
	}
	if got, _ := s.Get(ctx, "titanlift_draft_legs"); got != "[]" {
		t.Errorf("after overwrite Get = %q, want []", got)
	}

	keys, err := s.Keys(ctx, "titanlift_draft_")
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	want := []string{"titanlift_draft_arms", "titanlift_draft_legs"}
	if !reflect.DeepEqual(keys, want) {
		t.Errorf("Keys = %v, want %v", keys, want)
	}

	if err := s.Delete(ctx, "titanlift_draft_arms"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, "titanlift_draft_arms"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after Delete error = %v, want ErrNotFound", err)
	}
	// Deleting an absent key is not an error.
	if err := s.Delete(ctx, "titanlift_draft_arms"); err != nil {
		t.Errorf("Delete(absent) = %v", err)
	}

	err = s.Apply(ctx, []Op{
		SetOp("titanlift_sessions", `[{"id":"a"}]`),
		DeleteOp("titanlift_draft_legs"),
		SetOp("titanlift_config_2", `{"sets":[]}`),
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if got, _ := s.Get(ctx, "titanlift_sessions"); got != `[{"id":"a"}]` {
		t.Errorf("sessions after Apply = %q", got)
	}
	if _, err := s.Get(ctx, "titanlift_draft_legs"); !errors.Is(err, ErrNotFound) {
		t.Errorf("draft after Apply error = %v, want ErrNotFound", err)
	}
	if got, _ := s.Get(ctx, "titanlift_config_2"); got != `{"sets":[]}` {
		t.Errorf("config after Apply = %q", got)
	}
}

// TestMemoryStore verifies the in-memory backend.
func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemory())
}

// TestSQLiteStore verifies the SQLite backend against a temp database file.
func TestSQLiteStore(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "store", "titanlift.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer s.Close()
	exerciseStore(t, s)
}

// TestSQLiteReopen verifies data survives closing and reopening the file,
// which is what lets a restarted process resume an in-progress workout.
func TestSQLiteReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "titanlift.db")
	ctx := context.Background()

	s, err := OpenSQLite(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Set(ctx, "titanlift_active_start_time", "1700000000000"); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s, err = OpenSQLite(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	got, err := s.Get(ctx, "titanlift_active_start_time")
	if err != nil {
		t.Fatalf("Get after reopen: %v", err)
	}
	if got != "1700000000000" {
		t.Errorf("Get = %q, want 1700000000000", got)
	}
}

// TestOpenUnknownDriver verifies that a typo in the driver name fails loudly.
func TestOpenUnknownDriver(t *testing.T) {
	if _, err := Open(context.Background(), Options{Driver: "mongo"}); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

// TestOpenDefaultsToMemory verifies an empty driver selects the memory backend.
func TestOpenDefaultsToMemory(t *testing.T) {
	s, err := Open(context.Background(), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := s.(*Memory); !ok {
		t.Errorf("Open({}) = %T, want *Memory", s)
	}
}

// TestEscapeGlob verifies Redis MATCH metacharacters in a prefix are escaped.
func TestEscapeGlob(t *testing.T) {
	tests := []struct{ in, want string }{
		{"titanlift_draft_", "titanlift_draft_"},
		{"a*b", `a\*b`},
		{"x?[y]", `x\?\[y\]`},
	}
	for _, tt := range tests {
		if got := escapeGlob(tt.in); got != tt.want {
			t.Errorf("escapeGlob(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
