package source

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadCaches(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	if err := os.WriteFile(path, []byte("first"), 0644); err != nil {
		t.Fatal(err)
	}

	cache, err := NewCache(dir, 8)
	if err != nil {
		t.Fatal(err)
	}

	got, err := cache.Load("a.txt")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if string(got) != "first" {
		t.Errorf("Load() = %q, want %q", got, "first")
	}

	// Rewrite on disk; cached copy should still be served.
	if err := os.WriteFile(path, []byte("second"), 0644); err != nil {
		t.Fatal(err)
	}
	got, err = cache.Load("a.txt")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if string(got) != "first" {
		t.Errorf("expected cached contents, got %q", got)
	}
}

func TestLoadMissing(t *testing.T) {
	cache, err := NewCache(t.TempDir(), 8)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := cache.Load("nope.txt"); err == nil {
		t.Errorf("expected error for missing file")
	}
}
