package storage

import (
	"testing"

	"github.com/christikaes/macaroni-arch/internal/dsm"
	"github.com/christikaes/macaroni-arch/internal/logging"
)

func testPayload() *dsm.Payload {
	return &dsm.Payload{
		Files: map[string]*dsm.FileRecord{
			"a.ts": {Complexity: 2, LineCount: 10, Dependencies: []dsm.Dependency{{FileName: "b.ts", Dependencies: 3}}},
			"b.ts": {Complexity: 1, LineCount: 4, Dependencies: []dsm.Dependency{}},
		},
		FileList: []string{"a.ts", "b.ts"},
		Branch:   "main",
	}
}

func TestPutGetRoundTrip(t *testing.T) {
	cache, err := Open(t.TempDir(), 3600, logging.Nop())
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer cache.Close()

	key := Key("https://example.com/repo.git", true, true, 100)
	if err := cache.Put(key, "https://example.com/repo.git", testPayload()); err != nil {
		t.Fatalf("Put() error: %v", err)
	}

	got, err := cache.Get(key)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if got == nil {
		t.Fatal("expected cached payload")
	}
	if got.Branch != "main" {
		t.Errorf("branch = %q, want main", got.Branch)
	}
	if got.Files["a.ts"].Dependencies[0].Dependencies != 3 {
		t.Errorf("dependency weight lost in round trip")
	}
}

func TestGetMissing(t *testing.T) {
	cache, err := Open(t.TempDir(), 3600, logging.Nop())
	if err != nil {
		t.Fatal(err)
	}
	defer cache.Close()

	got, err := cache.Get("nope")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for missing key")
	}
}

func TestKeyDependsOnOptions(t *testing.T) {
	base := Key("u", true, true, 100)
	if Key("u", false, true, 100) == base {
		t.Errorf("includeTests must affect the key")
	}
	if Key("u", true, true, 200) == base {
		t.Errorf("threshold must affect the key")
	}
	if Key("v", true, true, 100) == base {
		t.Errorf("url must affect the key")
	}
	if Key("u", true, true, 100) != base {
		t.Errorf("key must be deterministic")
	}
}

func TestListAndClear(t *testing.T) {
	cache, err := Open(t.TempDir(), 3600, logging.Nop())
	if err != nil {
		t.Fatal(err)
	}
	defer cache.Close()

	if err := cache.Put(Key("u1", true, true, 100), "u1", testPayload()); err != nil {
		t.Fatal(err)
	}
	if err := cache.Put(Key("u2", true, true, 100), "u2", testPayload()); err != nil {
		t.Fatal(err)
	}

	entries, err := cache.List()
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}

	if err := cache.Clear(); err != nil {
		t.Fatalf("Clear() error: %v", err)
	}
	entries, err = cache.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("expected empty cache after clear, got %d entries", len(entries))
	}
}

func TestExpiredEntry(t *testing.T) {
	cache, err := Open(t.TempDir(), 1, logging.Nop())
	if err != nil {
		t.Fatal(err)
	}
	defer cache.Close()

	key := Key("u", true, true, 100)
	if err := cache.Put(key, "u", testPayload()); err != nil {
		t.Fatal(err)
	}

	// force the entry into the past
	if _, err := cache.db.Exec("UPDATE payloads SET created_at = created_at - 10"); err != nil {
		t.Fatal(err)
	}

	got, err := cache.Get(key)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if got != nil {
		t.Errorf("expected expired entry to be dropped")
	}
}
