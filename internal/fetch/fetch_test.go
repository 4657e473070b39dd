package fetch

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/christikaes/macaroni-arch/internal/progress"
)

func TestParseCloneLine(t *testing.T) {
	tests := []struct {
		line    string
		phase   string
		percent int
		ok      bool
	}{
		{"Receiving objects:  42% (1234/2938)", "Receiving objects", 42, true},
		{"Resolving deltas: 100% (100/100), done.", "Resolving deltas", 100, true},
		{"Cloning into 'repo'...", "", 0, false},
		{"", "", 0, false},
		{"some noise", "", 0, false},
	}

	for _, tt := range tests {
		phase, percent, ok := parseCloneLine(tt.line)
		if ok != tt.ok {
			t.Errorf("parseCloneLine(%q) ok = %v, want %v", tt.line, ok, tt.ok)
			continue
		}
		if !ok {
			continue
		}
		if phase != tt.phase || percent != tt.percent {
			t.Errorf("parseCloneLine(%q) = (%q, %d), want (%q, %d)", tt.line, phase, percent, tt.phase, tt.percent)
		}
	}
}

func TestStreamCloneProgress(t *testing.T) {
	// git rewrites progress lines with carriage returns
	stderr := strings.NewReader(
		"Receiving objects:   1% (1/100)\r" +
			"Receiving objects:   3% (3/100)\r" +
			"Receiving objects:   8% (8/100)\r" +
			"Receiving objects:  50% (50/100)\r" +
			"Receiving objects: 100% (100/100), done.\n" +
			"Resolving deltas: 100% (10/10), done.\n")

	sink, ch := progress.New(32)
	streamCloneProgress(stderr, sink)
	sink.Complete(nil)

	var messages []string
	for f := range ch {
		if f.Kind == progress.KindProgress {
			messages = append(messages, f.Message)
		}
	}

	want := []string{
		"Receiving objects: 1%",
		"Receiving objects: 8%",
		"Receiving objects: 50%",
		"Receiving objects: 100%",
		"Resolving deltas: 100%",
	}
	if !reflect.DeepEqual(messages, want) {
		t.Errorf("progress messages = %v, want %v", messages, want)
	}
}

func TestWalkLocal(t *testing.T) {
	dir := t.TempDir()
	mustWrite(t, dir, "a.go", "package a\n")
	mustWrite(t, dir, "sub/b.go", "package sub\n")
	mustWrite(t, dir, "ignored/c.go", "package ignored\n")
	mustWrite(t, dir, ".gitignore", "ignored/\n")

	files, err := walkLocal(dir)
	if err != nil {
		t.Fatalf("walkLocal() error: %v", err)
	}

	for _, f := range files {
		if strings.HasPrefix(f, "ignored/") {
			t.Errorf("gitignored file enumerated: %s", f)
		}
	}

	found := map[string]bool{}
	for _, f := range files {
		found[f] = true
	}
	if !found["a.go"] || !found["sub/b.go"] {
		t.Errorf("expected a.go and sub/b.go, got %v", files)
	}
}

func TestTreeSize(t *testing.T) {
	dir := t.TempDir()
	mustWrite(t, dir, "a.txt", strings.Repeat("x", 100))
	mustWrite(t, dir, "sub/b.txt", strings.Repeat("y", 50))

	size, err := TreeSize(dir)
	if err != nil {
		t.Fatalf("TreeSize() error: %v", err)
	}
	if size != 150 {
		t.Errorf("TreeSize() = %d, want 150", size)
	}
}

func TestCleanupIsIdempotent(t *testing.T) {
	workspace, err := os.MkdirTemp("", "macaroni-test-*")
	if err != nil {
		t.Fatal(err)
	}

	r := &Result{Root: filepath.Join(workspace, "repo"), Workspace: workspace}
	r.Cleanup()
	r.Cleanup()

	if _, err := os.Stat(workspace); !os.IsNotExist(err) {
		t.Errorf("workspace still exists after cleanup")
	}
}

func mustWrite(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}
