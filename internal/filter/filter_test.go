package filter

import (
	"reflect"
	"testing"

	"github.com/christikaes/macaroni-arch/internal/logging"
)

func TestPartitionByLanguage(t *testing.T) {
	f := New(Options{IncludeTests: true}, logging.Nop())

	buckets := f.Partition([]string{
		"src/app.ts",
		"src/util.py",
		"native/core.cpp",
		"native/core.h",
		"Main.java",
		"Web/Controller.cs",
		"main.go",
		"lib.rs",
		"README.md",
	})

	want := map[string][]string{
		TagJS:     {"src/app.ts"},
		TagPython: {"src/util.py"},
		TagCpp:    {"native/core.cpp", "native/core.h"},
		TagJava:   {"Main.java"},
		TagCSharp: {"Web/Controller.cs"},
		TagGo:     {"main.go"},
		TagOther:  {"lib.rs"},
	}
	if !reflect.DeepEqual(buckets, want) {
		t.Errorf("Partition() = %v, want %v", buckets, want)
	}
}

func TestExcludedDirectories(t *testing.T) {
	f := New(Options{IncludeTests: true}, logging.Nop())

	buckets := f.Partition([]string{
		"node_modules/lodash/index.js",
		"vendor/pkg/a.go",
		"dist/app.js",
		"deep/node_modules/x/y.ts",
		"src/ok.ts",
	})

	if len(buckets[TagJS]) != 1 || buckets[TagJS][0] != "src/ok.ts" {
		t.Errorf("expected only src/ok.ts admitted, got %v", buckets)
	}
	if len(buckets[TagGo]) != 0 {
		t.Errorf("vendored go file should be excluded, got %v", buckets[TagGo])
	}
}

func TestMinifiedBundlesExcluded(t *testing.T) {
	f := New(Options{IncludeTests: true}, logging.Nop())

	buckets := f.Partition([]string{"app.min.js", "app.bundle.js", "app.js"})
	if !reflect.DeepEqual(buckets[TagJS], []string{"app.js"}) {
		t.Errorf("expected minified bundles excluded, got %v", buckets[TagJS])
	}
}

func TestIncludeTestsOff(t *testing.T) {
	f := New(Options{IncludeTests: false}, logging.Nop())

	buckets := f.Partition([]string{
		"pkg/thing.go",
		"pkg/thing_test.go",
		"src/app.spec.ts",
		"src/app.ts",
		"tests/test_app.py",
		"app.py",
	})

	if !reflect.DeepEqual(buckets[TagGo], []string{"pkg/thing.go"}) {
		t.Errorf("go bucket = %v", buckets[TagGo])
	}
	if !reflect.DeepEqual(buckets[TagJS], []string{"src/app.ts"}) {
		t.Errorf("js bucket = %v", buckets[TagJS])
	}
	if !reflect.DeepEqual(buckets[TagPython], []string{"app.py"}) {
		t.Errorf("python bucket = %v", buckets[TagPython])
	}
}

func TestExtraExcludedDirs(t *testing.T) {
	f := New(Options{IncludeTests: true, ExtraExcludedDirs: []string{"generated"}}, logging.Nop())

	buckets := f.Partition([]string{"generated/api.ts", "src/api.ts"})
	if !reflect.DeepEqual(buckets[TagJS], []string{"src/api.ts"}) {
		t.Errorf("expected generated/ excluded, got %v", buckets[TagJS])
	}
}
