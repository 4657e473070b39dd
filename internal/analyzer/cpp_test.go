package analyzer

import (
	"context"
	"testing"
)

func TestCppIncludeSearch(t *testing.T) {
	req := newRequest(t, map[string]string{
		"include/lib/foo.hpp": "#pragma once\n",
		"src/a.cpp":           "#include \"lib/foo.hpp\"\n#include \"lib/foo.hpp\"\n",
	}, []string{"include/lib/foo.hpp", "src/a.cpp"})

	edges, err := NewCppAnalyzer().AnalyzeAll(context.Background(), req)
	if err != nil {
		t.Fatalf("AnalyzeAll() error: %v", err)
	}

	// one point per directive, summed
	if got := edgeWeight(t, edges, "src/a.cpp", "include/lib/foo.hpp"); got != 2 {
		t.Errorf("src/a.cpp -> include/lib/foo.hpp weight = %d, want 2", got)
	}
}

func TestCppRelativeInclude(t *testing.T) {
	req := newRequest(t, map[string]string{
		"src/core/engine.h":   "#pragma once\n",
		"src/core/engine.cpp": "#include \"engine.h\"\n",
	}, []string{"src/core/engine.h", "src/core/engine.cpp"})

	edges, err := NewCppAnalyzer().AnalyzeAll(context.Background(), req)
	if err != nil {
		t.Fatalf("AnalyzeAll() error: %v", err)
	}
	if got := edgeWeight(t, edges, "src/core/engine.cpp", "src/core/engine.h"); got != 1 {
		t.Errorf("relative include weight = %d, want 1", got)
	}
}

func TestCppStdlibAngledIgnored(t *testing.T) {
	req := newRequest(t, map[string]string{
		"a.cpp": "#include <vector>\n#include <string.h>\n#include <sys/types.h>\n#include <windows.h>\n",
	}, []string{"a.cpp"})

	edges, err := NewCppAnalyzer().AnalyzeAll(context.Background(), req)
	if err != nil {
		t.Fatalf("AnalyzeAll() error: %v", err)
	}
	if len(edges["a.cpp"]) != 0 {
		t.Errorf("standard headers must not resolve, got %v", edges["a.cpp"])
	}
}

func TestCppAngledProjectInclude(t *testing.T) {
	req := newRequest(t, map[string]string{
		"include/mylib/api.hpp": "#pragma once\n",
		"src/use.cpp":           "#include <mylib/api.hpp>\n",
	}, []string{"include/mylib/api.hpp", "src/use.cpp"})

	edges, err := NewCppAnalyzer().AnalyzeAll(context.Background(), req)
	if err != nil {
		t.Fatalf("AnalyzeAll() error: %v", err)
	}
	if got := edgeWeight(t, edges, "src/use.cpp", "include/mylib/api.hpp"); got != 1 {
		t.Errorf("angled project include weight = %d, want 1", got)
	}
}

func TestCppUniqueBasenameFallback(t *testing.T) {
	req := newRequest(t, map[string]string{
		"deep/nested/place/special.h": "#pragma once\n",
		"main.cpp":                    "#include \"special.h\"\n",
	}, []string{"deep/nested/place/special.h", "main.cpp"})

	edges, err := NewCppAnalyzer().AnalyzeAll(context.Background(), req)
	if err != nil {
		t.Fatalf("AnalyzeAll() error: %v", err)
	}
	if got := edgeWeight(t, edges, "main.cpp", "deep/nested/place/special.h"); got != 1 {
		t.Errorf("basename fallback weight = %d, want 1", got)
	}
}

func TestCppAmbiguousBasenamePrefersSharedPrefix(t *testing.T) {
	req := newRequest(t, map[string]string{
		"moduleA/util.h": "#pragma once\n",
		"moduleB/util.h": "#pragma once\n",
		"main.cpp":       "#include \"moduleB/util.h\"\n",
	}, []string{"moduleA/util.h", "moduleB/util.h", "main.cpp"})

	edges, err := NewCppAnalyzer().AnalyzeAll(context.Background(), req)
	if err != nil {
		t.Fatalf("AnalyzeAll() error: %v", err)
	}
	if got := edgeWeight(t, edges, "main.cpp", "moduleB/util.h"); got != 1 {
		t.Errorf("expected include text directory to disambiguate, got %v", edges["main.cpp"])
	}
	if got := edgeWeight(t, edges, "main.cpp", "moduleA/util.h"); got != 0 {
		t.Errorf("wrong file matched: %v", edges["main.cpp"])
	}
}
