// Package analyzer resolves intra-repository imports to concrete files and
// weights each edge by the number of imported symbols. One analyzer exists
// per supported language; all follow the same two-pass protocol: build the
// language index over every file, then resolve each file's import clauses
// against it.
package analyzer

import (
	"context"

	"github.com/christikaes/macaroni-arch/internal/logging"
	"github.com/christikaes/macaroni-arch/internal/source"
)

// Edges maps importer path to target path to symbol-count weight.
type Edges map[string]map[string]int

// Add merges weight into the edge (from, to). Self-edges and non-positive
// weights are dropped.
func (e Edges) Add(from, to string, weight int) {
	if from == to || weight <= 0 {
		return
	}
	m, ok := e[from]
	if !ok {
		m = make(map[string]int)
		e[from] = m
	}
	m[to] += weight
}

// Request carries one language's analysis pass.
type Request struct {
	// Root is the workspace directory.
	Root string

	// Files are the admitted repo-relative paths for this language.
	Files []string

	// FastPath skips symbol-usage counting; every resolved edge gets
	// weight 1. Set when the repository exceeds the large-repo threshold.
	FastPath bool

	// TypeOnlyImports counts TypeScript `import type` clauses when true.
	TypeOnlyImports bool

	// Sources reads file contents.
	Sources *source.Cache

	// Logger receives per-file diagnostics.
	Logger *logging.Logger
}

// Analyzer is the per-language capability set.
type Analyzer interface {
	// Tag is the language tag this analyzer owns.
	Tag() string

	// Extensions lists the file extensions this analyzer accepts.
	Extensions() []string

	// AnalyzeAll runs the two-pass protocol over the given files and
	// returns the resolved dependency edges. Per-file parse failures are
	// logged and skipped; the error return is reserved for whole-language
	// failures.
	AnalyzeAll(ctx context.Context, req *Request) (Edges, error)
}

// Registry maps language tags to analyzers.
type Registry struct {
	byTag map[string]Analyzer
}

// NewRegistry creates an empty registry. Future languages (rust, ruby, php,
// swift, kotlin, scala) plug in here without touching the pipeline.
func NewRegistry() *Registry {
	return &Registry{byTag: make(map[string]Analyzer)}
}

// Register adds an analyzer, replacing any previous one for the same tag.
func (r *Registry) Register(a Analyzer) {
	r.byTag[a.Tag()] = a
}

// For returns the analyzer registered for tag.
func (r *Registry) For(tag string) (Analyzer, bool) {
	a, ok := r.byTag[tag]
	return a, ok
}

// Default returns a registry with every built-in analyzer registered.
func Default() *Registry {
	r := NewRegistry()
	r.Register(NewJSAnalyzer())
	r.Register(NewPythonAnalyzer())
	r.Register(NewCppAnalyzer())
	r.Register(NewJavaAnalyzer())
	r.Register(NewCSharpAnalyzer())
	r.Register(NewGoAnalyzer())
	return r
}

// usageWeight returns the wildcard-import weight for a target: the total
// occurrence count of the target's exported symbols among the importer's
// identifier tokens, or 1 when no symbol is used but the import exists.
func usageWeight(tokenCounts map[string]int, symbols []string) int {
	total := 0
	for _, sym := range symbols {
		total += tokenCounts[sym]
	}
	if total == 0 {
		return 1
	}
	return total
}
