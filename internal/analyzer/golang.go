package analyzer

import (
	"context"
	"path"
	"regexp"
	"sort"
	"strings"

	"github.com/christikaes/macaroni-arch/internal/logging"
	"github.com/christikaes/macaroni-arch/internal/paths"
	"github.com/christikaes/macaroni-arch/internal/scrub"
)

// goStdlibRoots recognises standard library import roots. Entries ending in
// "/" match whole prefix families (encoding/json, net/http, ...).
var goStdlibRoots = []string{
	"fmt", "os", "io", "strings", "strconv", "errors", "log", "time",
	"math", "sort", "sync", "context", "testing", "runtime", "reflect",
	"regexp", "bytes", "bufio", "flag", "path", "filepath",
	"encoding/", "net/", "crypto/", "database/",
}

// GoAnalyzer resolves Go imports by matching import paths against package
// directories.
type GoAnalyzer struct{}

// NewGoAnalyzer creates the go analyzer.
func NewGoAnalyzer() *GoAnalyzer {
	return &GoAnalyzer{}
}

// Tag implements Analyzer.
func (a *GoAnalyzer) Tag() string { return "go" }

// Extensions implements Analyzer.
func (a *GoAnalyzer) Extensions() []string { return []string{".go"} }

type goIndex struct {
	// dirFiles maps a package directory to its files
	dirFiles map[string][]string
	// dirs sorted for deterministic longest-suffix matching
	dirs []string
	// symbols maps a file to its exported top-level identifiers
	symbols map[string][]string
}

var (
	goSingleImportRe = regexp.MustCompile(`(?m)^import\s+(?:(\w+|\.|_)\s+)?"([^"]+)"`)
	goBlockImportRe  = regexp.MustCompile(`(?m)^import\s*\(`)
	goBlockLineRe    = regexp.MustCompile(`^\s*(?:(\w+|\.|_)\s+)?"([^"]+)"\s*$`)
	goFuncRe         = regexp.MustCompile(`(?m)^func\s+([A-Z]\w*)`)
	goTypeRe         = regexp.MustCompile(`(?m)^type\s+([A-Z]\w*)`)
	goVarRe          = regexp.MustCompile(`(?m)^(?:var|const)\s+([A-Z]\w*)`)
	goBlockDeclRe    = regexp.MustCompile(`^\s+([A-Z]\w*)`)
)

// AnalyzeAll implements Analyzer.
func (a *GoAnalyzer) AnalyzeAll(ctx context.Context, req *Request) (Edges, error) {
	idx := &goIndex{
		dirFiles: make(map[string][]string),
		symbols:  make(map[string][]string, len(req.Files)),
	}

	// Index pass: package directories and exported symbols.
	for _, file := range req.Files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		dir := path.Dir(file)
		if dir == "." {
			dir = ""
		}
		idx.dirFiles[dir] = append(idx.dirFiles[dir], file)

		src, err := req.Sources.Load(file)
		if err != nil {
			req.Logger.Warn("Failed to read file", logging.Fields{"file": file, "error": err.Error()})
			continue
		}
		idx.symbols[file] = goExportedSymbols(scrub.Strip(src, scrub.StyleC))
	}
	for dir := range idx.dirFiles {
		sort.Strings(idx.dirFiles[dir])
		idx.dirs = append(idx.dirs, dir)
	}
	sort.Strings(idx.dirs)

	// Resolution pass.
	edges := make(Edges)
	for _, file := range req.Files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		src, err := req.Sources.Load(file)
		if err != nil {
			continue
		}
		var tokens map[string]int
		usage := func(target string) int {
			if tokens == nil {
				tokens = scrub.CountIdentifiers(scrub.Strip(src, scrub.StyleC))
			}
			return usageWeight(tokens, idx.symbols[target])
		}

		// import paths are string literals, so extraction runs on the raw
		// source rather than the stripped form
		for _, imp := range goParseImports(src) {
			dir := goResolveDir(file, imp.path, idx)
			if dir == "" {
				continue
			}
			for _, target := range idx.dirFiles[dir] {
				weight := 1
				if !req.FastPath && imp.alias != "_" {
					weight = usage(target)
				}
				addEdge(edges, req.FastPath, file, target, weight)
			}
		}
	}

	return edges, nil
}

type goImport struct {
	alias string
	path  string
}

// goParseImports extracts single-line imports and import blocks.
func goParseImports(src []byte) []goImport {
	var imports []goImport

	for _, m := range goSingleImportRe.FindAllSubmatch(src, -1) {
		imports = append(imports, goImport{alias: string(m[1]), path: string(m[2])})
	}

	text := string(src)
	for _, loc := range goBlockImportRe.FindAllStringIndex(text, -1) {
		block := text[loc[1]:]
		if end := strings.Index(block, ")"); end >= 0 {
			block = block[:end]
		}
		for _, line := range strings.Split(block, "\n") {
			if m := goBlockLineRe.FindStringSubmatch(line); m != nil {
				imports = append(imports, goImport{alias: m[1], path: m[2]})
			}
		}
	}
	return imports
}

// goIsStdlib applies the stdlib recognition rule: no dot in the first
// segment and membership in the known root set.
func goIsStdlib(importPath string) bool {
	first := strings.SplitN(importPath, "/", 2)[0]
	if strings.Contains(first, ".") {
		return false
	}
	for _, root := range goStdlibRoots {
		if strings.HasSuffix(root, "/") {
			if strings.HasPrefix(importPath, root) || importPath == strings.TrimSuffix(root, "/") {
				return true
			}
		} else if importPath == root || first == root {
			return true
		}
	}
	return false
}

// goResolveDir maps an import path to a package directory in the repo.
// Relative forms resolve against the importing file's directory; package
// paths match by longest suffix.
func goResolveDir(importer, importPath string, idx *goIndex) string {
	if strings.HasPrefix(importPath, "./") || strings.HasPrefix(importPath, "../") || importPath == "." || importPath == ".." {
		dir := paths.Join(importer, importPath)
		if dir == "" {
			return ""
		}
		dir = paths.Normalize(dir)
		if dir == "." {
			dir = ""
		}
		if _, ok := idx.dirFiles[dir]; ok {
			return dir
		}
		return ""
	}

	// anything with a dotted first segment is a remote module path unless a
	// repo directory matches one of its suffixes
	if goIsStdlib(importPath) {
		return ""
	}

	best := ""
	bestLen := -1
	for _, dir := range idx.dirs {
		if !suffixMatches(dir, importPath) {
			continue
		}
		if len(dir) > bestLen {
			best = dir
			bestLen = len(dir)
		}
	}
	if bestLen < 0 {
		return ""
	}
	return best
}

// suffixMatches reports whether the package directory is a segment-aligned
// suffix of the import path (or vice versa for root packages).
func suffixMatches(dir, importPath string) bool {
	if dir == "" {
		return false
	}
	if importPath == dir || strings.HasSuffix(importPath, "/"+dir) {
		return true
	}
	// import path shorter than the directory: match its trailing segments
	if strings.HasSuffix(dir, "/"+importPath) || dir == importPath {
		return true
	}
	return false
}

// goExportedSymbols extracts exported top-level declarations, including
// names inside grouped const/var/type blocks.
func goExportedSymbols(stripped []byte) []string {
	var symbols []string
	seen := make(map[string]bool)
	add := func(name string) {
		if name != "" && !seen[name] {
			seen[name] = true
			symbols = append(symbols, name)
		}
	}

	for _, re := range []*regexp.Regexp{goFuncRe, goTypeRe, goVarRe} {
		for _, m := range re.FindAllSubmatch(stripped, -1) {
			add(string(m[1]))
		}
	}

	// grouped declarations: const ( A = 1\n B = 2 )
	lines := strings.Split(string(stripped), "\n")
	inBlock := false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if !inBlock {
			if trimmed == "const (" || trimmed == "var (" || trimmed == "type (" ||
				strings.HasPrefix(trimmed, "const (") || strings.HasPrefix(trimmed, "var (") || strings.HasPrefix(trimmed, "type (") {
				inBlock = true
			}
			continue
		}
		if strings.HasPrefix(trimmed, ")") {
			inBlock = false
			continue
		}
		if m := goBlockDeclRe.FindStringSubmatch(line); m != nil {
			add(m[1])
		}
	}
	return symbols
}
