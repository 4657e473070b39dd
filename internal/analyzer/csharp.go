package analyzer

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/christikaes/macaroni-arch/internal/logging"
	"github.com/christikaes/macaroni-arch/internal/scrub"
)

// CSharpAnalyzer resolves C# using directives against the namespaces and
// types declared in the repository.
type CSharpAnalyzer struct{}

// NewCSharpAnalyzer creates the csharp analyzer.
func NewCSharpAnalyzer() *CSharpAnalyzer {
	return &CSharpAnalyzer{}
}

// Tag implements Analyzer.
func (a *CSharpAnalyzer) Tag() string { return "csharp" }

// Extensions implements Analyzer.
func (a *CSharpAnalyzer) Extensions() []string { return []string{".cs"} }

type csIndex struct {
	// namespaceFiles maps a namespace to the files declaring it
	namespaceFiles map[string][]string
	// typeFiles maps a fully qualified type name to its file
	typeFiles map[string]string
	// fileSymbols maps a file to its declared type names
	fileSymbols map[string][]string
	// rootNamespace is the project's own top-level namespace segment
	rootNamespace string
}

var (
	csNamespaceRe = regexp.MustCompile(`(?m)^\s*namespace\s+([\w.]+)`)
	csTypeRe      = regexp.MustCompile(`(?m)\b(?:class|interface|struct|enum|record)\s+(\w+)`)
	csUsingRe     = regexp.MustCompile(`(?m)^\s*(?:global\s+)?using\s+(static\s+)?(?:(\w+)\s*=\s*)?([\w.]+)\s*;`)
)

// AnalyzeAll implements Analyzer.
func (a *CSharpAnalyzer) AnalyzeAll(ctx context.Context, req *Request) (Edges, error) {
	idx := &csIndex{
		namespaceFiles: make(map[string][]string),
		typeFiles:      make(map[string]string),
		fileSymbols:    make(map[string][]string, len(req.Files)),
	}

	// Index pass: namespaces, declared types and the project root namespace.
	rootCounts := make(map[string]int)
	for _, file := range req.Files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		src, err := req.Sources.Load(file)
		if err != nil {
			req.Logger.Warn("Failed to read file", logging.Fields{"file": file, "error": err.Error()})
			continue
		}
		stripped := scrub.Strip(src, scrub.StyleC)

		ns := ""
		if m := csNamespaceRe.FindSubmatch(stripped); m != nil {
			ns = string(m[1])
			idx.namespaceFiles[ns] = append(idx.namespaceFiles[ns], file)
			rootCounts[strings.SplitN(ns, ".", 2)[0]]++
		}

		var symbols []string
		seen := make(map[string]bool)
		for _, m := range csTypeRe.FindAllSubmatch(stripped, -1) {
			name := string(m[1])
			if seen[name] {
				continue
			}
			seen[name] = true
			symbols = append(symbols, name)
			if ns != "" {
				if _, taken := idx.typeFiles[ns+"."+name]; !taken {
					idx.typeFiles[ns+"."+name] = file
				}
			}
		}
		idx.fileSymbols[file] = symbols
	}
	for ns := range idx.namespaceFiles {
		sort.Strings(idx.namespaceFiles[ns])
	}
	idx.rootNamespace = mostCommon(rootCounts)
	if idx.rootNamespace == "Microsoft" {
		// the project itself lives under Microsoft.*; the root namespace for
		// the Microsoft.<root>.* exception is the next segment
		seconds := make(map[string]int)
		for ns := range idx.namespaceFiles {
			parts := strings.SplitN(ns, ".", 3)
			if len(parts) >= 2 && parts[0] == "Microsoft" {
				seconds[parts[1]]++
			}
		}
		idx.rootNamespace = mostCommon(seconds)
	}

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
		stripped := scrub.Strip(src, scrub.StyleC)

		var tokens map[string]int
		usage := func(target string) int {
			if tokens == nil {
				// the directives themselves must not inflate usage counts
				body := csUsingRe.ReplaceAll(stripped, nil)
				tokens = scrub.CountIdentifiers(body)
			}
			return usageWeight(tokens, idx.fileSymbols[target])
		}

		for _, m := range csUsingRe.FindAllSubmatch(stripped, -1) {
			isStatic := len(m[1]) > 0
			clause := string(m[3])

			if csIsExternal(clause, idx.rootNamespace) {
				continue
			}

			if target, ok := idx.typeFiles[clause]; ok {
				if isStatic {
					// using static N.C pulls C's members into scope;
					// weight follows usage like a namespace using
					addEdge(edges, req.FastPath, file, target, usage(target))
				} else {
					// the directive names exactly one type
					addEdge(edges, req.FastPath, file, target, 1)
				}
				continue
			}

			// namespace using: every file in the namespace, weighted by
			// how often its types appear in this file
			for _, target := range idx.namespaceFiles[clause] {
				addEdge(edges, req.FastPath, file, target, usage(target))
			}
		}
	}

	return edges, nil
}

// mostCommon returns the highest-count key, ties broken lexicographically.
func mostCommon(counts map[string]int) string {
	best := ""
	for key, count := range counts {
		if best == "" || count > counts[best] || (count == counts[best] && key < best) {
			best = key
		}
	}
	return best
}

// csIsExternal drops System, Xunit, Moq and foreign Microsoft namespaces.
// Microsoft.<root>.* stays when <root> is the project's own root namespace.
func csIsExternal(clause, rootNamespace string) bool {
	if strings.HasPrefix(clause, "System.") || clause == "System" {
		return true
	}
	if strings.HasPrefix(clause, "Xunit") || strings.HasPrefix(clause, "Moq") {
		return true
	}
	if strings.HasPrefix(clause, "Microsoft.") {
		if rootNamespace != "" && strings.HasPrefix(clause, "Microsoft."+rootNamespace+".") {
			return false
		}
		return true
	}
	return false
}
