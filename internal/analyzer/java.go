package analyzer

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/christikaes/macaroni-arch/internal/logging"
	"github.com/christikaes/macaroni-arch/internal/scrub"
)

// javaExternalPrefixes are import roots that never resolve into the repo.
var javaExternalPrefixes = []string{
	"java.", "javax.", "org.junit.", "org.mockito.",
	"org.apache.commons.", "org.apache.log4j.",
}

// JavaAnalyzer resolves Java imports by matching dotted class paths against
// file path suffixes.
type JavaAnalyzer struct{}

// NewJavaAnalyzer creates the java analyzer.
func NewJavaAnalyzer() *JavaAnalyzer {
	return &JavaAnalyzer{}
}

// Tag implements Analyzer.
func (a *JavaAnalyzer) Tag() string { return "java" }

// Extensions implements Analyzer.
func (a *JavaAnalyzer) Extensions() []string { return []string{".java"} }

type javaIndex struct {
	files []string
	// byBasename maps "C.java" to every file with that basename
	byBasename map[string][]string
}

var (
	javaImportRe = regexp.MustCompile(`(?m)^\s*import\s+(static\s+)?([A-Za-z_][\w.]*(?:\.\*)?)\s*;`)
)

// AnalyzeAll implements Analyzer.
func (a *JavaAnalyzer) AnalyzeAll(ctx context.Context, req *Request) (Edges, error) {
	idx := &javaIndex{byBasename: make(map[string][]string)}

	// Index pass: file paths and basenames are all the resolver needs.
	for _, file := range req.Files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		idx.files = append(idx.files, file)
		base := file
		if i := strings.LastIndex(file, "/"); i >= 0 {
			base = file[i+1:]
		}
		idx.byBasename[base] = append(idx.byBasename[base], file)
	}
	sort.Strings(idx.files)
	for base := range idx.byBasename {
		sort.Strings(idx.byBasename[base])
	}

	// Resolution pass.
	edges := make(Edges)
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

		for _, m := range javaImportRe.FindAllSubmatch(stripped, -1) {
			isStatic := len(m[1]) > 0
			clause := string(m[2])

			if javaIsExternal(clause) {
				continue
			}
			// wildcard package imports have no cheap resolution
			if strings.HasSuffix(clause, ".*") {
				continue
			}
			if isStatic {
				// import static a.b.C.member binds a member of class C
				if i := strings.LastIndex(clause, "."); i > 0 {
					clause = clause[:i]
				}
			}

			target := javaResolve(idx, clause)
			if target == "" {
				continue
			}
			// the clause names exactly one symbol, the imported class
			addEdge(edges, req.FastPath, file, target, 1)
		}
	}

	return edges, nil
}

func javaIsExternal(clause string) bool {
	for _, prefix := range javaExternalPrefixes {
		if strings.HasPrefix(clause, prefix) {
			return true
		}
	}
	return false
}

// javaResolve maps a.b.C to the unique file whose path ends with a/b/C.java,
// falling back to any file named C.java.
func javaResolve(idx *javaIndex, clause string) string {
	suffix := strings.ReplaceAll(clause, ".", "/") + ".java"

	var matches []string
	for _, f := range idx.files {
		if f == suffix || strings.HasSuffix(f, "/"+suffix) {
			matches = append(matches, f)
		}
	}
	if len(matches) == 1 {
		return matches[0]
	}
	if len(matches) > 1 {
		return matches[0] // sorted; deterministic pick
	}

	base := clause
	if i := strings.LastIndex(clause, "."); i >= 0 {
		base = clause[i+1:]
	}
	if files := idx.byBasename[base+".java"]; len(files) > 0 {
		return files[0]
	}
	return ""
}
