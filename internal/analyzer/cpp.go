package analyzer

import (
	"context"
	"path"
	"regexp"
	"sort"
	"strings"

	"github.com/christikaes/macaroni-arch/internal/logging"
	"github.com/christikaes/macaroni-arch/internal/paths"
)

// cppIncludeRoots are the common include directories searched after the
// importer-relative and workspace-relative locations.
var cppIncludeRoots = []string{"include", "src", "lib", "common", "inc", "headers"}

// cppStdlibRe matches standard C/C++, POSIX and platform headers in angled
// includes.
var cppStdlibRe = regexp.MustCompile(`^(` +
	// C++ standard headers have no extension
	`[a-z_]+|` +
	// C standard and POSIX headers
	`std[a-z]+\.h|assert\.h|ctype\.h|errno\.h|float\.h|limits\.h|locale\.h|` +
	`math\.h|setjmp\.h|signal\.h|string\.h|time\.h|unistd\.h|fcntl\.h|` +
	`pthread\.h|semaphore\.h|dirent\.h|dlfcn\.h|poll\.h|termios\.h|` +
	`sys/[a-z_]+\.h|netinet/[a-z_]+\.h|arpa/[a-z_]+\.h|` +
	// platform headers
	`windows\.h|winsock2\.h|unix\.h` +
	`)$`)

// CppAnalyzer resolves #include directives via the include-path search order.
type CppAnalyzer struct{}

// NewCppAnalyzer creates the c/c++ analyzer.
func NewCppAnalyzer() *CppAnalyzer {
	return &CppAnalyzer{}
}

// Tag implements Analyzer.
func (a *CppAnalyzer) Tag() string { return "cpp" }

// Extensions implements Analyzer.
func (a *CppAnalyzer) Extensions() []string {
	return []string{".cpp", ".cc", ".cxx", ".c", ".h", ".hpp", ".hxx", ".hh"}
}

type cppIndex struct {
	files      map[string]bool
	sorted     []string
	byBasename map[string][]string
}

var cppIncludeRe = regexp.MustCompile(`(?m)^\s*#\s*include\s*(?:"([^"]+)"|<([^>]+)>)`)

// AnalyzeAll implements Analyzer.
func (a *CppAnalyzer) AnalyzeAll(ctx context.Context, req *Request) (Edges, error) {
	idx := &cppIndex{
		files:      make(map[string]bool, len(req.Files)),
		byBasename: make(map[string][]string),
	}

	// Index pass: the resolver needs the file set and basenames.
	for _, file := range req.Files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		idx.files[file] = true
		idx.sorted = append(idx.sorted, file)
		idx.byBasename[path.Base(file)] = append(idx.byBasename[path.Base(file)], file)
	}
	sort.Strings(idx.sorted)
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

		for _, m := range cppIncludeRe.FindAllSubmatch(src, -1) {
			quoted := string(m[1])
			angled := string(m[2])

			var include string
			if quoted != "" {
				include = quoted
			} else {
				if cppStdlibRe.MatchString(angled) {
					continue
				}
				include = angled
			}

			target := cppResolve(file, include, idx)
			if target == "" {
				continue
			}
			// an include is a side-effect import: one point per directive
			addEdge(edges, req.FastPath, file, target, 1)
		}
	}

	return edges, nil
}

// cppResolve tries the include search order: importer-relative, workspace
// root, common include roots, suffix match, then unique-basename match.
func cppResolve(importer, include string, idx *cppIndex) string {
	include = paths.Normalize(include)

	// (1) relative to the importing file
	if candidate := paths.Join(importer, include); candidate != "" && idx.files[candidate] {
		return candidate
	}

	// (2) relative to the workspace root
	if idx.files[include] {
		return include
	}

	// (3) under the common include roots
	for _, root := range cppIncludeRoots {
		if candidate := root + "/" + include; idx.files[candidate] {
			return candidate
		}
	}

	// (4) any file with the include text as a path suffix
	for _, f := range idx.sorted {
		if strings.HasSuffix(f, "/"+include) {
			return f
		}
	}

	// (5) basename match: unique wins, ambiguity prefers a shared directory
	base := path.Base(include)
	matches := idx.byBasename[base]
	switch len(matches) {
	case 0:
		return ""
	case 1:
		return matches[0]
	default:
		prefix := path.Dir(include)
		if prefix != "." {
			for _, f := range matches {
				if strings.Contains(path.Dir(f), prefix) {
					return f
				}
			}
		}
		return ""
	}
}
