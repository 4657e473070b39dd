package analyzer

import (
	"context"
	"path"
	"regexp"
	"sort"
	"strings"

	"github.com/christikaes/macaroni-arch/internal/logging"
	"github.com/christikaes/macaroni-arch/internal/scrub"
)

// pythonExternalRoots are stdlib and ubiquitous third-party top-level module
// names; imports rooted there never resolve into the repository.
var pythonExternalRoots = map[string]bool{
	"sys": true, "os": true, "re": true, "json": true, "datetime": true,
	"collections": true, "typing": true, "pathlib": true, "io": true,
	"time": true, "random": true, "math": true, "logging": true,
	"unittest": true, "argparse": true, "subprocess": true, "threading": true,
	"multiprocessing": true, "asyncio": true,
	"django": true, "flask": true, "numpy": true, "pandas": true,
	"requests": true, "pytest": true, "sqlalchemy": true, "redis": true,
	"celery": true, "boto3": true, "pydantic": true,
}

// PythonAnalyzer resolves Python imports by dotted module path.
type PythonAnalyzer struct{}

// NewPythonAnalyzer creates the python analyzer.
func NewPythonAnalyzer() *PythonAnalyzer {
	return &PythonAnalyzer{}
}

// Tag implements Analyzer.
func (a *PythonAnalyzer) Tag() string { return "python" }

// Extensions implements Analyzer.
func (a *PythonAnalyzer) Extensions() []string { return []string{".py"} }

type pyIndex struct {
	// moduleFiles maps a dotted module path to the files inhabiting it
	moduleFiles map[string][]string
	// symbols maps a file to its top-level definitions
	symbols map[string][]string
	// modules maps a file to its own dotted module path
	modules map[string]string
}

// AnalyzeAll implements Analyzer.
func (a *PythonAnalyzer) AnalyzeAll(ctx context.Context, req *Request) (Edges, error) {
	idx := &pyIndex{
		moduleFiles: make(map[string][]string),
		symbols:     make(map[string][]string, len(req.Files)),
		modules:     make(map[string]string, len(req.Files)),
	}

	// src-layout projects import without the src segment
	srcPrefix := pySourcePrefix(req)

	// Index pass.
	for _, file := range req.Files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		module := pyModulePath(strings.TrimPrefix(file, srcPrefix))
		idx.modules[file] = module
		idx.moduleFiles[module] = append(idx.moduleFiles[module], file)

		src, err := req.Sources.Load(file)
		if err != nil {
			req.Logger.Warn("Failed to read file", logging.Fields{"file": file, "error": err.Error()})
			continue
		}
		idx.symbols[file] = pyTopLevelSymbols(scrub.Strip(src, scrub.StylePython))
	}
	for module := range idx.moduleFiles {
		sort.Strings(idx.moduleFiles[module])
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
		stripped := scrub.Strip(src, scrub.StylePython)

		var tokens map[string]int
		usage := func(target string) int {
			if tokens == nil {
				tokens = scrub.CountIdentifiers(stripped)
			}
			return usageWeight(tokens, idx.symbols[target])
		}

		for _, imp := range pyParseImports(stripped) {
			module := pyAbsoluteModule(strings.TrimPrefix(file, srcPrefix), imp.module)
			if module == "" || pythonExternalRoots[strings.SplitN(module, ".", 2)[0]] {
				continue
			}

			candidates := pyCandidates(idx, module)
			if len(candidates) == 0 {
				continue
			}

			switch {
			case imp.wildcard:
				for _, target := range candidates {
					addEdge(edges, req.FastPath, file, target, usage(target))
				}

			case len(imp.names) > 0:
				for _, name := range imp.names {
					// a named import may be a submodule rather than a symbol
					if sub, ok := idx.moduleFiles[module+"."+name]; ok {
						addEdge(edges, req.FastPath, file, sub[0], 1)
						continue
					}
					target := pyAttributeSymbol(idx, candidates, module, name)
					addEdge(edges, req.FastPath, file, target, 1)
				}

			default:
				// import M: every file of the module, weighted by usage
				for _, target := range candidates {
					addEdge(edges, req.FastPath, file, target, usage(target))
				}
			}
		}
	}

	return edges, nil
}

type pyImport struct {
	module   string
	names    []string
	wildcard bool
}

var (
	pyFromRe   = regexp.MustCompile(`^\s*from\s+(\S+)\s+import\s+(.+?)\s*$`)
	pyImportRe = regexp.MustCompile(`^\s*import\s+(.+?)\s*$`)
	pySymbolRe = regexp.MustCompile(`(?m)^(?:async\s+)?(?:class|def)\s+(\w+)|^(\w+)\s*=`)
)

// pyParseImports scans stripped source for import statements, joining
// parenthesized continuation lines first.
func pyParseImports(stripped []byte) []pyImport {
	var imports []pyImport

	lines := strings.Split(string(stripped), "\n")
	for i := 0; i < len(lines); i++ {
		line := lines[i]
		// join open-paren continuations: from m import (a,\n b)
		for strings.Count(line, "(") > strings.Count(line, ")") && i+1 < len(lines) {
			i++
			line += " " + strings.TrimSpace(lines[i])
		}
		// join backslash continuations
		for strings.HasSuffix(strings.TrimRight(line, " \t"), "\\") && i+1 < len(lines) {
			line = strings.TrimSuffix(strings.TrimRight(line, " \t"), "\\")
			i++
			line += " " + strings.TrimSpace(lines[i])
		}

		if m := pyFromRe.FindStringSubmatch(line); m != nil {
			imp := pyImport{module: m[1]}
			rest := strings.Trim(m[2], "() ")
			for _, part := range strings.Split(rest, ",") {
				name := strings.TrimSpace(part)
				if name == "" {
					continue
				}
				if name == "*" {
					imp.wildcard = true
					continue
				}
				if idx := strings.Index(name, " as "); idx > 0 {
					name = name[:idx]
				}
				name = strings.TrimSpace(name)
				if name != "" {
					imp.names = append(imp.names, name)
				}
			}
			imports = append(imports, imp)
			continue
		}

		if m := pyImportRe.FindStringSubmatch(line); m != nil {
			for _, part := range strings.Split(m[1], ",") {
				name := strings.TrimSpace(part)
				if name == "" {
					continue
				}
				if idx := strings.Index(name, " as "); idx > 0 {
					name = strings.TrimSpace(name[:idx])
				}
				imports = append(imports, pyImport{module: name})
			}
		}
	}
	return imports
}

// pyModulePath converts a file path to its dotted module path.
// pkg/m.py -> pkg.m, pkg/__init__.py -> pkg.
func pyModulePath(file string) string {
	p := strings.TrimSuffix(file, ".py")
	p = strings.TrimSuffix(p, "/__init__")
	if p == "__init__" {
		return ""
	}
	return strings.ReplaceAll(p, "/", ".")
}

// pyAbsoluteModule resolves relative module references against the importing
// file's package. Returns "" when the reference escapes the repository root.
func pyAbsoluteModule(importer, module string) string {
	if !strings.HasPrefix(module, ".") {
		return module
	}

	dots := 0
	for dots < len(module) && module[dots] == '.' {
		dots++
	}
	rest := module[dots:]

	pkg := strings.ReplaceAll(path.Dir(importer), "/", ".")
	if pkg == "." {
		pkg = ""
	}

	// each dot beyond the first climbs one package
	for i := 1; i < dots; i++ {
		if pkg == "" {
			return ""
		}
		if idx := strings.LastIndex(pkg, "."); idx >= 0 {
			pkg = pkg[:idx]
		} else {
			pkg = ""
		}
	}

	switch {
	case rest == "":
		return pkg
	case pkg == "":
		return rest
	default:
		return pkg + "." + rest
	}
}

// pyCandidates returns the files whose module path equals module or nests
// inside it, sorted for determinism.
func pyCandidates(idx *pyIndex, module string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, f := range idx.moduleFiles[module] {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	prefix := module + "."
	for m, files := range idx.moduleFiles {
		if strings.HasPrefix(m, prefix) {
			for _, f := range files {
				if !seen[f] {
					seen[f] = true
					out = append(out, f)
				}
			}
		}
	}
	sort.Strings(out)
	return out
}

// pyAttributeSymbol picks the file a named import binds to: the candidate
// declaring the symbol, else the module's own file, else the first candidate.
func pyAttributeSymbol(idx *pyIndex, candidates []string, module, name string) string {
	for _, f := range candidates {
		for _, sym := range idx.symbols[f] {
			if sym == name {
				return f
			}
		}
	}
	for _, f := range candidates {
		if idx.modules[f] == module {
			return f
		}
	}
	return candidates[0]
}

// pyTopLevelSymbols extracts classes, functions and module-level assignments.
func pyTopLevelSymbols(stripped []byte) []string {
	var symbols []string
	seen := make(map[string]bool)
	for _, m := range pySymbolRe.FindAllSubmatch(stripped, -1) {
		name := string(m[1])
		if name == "" {
			name = string(m[2])
		}
		if name != "" && !seen[name] {
			seen[name] = true
			symbols = append(symbols, name)
		}
	}
	return symbols
}
