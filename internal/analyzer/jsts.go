package analyzer

import (
	"context"
	"encoding/json"
	"path"
	"regexp"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/christikaes/macaroni-arch/internal/logging"
	"github.com/christikaes/macaroni-arch/internal/paths"
	"github.com/christikaes/macaroni-arch/internal/scrub"
)

// resolution fallbacks tried after an exact match, in order.
var jsExtensionFallbacks = []string{
	".ts", ".tsx", ".js", ".jsx",
	"/index.ts", "/index.tsx", "/index.js", "/index.jsx",
}

// JSAnalyzer resolves JavaScript and TypeScript imports. Files are parsed
// with tree-sitter; .vue single-file components fall back to a regex scan of
// their script block.
type JSAnalyzer struct{}

// NewJSAnalyzer creates the js/ts analyzer.
func NewJSAnalyzer() *JSAnalyzer {
	return &JSAnalyzer{}
}

// Tag implements Analyzer.
func (a *JSAnalyzer) Tag() string { return "js" }

// Extensions implements Analyzer.
func (a *JSAnalyzer) Extensions() []string {
	return []string{".ts", ".tsx", ".js", ".jsx", ".mjs", ".cjs", ".vue"}
}

// jsIndex is the per-run language index: exported symbols per file plus the
// path-alias table loaded from tsconfig.
type jsIndex struct {
	files   map[string]bool
	exports map[string][]string
	aliases []jsAlias
}

type jsAlias struct {
	prefix string // alias prefix, trailing "/*" removed
	target string // directory prefix the alias maps to
}

// AnalyzeAll implements Analyzer.
func (a *JSAnalyzer) AnalyzeAll(ctx context.Context, req *Request) (Edges, error) {
	idx := &jsIndex{
		files:   make(map[string]bool, len(req.Files)),
		exports: make(map[string][]string, len(req.Files)),
		aliases: loadTsconfigAliases(req),
	}

	parser := sitter.NewParser()
	defer parser.Close()

	// Index pass: exported symbols per file.
	for _, file := range req.Files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		idx.files[file] = true

		src, err := req.Sources.Load(file)
		if err != nil {
			req.Logger.Warn("Failed to read file", logging.Fields{"file": file, "error": err.Error()})
			continue
		}

		root := parseJS(ctx, parser, file, src)
		if root == nil {
			idx.exports[file] = regexJSExports(src)
			continue
		}
		idx.exports[file] = collectJSExports(root, src)
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

		var clauses []jsImportClause
		root := parseJS(ctx, parser, file, src)
		if root == nil {
			clauses = regexJSImports(src)
		} else {
			clauses = collectJSImports(root, src, req.TypeOnlyImports)
		}

		var tokens map[string]int
		for _, clause := range clauses {
			target := resolveJS(file, clause.spec, idx)
			if target == "" {
				continue
			}

			weight := 1
			if !req.FastPath {
				switch clause.kind {
				case jsImportNamed:
					weight = len(clause.symbols)
				case jsImportWildcard:
					if tokens == nil {
						tokens = scrub.CountIdentifiers(scrub.Strip(src, scrub.StyleC))
					}
					weight = usageWeight(tokens, idx.exports[target])
				case jsImportSideEffect:
					weight = 1
				}
			}
			addEdge(edges, req.FastPath, file, target, weight)
		}
	}

	return edges, nil
}

type jsImportKind int

const (
	jsImportNamed jsImportKind = iota
	jsImportWildcard
	jsImportSideEffect
)

type jsImportClause struct {
	spec    string
	kind    jsImportKind
	symbols []string
}

// parseJS parses the file with the grammar matching its extension; .vue and
// parse failures yield nil, signalling the regex fallback.
func parseJS(ctx context.Context, parser *sitter.Parser, file string, src []byte) *sitter.Node {
	var lang *sitter.Language
	switch strings.ToLower(path.Ext(file)) {
	case ".ts":
		lang = typescript.GetLanguage()
	case ".tsx":
		lang = tsx.GetLanguage()
	case ".js", ".jsx", ".mjs", ".cjs":
		lang = javascript.GetLanguage()
	default:
		return nil
	}

	parser.SetLanguage(lang)
	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil || tree == nil {
		return nil
	}
	return tree.RootNode()
}

// collectJSExports gathers the exported top-level symbols of a module.
// A default export is recorded as the symbol "default".
func collectJSExports(root *sitter.Node, src []byte) []string {
	var symbols []string
	seen := make(map[string]bool)
	add := func(s string) {
		if s != "" && !seen[s] {
			seen[s] = true
			symbols = append(symbols, s)
		}
	}

	for i := 0; i < int(root.NamedChildCount()); i++ {
		stmt := root.NamedChild(i)
		if stmt == nil || stmt.Type() != "export_statement" {
			continue
		}

		if hasKeywordChild(stmt, "default") {
			add("default")
			continue
		}

		if decl := stmt.ChildByFieldName("declaration"); decl != nil {
			switch decl.Type() {
			case "function_declaration", "generator_function_declaration",
				"class_declaration", "abstract_class_declaration",
				"interface_declaration", "type_alias_declaration", "enum_declaration":
				if name := decl.ChildByFieldName("name"); name != nil {
					add(name.Content(src))
				}
			case "lexical_declaration", "variable_declaration":
				for j := 0; j < int(decl.NamedChildCount()); j++ {
					d := decl.NamedChild(j)
					if d != nil && d.Type() == "variable_declarator" {
						if name := d.ChildByFieldName("name"); name != nil {
							add(name.Content(src))
						}
					}
				}
			}
			continue
		}

		// export { a, b as c }
		for j := 0; j < int(stmt.NamedChildCount()); j++ {
			clause := stmt.NamedChild(j)
			if clause == nil || clause.Type() != "export_clause" {
				continue
			}
			for k := 0; k < int(clause.NamedChildCount()); k++ {
				spec := clause.NamedChild(k)
				if spec == nil || spec.Type() != "export_specifier" {
					continue
				}
				name := spec.ChildByFieldName("alias")
				if name == nil {
					name = spec.ChildByFieldName("name")
				}
				if name != nil {
					add(name.Content(src))
				}
			}
		}
	}
	return symbols
}

// collectJSImports gathers the import clauses of a module: static imports,
// re-exports with a source, require calls and dynamic imports.
func collectJSImports(root *sitter.Node, src []byte, typeOnly bool) []jsImportClause {
	var clauses []jsImportClause

	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n == nil {
			return
		}

		switch n.Type() {
		case "import_statement":
			if clause, ok := importStatementClause(n, src, typeOnly); ok {
				clauses = append(clauses, clause)
			}
			return

		case "export_statement":
			if spec := sourceLiteral(n, src); spec != "" {
				clauses = append(clauses, reexportClause(n, src, spec))
				return
			}

		case "call_expression":
			if clause, ok := requireClause(n, src); ok {
				clauses = append(clauses, clause)
			}
		}

		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(root)

	return clauses
}

func importStatementClause(n *sitter.Node, src []byte, typeOnly bool) (jsImportClause, bool) {
	spec := sourceLiteral(n, src)
	if spec == "" {
		return jsImportClause{}, false
	}
	if !typeOnly && hasKeywordChild(n, "type") {
		return jsImportClause{}, false
	}

	clause := jsImportClause{spec: spec, kind: jsImportSideEffect}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c == nil || c.Type() != "import_clause" {
			continue
		}
		// some grammar revisions hang the type keyword off the clause
		if !typeOnly && hasKeywordChild(c, "type") {
			return jsImportClause{}, false
		}
		for j := 0; j < int(c.NamedChildCount()); j++ {
			part := c.NamedChild(j)
			if part == nil {
				continue
			}
			switch part.Type() {
			case "identifier":
				// default import binds the target's default export
				clause.kind = jsImportNamed
				clause.symbols = append(clause.symbols, "default")
			case "namespace_import":
				clause.kind = jsImportWildcard
			case "named_imports":
				for k := 0; k < int(part.NamedChildCount()); k++ {
					s := part.NamedChild(k)
					if s == nil || s.Type() != "import_specifier" {
						continue
					}
					if !typeOnly && hasKeywordChild(s, "type") {
						continue
					}
					if name := s.ChildByFieldName("name"); name != nil {
						clause.kind = jsImportNamed
						clause.symbols = append(clause.symbols, name.Content(src))
					}
				}
			}
		}
	}

	if clause.kind == jsImportNamed && len(clause.symbols) == 0 {
		// every specifier was type-only and excluded
		return jsImportClause{}, false
	}
	return clause, true
}

func reexportClause(n *sitter.Node, src []byte, spec string) jsImportClause {
	clause := jsImportClause{spec: spec, kind: jsImportWildcard}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c == nil || c.Type() != "export_clause" {
			continue
		}
		for j := 0; j < int(c.NamedChildCount()); j++ {
			s := c.NamedChild(j)
			if s == nil || s.Type() != "export_specifier" {
				continue
			}
			if name := s.ChildByFieldName("name"); name != nil {
				clause.kind = jsImportNamed
				clause.symbols = append(clause.symbols, name.Content(src))
			}
		}
	}
	return clause
}

func requireClause(n *sitter.Node, src []byte) (jsImportClause, bool) {
	fn := n.ChildByFieldName("function")
	if fn == nil {
		return jsImportClause{}, false
	}
	callee := fn.Content(src)
	if callee != "require" && fn.Type() != "import" {
		return jsImportClause{}, false
	}

	args := n.ChildByFieldName("arguments")
	if args == nil || args.NamedChildCount() == 0 {
		return jsImportClause{}, false
	}
	arg := args.NamedChild(0)
	if arg == nil || arg.Type() != "string" {
		return jsImportClause{}, false
	}
	return jsImportClause{spec: stringContent(arg, src), kind: jsImportWildcard}, true
}

// sourceLiteral returns the unquoted source of an import/export statement.
func sourceLiteral(n *sitter.Node, src []byte) string {
	s := n.ChildByFieldName("source")
	if s == nil {
		return ""
	}
	return stringContent(s, src)
}

func stringContent(n *sitter.Node, src []byte) string {
	return strings.Trim(n.Content(src), "'\"`")
}

// hasKeywordChild reports whether an anonymous child token equals kw.
func hasKeywordChild(n *sitter.Node, kw string) bool {
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if c != nil && !c.IsNamed() && c.Type() == kw {
			return true
		}
	}
	return false
}

// resolveJS maps an import specifier to an admitted file. Relative specs
// resolve against the importer's directory, alias specs through the tsconfig
// path table; anything else is third-party and dropped.
func resolveJS(importer, spec string, idx *jsIndex) string {
	var base string
	switch {
	case strings.HasPrefix(spec, "./") || strings.HasPrefix(spec, "../"):
		base = paths.Join(importer, spec)
	default:
		for _, alias := range idx.aliases {
			if spec == alias.prefix {
				base = alias.target
				break
			}
			if strings.HasPrefix(spec, alias.prefix+"/") {
				base = alias.target + "/" + strings.TrimPrefix(spec, alias.prefix+"/")
				break
			}
		}
	}
	if base == "" {
		return ""
	}
	base = paths.Normalize(base)

	if idx.files[base] {
		return base
	}
	for _, suffix := range jsExtensionFallbacks {
		if candidate := base + suffix; idx.files[candidate] {
			return candidate
		}
	}
	return ""
}

// tsconfigCompilerOptions is the slice of tsconfig.json the resolver needs.
type tsconfigCompilerOptions struct {
	CompilerOptions struct {
		BaseURL string              `json:"baseUrl"`
		Paths   map[string][]string `json:"paths"`
	} `json:"compilerOptions"`
}

// loadTsconfigAliases reads compilerOptions.paths from tsconfig.json (or
// jsconfig.json) at the workspace root. tsconfig allows comments, so they are
// stripped before decoding.
func loadTsconfigAliases(req *Request) []jsAlias {
	var aliases []jsAlias
	for _, name := range []string{"tsconfig.json", "jsconfig.json"} {
		data, err := req.Sources.Load(name)
		if err != nil {
			continue
		}

		var cfg tsconfigCompilerOptions
		if err := json.Unmarshal(stripJSONComments(data), &cfg); err != nil {
			req.Logger.Warn("Failed to parse project config", logging.Fields{"file": name, "error": err.Error()})
			continue
		}

		baseURL := paths.Normalize(cfg.CompilerOptions.BaseURL)
		if baseURL == "." {
			baseURL = ""
		}
		for pattern, targets := range cfg.CompilerOptions.Paths {
			if len(targets) == 0 {
				continue
			}
			prefix := strings.TrimSuffix(pattern, "/*")
			target := strings.TrimSuffix(targets[0], "/*")
			target = strings.TrimSuffix(target, "/")
			if baseURL != "" {
				target = baseURL + "/" + target
			}
			aliases = append(aliases, jsAlias{prefix: prefix, target: paths.Normalize(target)})
		}
		break
	}
	return aliases
}

// stripJSONComments blanks // and /* */ comments outside string literals.
func stripJSONComments(data []byte) []byte {
	out := make([]byte, len(data))
	copy(out, data)

	inString := false
	for i := 0; i < len(data); i++ {
		c := data[i]
		if inString {
			if c == '\\' {
				i++
			} else if c == '"' {
				inString = false
			}
			continue
		}
		switch {
		case c == '"':
			inString = true
		case c == '/' && i+1 < len(data) && data[i+1] == '/':
			for i < len(data) && data[i] != '\n' {
				out[i] = ' '
				i++
			}
		case c == '/' && i+1 < len(data) && data[i+1] == '*':
			for i < len(data) {
				if data[i] == '*' && i+1 < len(data) && data[i+1] == '/' {
					out[i], out[i+1] = ' ', ' '
					i++
					break
				}
				if data[i] != '\n' {
					out[i] = ' '
				}
				i++
			}
		}
	}
	return out
}

var (
	jsImportRe  = regexp.MustCompile(`import\s+.*?from\s+['"]([^'"]+)['"]`)
	jsRequireRe = regexp.MustCompile(`require\s*\(\s*['"]([^'"]+)['"]\s*\)`)
	jsExportRe  = regexp.MustCompile(`export\s+(?:default\s+)?(?:const|let|var|function|class)\s+(\w+)`)
)

// regexJSImports is the fallback for .vue files and unparseable sources.
func regexJSImports(src []byte) []jsImportClause {
	var clauses []jsImportClause
	for _, re := range []*regexp.Regexp{jsImportRe, jsRequireRe} {
		for _, m := range re.FindAllSubmatch(src, -1) {
			clauses = append(clauses, jsImportClause{spec: string(m[1]), kind: jsImportWildcard})
		}
	}
	return clauses
}

func regexJSExports(src []byte) []string {
	var symbols []string
	for _, m := range jsExportRe.FindAllSubmatch(src, -1) {
		symbols = append(symbols, string(m[1]))
	}
	if regexp.MustCompile(`export\s+default`).Match(src) {
		symbols = append(symbols, "default")
	}
	return symbols
}

// addEdge records a resolved edge, honouring the large-repo fast path where
// every edge is pinned to weight 1 regardless of how many clauses hit it.
func addEdge(e Edges, fast bool, from, to string, weight int) {
	if from == to {
		return
	}
	if fast {
		m, ok := e[from]
		if !ok {
			m = make(map[string]int)
			e[from] = m
		}
		m[to] = 1
		return
	}
	e.Add(from, to, weight)
}
