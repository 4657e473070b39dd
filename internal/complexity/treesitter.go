package complexity

import (
	"context"
	"path"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// jsFunctionTypes are the node types that open a new function scope; each
// scores a base complexity of 1.
var jsFunctionTypes = map[string]bool{
	"function_declaration":           true,
	"function_expression":            true,
	"function":                       true,
	"arrow_function":                 true,
	"method_definition":              true,
	"generator_function_declaration": true,
	"generator_function":             true,
}

// jsDecisionTypes increment a function's score by one per occurrence.
var jsDecisionTypes = map[string]bool{
	"if_statement":       true,
	"ternary_expression": true,
	"for_statement":      true,
	"for_in_statement":   true,
	"while_statement":    true,
	"do_statement":       true,
	"catch_clause":       true,
}

// scoreJS walks the AST: every function starts at 1 and gains a point per
// decision node; the file score is the sum over functions, minimum 1.
// Parse failures yield 0.
func scoreJS(ctx context.Context, file string, src []byte) int {
	var lang *sitter.Language
	switch strings.ToLower(path.Ext(file)) {
	case ".ts":
		lang = typescript.GetLanguage()
	case ".tsx":
		lang = tsx.GetLanguage()
	default:
		lang = javascript.GetLanguage()
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(lang)

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil || tree == nil {
		return 0
	}
	root := tree.RootNode()

	total := 0
	var functions []*sitter.Node
	collectNodes(root, jsFunctionTypes, &functions)
	for _, fn := range functions {
		total += 1 + countJSDecisions(fn, src)
	}

	if total < 1 {
		// scripts without function scopes still score their top level
		total = 1 + countJSDecisions(root, src)
	}
	return total
}

// countJSDecisions counts decision nodes in the subtree rooted at node.
func countJSDecisions(node *sitter.Node, src []byte) int {
	count := 0

	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n == nil {
			return
		}

		switch {
		case jsDecisionTypes[n.Type()]:
			count++
		case n.Type() == "switch_case":
			// only cases with a test: switch_default is a separate type,
			// but guard against grammars folding them together
			if n.ChildByFieldName("value") != nil {
				count++
			}
		case n.Type() == "binary_expression":
			if op := n.ChildByFieldName("operator"); op != nil {
				content := op.Content(src)
				if content == "&&" || content == "||" {
					count++
				}
			}
		}

		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(node)
	return count
}

// collectNodes gathers all named nodes whose type is in the given set.
// Anonymous tokens such as the `function` keyword are skipped.
func collectNodes(root *sitter.Node, types map[string]bool, out *[]*sitter.Node) {
	if root == nil {
		return
	}
	if root.IsNamed() && types[root.Type()] {
		*out = append(*out, root)
	}
	for i := 0; i < int(root.ChildCount()); i++ {
		collectNodes(root.Child(i), types, out)
	}
}
