// Package complexity computes per-file cyclomatic complexity: 1 plus the
// number of decision points, counted after comments and string literals are
// stripped. JavaScript and TypeScript walk the AST; the other languages use
// keyword counting.
package complexity

import (
	"context"
	"path"
	"regexp"
	"strings"

	"github.com/christikaes/macaroni-arch/internal/filter"
	"github.com/christikaes/macaroni-arch/internal/scrub"
)

// decision patterns per C-family language tag.
var (
	parenKeyword = func(kw string) *regexp.Regexp {
		return regexp.MustCompile(`\b` + kw + `\s*\(`)
	}
	bareKeyword = func(kw string) *regexp.Regexp {
		return regexp.MustCompile(`\b` + kw + `\b`)
	}

	ternaryRe = regexp.MustCompile(`\?[^:?\n]*:`)
	andRe     = regexp.MustCompile(`&&`)
	orRe      = regexp.MustCompile(`\|\|`)

	cFamilyDecisions = []*regexp.Regexp{
		parenKeyword("if"),
		parenKeyword("for"),
		parenKeyword("while"),
		regexp.MustCompile(`\bdo\s*\{`),
		regexp.MustCompile(`\bcase\s`),
		parenKeyword("catch"),
		ternaryRe,
		andRe,
		orRe,
	}

	csharpDecisions = append([]*regexp.Regexp{parenKeyword("foreach")}, cFamilyDecisions...)

	goDecisions = []*regexp.Regexp{
		bareKeyword("if"),
		bareKeyword("for"),
		regexp.MustCompile(`\bcase\s`),
		bareKeyword("switch"),
		bareKeyword("select"),
		andRe,
		orRe,
	}

	pythonDecisions = []*regexp.Regexp{
		bareKeyword("if"),
		bareKeyword("elif"),
		bareKeyword("for"),
		bareKeyword("while"),
		bareKeyword("except"),
		bareKeyword("and"),
		bareKeyword("or"),
		bareKeyword("else"),
	}
)

// Calculator computes cyclomatic complexity per file.
type Calculator struct{}

// NewCalculator creates a complexity calculator.
func NewCalculator() *Calculator {
	return &Calculator{}
}

// Score returns the cyclomatic complexity of one file, or 0 when the file
// cannot be scored (unknown language, parse failure).
func (c *Calculator) Score(ctx context.Context, file string, src []byte) int {
	ext := strings.ToLower(path.Ext(file))
	tag, ok := filter.TagForExtension(ext)
	if !ok {
		return 0
	}

	switch tag {
	case filter.TagJS:
		if ext == ".vue" {
			return countDecisions(scrub.Strip(src, scrub.StyleC), cFamilyDecisions)
		}
		return scoreJS(ctx, file, src)
	case filter.TagPython:
		return countDecisions(scrub.Strip(src, scrub.StylePython), pythonDecisions)
	case filter.TagGo:
		return countDecisions(scrub.Strip(src, scrub.StyleC), goDecisions)
	case filter.TagCSharp:
		return countDecisions(scrub.Strip(src, scrub.StyleC), csharpDecisions)
	case filter.TagCpp, filter.TagJava:
		return countDecisions(scrub.Strip(src, scrub.StyleC), cFamilyDecisions)
	default:
		return 0
	}
}

// countDecisions returns 1 plus the number of decision-point matches.
func countDecisions(stripped []byte, patterns []*regexp.Regexp) int {
	score := 1
	for _, re := range patterns {
		score += len(re.FindAllIndex(stripped, -1))
	}
	return score
}
