// Package filter partitions the raw tracked-file list into per-language
// buckets, applying the extension allow-list and directory deny-list.
package filter

import (
	"path"
	"regexp"
	"sort"
	"strings"

	"github.com/christikaes/macaroni-arch/internal/logging"
)

// Language tags used across the pipeline.
const (
	TagJS     = "js"
	TagPython = "python"
	TagCpp    = "cpp"
	TagJava   = "java"
	TagCSharp = "csharp"
	TagGo     = "go"
	TagOther  = "other"
)

// extensionTags maps a lowercase extension to its language tag.
var extensionTags = map[string]string{
	".ts": TagJS, ".tsx": TagJS, ".js": TagJS, ".jsx": TagJS,
	".mjs": TagJS, ".cjs": TagJS, ".vue": TagJS,

	".py": TagPython,

	".cpp": TagCpp, ".cc": TagCpp, ".cxx": TagCpp, ".c": TagCpp,
	".h": TagCpp, ".hpp": TagCpp, ".hxx": TagCpp, ".hh": TagCpp,

	".java": TagJava,

	".cs": TagCSharp,

	".go": TagGo,

	".rs": TagOther, ".rb": TagOther, ".php": TagOther,
	".swift": TagOther, ".kt": TagOther, ".scala": TagOther,
}

// excludedDirs are path segments that disqualify a file wherever they appear.
var excludedDirs = map[string]bool{
	"node_modules":       true,
	"bower_components":   true,
	"vendor":             true,
	"dist":               true,
	"build":              true,
	".git":               true,
	"coverage":           true,
	"__pycache__":        true,
	".venv":              true,
	"venv":               true,
}

// excludedFilePatterns drop generated bundles that would drown the matrix.
var excludedFilePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\.min\.js$`),
	regexp.MustCompile(`\.bundle\.js$`),
}

// testFilePatterns identify per-language test files, skipped when the
// include-tests option is off.
var testFilePatterns = []*regexp.Regexp{
	regexp.MustCompile(`_test\.go$`),
	regexp.MustCompile(`\.(test|spec)\.[jt]sx?$`),
	regexp.MustCompile(`(^|/)test_[^/]*\.py$`),
	regexp.MustCompile(`_test\.py$`),
	regexp.MustCompile(`Tests?\.java$`),
	regexp.MustCompile(`Tests?\.cs$`),
}

// Options controls filtering behavior.
type Options struct {
	// IncludeTests admits test files
	IncludeTests bool

	// ExtraExcludedDirs extends the built-in directory deny-list
	ExtraExcludedDirs []string
}

// Filter applies the allow/deny policy to a raw file list.
type Filter struct {
	opts   Options
	logger *logging.Logger
}

// New creates a filter with the given options.
func New(opts Options, logger *logging.Logger) *Filter {
	return &Filter{opts: opts, logger: logger}
}

// Partition returns the admitted files grouped by language tag. Buckets are
// sorted so downstream passes iterate deterministically.
func (f *Filter) Partition(files []string) map[string][]string {
	extra := make(map[string]bool, len(f.opts.ExtraExcludedDirs))
	for _, d := range f.opts.ExtraExcludedDirs {
		extra[d] = true
	}

	buckets := make(map[string][]string)
	skipped := 0

	for _, file := range files {
		tag, ok := f.admit(file, extra)
		if !ok {
			skipped++
			continue
		}
		buckets[tag] = append(buckets[tag], file)
	}

	for tag := range buckets {
		sort.Strings(buckets[tag])
	}

	f.logger.Debug("Files partitioned", logging.Fields{
		"admitted": len(files) - skipped,
		"skipped":  skipped,
		"buckets":  len(buckets),
	})
	return buckets
}

func (f *Filter) admit(file string, extra map[string]bool) (string, bool) {
	ext := strings.ToLower(path.Ext(file))
	tag, ok := extensionTags[ext]
	if !ok {
		return "", false
	}

	for _, segment := range strings.Split(file, "/") {
		if excludedDirs[segment] || extra[segment] {
			return "", false
		}
	}

	for _, re := range excludedFilePatterns {
		if re.MatchString(file) {
			return "", false
		}
	}

	if !f.opts.IncludeTests {
		for _, re := range testFilePatterns {
			if re.MatchString(file) {
				return "", false
			}
		}
	}

	return tag, true
}

// TagForExtension exposes the allow-list: it returns the language tag for an
// extension. The complexity calculator uses it to pick a scoring rule.
func TagForExtension(ext string) (string, bool) {
	tag, ok := extensionTags[strings.ToLower(ext)]
	return tag, ok
}
