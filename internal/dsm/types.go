// Package dsm assembles per-language analysis results into the final
// design-structure-matrix payload.
package dsm

import (
	"bytes"

	"github.com/christikaes/macaroni-arch/internal/hierarchy"
)

// Dependency is one outgoing edge of a file record. Dependencies carries the
// number of imported symbols from the target.
type Dependency struct {
	FileName     string `json:"file_name"`
	Dependencies int    `json:"dependencies"`
}

// FileRecord holds the per-file analysis results.
type FileRecord struct {
	Complexity   int          `json:"complexity"`
	LineCount    int          `json:"line_count"`
	Dependencies []Dependency `json:"dependencies"`
}

// Payload is the final delivered object.
type Payload struct {
	Files        map[string]*FileRecord  `json:"files"`
	DisplayItems []hierarchy.DisplayItem `json:"display_items"`
	FileList     []string                `json:"file_list"`
	Branch       string                  `json:"branch"`
}

// CountSignificantLines returns the number of lines whose trimmed form is
// non-empty.
func CountSignificantLines(source []byte) int {
	count := 0
	for _, line := range bytes.Split(source, []byte("\n")) {
		if len(bytes.TrimSpace(line)) > 0 {
			count++
		}
	}
	return count
}
