// Package paths normalizes file paths to repo-relative canonical form.
package paths

import (
	"path"
	"path/filepath"
	"strings"
)

// Canonical converts an absolute path to a repo-relative canonical path:
// relative to the workspace root, forward slashes, no leading "./".
func Canonical(absolutePath string, root string) (string, error) {
	rel, err := filepath.Rel(root, absolutePath)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

// Normalize converts a path that is already repo-relative to canonical form.
func Normalize(p string) string {
	p = filepath.ToSlash(p)
	p = strings.TrimPrefix(p, "./")
	return path.Clean(p)
}

// IsWithin reports whether a canonical path stays inside the workspace root.
func IsWithin(canonical string) bool {
	return canonical != ".." && !strings.HasPrefix(canonical, "../")
}

// Join resolves a relative reference against the directory of a canonical
// importer path. The result is canonical, or "" when it escapes the root.
func Join(importer string, ref string) string {
	resolved := path.Clean(path.Join(path.Dir(importer), ref))
	if !IsWithin(resolved) {
		return ""
	}
	return resolved
}

// Segments splits a canonical path into its directory components plus basename.
func Segments(p string) []string {
	return strings.Split(Normalize(p), "/")
}
