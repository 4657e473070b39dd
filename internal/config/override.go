package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// RepoOverride is the optional .macaroni.toml an analysed repository may carry
// at its root to adjust how it is analysed.
type RepoOverride struct {
	// ExcludeDirs extends the built-in excluded-directory list
	ExcludeDirs []string `toml:"exclude_dirs"`

	// IncludeTests overrides the engine-level include-tests flag when set
	IncludeTests *bool `toml:"include_tests"`
}

// OverrideFileName is the name of the in-repo override file.
const OverrideFileName = ".macaroni.toml"

// LoadOverride reads .macaroni.toml from the workspace root. A missing file
// yields a nil override and no error.
func LoadOverride(root string) (*RepoOverride, error) {
	path := filepath.Join(root, OverrideFileName)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}

	var ov RepoOverride
	if _, err := toml.DecodeFile(path, &ov); err != nil {
		return nil, err
	}
	return &ov, nil
}

// Apply folds an override into the configuration. Nil overrides are ignored.
func (c *Config) Apply(ov *RepoOverride) []string {
	if ov == nil {
		return nil
	}
	if ov.IncludeTests != nil {
		c.IncludeTests = *ov.IncludeTests
	}
	return ov.ExcludeDirs
}
