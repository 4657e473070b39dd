// Package config loads engine configuration from file, environment and defaults.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config represents the complete engine configuration
type Config struct {
	// IncludeTests admits test files into the analysis
	IncludeTests bool `json:"includeTests" mapstructure:"includeTests"`

	// IncludeTypeOnlyImports counts TypeScript type-only imports as edges
	IncludeTypeOnlyImports bool `json:"includeTypeOnlyImports" mapstructure:"includeTypeOnlyImports"`

	// LargeRepoThreshold is the admitted-file count above which symbol-usage
	// counting is skipped and every resolved edge gets weight 1
	LargeRepoThreshold int `json:"largeRepoThreshold" mapstructure:"largeRepoThreshold"`

	// MaxRepoSizeBytes caps the materialised repository size
	MaxRepoSizeBytes int64 `json:"maxRepoSizeBytes" mapstructure:"maxRepoSizeBytes"`

	// CloneDepth is the shallow clone depth
	CloneDepth int `json:"cloneDepth" mapstructure:"cloneDepth"`

	// Workers bounds the per-file worker pool; 0 means the host CPU count
	Workers int `json:"workers" mapstructure:"workers"`

	Cache   CacheConfig   `json:"cache" mapstructure:"cache"`
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`
}

// CacheConfig contains payload cache configuration
type CacheConfig struct {
	Enabled    bool   `json:"enabled" mapstructure:"enabled"`
	Dir        string `json:"dir" mapstructure:"dir"`
	TtlSeconds int    `json:"ttlSeconds" mapstructure:"ttlSeconds"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Format string `json:"format" mapstructure:"format"`
	Level  string `json:"level" mapstructure:"level"`
}

// Default returns the default configuration
func Default() *Config {
	cacheDir := ".macaroni"
	if home, err := os.UserHomeDir(); err == nil {
		cacheDir = filepath.Join(home, ".macaroni")
	}

	return &Config{
		IncludeTests:           true,
		IncludeTypeOnlyImports: true,
		LargeRepoThreshold:     100,
		MaxRepoSizeBytes:       200 * 1024 * 1024,
		CloneDepth:             1,
		Workers:                0,
		Cache: CacheConfig{
			Enabled:    true,
			Dir:        cacheDir,
			TtlSeconds: 24 * 3600,
		},
		Logging: LoggingConfig{
			Format: "human",
			Level:  "info",
		},
	}
}

// Load reads macaroni.yaml from the given directory (or the defaults when the
// file is absent) and applies MACARONI_* environment overrides.
func Load(dir string) (*Config, error) {
	v := viper.New()

	def := Default()
	v.SetDefault("includeTests", def.IncludeTests)
	v.SetDefault("includeTypeOnlyImports", def.IncludeTypeOnlyImports)
	v.SetDefault("largeRepoThreshold", def.LargeRepoThreshold)
	v.SetDefault("maxRepoSizeBytes", def.MaxRepoSizeBytes)
	v.SetDefault("cloneDepth", def.CloneDepth)
	v.SetDefault("workers", def.Workers)
	v.SetDefault("cache.enabled", def.Cache.Enabled)
	v.SetDefault("cache.dir", def.Cache.Dir)
	v.SetDefault("cache.ttlSeconds", def.Cache.TtlSeconds)
	v.SetDefault("logging.format", def.Logging.Format)
	v.SetDefault("logging.level", def.Logging.Level)

	v.SetConfigName("macaroni")
	v.SetConfigType("yaml")
	if dir == "" {
		dir = "."
	}
	v.AddConfigPath(dir)

	v.SetEnvPrefix("MACARONI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.LargeRepoThreshold < 0 {
		return &ConfigError{Field: "largeRepoThreshold", Message: "must be >= 0"}
	}
	if c.CloneDepth < 1 {
		return &ConfigError{Field: "cloneDepth", Message: "must be >= 1"}
	}
	if c.MaxRepoSizeBytes < 0 {
		return &ConfigError{Field: "maxRepoSizeBytes", Message: "must be >= 0"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
