package main

import (
	"github.com/spf13/cobra"

	"github.com/christikaes/macaroni-arch/internal/config"
	"github.com/christikaes/macaroni-arch/internal/logging"
	"github.com/christikaes/macaroni-arch/internal/version"
)

var (
	// cfgDir is the directory searched for macaroni.yaml
	cfgDir string
)

var rootCmd = &cobra.Command{
	Use:   "macaroni",
	Short: "macaroni - dependency structure matrix builder",
	Long: `macaroni ingests a source-code repository and produces a design
structure matrix: per-file dependencies weighted by imported symbols,
cyclomatic complexity, significant line counts, and a hierarchical view
grouping files by directory.`,
	Version: version.Version,
}

func init() {
	rootCmd.SetVersionTemplate("macaroni version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&cfgDir, "config-dir", ".",
		"Directory containing macaroni.yaml")
}

// loadConfig reads the configuration and builds the logger it prescribes.
func loadConfig() (*config.Config, *logging.Logger, error) {
	cfg, err := config.Load(cfgDir)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	logger := logging.New(logging.Config{
		Format: logging.Format(cfg.Logging.Format),
		Level:  logging.Level(cfg.Logging.Level),
	})
	return cfg, logger, nil
}
