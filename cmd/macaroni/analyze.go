package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/christikaes/macaroni-arch/internal/config"
	"github.com/christikaes/macaroni-arch/internal/dsm"
	"github.com/christikaes/macaroni-arch/internal/engine"
	"github.com/christikaes/macaroni-arch/internal/logging"
	"github.com/christikaes/macaroni-arch/internal/progress"
	"github.com/christikaes/macaroni-arch/internal/storage"
)

var (
	analyzeFormat  string
	analyzeOutput  string
	analyzeNoCache bool
	analyzeQuiet   bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <repository-url>",
	Short: "Analyze a repository and emit its dependency matrix",
	Long: `Analyze clones the repository (or reads a local directory), resolves
intra-repository imports per language, computes per-file cyclomatic
complexity and line counts, and prints the matrix payload.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		url := args[0]

		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		payload, err := runAnalysis(ctx, url, cfg, logger)
		if err != nil {
			return err
		}
		return writePayload(payload, analyzeFormat, analyzeOutput)
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeFormat, "format", "json", "Output format: json or yaml")
	analyzeCmd.Flags().StringVarP(&analyzeOutput, "output", "o", "", "Write the payload to a file instead of stdout")
	analyzeCmd.Flags().BoolVar(&analyzeNoCache, "no-cache", false, "Skip the payload cache")
	analyzeCmd.Flags().BoolVarP(&analyzeQuiet, "quiet", "q", false, "Suppress progress output")
	rootCmd.AddCommand(analyzeCmd)
}

// runAnalysis drives the engine with a progress reader attached, consulting
// the payload cache unless disabled.
func runAnalysis(ctx context.Context, url string, cfg *config.Config, logger *logging.Logger) (*dsm.Payload, error) {
	var cache *storage.Cache
	key := storage.Key(url, cfg.IncludeTests, cfg.IncludeTypeOnlyImports, cfg.LargeRepoThreshold)

	if cfg.Cache.Enabled && !analyzeNoCache {
		opened, err := storage.Open(cfg.Cache.Dir, cfg.Cache.TtlSeconds, logger)
		if err != nil {
			logger.Warn("Payload cache unavailable", logging.Fields{"error": err.Error()})
		} else {
			cache = opened
			defer cache.Close()

			if cached, err := cache.Get(key); err == nil && cached != nil {
				logger.Info("Serving cached payload", logging.Fields{"url": url})
				return cached, nil
			}
		}
	}

	sink, frames := progress.New(0)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for f := range frames {
			if f.Kind == progress.KindProgress && !analyzeQuiet {
				fmt.Fprintln(os.Stderr, f.Message)
			}
		}
	}()

	payload, err := engine.New(cfg, logger).Analyze(ctx, url, sink)
	<-done
	if err != nil {
		return nil, err
	}

	if cache != nil {
		if err := cache.Put(key, url, payload); err != nil {
			logger.Warn("Failed to cache payload", logging.Fields{"error": err.Error()})
		}
	}
	return payload, nil
}

// writePayload renders the payload as JSON or YAML.
func writePayload(payload *dsm.Payload, format, output string) error {
	var data []byte
	var err error
	switch format {
	case "yaml":
		data, err = yaml.Marshal(payload)
	case "json":
		data, err = json.MarshalIndent(payload, "", "  ")
	default:
		return fmt.Errorf("unknown format %q (want json or yaml)", format)
	}
	if err != nil {
		return err
	}

	if output == "" {
		_, err = os.Stdout.Write(append(data, '\n'))
		return err
	}
	return os.WriteFile(output, data, 0644)
}
