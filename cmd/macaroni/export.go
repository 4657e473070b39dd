package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/christikaes/macaroni-arch/internal/version"
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export <repository-url>",
	Short: "Analyze a repository and write its dependency graph as a SCIP index",
	Long: `Export runs the same analysis as analyze and serialises the resulting
file-level dependency graph as a SCIP index, one document per file with
reference relationships for its dependencies.`,
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
		return payload.WriteSCIP(exportOut, url, version.Version)
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "index.scip", "Output path for the SCIP index")
	rootCmd.AddCommand(exportCmd)
}
