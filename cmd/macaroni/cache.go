package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/christikaes/macaroni-arch/internal/storage"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and manage the payload cache",
}

var cacheLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List cached payloads",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}

		cache, err := storage.Open(cfg.Cache.Dir, cfg.Cache.TtlSeconds, logger)
		if err != nil {
			return err
		}
		defer cache.Close()

		entries, err := cache.List()
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "KEY\tURL\tBRANCH\tCREATED")
		for _, e := range entries {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.Key, e.URL, e.Branch, e.CreatedAt.Format(time.RFC3339))
		}
		return w.Flush()
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all cached payloads",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}

		cache, err := storage.Open(cfg.Cache.Dir, cfg.Cache.TtlSeconds, logger)
		if err != nil {
			return err
		}
		defer cache.Close()

		return cache.Clear()
	},
}

func init() {
	cacheCmd.AddCommand(cacheLsCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}
