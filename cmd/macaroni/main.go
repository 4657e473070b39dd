package main

import (
	"os"

	"github.com/christikaes/macaroni-arch/internal/logging"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		logger := logging.New(logging.Config{Format: logging.HumanFormat, Level: logging.ErrorLevel})
		logger.Error("Command failed", logging.Fields{"error": err.Error()})
		os.Exit(1)
	}
}
