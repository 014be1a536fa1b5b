// Package cmd implements the calm CLI.
//
// Subcommands are registered in their own files via init(); main.go
// only calls Execute.
package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/calmcare/calm-agent/internal/log"
)

var rootCmd = &cobra.Command{
	Use:   "calm",
	Short: "Calm - retrieval-augmented caregiving assistant",
	Long: `Calm answers dementia caregiving questions from curated knowledge
bases. It routes each question, retrieves and grades supporting
documents, and expands the search query until enough relevant material
is found to synthesize a cited answer.

Run "calm serve" to expose the agent over HTTP, "calm ask" for a
one-shot question, or "calm index" to ingest documents.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	logger := initLogger()
	slog.SetDefault(logger)
	return rootCmd.Execute()
}

// initLogger builds the process logger. DEBUG in the environment
// lowers the level; CALM_LOG_JSON switches to JSON output for
// log collectors.
func initLogger() *slog.Logger {
	cfg := log.Config{Level: slog.LevelInfo}
	if os.Getenv("DEBUG") != "" {
		cfg.Level = slog.LevelDebug
	}
	if os.Getenv("CALM_LOG_JSON") != "" {
		cfg.JSON = true
	}
	return log.New(cfg)
}
