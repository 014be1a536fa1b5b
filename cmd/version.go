package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/calmcare/calm-agent/internal/config"
)

// Version information (injected at build time via ldflags).
var (
	AppVersion = "development"
	BuildTime  = "unknown"
	GitCommit  = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version and configuration information",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runVersion()
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

func runVersion() error {
	fmt.Printf("Calm %s\n", AppVersion)
	fmt.Printf("Build Time: %s\n", BuildTime)
	fmt.Printf("Git Commit: %s\n", GitCommit)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Printf("  Provider: %s\n", cfg.Provider)
	fmt.Printf("  Model: %s\n", cfg.ModelName)
	fmt.Printf("  Intermediate model: %s\n", cfg.IntermediateModel)
	fmt.Printf("  Embedder: %s\n", cfg.EmbedderModel)
	fmt.Printf("  Threshold: %.2f\n", cfg.Threshold)
	fmt.Printf("  Max retries: %d\n", cfg.MaxRetries)
	fmt.Printf("  Document quota: %d\n", cfg.DocNumber)

	if cfg.Provider == config.ProviderGemini {
		key := os.Getenv("GEMINI_API_KEY")
		if key == "" {
			fmt.Println("  GEMINI_API_KEY: not set")
			fmt.Println()
			fmt.Println("Hint: export GEMINI_API_KEY=your-api-key")
		} else if len(key) > 8 {
			fmt.Printf("  GEMINI_API_KEY: %s...%s (configured)\n", key[:4], key[len(key)-4:])
		} else {
			fmt.Println("  GEMINI_API_KEY: configured")
		}
	}

	return nil
}
