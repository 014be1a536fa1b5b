package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/calmcare/calm-agent/internal/agent"
	"github.com/calmcare/calm-agent/internal/app"
	"github.com/calmcare/calm-agent/internal/config"
)

var (
	askThreshold  float64
	askMaxRetries int
	askDocNumber  int
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a single question and print the answer",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

func init() {
	askCmd.Flags().Float64Var(&askThreshold, "threshold", 0, "relevance acceptance threshold in [0,1] (0 = config default)")
	askCmd.Flags().IntVar(&askMaxRetries, "max-retries", 0, "retrieval attempt budget (0 = config default)")
	askCmd.Flags().IntVar(&askDocNumber, "doc-number", 0, "accepted document quota (0 = config default)")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err = cfg.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.Setup(ctx, cfg, slog.Default())
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			slog.Warn("shutdown error", "error", closeErr)
		}
	}()

	input := agent.Input{
		Question:   strings.Join(args, " "),
		Threshold:  cfg.Threshold,
		MaxRetries: cfg.MaxRetries,
		DocNumber:  cfg.DocNumber,
	}
	if askThreshold > 0 {
		input.Threshold = askThreshold
	}
	if askMaxRetries > 0 {
		input.MaxRetries = askMaxRetries
	}
	if askDocNumber > 0 {
		input.DocNumber = askDocNumber
	}

	gen, err := a.Engine.Run(ctx, input)
	if err != nil {
		return fmt.Errorf("answering question: %w", err)
	}

	fmt.Println(gen.Answer)

	if len(gen.Sources) > 0 {
		fmt.Println()
		fmt.Println("Sources:")
		for _, s := range gen.Sources {
			fmt.Printf("  [%d] %s (%s)\n", s.Index, s.Title, s.URL)
		}
	}
	if len(gen.FollowUpQuestions) > 0 {
		fmt.Println()
		fmt.Println("You might also ask:")
		for _, q := range gen.FollowUpQuestions {
			fmt.Printf("  - %s\n", q)
		}
	}

	return nil
}
