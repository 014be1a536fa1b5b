package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/calmcare/calm-agent/internal/app"
	"github.com/calmcare/calm-agent/internal/config"
	"github.com/calmcare/calm-agent/internal/ingest"
	"github.com/calmcare/calm-agent/internal/knowledge"
)

var (
	indexKB          string
	indexDepth       int
	indexParallelism int
	indexDomains     []string
	indexFiles       []string
)

var indexCmd = &cobra.Command{
	Use:   "index [url...]",
	Short: "Crawl pages or ingest files into a knowledge base",
	Long: `Index crawls the given seed URLs, extracts readable article text,
splits it into overlapping chunks, and stores the chunks with their
embeddings. Links are followed up to --depth within --domains (seed
hostnames by default).

With --file, local text or markdown files are chunked and stored
instead of (or in addition to) crawling.`,
	Args: cobra.ArbitraryArgs,
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().StringVar(&indexKB, "kb", string(knowledge.KBResearch), "target knowledge base (research_kb or peer_support_kb)")
	indexCmd.Flags().IntVar(&indexDepth, "depth", 2, "maximum crawl depth from each seed")
	indexCmd.Flags().IntVar(&indexParallelism, "parallelism", 4, "concurrent fetches")
	indexCmd.Flags().StringSliceVar(&indexDomains, "domains", nil, "allowed domains (defaults to seed hostnames)")
	indexCmd.Flags().StringSliceVar(&indexFiles, "file", nil, "local text or markdown file to ingest (repeatable)")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && len(indexFiles) == 0 {
		return fmt.Errorf("nothing to index: pass seed URLs or --file")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err = cfg.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	kb := knowledge.KB(indexKB)
	if !kb.Valid() {
		return fmt.Errorf("unknown knowledge base %q", indexKB)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := slog.Default()

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	for _, path := range indexFiles {
		n, err := ingest.IngestFile(ctx, a.Knowledge, kb, ingest.NewChunker(), path)
		if err != nil {
			return fmt.Errorf("ingesting %s: %w", path, err)
		}
		fmt.Printf("Indexed %d chunks from %s into %s\n", n, path, kb)
	}

	if len(args) == 0 {
		return nil
	}

	domains := indexDomains
	if len(domains) == 0 {
		domains, err = seedHostnames(args)
		if err != nil {
			return err
		}
	}

	opts := []ingest.CrawlerOption{
		ingest.WithMaxDepth(indexDepth),
		ingest.WithParallelism(indexParallelism),
		ingest.WithAllowedDomains(domains...),
	}

	crawler, err := ingest.NewCrawler(a.Knowledge, kb, logger, opts...)
	if err != nil {
		return fmt.Errorf("creating crawler: %w", err)
	}

	stats, err := crawler.Crawl(ctx, args)
	if err != nil {
		return fmt.Errorf("crawling: %w", err)
	}

	fmt.Printf("Indexed %d chunks from %d pages into %s (%d errors)\n",
		stats.Chunks, stats.Pages, kb, stats.Errors)

	return nil
}

// seedHostnames derives the default allowed-domain list from the seed
// URLs so the crawl stays on the sites it was pointed at.
func seedHostnames(seeds []string) ([]string, error) {
	seen := make(map[string]struct{}, len(seeds))
	var hosts []string
	for _, seed := range seeds {
		u, err := url.Parse(seed)
		if err != nil || u.Hostname() == "" {
			return nil, fmt.Errorf("invalid seed URL %q", seed)
		}
		if _, ok := seen[u.Hostname()]; ok {
			continue
		}
		seen[u.Hostname()] = struct{}{}
		hosts = append(hosts, u.Hostname())
	}
	return hosts, nil
}
