package ingest

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/calmcare/calm-agent/internal/knowledge"
)

// DocumentWriter receives the chunks the crawler produces. Satisfied
// by *knowledge.Store.
type DocumentWriter interface {
	Add(ctx context.Context, doc knowledge.Document) error
}

// Crawler walks source sites and feeds extracted article chunks into
// one knowledge base.
type Crawler struct {
	writer  DocumentWriter
	kb      knowledge.KB
	chunker Chunker
	logger  *slog.Logger

	maxDepth       int
	parallelism    int
	allowedDomains []string
	userAgent      string
}

// CrawlerOption configures a Crawler.
type CrawlerOption func(*Crawler)

// WithMaxDepth bounds link-following depth from each seed. Depth 1
// fetches only the seeds themselves.
func WithMaxDepth(depth int) CrawlerOption {
	return func(c *Crawler) {
		if depth > 0 {
			c.maxDepth = depth
		}
	}
}

// WithParallelism sets the number of concurrent fetches.
func WithParallelism(n int) CrawlerOption {
	return func(c *Crawler) {
		if n > 0 {
			c.parallelism = n
		}
	}
}

// WithAllowedDomains restricts the crawl to the given hosts. Without
// it the collector follows links to any domain, so callers should
// almost always set it.
func WithAllowedDomains(domains ...string) CrawlerOption {
	return func(c *Crawler) { c.allowedDomains = domains }
}

// WithChunker overrides the default splitting parameters.
func WithChunker(chunker Chunker) CrawlerOption {
	return func(c *Crawler) { c.chunker = chunker }
}

// WithUserAgent sets the crawl user agent.
func WithUserAgent(ua string) CrawlerOption {
	return func(c *Crawler) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// NewCrawler creates a crawler writing into kb.
// logger may be nil, in which case slog.Default() is used.
func NewCrawler(writer DocumentWriter, kb knowledge.KB, logger *slog.Logger, opts ...CrawlerOption) (*Crawler, error) {
	if !kb.Valid() {
		return nil, fmt.Errorf("unknown knowledge base %q", kb)
	}
	if logger == nil {
		logger = slog.Default()
	}
	c := &Crawler{
		writer:      writer,
		kb:          kb,
		chunker:     NewChunker(),
		logger:      logger,
		maxDepth:    2,
		parallelism: 4,
		userAgent:   "calm-agent/1.0 (+https://github.com/calmcare/calm-agent)",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Stats summarizes one crawl run.
type Stats struct {
	Pages  int
	Chunks int
	Errors int
}

// Crawl visits the seed URLs, follows in-domain links up to the
// configured depth, and stores every extracted chunk. Individual page
// failures are counted and logged, not fatal; ctx cancellation stops
// further chunk writes.
func (c *Crawler) Crawl(ctx context.Context, seeds []string) (Stats, error) {
	if len(seeds) == 0 {
		return Stats{}, fmt.Errorf("no seed URLs")
	}

	// Response callbacks run concurrently under Async.
	var mu sync.Mutex
	var stats Stats

	collectorOpts := []colly.CollectorOption{
		colly.MaxDepth(c.maxDepth),
		colly.Async(true),
		colly.UserAgent(c.userAgent),
	}
	if len(c.allowedDomains) > 0 {
		collectorOpts = append(collectorOpts, colly.AllowedDomains(c.allowedDomains...))
	}
	collector := colly.NewCollector(collectorOpts...)

	if err := collector.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: c.parallelism,
		RandomDelay: time.Second,
	}); err != nil {
		return Stats{}, fmt.Errorf("configure crawl limits: %w", err)
	}

	collector.OnHTML("a[href]", func(e *colly.HTMLElement) {
		// Visit errors here are expected noise: off-domain links,
		// already-visited pages, depth limit.
		_ = e.Request.Visit(e.Attr("href"))
	})

	collector.OnResponse(func(r *colly.Response) {
		if ctx.Err() != nil {
			return
		}
		if !strings.Contains(r.Headers.Get("Content-Type"), "text/html") {
			return
		}

		pageURL := r.Request.URL
		article, err := extractArticle(r.Body, pageURL)
		if err != nil {
			c.logger.Debug("skipping page without readable content", "url", pageURL.String())
			return
		}

		n, err := c.storeArticle(ctx, pageURL.String(), article)

		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			c.logger.Warn("failed to store page", "url", pageURL.String(), "error", err)
			stats.Errors++
			return
		}
		stats.Pages++
		stats.Chunks += n
	})

	collector.OnError(func(r *colly.Response, err error) {
		c.logger.Warn("fetch failed", "url", r.Request.URL.String(), "error", err)
		mu.Lock()
		stats.Errors++
		mu.Unlock()
	})

	for _, seed := range seeds {
		if err := collector.Visit(seed); err != nil {
			c.logger.Warn("cannot visit seed", "url", seed, "error", err)
			mu.Lock()
			stats.Errors++
			mu.Unlock()
		}
	}
	collector.Wait()

	if err := ctx.Err(); err != nil {
		return stats, err
	}

	c.logger.Info("crawl finished",
		"kb", c.kb, "pages", stats.Pages, "chunks", stats.Chunks, "errors", stats.Errors)
	return stats, nil
}

// storeArticle splits one article and writes each chunk. Chunk IDs are
// derived from the page URL so re-crawling a page overwrites its
// previous chunks instead of duplicating them.
func (c *Crawler) storeArticle(ctx context.Context, pageURL string, article Article) (int, error) {
	chunks := c.chunker.Split(article.Text)
	for i, chunk := range chunks {
		doc := knowledge.Document{
			ID:      chunkID(c.kb, pageURL, i),
			KB:      c.kb,
			Content: chunk,
			Metadata: map[string]string{
				"url":   pageURL,
				"title": article.Title,
			},
		}
		if err := c.writer.Add(ctx, doc); err != nil {
			return i, fmt.Errorf("storing chunk %d of %s: %w", i, pageURL, err)
		}
	}
	return len(chunks), nil
}

func chunkID(kb knowledge.KB, pageURL string, index int) string {
	sum := sha256.Sum256([]byte(pageURL))
	return fmt.Sprintf("%s:%x:%04d", kb, sum[:8], index)
}
