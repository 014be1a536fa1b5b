package ingest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/calmcare/calm-agent/internal/knowledge"
	"github.com/calmcare/calm-agent/internal/log"
)

type memoryWriter struct {
	mu   sync.Mutex
	docs []knowledge.Document
	err  error
}

func (w *memoryWriter) Add(_ context.Context, doc knowledge.Document) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.docs = append(w.docs, doc)
	return nil
}

func (w *memoryWriter) snapshot() []knowledge.Document {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]knowledge.Document(nil), w.docs...)
}

func TestCrawlStoresChunks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(articleHTML))
	}))
	defer server.Close()

	serverURL, err := url.Parse(server.URL)
	if err != nil {
		t.Fatal(err)
	}

	writer := &memoryWriter{}
	crawler, err := NewCrawler(writer, knowledge.KBResearch, log.NewNop(),
		WithMaxDepth(1),
		WithParallelism(1),
		WithAllowedDomains(serverURL.Hostname()))
	if err != nil {
		t.Fatalf("NewCrawler() error: %v", err)
	}

	stats, err := crawler.Crawl(context.Background(), []string{server.URL})
	if err != nil {
		t.Fatalf("Crawl() error: %v", err)
	}
	if stats.Pages != 1 {
		t.Errorf("Pages = %d, want 1", stats.Pages)
	}

	docs := writer.snapshot()
	if len(docs) == 0 {
		t.Fatal("no chunks stored")
	}
	for _, doc := range docs {
		if doc.KB != knowledge.KBResearch {
			t.Errorf("doc %s stored in %q", doc.ID, doc.KB)
		}
		if doc.Metadata["url"] != server.URL+"/" && doc.Metadata["url"] != server.URL {
			t.Errorf("doc url metadata = %q", doc.Metadata["url"])
		}
		if !strings.Contains(doc.Metadata["title"], "Sundowning") {
			t.Errorf("doc title metadata = %q", doc.Metadata["title"])
		}
	}
}

func TestCrawlRejectsUnknownKB(t *testing.T) {
	if _, err := NewCrawler(&memoryWriter{}, knowledge.KB("nope"), log.NewNop()); err == nil {
		t.Fatal("expected error for unknown knowledge base")
	}
}

func TestCrawlRequiresSeeds(t *testing.T) {
	crawler, err := NewCrawler(&memoryWriter{}, knowledge.KBResearch, log.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := crawler.Crawl(context.Background(), nil); err == nil {
		t.Fatal("expected error for empty seed list")
	}
}

func TestChunkIDStableAcrossRecrawl(t *testing.T) {
	a := chunkID(knowledge.KBResearch, "https://example.org/page", 0)
	b := chunkID(knowledge.KBResearch, "https://example.org/page", 0)
	if a != b {
		t.Errorf("chunkID not stable: %q vs %q", a, b)
	}
	if a == chunkID(knowledge.KBResearch, "https://example.org/page", 1) {
		t.Error("chunk index must differentiate IDs")
	}
}
