package ingest

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/calmcare/calm-agent/internal/knowledge"
)

func TestIngestFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sundowning.md")
	content := "# Managing sundowning\n\nKeep evenings calm and well lit.\n\nA predictable routine reduces agitation.\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	writer := &memoryWriter{}
	n, err := IngestFile(context.Background(), writer, knowledge.KBResearch, NewChunker(), path)
	if err != nil {
		t.Fatalf("IngestFile: %v", err)
	}
	docs := writer.snapshot()
	if n != len(docs) {
		t.Fatalf("returned %d chunks, stored %d", n, len(docs))
	}
	if len(docs) == 0 {
		t.Fatal("no chunks stored")
	}
	for _, doc := range docs {
		if doc.KB != knowledge.KBResearch {
			t.Errorf("doc %s stored in %s", doc.ID, doc.KB)
		}
		if doc.Metadata["title"] != "Managing sundowning" {
			t.Errorf("title = %q, want heading", doc.Metadata["title"])
		}
		if !strings.HasPrefix(doc.Metadata["source"], "file://") {
			t.Errorf("source = %q, want file:// prefix", doc.Metadata["source"])
		}
	}
}

func TestIngestFileTitleFallback(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "respite-options.txt")
	if err := os.WriteFile(path, []byte("Respite care gives caregivers a break.\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	writer := &memoryWriter{}
	if _, err := IngestFile(context.Background(), writer, knowledge.KBPeerSupport, NewChunker(), path); err != nil {
		t.Fatalf("IngestFile: %v", err)
	}
	docs := writer.snapshot()
	if len(docs) != 1 {
		t.Fatalf("stored %d chunks, want 1", len(docs))
	}
	if docs[0].Metadata["title"] != "respite-options" {
		t.Errorf("title = %q, want file name fallback", docs[0].Metadata["title"])
	}
}

func TestIngestFileErrors(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.txt")
	if err := os.WriteFile(empty, []byte("  \n\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		kb   knowledge.KB
		path string
	}{
		{"missing file", knowledge.KBResearch, filepath.Join(dir, "absent.md")},
		{"empty file", knowledge.KBResearch, empty},
		{"unknown kb", knowledge.KB("nope"), empty},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := IngestFile(context.Background(), &memoryWriter{}, tt.kb, NewChunker(), tt.path); err == nil {
				t.Error("expected error")
			}
		})
	}
}
