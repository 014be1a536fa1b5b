package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/calmcare/calm-agent/internal/knowledge"
)

// maxIngestFileBytes bounds a single ingested file.
const maxIngestFileBytes = 8 << 20

// IngestFile reads a local text or markdown file, splits it with the
// given chunker, and stores every chunk into kb. Returns the number of
// chunks written. The document title is the first markdown heading, or
// the file name when there is none.
func IngestFile(ctx context.Context, writer DocumentWriter, kb knowledge.KB, chunker Chunker, path string) (int, error) {
	if !kb.Valid() {
		return 0, fmt.Errorf("unknown knowledge base %q", kb)
	}

	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("reading %s: %w", path, err)
	}
	if info.Size() > maxIngestFileBytes {
		return 0, fmt.Errorf("%s is too large (%d bytes)", path, info.Size())
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("reading %s: %w", path, err)
	}
	text := normalizeWhitespace(string(raw))
	if text == "" {
		return 0, fmt.Errorf("%s has no text content", path)
	}

	title := fileTitle(string(raw), path)
	source := "file://" + filepath.ToSlash(path)

	chunks := chunker.Split(text)
	for i, chunk := range chunks {
		doc := knowledge.Document{
			ID:      chunkID(kb, source, i),
			KB:      kb,
			Content: chunk,
			Metadata: map[string]string{
				"source": source,
				"title":  title,
			},
		}
		if err := writer.Add(ctx, doc); err != nil {
			return i, fmt.Errorf("storing chunk %d of %s: %w", i, path, err)
		}
	}
	return len(chunks), nil
}

// fileTitle returns the first markdown heading, falling back to the
// file name without extension.
func fileTitle(raw, path string) string {
	for _, line := range strings.Split(raw, "\n") {
		trimmed := strings.TrimSpace(line)
		if rest, ok := strings.CutPrefix(trimmed, "#"); ok {
			title := strings.TrimSpace(strings.TrimLeft(rest, "#"))
			if title != "" {
				return title
			}
		}
	}
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
