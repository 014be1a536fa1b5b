package ingest

import (
	"strings"
	"testing"
)

func TestChunkerSplitShortText(t *testing.T) {
	chunks := NewChunker().Split("a short paragraph")
	if len(chunks) != 1 || chunks[0] != "a short paragraph" {
		t.Fatalf("Split() = %v, want single unchanged chunk", chunks)
	}
}

func TestChunkerSplitEmpty(t *testing.T) {
	for _, text := range []string{"", "   ", "\n\n\n"} {
		if chunks := NewChunker().Split(text); len(chunks) != 0 {
			t.Errorf("Split(%q) = %v, want none", text, chunks)
		}
	}
}

func TestChunkerSplitRespectsSize(t *testing.T) {
	paragraphs := make([]string, 20)
	for i := range paragraphs {
		paragraphs[i] = strings.Repeat("caregiver support word ", 10)
	}
	text := strings.Join(paragraphs, "\n\n")

	c := Chunker{Size: 300, Overlap: 50}
	chunks := c.Split(text)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, chunk := range chunks {
		if len(chunk) > 300 {
			t.Errorf("chunk %d has %d chars, exceeds size 300", i, len(chunk))
		}
		if strings.TrimSpace(chunk) == "" {
			t.Errorf("chunk %d is blank", i)
		}
	}
}

func TestChunkerSplitOverlapCarriesContext(t *testing.T) {
	text := strings.Repeat("alpha beta gamma delta ", 40)

	c := Chunker{Size: 200, Overlap: 40}
	chunks := c.Split(text)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	// The start of each later chunk repeats the tail of its predecessor.
	for i := 1; i < len(chunks); i++ {
		tail := chunks[i-1][len(chunks[i-1])-20:]
		if !strings.Contains(chunks[i], strings.TrimSpace(tail)) {
			t.Errorf("chunk %d does not carry overlap from chunk %d", i, i-1)
		}
	}
}

func TestChunkerSplitUnbrokenRun(t *testing.T) {
	text := strings.Repeat("x", 2500)
	c := Chunker{Size: 1000, Overlap: 0}
	chunks := c.Split(text)
	if len(chunks) < 3 {
		t.Fatalf("expected at least 3 chunks for 2500 unbroken chars, got %d", len(chunks))
	}
	for i, chunk := range chunks {
		if len(chunk) > 1000 {
			t.Errorf("chunk %d has %d chars", i, len(chunk))
		}
	}
}
