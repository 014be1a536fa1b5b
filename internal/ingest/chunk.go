// Package ingest populates the knowledge bases: it crawls source
// sites, extracts readable article text, splits it into overlapping
// chunks, and writes each chunk through the knowledge store.
package ingest

import "strings"

// Default splitting parameters. Sized for embedding inputs, not for
// display.
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// separators tried in order when a piece is still too large. The empty
// separator splits on raw characters as a last resort.
var separators = []string{"\n\n", "\n", " ", ""}

// Chunker splits text recursively: paragraphs first, then lines, then
// words, merging adjacent pieces back together up to Size characters
// with Overlap characters carried between consecutive chunks.
type Chunker struct {
	Size    int
	Overlap int
}

// NewChunker returns a Chunker with the default parameters.
func NewChunker() Chunker {
	return Chunker{Size: DefaultChunkSize, Overlap: DefaultChunkOverlap}
}

// Split divides text into chunks of at most c.Size characters.
// Whitespace-only input yields no chunks.
func (c Chunker) Split(text string) []string {
	size := c.Size
	if size <= 0 {
		size = DefaultChunkSize
	}
	overlap := c.Overlap
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	pieces := split(text, size, separators)
	return merge(pieces, size, overlap)
}

// split recursively breaks text until every piece fits within size.
func split(text string, size int, seps []string) []string {
	if len(text) <= size {
		if strings.TrimSpace(text) == "" {
			return nil
		}
		return []string{text}
	}

	sep := seps[0]
	if sep == "" {
		// Character-level fallback for pathological unbroken runs.
		var out []string
		for len(text) > size {
			out = append(out, text[:size])
			text = text[size:]
		}
		if strings.TrimSpace(text) != "" {
			out = append(out, text)
		}
		return out
	}

	var out []string
	for _, part := range strings.Split(text, sep) {
		if len(part) <= size {
			if strings.TrimSpace(part) != "" {
				out = append(out, part)
			}
			continue
		}
		out = append(out, split(part, size, seps[1:])...)
	}
	return out
}

// merge greedily packs pieces into chunks up to size, seeding each new
// chunk with the tail of the previous one for continuity.
func merge(pieces []string, size, overlap int) []string {
	var chunks []string
	var current strings.Builder

	flush := func() {
		chunk := strings.TrimSpace(current.String())
		current.Reset()
		if chunk == "" {
			return
		}
		chunks = append(chunks, chunk)
		if overlap > 0 && len(chunk) > overlap {
			current.WriteString(chunk[len(chunk)-overlap:])
			current.WriteByte(' ')
		}
	}

	for _, piece := range pieces {
		if current.Len() > 0 && current.Len()+len(piece)+1 > size {
			flush()
		}
		if current.Len() > 0 {
			current.WriteByte(' ')
		}
		current.WriteString(piece)
	}
	if strings.TrimSpace(current.String()) != "" {
		chunk := strings.TrimSpace(current.String())
		// Drop a trailing chunk that is pure overlap of the previous one.
		if len(chunks) == 0 || !strings.HasSuffix(chunks[len(chunks)-1], chunk) {
			chunks = append(chunks, chunk)
		}
	}
	return chunks
}
