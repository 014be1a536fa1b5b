package knowledge

import "time"

// VectorDimension is the embedding size the documents schema stores.
// Embedding providers with a larger native dimensionality must be
// configured to truncate their output to this size.
const VectorDimension int32 = 768

// KB identifies one of the two curated document collections.
type KB string

const (
	// KBResearch holds clinical and research literature: PubMed / PubMed
	// Central articles plus practical guidelines from NIH and the Family
	// Caregiver Alliance.
	KBResearch KB = "research_kb"

	// KBPeerSupport holds peer-support forum content: caregiver stories
	// and experience sharing from AgingCare and ALZConnected.
	KBPeerSupport KB = "peer_support_kb"
)

// Valid reports whether kb names a known collection.
func (kb KB) Valid() bool {
	return kb == KBResearch || kb == KBPeerSupport
}

// Document is one retrievable content unit from a knowledge base.
type Document struct {
	ID        string            // Unique identifier
	KB        KB                // Owning collection
	Content   string            // Chunk text
	Metadata  map[string]string // url, title, source, ...
	CreatedAt time.Time
}

// URL returns the document's source URL, or "" if absent.
func (d Document) URL() string {
	return d.Metadata["url"]
}

// Title returns the document's title, or "" if absent.
func (d Document) Title() string {
	return d.Metadata["title"]
}

// Result is a single search hit with its similarity score.
type Result struct {
	Document   Document
	Similarity float32 // Cosine similarity in [0,1]
}

// SearchOption configures search behavior using the functional options
// pattern.
type SearchOption func(*searchConfig)

type searchConfig struct {
	topK    int
	kb      KB
	timeout time.Duration
}

// WithTopK sets the maximum number of results to return. Default 5.
func WithTopK(k int) SearchOption {
	return func(c *searchConfig) {
		c.topK = k
	}
}

// WithKB restricts the search to a single collection.
func WithKB(kb KB) SearchOption {
	return func(c *searchConfig) {
		c.kb = kb
	}
}

// WithTimeout overrides the per-search timeout. Default 10s.
func WithTimeout(d time.Duration) SearchOption {
	return func(c *searchConfig) {
		c.timeout = d
	}
}

func buildSearchConfig(opts []SearchOption) *searchConfig {
	cfg := &searchConfig{
		topK:    5,
		timeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}
