package knowledge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/pgvector/pgvector-go"
)

// Querier defines the database operations Store depends on.
// Interfaces are defined by the consumer, not the provider (io.Reader,
// http.RoundTripper); *Queries is the production implementation.
type Querier interface {
	UpsertDocument(ctx context.Context, arg UpsertDocumentParams) error
	SearchDocuments(ctx context.Context, arg SearchDocumentsParams) ([]SearchDocumentsRow, error)
	CountDocuments(ctx context.Context, kb KB) (int64, error)
	DeleteDocument(ctx context.Context, id string) error
}

// Store manages the two ADRD knowledge bases with vector search over
// PostgreSQL + pgvector. Documents are embedded on write; queries are
// embedded on read.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	queries     Querier
	embedder    ai.Embedder
	embedConfig any
	logger      *slog.Logger
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithEmbedConfig sets the provider-specific options passed on every
// embedding request. The schema stores fixed-size vectors, so providers
// whose models emit a different native dimensionality must be
// configured to truncate to VectorDimension here.
func WithEmbedConfig(cfg any) StoreOption {
	return func(s *Store) { s.embedConfig = cfg }
}

// New creates a Store.
// logger may be nil, in which case slog.Default() is used.
func New(querier Querier, embedder ai.Embedder, logger *slog.Logger, opts ...StoreOption) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		queries:  querier,
		embedder: embedder,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add embeds and stores a document into its KB.
// Uses UPSERT so re-ingesting the same ID replaces the previous chunk.
func (s *Store) Add(ctx context.Context, doc Document) error {
	if !doc.KB.Valid() {
		return fmt.Errorf("unknown knowledge base %q for document %q", doc.KB, doc.ID)
	}

	embedding, err := s.embed(ctx, doc.Content)
	if err != nil {
		return fmt.Errorf("embedding document %q: %w", doc.ID, err)
	}

	metadataJSON, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("marshaling metadata for %q: %w", doc.ID, err)
	}

	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
	}

	err = s.queries.UpsertDocument(ctx, UpsertDocumentParams{
		ID:        doc.ID,
		KB:        doc.KB,
		Content:   doc.Content,
		Embedding: embedding,
		Metadata:  metadataJSON,
		CreatedAt: doc.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("upserting document %q: %w", doc.ID, err)
	}

	s.logger.Debug("added document", "id", doc.ID, "kb", doc.KB, "content_length", len(doc.Content))
	return nil
}

// Search performs semantic search using functional options.
// Results are ordered by descending similarity. Near-identical chunks are
// NOT deduplicated here; that is the caller's responsibility.
//
//	results, err := store.Search(ctx, "early signs of dementia",
//	    knowledge.WithKB(knowledge.KBResearch),
//	    knowledge.WithTopK(4))
func (s *Store) Search(ctx context.Context, query string, opts ...SearchOption) ([]Result, error) {
	cfg := buildSearchConfig(opts)
	if !cfg.kb.Valid() {
		return nil, fmt.Errorf("search requires a knowledge base (WithKB)")
	}

	queryCtx, cancel := context.WithTimeout(ctx, cfg.timeout)
	defer cancel()

	queryEmbedding, err := s.embed(queryCtx, query)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("query embedding timeout: %w", err)
		}
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	rows, err := s.queries.SearchDocuments(queryCtx, SearchDocumentsParams{
		QueryEmbedding: queryEmbedding,
		KB:             cfg.kb,
		ResultLimit:    int32(cfg.topK), // #nosec G115 -- topK is small and caller-validated
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("search query timeout: %w", err)
		}
		return nil, fmt.Errorf("search failed: %w", err)
	}

	return s.rowsToResults(rows), nil
}

// Retrieve returns the k most similar documents from kb, best first.
// This is the retrieval gateway contract consumed by the agent engine:
// transport errors propagate, an empty result set is not an error.
func (s *Store) Retrieve(ctx context.Context, query string, kb KB, k int) ([]Document, error) {
	results, err := s.Search(ctx, query, WithKB(kb), WithTopK(k))
	if err != nil {
		return nil, err
	}

	docs := make([]Document, len(results))
	for i, r := range results {
		docs[i] = r.Document
	}
	return docs, nil
}

// Count returns the number of documents stored in kb.
func (s *Store) Count(ctx context.Context, kb KB) (int, error) {
	n, err := s.queries.CountDocuments(ctx, kb)
	if err != nil {
		return 0, fmt.Errorf("counting documents: %w", err)
	}
	return int(n), nil
}

// Delete removes a document by ID.
func (s *Store) Delete(ctx context.Context, docID string) error {
	if err := s.queries.DeleteDocument(ctx, docID); err != nil {
		return fmt.Errorf("deleting document %q: %w", docID, err)
	}
	s.logger.Debug("deleted document", "id", docID)
	return nil
}

// embed generates the embedding vector for one text.
func (s *Store) embed(ctx context.Context, text string) (pgvector.Vector, error) {
	resp, err := s.embedder.Embed(ctx, &ai.EmbedRequest{
		Input: []*ai.Document{
			ai.DocumentFromText(text, nil),
		},
		Options: s.embedConfig,
	})
	if err != nil {
		return pgvector.Vector{}, err
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Embedding) == 0 {
		return pgvector.Vector{}, fmt.Errorf("empty embedding returned")
	}
	return pgvector.NewVector(resp.Embeddings[0].Embedding), nil
}

// rowsToResults converts search rows to domain Results.
func (s *Store) rowsToResults(rows []SearchDocumentsRow) []Result {
	results := make([]Result, 0, len(rows))
	for _, row := range rows {
		var metadata map[string]string
		if err := json.Unmarshal(row.Metadata, &metadata); err != nil {
			s.logger.Warn("failed to parse metadata", "document_id", row.ID, "error", err)
			metadata = make(map[string]string)
		}

		results = append(results, Result{
			Document: Document{
				ID:        row.ID,
				KB:        KB(row.KB),
				Content:   row.Content,
				Metadata:  metadata,
				CreatedAt: row.CreatedAt,
			},
			Similarity: row.Similarity,
		})
	}
	return results
}
