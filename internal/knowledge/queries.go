package knowledge

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pgvector/pgvector-go"
)

// DBTX is the subset of pgx operations the query layer needs.
// Both *pgxpool.Pool and pgx.Tx satisfy it.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Queries executes SQL against the documents table.
// All statements are parameterized; metadata filters are never interpolated.
type Queries struct {
	db DBTX
}

// NewQueries creates a query layer over the given connection.
func NewQueries(db DBTX) *Queries {
	return &Queries{db: db}
}

// UpsertDocumentParams holds the arguments for UpsertDocument.
type UpsertDocumentParams struct {
	ID        string
	KB        KB
	Content   string
	Embedding pgvector.Vector
	Metadata  []byte // JSON-encoded map[string]string
	CreatedAt time.Time
}

const upsertDocumentSQL = `
INSERT INTO documents (id, kb, content, embedding, metadata, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (id) DO UPDATE SET
    kb = EXCLUDED.kb,
    content = EXCLUDED.content,
    embedding = EXCLUDED.embedding,
    metadata = EXCLUDED.metadata`

// UpsertDocument inserts or replaces a document.
func (q *Queries) UpsertDocument(ctx context.Context, arg UpsertDocumentParams) error {
	_, err := q.db.Exec(ctx, upsertDocumentSQL,
		arg.ID, string(arg.KB), arg.Content, arg.Embedding, arg.Metadata, arg.CreatedAt)
	return err
}

// SearchDocumentsParams holds the arguments for SearchDocuments.
type SearchDocumentsParams struct {
	QueryEmbedding pgvector.Vector
	KB             KB
	ResultLimit    int32
}

// SearchDocumentsRow is one vector search hit.
type SearchDocumentsRow struct {
	ID         string
	KB         string
	Content    string
	Metadata   []byte
	CreatedAt  time.Time
	Similarity float32
}

const searchDocumentsSQL = `
SELECT id, kb, content, metadata, created_at,
       1 - (embedding <=> $1) AS similarity
FROM documents
WHERE kb = $2
ORDER BY embedding <=> $1
LIMIT $3`

// SearchDocuments performs a cosine-distance kNN search within one KB.
// Rows come back ordered by descending similarity.
func (q *Queries) SearchDocuments(ctx context.Context, arg SearchDocumentsParams) ([]SearchDocumentsRow, error) {
	rows, err := q.db.Query(ctx, searchDocumentsSQL,
		arg.QueryEmbedding, string(arg.KB), arg.ResultLimit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SearchDocumentsRow
	for rows.Next() {
		var r SearchDocumentsRow
		if err := rows.Scan(&r.ID, &r.KB, &r.Content, &r.Metadata, &r.CreatedAt, &r.Similarity); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

const countDocumentsSQL = `SELECT COUNT(*) FROM documents WHERE kb = $1`

// CountDocuments counts documents in one KB.
func (q *Queries) CountDocuments(ctx context.Context, kb KB) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, countDocumentsSQL, string(kb)).Scan(&n)
	return n, err
}

const deleteDocumentSQL = `DELETE FROM documents WHERE id = $1`

// DeleteDocument deletes a document by ID.
func (q *Queries) DeleteDocument(ctx context.Context, id string) error {
	_, err := q.db.Exec(ctx, deleteDocumentSQL, id)
	return err
}
