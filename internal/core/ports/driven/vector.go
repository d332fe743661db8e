package driven

import (
	"context"

	"github.com/custodia-labs/docrag/internal/core/domain"
)

// VectorStore persists chunks with their vectors and runs similarity search.
//
// Similarity is cosine similarity. Results are ordered by score descending;
// equal scores keep insertion order (earlier ingested chunk first).
type VectorStore interface {
	// Upsert replaces the full chunk set of a document in one unit.
	// On failure nothing of the document's new chunk set is visible and the
	// error wraps domain.ErrPersistence.
	Upsert(ctx context.Context, documentID string, chunks []domain.Chunk) error

	// Search returns at most topK chunks most similar to query, restricted by filter.
	// A topK larger than the number of rows returns every matching row.
	Search(ctx context.Context, query []float32, topK int, filter domain.SearchFilter) ([]domain.ScoredChunk, error)

	// Chunks returns a document's chunks ordered by index.
	Chunks(ctx context.Context, documentID string) ([]domain.Chunk, error)

	// DeleteDocument removes every chunk of a document.
	DeleteDocument(ctx context.Context, documentID string) error

	// Dimensions returns the configured vector size, or 0 when unconstrained.
	Dimensions() int

	// Close releases resources.
	Close() error
}
