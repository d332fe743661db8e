package driving

import (
	"context"

	"github.com/custodia-labs/docrag/internal/core/domain"
)

// DocumentService manages ingested documents.
type DocumentService interface {
	// List returns a user's documents. An empty userID lists all documents.
	List(ctx context.Context, userID string) ([]domain.Document, error)

	// Get retrieves a document by ID.
	Get(ctx context.Context, documentID string) (*domain.Document, error)

	// Chunks returns the document's chunks ordered by index.
	Chunks(ctx context.Context, documentID string) ([]domain.Chunk, error)

	// GetContent returns the document text rebuilt from its chunks.
	GetContent(ctx context.Context, documentID string) (string, error)

	// Summarise generates a short summary of the document.
	Summarise(ctx context.Context, documentID string) (string, error)

	// Reprocess deletes the document's chunks and ingests its stored bytes
	// again under the same id.
	Reprocess(ctx context.Context, documentID string) (*domain.IngestResult, error)

	// Delete removes the document, its chunks and its stored bytes.
	Delete(ctx context.Context, documentID string) error
}
