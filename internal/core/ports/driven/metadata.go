package driven

import (
	"context"

	"github.com/custodia-labs/docrag/internal/core/domain"
)

// MetadataStore persists document rows.
type MetadataStore interface {
	// InsertDocument stores a new document row and returns its id.
	// When doc.ID is empty the store assigns one.
	InsertDocument(ctx context.Context, doc *domain.Document) (string, error)

	// GetDocument retrieves a document by ID.
	// Returns domain.ErrNotFound if no row exists.
	GetDocument(ctx context.Context, id string) (*domain.Document, error)

	// ListDocuments returns a user's documents, newest first.
	// An empty userID lists every document.
	ListDocuments(ctx context.Context, userID string) ([]domain.Document, error)

	// UpdateStatus records the processing state and chunk count of a document.
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, chunkCount int, message string) error

	// DeleteDocument removes a document row.
	DeleteDocument(ctx context.Context, id string) error
}
