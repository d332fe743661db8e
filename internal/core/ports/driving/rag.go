package driving

import (
	"context"

	"github.com/custodia-labs/docrag/internal/core/domain"
)

// RagService ingests documents and answers questions about them.
type RagService interface {
	// Ingest parses, chunks, embeds and persists one uploaded file.
	// Each call creates a new document id, even for identical bytes.
	Ingest(ctx context.Context, req domain.IngestRequest) (*domain.IngestResult, error)

	// Query retrieves the most relevant chunks and generates a grounded answer.
	Query(ctx context.Context, req domain.QueryRequest) (*domain.AnswerRecord, error)
}
