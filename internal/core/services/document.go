package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
	"github.com/custodia-labs/docrag/internal/core/ports/driving"
	"github.com/custodia-labs/docrag/internal/logger"
)

// Ensure DocumentService implements the interface.
var _ driving.DocumentService = (*DocumentService)(nil)

// summaryInputChars bounds how much document text is sent to the model.
const summaryInputChars = 8000

// DocumentService manages ingested documents.
type DocumentService struct {
	metadata  driven.MetadataStore
	vectors   driven.VectorStore
	storage   driven.ObjectStorage
	ingestion *IngestionPipeline
	llm       driven.LLMService
	prompts   driven.PromptStore
}

// NewDocumentService creates a new document service.
// storage, ingestion, llm and prompts are optional (can be nil).
func NewDocumentService(
	metadata driven.MetadataStore,
	vectors driven.VectorStore,
	storage driven.ObjectStorage,
	ingestion *IngestionPipeline,
	llm driven.LLMService,
	prompts driven.PromptStore,
) *DocumentService {
	return &DocumentService{
		metadata:  metadata,
		vectors:   vectors,
		storage:   storage,
		ingestion: ingestion,
		llm:       llm,
		prompts:   prompts,
	}
}

// List returns a user's documents.
func (s *DocumentService) List(ctx context.Context, userID string) ([]domain.Document, error) {
	if s.metadata == nil {
		return nil, domain.ErrNotImplemented
	}
	return s.metadata.ListDocuments(ctx, userID)
}

// Get retrieves a document by ID.
func (s *DocumentService) Get(ctx context.Context, documentID string) (*domain.Document, error) {
	if s.metadata == nil {
		return nil, domain.ErrNotImplemented
	}
	return s.metadata.GetDocument(ctx, documentID)
}

// Chunks returns the document's chunks ordered by index.
func (s *DocumentService) Chunks(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	if s.vectors == nil {
		return nil, domain.ErrVectorStoreUnavailable
	}
	return s.vectors.Chunks(ctx, documentID)
}

// GetContent rebuilds the document text from its chunks, dropping the
// overlap each window shares with the previous one.
func (s *DocumentService) GetContent(ctx context.Context, documentID string) (string, error) {
	chunks, err := s.Chunks(ctx, documentID)
	if err != nil {
		return "", err
	}
	if len(chunks) == 0 {
		return "", nil
	}

	var b strings.Builder
	end := 0
	for _, c := range chunks {
		runes := []rune(c.Text)
		skip := 0
		if c.Start < end {
			skip = end - c.Start
		}
		if skip < len(runes) {
			b.WriteString(string(runes[skip:]))
		}
		if c.End > end {
			end = c.End
		}
	}
	return b.String(), nil
}

// Summarise asks the language model for a short summary of the document.
func (s *DocumentService) Summarise(ctx context.Context, documentID string) (string, error) {
	if s.llm == nil {
		return "", domain.NewStageError(domain.StageGenerate, domain.ErrLLMUnavailable,
			"no language model configured", nil)
	}

	filename := documentID
	if s.metadata != nil {
		doc, err := s.metadata.GetDocument(ctx, documentID)
		if err != nil {
			return "", err
		}
		filename = doc.Filename
	}

	content, err := s.GetContent(ctx, documentID)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(content) == "" {
		return "", fmt.Errorf("%w: document %s has no indexed text", domain.ErrInvalidInput, documentID)
	}
	if runes := []rune(content); len(runes) > summaryInputChars {
		content = string(runes[:summaryInputChars])
	}

	prompt := fmt.Sprintf(loadPrompt(s.prompts, driven.PromptSummarise, 2), filename, content)
	summary, err := s.llm.Generate(ctx, prompt, driven.GenerateOptions{
		MaxTokens:   domain.DefaultMaxTokens,
		Temperature: domain.DefaultTemperature,
	})
	if err != nil {
		return "", stageError(domain.StageGenerate, domain.ErrGeneration, "language model", err)
	}
	return strings.TrimSpace(summary), nil
}

// Reprocess re-ingests the stored raw bytes of a document under its id.
func (s *DocumentService) Reprocess(ctx context.Context, documentID string) (*domain.IngestResult, error) {
	if s.metadata == nil || s.storage == nil || s.ingestion == nil {
		return nil, domain.ErrNotImplemented
	}

	doc, err := s.metadata.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}

	content, err := s.storage.Get(ctx, doc.StoragePath)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NewStageError(domain.StageLoad, domain.ErrNotFound,
				"raw file is no longer stored", err)
		}
		return nil, stageError(domain.StageLoad, domain.ErrPersistence, "object storage", err)
	}

	if err := s.metadata.UpdateStatus(ctx, doc.ID, domain.DocumentProcessing, doc.ChunkCount, ""); err != nil {
		logger.Warn("marking %s as processing: %v", doc.ID, err)
	}

	return s.ingestion.Reindex(ctx, doc, content)
}

// Delete removes the document's chunks, its stored bytes and its row.
// Chunks go first so a partial failure never leaves searchable orphans.
// A document indexed under a fallback id has chunks but no row; its chunks
// are still removed.
func (s *DocumentService) Delete(ctx context.Context, documentID string) error {
	var doc *domain.Document
	if s.metadata != nil {
		d, err := s.metadata.GetDocument(ctx, documentID)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			return s.deleteOrphanChunks(ctx, documentID, err)
		case err != nil:
			return err
		}
		doc = d
	}

	if s.vectors != nil {
		if err := s.vectors.DeleteDocument(ctx, documentID); err != nil {
			return fmt.Errorf("delete chunks: %w", err)
		}
	}

	if s.storage != nil && doc != nil && doc.StoragePath != "" {
		if err := s.storage.Delete(ctx, doc.StoragePath); err != nil && !errors.Is(err, domain.ErrNotFound) {
			logger.Warn("deleting raw file %s: %v", doc.StoragePath, err)
		}
	}

	if s.metadata != nil {
		if err := s.metadata.DeleteDocument(ctx, documentID); err != nil {
			return fmt.Errorf("delete document: %w", err)
		}
	}
	return nil
}

// deleteOrphanChunks removes the chunks of a document that has no metadata
// row. notFound is returned when there were none.
func (s *DocumentService) deleteOrphanChunks(ctx context.Context, documentID string, notFound error) error {
	if s.vectors == nil {
		return notFound
	}

	chunks, err := s.vectors.Chunks(ctx, documentID)
	if err != nil {
		return fmt.Errorf("list chunks: %w", err)
	}
	if len(chunks) == 0 {
		return notFound
	}

	if err := s.vectors.DeleteDocument(ctx, documentID); err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}
	logger.Debug("deleted %d chunks of %s, which has no metadata row", len(chunks), documentID)
	return nil
}
