package services

import (
	"context"
	"time"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driving"
	"github.com/custodia-labs/docrag/internal/logger"
)

// Ensure RagService implements the interface.
var _ driving.RagService = (*RagService)(nil)

// RagService is the entry point for ingesting documents and asking questions.
type RagService struct {
	ingestion   *IngestionPipeline
	retrieval   *RetrievalPipeline
	synthesizer *AnswerSynthesizer
	topK        int
}

// NewRagService creates a RAG service.
// defaultTopK is used for queries that leave TopK at zero; zero means domain.DefaultTopK.
func NewRagService(
	ingestion *IngestionPipeline,
	retrieval *RetrievalPipeline,
	synthesizer *AnswerSynthesizer,
	defaultTopK int,
) *RagService {
	if defaultTopK <= 0 || defaultTopK > domain.MaxTopK {
		defaultTopK = domain.DefaultTopK
	}
	return &RagService{
		ingestion:   ingestion,
		retrieval:   retrieval,
		synthesizer: synthesizer,
		topK:        defaultTopK,
	}
}

// Ingest runs one upload through the ingestion pipeline.
func (s *RagService) Ingest(ctx context.Context, req domain.IngestRequest) (*domain.IngestResult, error) {
	start := time.Now()
	req.UserID = domain.OwnerOrDefault(req.UserID)

	result, err := s.ingestion.Ingest(ctx, req)
	if err != nil {
		logger.Debugw("ingest failed", "file", req.Filename, "stage", string(domain.FailedStage(err)))
		return nil, err
	}

	logger.Debug("Ingested %q as %s in %v", req.Filename, result.DocumentID, time.Since(start))
	return result, nil
}

// Query answers a question from the user's documents.
func (s *RagService) Query(ctx context.Context, req domain.QueryRequest) (*domain.AnswerRecord, error) {
	start := time.Now()

	topK := req.TopK
	if topK == 0 {
		topK = s.topK
	}

	filter := domain.SearchFilter{
		UserID:     domain.OwnerOrDefault(req.UserID),
		DocumentID: req.DocumentID,
	}

	hits, err := s.retrieval.Retrieve(ctx, req.Text, topK, filter)
	if err != nil {
		return nil, err
	}

	answer, err := s.synthesizer.Synthesize(ctx, req.Text, hits)
	if err != nil {
		return nil, err
	}

	logger.Debug("Answered in %v with %d sources", time.Since(start), len(answer.Sources))
	return answer, nil
}
