package services

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
	"github.com/custodia-labs/docrag/internal/logger"
)

// RetrievalPipeline embeds a question and finds the closest chunks.
type RetrievalPipeline struct {
	embedder driven.EmbeddingService
	vectors  driven.VectorStore
	minScore float64
}

// RetrievalOption configures a RetrievalPipeline.
type RetrievalOption func(*RetrievalPipeline)

// WithMinScore drops hits scoring below min.
func WithMinScore(minScore float64) RetrievalOption {
	return func(r *RetrievalPipeline) {
		r.minScore = minScore
	}
}

// NewRetrievalPipeline creates a retrieval pipeline.
func NewRetrievalPipeline(
	embedder driven.EmbeddingService, vectors driven.VectorStore, opts ...RetrievalOption,
) *RetrievalPipeline {
	r := &RetrievalPipeline{embedder: embedder, vectors: vectors}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ResolveTopK applies the default and checks the accepted range.
func ResolveTopK(topK int) (int, error) {
	if topK == 0 {
		return domain.DefaultTopK, nil
	}
	if topK < 1 || topK > domain.MaxTopK {
		return 0, domain.NewStageError(domain.StageValidate, domain.ErrInvalidInput,
			fmt.Sprintf("top_k must be between 1 and %d", domain.MaxTopK), nil)
	}
	return topK, nil
}

// ValidateQuery trims the question and rejects anything under two characters.
func ValidateQuery(text string) (string, error) {
	trimmed := strings.TrimSpace(text)
	if utf8.RuneCountInString(trimmed) < domain.MinQueryLength {
		return "", domain.NewStageError(domain.StageValidate, domain.ErrQueryTooShort,
			fmt.Sprintf("query must be at least %d characters", domain.MinQueryLength), nil)
	}
	return trimmed, nil
}

// Retrieve returns up to topK chunks ranked by cosine similarity to text.
// The query is validated before the embedding provider is called.
func (r *RetrievalPipeline) Retrieve(
	ctx context.Context, text string, topK int, filter domain.SearchFilter,
) ([]domain.ScoredChunk, error) {
	logger.Section("Retrieve")

	query, err := ValidateQuery(text)
	if err != nil {
		return nil, err
	}
	k, err := ResolveTopK(topK)
	if err != nil {
		return nil, err
	}

	if r.embedder == nil {
		return nil, domain.NewStageError(domain.StageEmbed, domain.ErrEmbeddingUnavailable, "", nil)
	}
	if r.vectors == nil {
		return nil, domain.NewStageError(domain.StageRetrieve, domain.ErrVectorStoreUnavailable, "", nil)
	}

	vectors, err := r.embedder.EmbedBatch(ctx, []string{query})
	if err != nil {
		return nil, stageError(domain.StageEmbed, domain.ErrEmbedding, "embedding provider", err)
	}
	if len(vectors) != 1 || len(vectors[0]) == 0 {
		return nil, domain.NewStageError(domain.StageEmbed, domain.ErrEmbedding,
			"embedding provider returned no vector for the query", nil)
	}

	hits, err := r.vectors.Search(ctx, vectors[0], k, filter)
	if err != nil {
		return nil, stageError(domain.StageRetrieve, domain.ErrSearch, "vector search", err)
	}

	if r.minScore > 0 {
		kept := hits[:0]
		for _, h := range hits {
			if h.Score >= r.minScore {
				kept = append(kept, h)
			}
		}
		hits = kept
	}
	if len(hits) > k {
		hits = hits[:k]
	}

	logger.Debugw("retrieved", "hits", len(hits), "top_k", k, "user", filter.UserID)
	return hits, nil
}
