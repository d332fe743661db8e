package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/docrag/internal/adapters/driven/storage/similarity"
	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
)

// Ensure VectorStore implements the interface.
var _ driven.VectorStore = (*VectorStore)(nil)

type storedChunk struct {
	chunk domain.Chunk
	seq   int64
}

// VectorStore is an in-memory implementation of driven.VectorStore.
// Search is a linear scan.
type VectorStore struct {
	mu         sync.RWMutex
	dimensions int
	chunks     map[string][]storedChunk
	seq        int64
}

// NewVectorStore creates a new in-memory vector store.
// A positive dimensions rejects vectors of any other size.
func NewVectorStore(dimensions int) *VectorStore {
	return &VectorStore{
		dimensions: dimensions,
		chunks:     make(map[string][]storedChunk),
	}
}

// Upsert replaces the chunk set of a document.
func (s *VectorStore) Upsert(ctx context.Context, documentID string, chunks []domain.Chunk) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}
	for i, c := range chunks {
		if len(c.Embedding) == 0 {
			return fmt.Errorf("%w: chunk %d has no embedding", domain.ErrPersistence, c.Index)
		}
		if s.dimensions > 0 && len(c.Embedding) != s.dimensions {
			return fmt.Errorf("%w: %w: chunk %d has %d dimensions, want %d",
				domain.ErrPersistence, domain.ErrDimensionMismatch, i, len(c.Embedding), s.dimensions)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows := make([]storedChunk, len(chunks))
	for i, c := range chunks {
		c.DocumentID = documentID
		c.Embedding = append([]float32(nil), c.Embedding...)
		s.seq++
		rows[i] = storedChunk{chunk: c, seq: s.seq}
	}
	s.chunks[documentID] = rows
	return nil
}

// Search ranks every matching chunk by cosine similarity.
func (s *VectorStore) Search(
	ctx context.Context, query []float32, topK int, filter domain.SearchFilter,
) ([]domain.ScoredChunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.dimensions > 0 && len(query) != s.dimensions {
		return nil, fmt.Errorf("%w: query has %d dimensions, want %d",
			domain.ErrDimensionMismatch, len(query), s.dimensions)
	}

	s.mu.RLock()
	var candidates []similarity.Candidate[domain.Chunk]
	for docID, rows := range s.chunks {
		if filter.DocumentID != "" && docID != filter.DocumentID {
			continue
		}
		for _, r := range rows {
			if filter.UserID != "" && r.chunk.UserID != filter.UserID {
				continue
			}
			candidates = append(candidates, similarity.Candidate[domain.Chunk]{Item: r.chunk, Seq: r.seq})
		}
	}
	s.mu.RUnlock()

	ranked := similarity.Rank(query, candidates, func(c domain.Chunk) []float32 { return c.Embedding }, topK)
	results := make([]domain.ScoredChunk, len(ranked))
	for i, r := range ranked {
		results[i] = domain.ScoredChunk{Chunk: r.Item, Score: r.Score}
	}
	return results, nil
}

// Chunks returns a document's chunks ordered by index.
func (s *VectorStore) Chunks(_ context.Context, documentID string) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := s.chunks[documentID]
	out := make([]domain.Chunk, len(rows))
	for i, r := range rows {
		out[i] = r.chunk
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out, nil
}

// DeleteDocument removes every chunk of a document.
func (s *VectorStore) DeleteDocument(_ context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.chunks, documentID)
	return nil
}

// Dimensions returns the configured vector size.
func (s *VectorStore) Dimensions() int {
	return s.dimensions
}

// Close releases resources.
func (s *VectorStore) Close() error {
	return nil
}
