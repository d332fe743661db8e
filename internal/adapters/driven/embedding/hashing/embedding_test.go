package hashing

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docrag/internal/adapters/driven/storage/similarity"
	"github.com/custodia-labs/docrag/internal/core/domain"
)

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

func TestNewEmbeddingService_Dimensions(t *testing.T) {
	assert.Equal(t, domain.DefaultLocalDimensions, NewEmbeddingService(0).Dimensions())
	assert.Equal(t, 64, NewEmbeddingService(64).Dimensions())
	assert.Equal(t, ModelName, NewEmbeddingService(0).ModelName())
}

func TestEmbed_Deterministic(t *testing.T) {
	svc := NewEmbeddingService(128)
	ctx := context.Background()

	a, err := svc.Embed(ctx, "The lease ends in March")
	require.NoError(t, err)
	b, err := svc.Embed(ctx, "the LEASE ends, in march!")
	require.NoError(t, err)

	assert.Len(t, a, 128)
	assert.Equal(t, a, b, "case and punctuation do not matter")
	assert.InDelta(t, 1.0, norm(a), 1e-5)
}

func TestEmbed_NoWords(t *testing.T) {
	v, err := NewEmbeddingService(32).Embed(context.Background(), " ... !!")

	require.NoError(t, err)
	assert.Len(t, v, 32)
	assert.Zero(t, norm(v))
}

func TestEmbed_SharedVocabularyScoresHigher(t *testing.T) {
	svc := NewEmbeddingService(256)
	ctx := context.Background()

	query, _ := svc.Embed(ctx, "when does the lease end")
	related, _ := svc.Embed(ctx, "the lease will end on the first of march")
	unrelated, _ := svc.Embed(ctx, "photosynthesis converts sunlight into chemical energy")

	assert.Greater(t, similarity.Cosine(query, related), similarity.Cosine(query, unrelated))
}

func TestEmbedBatch(t *testing.T) {
	svc := NewEmbeddingService(16)
	ctx := context.Background()

	vectors, err := svc.EmbedBatch(ctx, []string{"alpha", "beta"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)

	alpha, _ := svc.Embed(ctx, "alpha")
	assert.Equal(t, alpha, vectors[0])
}

func TestEmbedBatch_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewEmbeddingService(16).EmbedBatch(ctx, []string{"alpha"})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestPingAndClose(t *testing.T) {
	svc := NewEmbeddingService(8)
	assert.NoError(t, svc.Ping(context.Background()))
	assert.NoError(t, svc.Close())
}
