package ai

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docrag/internal/adapters/driven/embedding/hashing"
	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
)

type stubLLM struct {
	err   error
	calls int
}

func (s *stubLLM) Generate(context.Context, string, driven.GenerateOptions) (string, error) {
	s.calls++
	return "generated", s.err
}

func (s *stubLLM) Chat(context.Context, []driven.ChatMessage, driven.ChatOptions) (string, error) {
	s.calls++
	return "answer", s.err
}

func (s *stubLLM) ModelName() string { return "stub" }
func (s *stubLLM) Ping(context.Context) error { return nil }
func (s *stubLLM) Close() error { return nil }

func TestRateLimiter_Burst(t *testing.T) {
	limiter := NewRateLimiter(1000, 3)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, limiter.Wait(ctx))
	}
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestRateLimiter_WaitPastDeadline(t *testing.T) {
	limiter := NewRateLimiter(0.1, 1)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	require.NoError(t, limiter.Wait(ctx))
	assert.Error(t, limiter.Wait(ctx))
}

func TestRateLimiter_BackoffAfterRateLimit(t *testing.T) {
	limiter := NewRateLimiter(1000, 10)
	limiter.backoff = time.Hour
	limiter.RecordRateLimit()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, limiter.Wait(ctx), context.DeadlineExceeded)
}

func TestRateLimitedEmbedding(t *testing.T) {
	svc := NewRateLimitedEmbedding(hashing.NewEmbeddingService(8), NewRateLimiter(1000, 5))

	vectors, err := svc.EmbedBatch(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Len(t, vectors, 2)

	v, err := svc.Embed(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, vectors[0], v)
	assert.Equal(t, 8, svc.Dimensions())
}

func TestRateLimitedEmbedding_WaitTimeout(t *testing.T) {
	limiter := NewRateLimiter(1000, 1)
	limiter.backoff = time.Hour
	limiter.RecordRateLimit()
	svc := NewRateLimitedEmbedding(hashing.NewEmbeddingService(8), limiter)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := svc.EmbedBatch(ctx, []string{"a"})

	assert.ErrorIs(t, err, domain.ErrEmbedding)
	assert.ErrorIs(t, err, domain.ErrTimeout)
}

func TestRateLimitedLLM_RecordsProviderRateLimit(t *testing.T) {
	inner := &stubLLM{err: fmt.Errorf("%w: %w", domain.ErrGeneration, domain.ErrRateLimited)}
	limiter := NewRateLimiter(1000, 5)
	svc := NewRateLimitedLLM(inner, limiter)

	_, err := svc.Chat(context.Background(), nil, driven.ChatOptions{})

	assert.ErrorIs(t, err, domain.ErrRateLimited)
	limiter.mu.Lock()
	retryAt := limiter.retryAt
	limiter.mu.Unlock()
	assert.True(t, retryAt.After(time.Now()))
}

func TestRateLimitedLLM_Passthrough(t *testing.T) {
	inner := &stubLLM{}
	svc := NewRateLimitedLLM(inner, NewRateLimiter(1000, 5))

	out, err := svc.Generate(context.Background(), "p", driven.GenerateOptions{})
	require.NoError(t, err)
	assert.Equal(t, "generated", out)

	out, err = svc.Chat(context.Background(), nil, driven.ChatOptions{})
	require.NoError(t, err)
	assert.Equal(t, "answer", out)
	assert.Equal(t, 2, inner.calls)
	assert.Equal(t, "stub", svc.ModelName())
}
