package ai

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
)

// DefaultBackoff is how long calls are held back after a provider reports a rate limit.
const DefaultBackoff = 10 * time.Second

// RateLimiter throttles calls to an AI provider.
// It uses a token bucket plus a backoff window opened by rate limit responses.
type RateLimiter struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	retryAt time.Time
	backoff time.Duration
}

// NewRateLimiter creates a limiter allowing requestsPerSecond with the given burst.
func NewRateLimiter(requestsPerSecond float64, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burst),
		backoff: DefaultBackoff,
	}
}

// Wait blocks until a request can be made without exceeding the rate limit.
// It also respects any backoff period set by RecordRateLimit.
func (r *RateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	retryAt := r.retryAt
	r.mu.Unlock()

	if wait := time.Until(retryAt); wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	return r.limiter.Wait(ctx)
}

// RecordRateLimit opens a backoff window after the provider rejected a call.
func (r *RateLimiter) RecordRateLimit() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.retryAt = time.Now().Add(r.backoff)
}

// observe opens the backoff window when err is a rate limit.
func (r *RateLimiter) observe(err error) error {
	if errors.Is(err, domain.ErrRateLimited) {
		r.RecordRateLimit()
	}
	return err
}

// waitErr maps a limiter failure onto the capability sentinel.
// The token bucket refuses to wait past the context deadline, which is a timeout.
func waitErr(kind error, err error) error {
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %w", kind, err)
	}
	return fmt.Errorf("%w: %w: waiting for rate limiter: %w", kind, domain.ErrTimeout, err)
}

// RateLimitedEmbedding throttles an EmbeddingService.
type RateLimitedEmbedding struct {
	driven.EmbeddingService
	limiter *RateLimiter
}

var _ driven.EmbeddingService = (*RateLimitedEmbedding)(nil)

// NewRateLimitedEmbedding wraps svc with limiter.
func NewRateLimitedEmbedding(svc driven.EmbeddingService, limiter *RateLimiter) *RateLimitedEmbedding {
	return &RateLimitedEmbedding{EmbeddingService: svc, limiter: limiter}
}

// Embed waits for the limiter, then embeds.
func (s *RateLimitedEmbedding) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, waitErr(domain.ErrEmbedding, err)
	}
	v, err := s.EmbeddingService.Embed(ctx, text)
	return v, s.limiter.observe(err)
}

// EmbedBatch waits for the limiter, then embeds the batch.
func (s *RateLimitedEmbedding) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, waitErr(domain.ErrEmbedding, err)
	}
	v, err := s.EmbeddingService.EmbedBatch(ctx, texts)
	return v, s.limiter.observe(err)
}

// RateLimitedLLM throttles an LLMService.
type RateLimitedLLM struct {
	driven.LLMService
	limiter *RateLimiter
}

var _ driven.LLMService = (*RateLimitedLLM)(nil)

// NewRateLimitedLLM wraps svc with limiter.
func NewRateLimitedLLM(svc driven.LLMService, limiter *RateLimiter) *RateLimitedLLM {
	return &RateLimitedLLM{LLMService: svc, limiter: limiter}
}

// Generate waits for the limiter, then generates.
func (s *RateLimitedLLM) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return "", waitErr(domain.ErrGeneration, err)
	}
	out, err := s.LLMService.Generate(ctx, prompt, opts)
	return out, s.limiter.observe(err)
}

// Chat waits for the limiter, then chats.
func (s *RateLimitedLLM) Chat(ctx context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return "", waitErr(domain.ErrGeneration, err)
	}
	out, err := s.LLMService.Chat(ctx, messages, opts)
	return out, s.limiter.observe(err)
}
