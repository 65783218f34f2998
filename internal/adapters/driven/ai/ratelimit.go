package ai

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/bpa/internal/core/domain"
	"github.com/custodia-labs/bpa/internal/core/ports/driven"
	"github.com/custodia-labs/bpa/internal/logger"
)

// Ensure RateLimitedEmbedding implements the interface.
var _ driven.EmbeddingService = (*RateLimitedEmbedding)(nil)

// Rate limiting defaults.
const (
	DefaultRateLimitBackoff = 2 * time.Second
	DefaultRateLimitRetries = 2
)

// RateLimitConfig configures the embedding throttle.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate. Zero or negative disables throttling.
	RequestsPerSecond float64

	// BurstSize is the maximum burst. Zero selects 1.
	BurstSize int

	// Backoff is the pause after a rate limit response.
	Backoff time.Duration

	// Retries is the number of retries after a rate limit response.
	Retries int
}

// RateLimitedEmbedding throttles calls to an embedding service with a token
// bucket and backs off when the provider reports a rate limit.
type RateLimitedEmbedding struct {
	inner   driven.EmbeddingService
	limiter *rate.Limiter
	backoff time.Duration
	retries int

	mu      sync.Mutex
	retryAt time.Time
}

// NewRateLimitedEmbedding wraps inner with the given limits.
func NewRateLimitedEmbedding(inner driven.EmbeddingService, cfg RateLimitConfig) *RateLimitedEmbedding {
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	if cfg.BurstSize <= 0 {
		cfg.BurstSize = 1
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = DefaultRateLimitBackoff
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}

	return &RateLimitedEmbedding{
		inner:   inner,
		limiter: rate.NewLimiter(limit, cfg.BurstSize),
		backoff: cfg.Backoff,
		retries: cfg.Retries,
	}
}

// Embed waits for a token and embeds text.
func (r *RateLimitedEmbedding) Embed(ctx context.Context, text string) ([]float32, error) {
	var vec []float32
	err := r.do(ctx, func() error {
		var err error
		vec, err = r.inner.Embed(ctx, text)
		return err
	})
	return vec, err
}

// EmbedBatch waits for a token and embeds texts in one call.
func (r *RateLimitedEmbedding) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var vecs [][]float32
	err := r.do(ctx, func() error {
		var err error
		vecs, err = r.inner.EmbedBatch(ctx, texts)
		return err
	})
	return vecs, err
}

func (r *RateLimitedEmbedding) do(ctx context.Context, call func() error) error {
	for attempt := 0; ; attempt++ {
		if err := r.wait(ctx); err != nil {
			return err
		}

		err := call()
		if err == nil || !errors.Is(err, domain.ErrRateLimited) || attempt >= r.retries {
			return err
		}

		logger.Warn("embedding rate limited, retrying in %s (attempt %d/%d)", r.backoff, attempt+1, r.retries)
		r.mu.Lock()
		r.retryAt = time.Now().Add(r.backoff)
		r.mu.Unlock()
	}
}

// wait honours any backoff from a previous rate limit, then the token bucket.
func (r *RateLimitedEmbedding) wait(ctx context.Context) error {
	r.mu.Lock()
	retryAt := r.retryAt
	r.mu.Unlock()

	if delay := time.Until(retryAt); delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	return r.limiter.Wait(ctx)
}

// Dimensions returns the wrapped service's vector size.
func (r *RateLimitedEmbedding) Dimensions() int { return r.inner.Dimensions() }

// ModelName returns the wrapped service's model.
func (r *RateLimitedEmbedding) ModelName() string { return r.inner.ModelName() }

// Ping bypasses the limiter.
func (r *RateLimitedEmbedding) Ping(ctx context.Context) error { return r.inner.Ping(ctx) }

// Close closes the wrapped service.
func (r *RateLimitedEmbedding) Close() error { return r.inner.Close() }
