package services

import (
	"context"
	"time"

	"github.com/custodia-labs/bpa/internal/core/ports/driven"
	"github.com/custodia-labs/bpa/internal/core/ports/driving"
)

// Ensure HealthService implements the interface.
var _ driving.HealthService = (*HealthService)(nil)

// HealthService pings the external collaborators.
type HealthService struct {
	embedder    driven.EmbeddingService
	llm         driven.LLMService
	vectorIndex driven.VectorIndex
	timeout     time.Duration
}

// NewHealthService creates a health service. Nil collaborators are skipped.
func NewHealthService(
	embedder driven.EmbeddingService,
	llm driven.LLMService,
	vectorIndex driven.VectorIndex,
	timeout time.Duration,
) *HealthService {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HealthService{
		embedder:    embedder,
		llm:         llm,
		vectorIndex: vectorIndex,
		timeout:     timeout,
	}
}

// Check pings each configured collaborator in turn.
func (s *HealthService) Check(ctx context.Context) []driving.ComponentStatus {
	var statuses []driving.ComponentStatus //nolint:prealloc

	if s.embedder != nil {
		statuses = append(statuses, s.ping(ctx, "embedding", s.embedder.ModelName(), s.embedder.Ping))
	}
	if s.llm != nil {
		statuses = append(statuses, s.ping(ctx, "llm", s.llm.ModelName(), s.llm.Ping))
	}
	if s.vectorIndex != nil {
		statuses = append(statuses, s.ping(ctx, "vector index", "", s.vectorIndex.Ping))
	}

	return statuses
}

func (s *HealthService) ping(
	ctx context.Context, name, detail string, fn func(context.Context) error,
) driving.ComponentStatus {
	pingCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return driving.ComponentStatus{Name: name, Detail: detail, Err: fn(pingCtx)}
}
