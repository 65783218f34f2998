package metrics

import (
	"context"
	"time"

	"github.com/custodia-labs/bpa/internal/core/domain"
	"github.com/custodia-labs/bpa/internal/core/ports/driven"
)

// Service labels.
const (
	ServiceEmbedding = "embedding"
	ServiceLLM       = "llm"
	ServiceVector    = "vector"
)

// Ensure decorators implement their interfaces.
var (
	_ driven.EmbeddingService = (*embedding)(nil)
	_ driven.LLMService       = (*llm)(nil)
	_ driven.VectorIndex      = (*vectorIndex)(nil)
)

type embedding struct {
	driven.EmbeddingService
	m *Metrics
}

// Embedding wraps an embedding service so every call is measured.
func (m *Metrics) Embedding(inner driven.EmbeddingService) driven.EmbeddingService {
	return &embedding{EmbeddingService: inner, m: m}
}

func (e *embedding) Embed(ctx context.Context, text string) ([]float32, error) {
	start := time.Now()
	vec, err := e.EmbeddingService.Embed(ctx, text)
	e.m.observe(ServiceEmbedding, "embed", start, 1, err)
	return vec, err
}

func (e *embedding) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	start := time.Now()
	vecs, err := e.EmbeddingService.EmbedBatch(ctx, texts)
	e.m.observe(ServiceEmbedding, "embed_batch", start, len(texts), err)
	return vecs, err
}

type llm struct {
	driven.LLMService
	m *Metrics
}

// LLM wraps a generation service so every call is measured.
func (m *Metrics) LLM(inner driven.LLMService) driven.LLMService {
	return &llm{LLMService: inner, m: m}
}

func (l *llm) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	start := time.Now()
	out, err := l.LLMService.Generate(ctx, prompt, opts)
	l.m.observe(ServiceLLM, "generate", start, 1, err)
	return out, err
}

type vectorIndex struct {
	driven.VectorIndex
	m *Metrics
}

// VectorIndex wraps a vector index so every data call is measured.
func (m *Metrics) VectorIndex(inner driven.VectorIndex) driven.VectorIndex {
	return &vectorIndex{VectorIndex: inner, m: m}
}

func (v *vectorIndex) Upsert(ctx context.Context, namespace string, chunks []domain.Chunk) error {
	start := time.Now()
	err := v.VectorIndex.Upsert(ctx, namespace, chunks)
	v.m.observe(ServiceVector, "upsert", start, len(chunks), err)
	return err
}

func (v *vectorIndex) Query(
	ctx context.Context,
	namespace string,
	vector []float32,
	topK int,
	filter driven.QueryFilter,
) ([]domain.Fragment, error) {
	start := time.Now()
	frags, err := v.VectorIndex.Query(ctx, namespace, vector, topK, filter)
	v.m.observe(ServiceVector, "query", start, len(frags), err)
	return frags, err
}

func (v *vectorIndex) Delete(ctx context.Context, namespace string, ids []string) error {
	start := time.Now()
	err := v.VectorIndex.Delete(ctx, namespace, ids)
	v.m.observe(ServiceVector, "delete", start, len(ids), err)
	return err
}
