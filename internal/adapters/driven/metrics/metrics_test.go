package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/bpa/internal/core/domain"
	"github.com/custodia-labs/bpa/internal/core/ports/driven"
)

type stubEmbedding struct {
	err error
}

func (s *stubEmbedding) Embed(context.Context, string) ([]float32, error) { return []float32{1}, s.err }
func (s *stubEmbedding) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	return make([][]float32, len(texts)), s.err
}
func (s *stubEmbedding) Dimensions() int            { return 1 }
func (s *stubEmbedding) ModelName() string          { return "stub" }
func (s *stubEmbedding) Ping(context.Context) error { return nil }
func (s *stubEmbedding) Close() error               { return nil }

type stubLLM struct {
	err error
}

func (s *stubLLM) Generate(context.Context, string, driven.GenerateOptions) (string, error) {
	return "ok", s.err
}
func (s *stubLLM) ModelName() string          { return "stub" }
func (s *stubLLM) Ping(context.Context) error { return nil }
func (s *stubLLM) Close() error               { return nil }

type stubIndex struct{}

func (stubIndex) Upsert(context.Context, string, []domain.Chunk) error { return nil }
func (stubIndex) Query(context.Context, string, []float32, int, driven.QueryFilter) ([]domain.Fragment, error) {
	return []domain.Fragment{{ID: "a"}, {ID: "b"}}, nil
}
func (stubIndex) Delete(context.Context, string, []string) error { return nil }
func (stubIndex) Ping(context.Context) error                     { return nil }
func (stubIndex) Close() error                                   { return nil }

func TestEmbedding_CountsOutcomes(t *testing.T) {
	m := New()

	ok := m.Embedding(&stubEmbedding{})
	_, err := ok.EmbedBatch(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)

	limited := m.Embedding(&stubEmbedding{err: fmt.Errorf("%w: slow down", domain.ErrRateLimited)})
	_, err = limited.Embed(context.Background(), "a")
	require.Error(t, err)

	assert.InDelta(t, 1, testutil.ToFloat64(m.requests.WithLabelValues(ServiceEmbedding, "embed_batch", OutcomeOK)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.requests.WithLabelValues(ServiceEmbedding, "embed", OutcomeRateLimited)), 0)
	assert.InDelta(t, 3, testutil.ToFloat64(m.items.WithLabelValues(ServiceEmbedding, "embed_batch")), 0)
	assert.Equal(t, 1, ok.Dimensions())
}

func TestLLM_CountsErrors(t *testing.T) {
	m := New()
	failing := m.LLM(&stubLLM{err: errors.New("boom")})

	_, err := failing.Generate(context.Background(), "p", driven.GenerateOptions{})
	require.Error(t, err)

	assert.InDelta(t, 1, testutil.ToFloat64(m.requests.WithLabelValues(ServiceLLM, "generate", OutcomeError)), 0)
	assert.Equal(t, "stub", failing.ModelName())
}

func TestVectorIndex_CountsFragments(t *testing.T) {
	m := New()
	idx := m.VectorIndex(stubIndex{})

	frags, err := idx.Query(context.Background(), "ns", []float32{1}, 5, driven.QueryFilter{})
	require.NoError(t, err)
	require.Len(t, frags, 2)

	assert.InDelta(t, 2, testutil.ToFloat64(m.items.WithLabelValues(ServiceVector, "query")), 0)
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, OutcomeOK, outcome(nil))
	assert.Equal(t, OutcomeCanceled, outcome(fmt.Errorf("wrap: %w", context.DeadlineExceeded)))
	assert.Equal(t, OutcomeRateLimited, outcome(domain.ErrRateLimited))
	assert.Equal(t, OutcomeError, outcome(domain.ErrGateway))
}

func TestHandler_ServesMetrics(t *testing.T) {
	m := New()
	_, _ = m.LLM(&stubLLM{}).Generate(context.Background(), "p", driven.GenerateOptions{})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), `bpa_gateway_requests_total{operation="generate",outcome="ok",service="llm"} 1`)
}
