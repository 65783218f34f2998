// Package metrics records Prometheus metrics for calls to external services
// and exposes them over HTTP.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/custodia-labs/bpa/internal/core/domain"
)

// Outcome labels.
const (
	OutcomeOK          = "ok"
	OutcomeError       = "error"
	OutcomeRateLimited = "rate_limited"
	OutcomeCanceled    = "canceled"
)

// Metrics holds the collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	items    *prometheus.CounterVec
}

// New creates a registry with gateway metrics plus the Go and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bpa",
			Name:      "gateway_requests_total",
			Help:      "External service calls by service, operation and outcome.",
		}, []string{"service", "operation", "outcome"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "bpa",
			Name:      "gateway_request_duration_seconds",
			Help:      "External service call latency.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}, []string{"service", "operation"}),
		items: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bpa",
			Name:      "gateway_items_total",
			Help:      "Items sent to external services, such as embedded texts and upserted vectors.",
		}, []string{"service", "operation"}),
	}
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// observe records one call that started at start.
func (m *Metrics) observe(service, operation string, start time.Time, items int, err error) {
	m.duration.WithLabelValues(service, operation).Observe(time.Since(start).Seconds())
	m.requests.WithLabelValues(service, operation, outcome(err)).Inc()
	if err == nil && items > 0 {
		m.items.WithLabelValues(service, operation).Add(float64(items))
	}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, domain.ErrRateLimited):
		return OutcomeRateLimited
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return OutcomeCanceled
	default:
		return OutcomeError
	}
}
