// Package observability provides metrics and monitoring capabilities for Merak.
package observability

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/merak-travel/merak/internal/observability/metrics"
)

// Metrics holds all the metric collectors for the application.
type Metrics struct {
	registry *prometheus.Registry
	HTTP     *metrics.HTTPMetrics
	Planner  *metrics.PlannerMetrics
	ChatKit  *metrics.ChatKitMetrics
}

// NewMetrics creates a registry and registers every collector on it.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()

	if err := registry.Register(collectors.NewGoCollector()); err != nil {
		return nil, fmt.Errorf("failed to register Go collector: %w", err)
	}
	if err := registry.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		return nil, fmt.Errorf("failed to register process collector: %w", err)
	}

	httpMetrics, err := metrics.NewHTTPMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP metrics: %w", err)
	}

	plannerMetrics, err := metrics.NewPlannerMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create planner metrics: %w", err)
	}

	chatkitMetrics, err := metrics.NewChatKitMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create ChatKit metrics: %w", err)
	}

	return &Metrics{
		registry: registry,
		HTTP:     httpMetrics,
		Planner:  plannerMetrics,
		ChatKit:  chatkitMetrics,
	}, nil
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the Prometheus exposition handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorHandling: promhttp.HTTPErrorOnError,
	})
}
