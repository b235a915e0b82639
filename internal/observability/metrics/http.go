// Package metrics provides Prometheus collectors for Merak components
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// SSE stream close reasons. Unknown reasons are recorded as SSECloseReasonError.
const (
	SSECloseReasonCompleted = "completed" // stream finished normally
	SSECloseReasonCanceled  = "canceled"  // client went away
	SSECloseReasonError     = "error"
)

// HTTPMetrics contains Prometheus metrics for HTTP handlers
type HTTPMetrics struct {
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	sseActiveStreams  prometheus.Gauge
	sseStreamsTotal   *prometheus.CounterVec
	sseStreamDuration prometheus.Histogram
	sseEventsSent     *prometheus.CounterVec
	rateLimitedTotal  *prometheus.CounterVec
}

// NewHTTPMetrics creates and registers HTTP handler metrics
func NewHTTPMetrics(registry prometheus.Registerer) (*HTTPMetrics, error) {
	m := &HTTPMetrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *HTTPMetrics) initMetrics() {
	m.httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "merak_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status_code"}, // path is the route pattern, not the raw URL
	)
	m.httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "merak_http_request_duration_seconds",
			Help:    "Time taken for HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
	m.sseActiveStreams = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "merak_sse_active_streams",
		Help: "Number of open Server-Sent Events streams",
	})
	m.sseStreamsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "merak_sse_streams_total",
			Help: "Total number of SSE streams by close reason",
		},
		[]string{"reason"},
	)
	m.sseStreamDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "merak_sse_stream_duration_seconds",
		Help:    "Lifetime of SSE streams",
		Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
	})
	m.sseEventsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "merak_sse_events_sent_total",
			Help: "Total number of SSE events written",
		},
		[]string{"event_type"},
	)
	m.rateLimitedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "merak_http_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		},
		[]string{"path"},
	)
}

func (m *HTTPMetrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.sseActiveStreams,
		m.sseStreamsTotal,
		m.sseStreamDuration,
		m.sseEventsSent,
		m.rateLimitedTotal,
	}
}

// Describe implements the Collector interface
func (m *HTTPMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, c := range m.collectors() {
		c.Describe(ch)
	}
}

// Collect implements the Collector interface
func (m *HTTPMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, c := range m.collectors() {
		c.Collect(ch)
	}
}

// RecordHTTPRequest records a completed HTTP request
func (m *HTTPMetrics) RecordHTTPRequest(method, path string, statusCode int, duration float64) {
	m.httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
	m.httpRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// RecordRateLimited records a request rejected by the rate limiter
func (m *HTTPMetrics) RecordRateLimited(path string) {
	m.rateLimitedTotal.WithLabelValues(path).Inc()
}

// SSEStreamStarted increments the active stream gauge
func (m *HTTPMetrics) SSEStreamStarted() {
	m.sseActiveStreams.Inc()
}

// SSEStreamClosed decrements the active stream gauge and records the lifetime
func (m *HTTPMetrics) SSEStreamClosed(duration float64, reason string) {
	switch reason {
	case SSECloseReasonCompleted, SSECloseReasonCanceled, SSECloseReasonError:
	default:
		reason = SSECloseReasonError
	}
	m.sseActiveStreams.Dec()
	m.sseStreamsTotal.WithLabelValues(reason).Inc()
	m.sseStreamDuration.Observe(duration)
}

// RecordSSEEvent records an SSE event written to a client
func (m *HTTPMetrics) RecordSSEEvent(eventType string) {
	m.sseEventsSent.WithLabelValues(eventType).Inc()
}

// ActiveSSEStreams returns the current number of open SSE streams
func (m *HTTPMetrics) ActiveSSEStreams() float64 {
	metric := &dto.Metric{}
	if err := m.sseActiveStreams.Write(metric); err != nil {
		return 0
	}
	if metric.Gauge != nil && metric.Gauge.Value != nil {
		return *metric.Gauge.Value
	}
	return 0
}
