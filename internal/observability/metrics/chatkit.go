package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// ChatKitMetrics tracks ChatKit protocol requests and the thread store
type ChatKitMetrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	threadsStored   prometheus.Gauge
	itemsStored     prometheus.Gauge
}

// NewChatKitMetrics creates and registers ChatKit metrics
func NewChatKitMetrics(registry prometheus.Registerer) (*ChatKitMetrics, error) {
	m := &ChatKitMetrics{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "merak_chatkit_requests_total",
			Help: "ChatKit requests by type and status",
		}, []string{"type", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "merak_chatkit_request_duration_seconds",
			Help:    "Time to process ChatKit requests, including streamed responses",
			Buckets: prometheus.DefBuckets,
		}, []string{"type"}),
		threadsStored: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "merak_chatkit_threads",
			Help: "Threads held by the in-memory store",
		}),
		itemsStored: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "merak_chatkit_thread_items",
			Help: "Thread items held by the in-memory store",
		}),
	}
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *ChatKitMetrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{m.requestsTotal, m.requestDuration, m.threadsStored, m.itemsStored}
}

// Describe implements the Collector interface
func (m *ChatKitMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, c := range m.collectors() {
		c.Describe(ch)
	}
}

// Collect implements the Collector interface
func (m *ChatKitMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, c := range m.collectors() {
		c.Collect(ch)
	}
}

// RecordRequest records a processed ChatKit request
func (m *ChatKitMetrics) RecordRequest(requestType, status string, duration float64) {
	m.requestsTotal.WithLabelValues(requestType, status).Inc()
	m.requestDuration.WithLabelValues(requestType).Observe(duration)
}

// SetStoreSize publishes the current store size
func (m *ChatKitMetrics) SetStoreSize(threads, items int) {
	m.threadsStored.Set(float64(threads))
	m.itemsStored.Set(float64(items))
}
