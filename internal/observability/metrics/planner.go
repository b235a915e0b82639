package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Lookup outcomes
const (
	LookupMatched  = "matched"
	LookupNoMatch  = "no_match"
	LookupRejected = "rejected" // no preferences supplied
)

// PlannerMetrics tracks destination lookups and agent runs
type PlannerMetrics struct {
	lookupsTotal     *prometheus.CounterVec
	lookupCacheTotal *prometheus.CounterVec
	agentRunsTotal   *prometheus.CounterVec
	agentRunDuration prometheus.Histogram
	agentTurns       prometheus.Histogram
	toolCallsTotal   *prometheus.CounterVec
	llmRequests      *prometheus.CounterVec
	llmLatency       prometheus.Histogram
}

// NewPlannerMetrics creates and registers planner metrics
func NewPlannerMetrics(registry prometheus.Registerer) (*PlannerMetrics, error) {
	m := &PlannerMetrics{
		lookupsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "merak_destination_lookups_total",
			Help: "Destination lookups by outcome",
		}, []string{"outcome", "city"}),
		lookupCacheTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "merak_destination_lookup_cache_total",
			Help: "Destination lookup cache hits and misses",
		}, []string{"result"}),
		agentRunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "merak_agent_runs_total",
			Help: "Agent runs by agent and status",
		}, []string{"agent", "status"}),
		agentRunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "merak_agent_run_duration_seconds",
			Help:    "Wall time of agent runs including tool calls",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 80},
		}),
		agentTurns: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "merak_agent_run_turns",
			Help:    "Model round trips per agent run",
			Buckets: []float64{1, 2, 3, 4, 6, 8, 10},
		}),
		toolCallsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "merak_agent_tool_calls_total",
			Help: "Tool invocations by tool and status",
		}, []string{"tool", "status"}),
		llmRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "merak_llm_requests_total",
			Help: "HTTP requests to the model provider by host and status code",
		}, []string{"host", "status"}),
		llmLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "merak_llm_request_duration_seconds",
			Help:    "Latency of model provider HTTP requests",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
		}),
	}
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *PlannerMetrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.lookupsTotal, m.lookupCacheTotal,
		m.agentRunsTotal, m.agentRunDuration, m.agentTurns, m.toolCallsTotal,
		m.llmRequests, m.llmLatency,
	}
}

// Describe implements the Collector interface
func (m *PlannerMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, c := range m.collectors() {
		c.Describe(ch)
	}
}

// Collect implements the Collector interface
func (m *PlannerMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, c := range m.collectors() {
		c.Collect(ch)
	}
}

// RecordLookup records a lookup outcome. city is empty unless the lookup matched.
func (m *PlannerMetrics) RecordLookup(outcome, city string) {
	m.lookupsTotal.WithLabelValues(outcome, city).Inc()
}

// RecordLookupCache records a cache hit or miss
func (m *PlannerMetrics) RecordLookupCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.lookupCacheTotal.WithLabelValues(result).Inc()
}

// RecordAgentRun records a finished agent run
func (m *PlannerMetrics) RecordAgentRun(agent, status string, duration float64, turns int) {
	m.agentRunsTotal.WithLabelValues(agent, status).Inc()
	m.agentRunDuration.Observe(duration)
	m.agentTurns.Observe(float64(turns))
}

// RecordToolCall records a tool invocation
func (m *PlannerMetrics) RecordToolCall(tool, status string) {
	m.toolCallsTotal.WithLabelValues(tool, status).Inc()
}

// RecordLLMRequest records one model provider round trip. status is the HTTP
// status code, or "error" when no response arrived.
func (m *PlannerMetrics) RecordLLMRequest(host, status string, duration float64) {
	m.llmRequests.WithLabelValues(host, status).Inc()
	m.llmLatency.Observe(duration)
}
