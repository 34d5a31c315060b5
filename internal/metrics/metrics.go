// Package metrics defines the Prometheus collectors for retrieval and
// knowledge-base mutations.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Query paths recorded by the orchestrator.
const (
	PathStandard         = "standard"
	PathRelaxed          = "relaxed"
	PathCriteria         = "criteria"
	PathCriteriaFallback = "criteria_fallback"
	PathEmpty            = "empty"
	PathError            = "error"
)

// Metrics groups the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	Queries             *prometheus.CounterVec
	QueryDuration       prometheus.Histogram
	Mutations           *prometheus.CounterVec
	PersistenceFailures prometheus.Counter
	Chunks              prometheus.Gauge
	Documents           prometheus.Gauge
	ChatRequests        *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Queries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crerag_queries_total",
				Help: "Retrieval queries by the path that produced the result",
			},
			[]string{"path"},
		),
		QueryDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "crerag_query_duration_seconds",
				Help:    "Time spent ranking a retrieval query",
				Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14), // 0.5ms to ~4s
			},
		),
		Mutations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crerag_mutations_total",
				Help: "Knowledge base mutations by operation and result",
			},
			[]string{"op", "result"},
		),
		PersistenceFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "crerag_persistence_failures_total",
				Help: "Artifact saves that failed after a mutation",
			},
		),
		Chunks: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "crerag_chunks",
				Help: "Chunks currently indexed",
			},
		),
		Documents: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "crerag_documents",
				Help: "Documents currently tracked",
			},
		),
		ChatRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crerag_chat_requests_total",
				Help: "Chat requests by response tag",
			},
			[]string{"tag"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.Queries, m.QueryDuration, m.Mutations, m.PersistenceFailures, m.Chunks, m.Documents, m.ChatRequests)
	}
	return m
}

// ObserveQuery records one query outcome.
func (m *Metrics) ObserveQuery(path string, seconds float64) {
	if m == nil {
		return
	}
	m.Queries.WithLabelValues(path).Inc()
	m.QueryDuration.Observe(seconds)
}

// ObserveMutation records one mutation outcome.
func (m *Metrics) ObserveMutation(op string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.Mutations.WithLabelValues(op, result).Inc()
}

// PersistenceFailed counts a failed save.
func (m *Metrics) PersistenceFailed() {
	if m == nil {
		return
	}
	m.PersistenceFailures.Inc()
}

// SetSize updates the chunk and document gauges.
func (m *Metrics) SetSize(chunks, documents int) {
	if m == nil {
		return
	}
	m.Chunks.Set(float64(chunks))
	m.Documents.Set(float64(documents))
}

// ObserveChat counts a chat exchange by tag.
func (m *Metrics) ObserveChat(tag string) {
	if m == nil {
		return
	}
	m.ChatRequests.WithLabelValues(tag).Inc()
}
