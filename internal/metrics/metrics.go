package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics records calls to hosted services and retrieval activity.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	serviceCalls      *prometheus.CounterVec
	serviceDuration   *prometheus.HistogramVec
	retrievalDuration prometheus.Histogram
	indexedDocuments  prometheus.Gauge
	cacheLookups      *prometheus.CounterVec
}

// New creates metrics on a private registry
func New() *Metrics {
	registry := prometheus.NewRegistry()

	serviceCalls := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "edubot",
			Subsystem: "service",
			Name:      "calls_total",
			Help:      "Total calls to hosted services by service and status.",
		},
		[]string{"service", "status"},
	)
	serviceDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "edubot",
			Subsystem: "service",
			Name:      "call_duration_seconds",
			Help:      "Hosted service call duration in seconds, retries included.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"service"},
	)
	retrievalDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "edubot",
			Subsystem: "retrieval",
			Name:      "query_duration_seconds",
			Help:      "Retriever query duration in seconds, query embedding included.",
			Buckets:   prometheus.DefBuckets,
		},
	)
	indexedDocuments := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "edubot",
			Subsystem: "retrieval",
			Name:      "indexed_documents",
			Help:      "Number of documents in the committed index.",
		},
	)
	cacheLookups := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "edubot",
			Subsystem: "retrieval",
			Name:      "embedding_cache_lookups_total",
			Help:      "Passage embedding cache lookups during index builds by result.",
		},
		[]string{"result"},
	)

	registry.MustRegister(serviceCalls, serviceDuration, retrievalDuration, indexedDocuments, cacheLookups)

	return &Metrics{
		registry:          registry,
		serviceCalls:      serviceCalls,
		serviceDuration:   serviceDuration,
		retrievalDuration: retrievalDuration,
		indexedDocuments:  indexedDocuments,
		cacheLookups:      cacheLookups,
	}
}

// Handler exposes the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveServiceCall records one logical call to a hosted service
func (m *Metrics) ObserveServiceCall(service string, duration time.Duration, err error) {
	if m == nil {
		return
	}

	status := "success"
	if err != nil {
		status = "error"
	}

	m.serviceCalls.WithLabelValues(service, status).Inc()
	m.serviceDuration.WithLabelValues(service).Observe(duration.Seconds())
}

// ObserveRetrieval records the duration of one retriever query
func (m *Metrics) ObserveRetrieval(duration time.Duration) {
	if m == nil {
		return
	}
	m.retrievalDuration.Observe(duration.Seconds())
}

// SetIndexedDocuments records the size of the committed index
func (m *Metrics) SetIndexedDocuments(n int) {
	if m == nil {
		return
	}
	m.indexedDocuments.Set(float64(n))
}

// AddCacheLookups records embedding cache hits and misses for one build
func (m *Metrics) AddCacheLookups(hits, misses int) {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues("hit").Add(float64(hits))
	m.cacheLookups.WithLabelValues("miss").Add(float64(misses))
}
