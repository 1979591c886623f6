package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the citegraph service.
// Metrics are organized by subsystem: upstream requests, cache, graph
// assembly, search, and the HTTP API. All collectors are registered via
// promauto with the default Prometheus registry.
//
// Every Record method is safe to call on a nil *Metrics, which lets
// components run without instrumentation in tests and the CLI.
type Metrics struct {
	// UpstreamRequests counts OpenAlex calls, labeled by endpoint and outcome.
	UpstreamRequests *prometheus.CounterVec

	// UpstreamDuration observes OpenAlex call duration in seconds, labeled by endpoint.
	UpstreamDuration *prometheus.HistogramVec

	// UpstreamRateLimited counts calls that ended rate limited after retries.
	UpstreamRateLimited prometheus.Counter

	// CacheHits counts cache hits, labeled by key namespace ("paper", "search").
	CacheHits *prometheus.CounterVec

	// CacheMisses counts cache misses, labeled by key namespace.
	CacheMisses *prometheus.CounterVec

	// CacheErrors counts cache backend failures, labeled by operation.
	CacheErrors *prometheus.CounterVec

	// GraphsAssembled counts completed graph assemblies.
	GraphsAssembled prometheus.Counter

	// GraphDuration observes end-to-end graph assembly duration in seconds.
	GraphDuration prometheus.Histogram

	// GraphReferences observes the number of references attached per graph.
	GraphReferences prometheus.Histogram

	// GraphCitations observes the number of citations attached per graph.
	GraphCitations prometheus.Histogram

	// ReferenceBatchesFailed counts reference batches that were skipped.
	ReferenceBatchesFailed prometheus.Counter

	// CitationPagesFetched counts citation pages fetched, labeled by outcome.
	CitationPagesFetched *prometheus.CounterVec

	// CitationCapReached counts assemblies that stopped paging because of the upstream cap.
	CitationCapReached prometheus.Counter

	// SearchesTotal counts search requests, labeled by status ("ok", "failed").
	SearchesTotal *prometheus.CounterVec

	// HTTPRequests counts API requests, labeled by route and status code.
	HTTPRequests *prometheus.CounterVec

	// HTTPDuration observes API request duration in seconds, labeled by route.
	HTTPDuration *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
// The namespace is used as a prefix for all metric names.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		// Upstream
		UpstreamRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Total number of OpenAlex requests by endpoint and outcome",
		}, []string{"endpoint", "outcome"}),
		UpstreamDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_request_duration_seconds",
			Help:      "Duration of OpenAlex requests in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"endpoint"}),
		UpstreamRateLimited: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_rate_limited_total",
			Help:      "Total number of OpenAlex requests that stayed rate limited after retries",
		}),

		// Cache
		CacheHits: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Total number of cache hits by key namespace",
		}, []string{"namespace"}),
		CacheMisses: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Total number of cache misses by key namespace",
		}, []string{"namespace"}),
		CacheErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_errors_total",
			Help:      "Total number of cache backend errors by operation",
		}, []string{"operation"}),

		// Graph assembly
		GraphsAssembled: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "graphs_assembled_total",
			Help:      "Total number of citation graphs assembled",
		}),
		GraphDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "graph_assembly_duration_seconds",
			Help:      "Duration of citation graph assembly in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}),
		GraphReferences: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "graph_references",
			Help:      "Number of references attached per assembled graph",
			Buckets:   []float64{0, 5, 10, 25, 50, 100, 250, 500, 1000},
		}),
		GraphCitations: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "graph_citations",
			Help:      "Number of citations attached per assembled graph",
			Buckets:   []float64{0, 10, 50, 100, 500, 1000, 2500, 5000, 10000},
		}),
		ReferenceBatchesFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reference_batches_failed_total",
			Help:      "Total number of reference batches skipped after a failed lookup",
		}),
		CitationPagesFetched: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "citation_pages_fetched_total",
			Help:      "Total number of citation pages fetched by outcome",
		}, []string{"outcome"}),
		CitationCapReached: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "citation_cap_reached_total",
			Help:      "Total number of graph assemblies stopped by the upstream retrieval cap",
		}),

		// Search
		SearchesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_total",
			Help:      "Total number of searches by status",
		}, []string{"status"}),

		// HTTP API
		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of API requests by route and status code",
		}, []string{"route", "status"}),
		HTTPDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of API requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
}

// RecordUpstreamRequest records a completed OpenAlex call.
func (m *Metrics) RecordUpstreamRequest(endpoint, outcome string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.UpstreamRequests.WithLabelValues(endpoint, outcome).Inc()
	m.UpstreamDuration.WithLabelValues(endpoint).Observe(durationSeconds)
	if outcome == "rate_limited" {
		m.UpstreamRateLimited.Inc()
	}
}

// RecordCacheHit records a cache hit in the given key namespace.
func (m *Metrics) RecordCacheHit(namespace string) {
	if m == nil {
		return
	}
	m.CacheHits.WithLabelValues(namespace).Inc()
}

// RecordCacheMiss records a cache miss in the given key namespace.
func (m *Metrics) RecordCacheMiss(namespace string) {
	if m == nil {
		return
	}
	m.CacheMisses.WithLabelValues(namespace).Inc()
}

// RecordCacheError records a cache backend failure for an operation ("get", "set", "decode").
func (m *Metrics) RecordCacheError(operation string) {
	if m == nil {
		return
	}
	m.CacheErrors.WithLabelValues(operation).Inc()
}

// RecordGraphAssembled records a finished graph assembly.
func (m *Metrics) RecordGraphAssembled(references, citations int, durationSeconds float64) {
	if m == nil {
		return
	}
	m.GraphsAssembled.Inc()
	m.GraphDuration.Observe(durationSeconds)
	m.GraphReferences.Observe(float64(references))
	m.GraphCitations.Observe(float64(citations))
}

// RecordReferenceBatchFailed records a skipped reference batch.
func (m *Metrics) RecordReferenceBatchFailed() {
	if m == nil {
		return
	}
	m.ReferenceBatchesFailed.Inc()
}

// RecordCitationPage records a fetched citation page.
func (m *Metrics) RecordCitationPage(outcome string) {
	if m == nil {
		return
	}
	m.CitationPagesFetched.WithLabelValues(outcome).Inc()
}

// RecordCitationCapReached records that citation paging hit the upstream cap.
func (m *Metrics) RecordCitationCapReached() {
	if m == nil {
		return
	}
	m.CitationCapReached.Inc()
}

// RecordSearch records a search request outcome.
func (m *Metrics) RecordSearch(status string) {
	if m == nil {
		return
	}
	m.SearchesTotal.WithLabelValues(status).Inc()
}

// RecordHTTPRequest records a served API request.
func (m *Metrics) RecordHTTPRequest(route, status string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, status).Inc()
	m.HTTPDuration.WithLabelValues(route).Observe(durationSeconds)
}
