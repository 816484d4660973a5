package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments for redaction and classification.
type Metrics struct {
	// RedactionsTotal counts redaction runs by origin (cli, api, watch).
	RedactionsTotal *prometheus.CounterVec
	// MatchesTotal counts selected matches by top-level category, e.g. "(1)".
	MatchesTotal *prometheus.CounterVec
	// RedactDuration observes engine time per document.
	RedactDuration prometheus.Histogram
	// ClassifyErrorsTotal counts classifier failures.
	ClassifyErrorsTotal prometheus.Counter
	// InventoryCacheHits counts inventories served from the local cache.
	InventoryCacheHits prometheus.Counter
	// InventoryCacheMisses counts inventories fetched from the classifier.
	InventoryCacheMisses prometheus.Counter

	registry *prometheus.Registry
}

// NewMetrics creates metrics on a fresh registry that also carries the Go
// runtime and process collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewMetricsWithRegistry(reg)
}

// NewMetricsWithRegistry creates metrics registered on reg, for testing.
func NewMetricsWithRegistry(reg *prometheus.Registry) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RedactionsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "silencio_redactions_total",
			Help: "Total number of documents redacted",
		}, []string{"origin"}),

		MatchesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "silencio_matches_total",
			Help: "Total number of spans replaced by a tag, by top-level category",
		}, []string{"category"}),

		RedactDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "silencio_redact_duration_seconds",
			Help:    "Time spent building the index, scanning and rewriting one document",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		}),

		ClassifyErrorsTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "silencio_classify_errors_total",
			Help: "Total number of failed classifier calls",
		}),

		InventoryCacheHits: f.NewCounter(prometheus.CounterOpts{
			Name: "silencio_inventory_cache_hits_total",
			Help: "Inventories served from the local cache",
		}),

		InventoryCacheMisses: f.NewCounter(prometheus.CounterOpts{
			Name: "silencio_inventory_cache_misses_total",
			Help: "Inventories that required a classifier call",
		}),

		registry: reg,
	}
}

// Gatherer exposes the registry for /metrics.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// RecordMatches increments the per-category match counter.
func (m *Metrics) RecordMatches(codes []string) {
	for _, c := range codes {
		m.MatchesTotal.WithLabelValues(topCategory(c)).Inc()
	}
}

// topCategory reduces "(3)(A)(b)" to "(3)". Malformed codes land in "other".
func topCategory(code string) string {
	if len(code) >= 3 && code[0] == '(' && code[2] == ')' {
		return code[:3]
	}
	return "other"
}
