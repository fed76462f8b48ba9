// Package metrics exposes Prometheus collectors for the loader, caches,
// fetches and resolve runs.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/quantmind-br/whyml-go/internal/cache"
)

const namespace = "whyml"

// Metrics contains Prometheus metrics for the resolver pipeline. It
// implements cache.Observer, manifest.LoadObserver and fetcher.FetchObserver.
type Metrics struct {
	// Document cache
	cacheEvents    *prometheus.CounterVec
	cacheEvictions *prometheus.CounterVec

	// Loads
	loads        *prometheus.CounterVec
	loadDuration *prometheus.HistogramVec

	// Remote fetch attempts
	fetches       *prometheus.CounterVec
	fetchDuration prometheus.Histogram

	// Resolve runs
	resolves        *prometheus.CounterVec
	resolveDuration prometheus.Histogram
	documents       prometheus.Histogram
}

// New creates Metrics registered on reg. A nil reg creates unregistered
// collectors.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		cacheEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_requests_total",
				Help:      "Document cache lookups by result",
			},
			[]string{"result"},
		),

		cacheEvictions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_evictions_total",
				Help:      "Document cache entries removed by reason",
			},
			[]string{"reason"},
		),

		loads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "loads_total",
				Help:      "Manifest loads by outcome",
			},
			[]string{"outcome"},
		),

		loadDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "load_duration_seconds",
				Help:      "Time callers waited for a manifest",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10), // 100µs to 26s
			},
			[]string{"outcome"},
		),

		fetches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fetch_requests_total",
				Help:      "Remote fetch attempts by HTTP status code",
			},
			[]string{"code"},
		),

		fetchDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "fetch_duration_seconds",
				Help:      "Duration of remote fetch attempts",
				Buckets:   prometheus.DefBuckets,
			},
		),

		resolves: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "resolves_total",
				Help:      "Resolve runs by outcome",
			},
			[]string{"outcome"},
		),

		resolveDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "resolve_duration_seconds",
				Help:      "Duration of full resolve runs",
				Buckets:   prometheus.DefBuckets,
			},
		),

		documents: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "resolve_documents",
				Help:      "Documents in the dependency graph of a resolve run",
				Buckets:   prometheus.ExponentialBuckets(1, 2, 8),
			},
		),
	}
}

// OnHit records a document cache hit
func (m *Metrics) OnHit() {
	m.cacheEvents.WithLabelValues("hit").Inc()
}

// OnMiss records a document cache miss
func (m *Metrics) OnMiss() {
	m.cacheEvents.WithLabelValues("miss").Inc()
}

// OnEvict records a removed cache entry
func (m *Metrics) OnEvict(reason cache.EvictReason) {
	m.cacheEvictions.WithLabelValues(string(reason)).Inc()
}

// ObserveLoad records one loader call
func (m *Metrics) ObserveLoad(outcome string, elapsed time.Duration) {
	m.loads.WithLabelValues(outcome).Inc()
	m.loadDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// ObserveFetch records one HTTP attempt; status 0 means no response
func (m *Metrics) ObserveFetch(statusCode int, elapsed time.Duration) {
	code := "error"
	if statusCode > 0 {
		code = strconv.Itoa(statusCode)
	}
	m.fetches.WithLabelValues(code).Inc()
	m.fetchDuration.Observe(elapsed.Seconds())
}

// ObserveResolve records one resolve run. kind is the error kind, or empty on
// success.
func (m *Metrics) ObserveResolve(kind string, documents int, elapsed time.Duration) {
	outcome := "success"
	if kind != "" {
		outcome = kind
	}
	m.resolves.WithLabelValues(outcome).Inc()
	m.resolveDuration.Observe(elapsed.Seconds())
	if documents > 0 {
		m.documents.Observe(float64(documents))
	}
}
