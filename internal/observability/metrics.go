// Package observability exposes Prometheus metrics for fetching, caching
// and the news pipelines.
package observability

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "newsgoat"

// Metrics holds the collectors for one process. All methods are safe on a
// nil receiver so components can run without metrics.
type Metrics struct {
	registry *prometheus.Registry

	cacheRequests   *prometheus.CounterVec
	cacheEvictions  *prometheus.CounterVec
	fetchesTotal    *prometheus.CounterVec
	fetchDuration   *prometheus.HistogramVec
	bytesDownloaded prometheus.Counter
	extractorHits   *prometheus.CounterVec
	articlesTotal   *prometheus.CounterVec
	listingFallback *prometheus.CounterVec
	proxyRotations  prometheus.Counter
	httpRequests    *prometheus.CounterVec

	logger *slog.Logger
}

// NewMetrics creates a Metrics instance on its own registry.
func NewMetrics(logger *slog.Logger) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		cacheRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_requests_total",
			Help:      "Cache lookups by cache and result",
		}, []string{"cache", "result"}),
		cacheEvictions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_evictions_total",
			Help:      "Entries removed from a cache by expiry or capacity",
		}, []string{"cache"}),
		fetchesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetches_total",
			Help:      "Page fetches by fetcher and status class",
		}, []string{"fetcher", "status"}),
		fetchDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Duration of page fetches in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"fetcher"}),
		bytesDownloaded: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_downloaded_total",
			Help:      "Total decoded bytes downloaded",
		}),
		extractorHits: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extractor_strategy_total",
			Help:      "Which cascade strategy produced each extracted field",
		}, []string{"field", "strategy"}),
		articlesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "articles_total",
			Help:      "Article pipeline outcomes",
		}, []string{"outcome"}),
		listingFallback: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "listing_fallback_records_total",
			Help:      "Listing candidates replaced by their lightweight record",
		}, []string{"category"}),
		proxyRotations: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "proxy_rotations_total",
			Help:      "Total proxy rotations",
		}),
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_requests_total",
			Help:      "API requests by route and status code",
		}, []string{"route", "code"}),
		logger: logger.With("component", "metrics"),
	}
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) CacheHit(name string) {
	if m == nil {
		return
	}
	m.cacheRequests.WithLabelValues(name, "hit").Inc()
}

func (m *Metrics) CacheMiss(name string) {
	if m == nil {
		return
	}
	m.cacheRequests.WithLabelValues(name, "miss").Inc()
}

func (m *Metrics) CacheEviction(name string) {
	if m == nil {
		return
	}
	m.cacheEvictions.WithLabelValues(name).Inc()
}

// ObserveFetch records a completed fetch. status is 0 for transport errors.
func (m *Metrics) ObserveFetch(fetcher string, status int, d time.Duration, bytes int) {
	if m == nil {
		return
	}
	m.fetchesTotal.WithLabelValues(fetcher, statusClass(status)).Inc()
	m.fetchDuration.WithLabelValues(fetcher).Observe(d.Seconds())
	if bytes > 0 {
		m.bytesDownloaded.Add(float64(bytes))
	}
}

// ExtractorStrategy records which strategy of a field cascade succeeded.
func (m *Metrics) ExtractorStrategy(field, strategy string) {
	if m == nil {
		return
	}
	m.extractorHits.WithLabelValues(field, strategy).Inc()
}

// ArticleOutcome records one Article Pipeline result: cached, extracted,
// rejected or failed.
func (m *Metrics) ArticleOutcome(outcome string) {
	if m == nil {
		return
	}
	m.articlesTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ListingFallback(category string) {
	if m == nil {
		return
	}
	m.listingFallback.WithLabelValues(category).Inc()
}

func (m *Metrics) ProxyRotation() {
	if m == nil {
		return
	}
	m.proxyRotations.Inc()
}

func (m *Metrics) APIRequest(route string, code int) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
}

func statusClass(code int) string {
	switch {
	case code == 0:
		return "error"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
