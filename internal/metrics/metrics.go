// Package metrics exposes Prometheus collectors for the BinBuddy service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec
	catalogRequestsTotal       *prometheus.CounterVec
	catalogDurationSeconds     *prometheus.HistogramVec
	lookupSourceTotal          *prometheus.CounterVec
	batchJobsTotal             *prometheus.CounterVec
	activeWorkers              prometheus.Gauge
	rateLimitDelaySeconds      *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)

		catalogRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "binbuddy_catalog_requests_total",
				Help: "OpenFoodFacts requests, labeled by endpoint and outcome kind.",
			},
			[]string{"endpoint", "outcome"},
		)

		catalogDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "binbuddy_catalog_request_duration_seconds",
				Help:    "OpenFoodFacts request latency, labeled by endpoint.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"endpoint"},
		)

		lookupSourceTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "binbuddy_lookup_source_total",
				Help: "Product lookups by the layer that answered (memory, store, remote, offline).",
			},
			[]string{"source"},
		)

		batchJobsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "binbuddy_batch_jobs_total",
				Help: "Batch scan jobs processed, labeled by status.",
			},
			[]string{"status"},
		)

		activeWorkers = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "binbuddy_active_workers",
				Help: "Number of workers currently processing a batch scan.",
			},
		)

		rateLimitDelaySeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "binbuddy_rate_limit_delay_seconds",
				Help:    "Time spent waiting for catalog rate limit tokens.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"endpoint"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveCatalogRequest records one OpenFoodFacts call. outcome is "ok" or an
// error kind.
func ObserveCatalogRequest(endpoint, outcome string, duration time.Duration) {
	Init()
	catalogRequestsTotal.WithLabelValues(endpoint, outcome).Inc()
	catalogDurationSeconds.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// ObserveLookupSource counts which layer answered a product lookup.
func ObserveLookupSource(source string) {
	Init()
	lookupSourceTotal.WithLabelValues(source).Inc()
}

// ObserveBatchJob increments the batch job counter for the given status.
func ObserveBatchJob(status string) {
	Init()
	batchJobsTotal.WithLabelValues(status).Inc()
}

// IncActiveWorkers increments the active workers gauge.
func IncActiveWorkers() {
	Init()
	activeWorkers.Inc()
}

// DecActiveWorkers decrements the active workers gauge.
func DecActiveWorkers() {
	Init()
	activeWorkers.Dec()
}

// ObserveRateLimitDelay records the duration of a rate limit wait.
func ObserveRateLimitDelay(endpoint string, duration time.Duration) {
	Init()
	rateLimitDelaySeconds.WithLabelValues(endpoint).Observe(duration.Seconds())
}
