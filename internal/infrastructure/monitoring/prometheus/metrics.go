// Package prometheus exposes the service metrics.
package prometheus

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the fit service instrumentation.
type Metrics struct {
	registry *prometheus.Registry

	FitRunsTotal   *prometheus.CounterVec
	FitRunDuration prometheus.Histogram
	FitSweepsTotal prometheus.Counter
	RunsInFlight   prometheus.Gauge
	HTTPRequests   *prometheus.CounterVec
	HTTPDuration   *prometheus.HistogramVec
	CacheHitsTotal prometheus.Counter
	CacheMissTotal prometheus.Counter
}

var fitDurationBuckets = []float64{1, 5, 15, 60, 300, 900, 3600}

// New registers all metrics on a fresh registry, alongside the standard Go
// and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{registry: reg}
	m.FitRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "forgeff",
		Name:      "fit_runs_total",
		Help:      "Completed fit runs by outcome.",
	}, []string{"status"})
	m.FitRunDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "forgeff",
		Name:      "fit_run_duration_seconds",
		Help:      "Wall time of completed fit runs.",
		Buckets:   fitDurationBuckets,
	})
	m.FitSweepsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "forgeff",
		Name:      "fit_sweeps_total",
		Help:      "Descent sweeps performed across all runs.",
	})
	m.RunsInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "forgeff",
		Name:      "fit_runs_in_flight",
		Help:      "Fit runs currently executing.",
	})
	m.HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "forgeff",
		Name:      "http_requests_total",
		Help:      "HTTP requests by method, path and status.",
	}, []string{"method", "path", "status"})
	m.HTTPDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "forgeff",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path"})
	m.CacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "forgeff",
		Name:      "label_cache_hits_total",
		Help:      "Label cache hits.",
	})
	m.CacheMissTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "forgeff",
		Name:      "label_cache_misses_total",
		Help:      "Label cache misses.",
	})

	reg.MustRegister(
		m.FitRunsTotal, m.FitRunDuration, m.FitSweepsTotal, m.RunsInFlight,
		m.HTTPRequests, m.HTTPDuration, m.CacheHitsTotal, m.CacheMissTotal,
	)
	return m
}

// ObserveRun records one finished run.
func (m *Metrics) ObserveRun(status string, d time.Duration, sweeps int) {
	m.FitRunsTotal.WithLabelValues(status).Inc()
	m.FitRunDuration.Observe(d.Seconds())
	m.FitSweepsTotal.Add(float64(sweeps))
}

// LabelCacheHit counts one label cache hit.
func (m *Metrics) LabelCacheHit() { m.CacheHitsTotal.Inc() }

// LabelCacheMiss counts one label cache miss.
func (m *Metrics) LabelCacheMiss() { m.CacheMissTotal.Inc() }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
