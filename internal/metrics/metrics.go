package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "commit_collector"

// Metrics holds the collection counters. A nil *Metrics is valid and records nothing,
// so components can be built without a registry in tests.
type Metrics struct {
	registry *prometheus.Registry

	commitsCollected prometheus.Counter
	windows          *prometheus.CounterVec
	windowsSkipped   prometheus.Counter
	detailFailures   prometheus.Counter
	runDuration      prometheus.Histogram
	rateRemaining    prometheus.Gauge
}

// New registers the collection metrics on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		commitsCollected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commits_collected_total",
			Help:      "New commits collected. Per-repository counts live in the collection log.",
		}),
		windows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "windows_total",
			Help:      "Month windows attempted, by resulting ledger status.",
		}, []string{"status"}),
		windowsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "windows_skipped_total",
			Help:      "Month windows skipped because they were already completed.",
		}),
		detailFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "detail_failures_total",
			Help:      "Commit detail fetches that failed and were left unenriched.",
		}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of collection runs.",
			Buckets:   []float64{1, 5, 15, 60, 300, 900, 1800, 3600},
		}),
		rateRemaining: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rate_limit_remaining",
			Help:      "Last observed remaining core API quota.",
		}),
	}

	registry.MustRegister(
		m.commitsCollected,
		m.windows,
		m.windowsSkipped,
		m.detailFailures,
		m.runDuration,
		m.rateRemaining,
	)
	return m
}

// Handler serves the /metrics scrape endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.HandlerFor(prometheus.NewRegistry(), promhttp.HandlerOpts{})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) AddCommits(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.commitsCollected.Add(float64(n))
}

func (m *Metrics) ObserveWindow(status string) {
	if m == nil {
		return
	}
	m.windows.WithLabelValues(status).Inc()
}

func (m *Metrics) WindowSkipped() {
	if m == nil {
		return
	}
	m.windowsSkipped.Inc()
}

func (m *Metrics) DetailFailed() {
	if m == nil {
		return
	}
	m.detailFailures.Inc()
}

func (m *Metrics) ObserveRun(d time.Duration) {
	if m == nil {
		return
	}
	m.runDuration.Observe(d.Seconds())
}

func (m *Metrics) SetRateRemaining(remaining int) {
	if m == nil {
		return
	}
	m.rateRemaining.Set(float64(remaining))
}
