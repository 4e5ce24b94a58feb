// Package metrics holds the Prometheus collectors shared by the importer, the ingest
// provider and the HTTP server. A nil *Manager is valid and records nothing.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/claude/crimpy/internal/intensity"
)

type Manager struct {
	// counters
	CounterFiles    *prometheus.CounterVec
	CounterSessions *prometheus.CounterVec
	CounterRequests *prometheus.CounterVec

	// gauges
	GaugeRequests prometheus.Gauge

	// histograms
	HistSessionIntensity *prometheus.HistogramVec
	HistImportDuration   prometheus.Histogram
	HistRequestDuration  *prometheus.HistogramVec
}

func NewTestManager() *Manager {
	return NewManager("crimpy", "test", prometheus.NewRegistry())
}

func NewTestManagerAndRegistry() (*Manager, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	return NewManager("crimpy", "test", reg), reg
}

func NewManager(namespace, subsystem string, reg prometheus.Registerer) *Manager {
	factory := promauto.With(reg)

	return &Manager{
		CounterFiles: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "files_total",
			Help:      "Session files seen by the importer, by outcome",
		}, []string{"outcome"}),
		CounterSessions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "sessions_evaluated_total",
			Help:      "Session records evaluated, by kind (workout, outdoor)",
		}, []string{"kind"}),
		CounterRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "requests_total",
			Help:      "The total number of incoming requests",
		}, []string{"method", "route", "status"}),

		GaugeRequests: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "current_requests",
			Help:      "Current number of requests served",
		}),

		HistSessionIntensity: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "session_intensity",
			Help:      "Per-category intensity of evaluated sessions",
			Buckets:   []float64{0, 0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8},
		}, []string{"category"}),
		HistImportDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "import_duration_seconds",
			Help:      "Duration of a directory import in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		HistRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "request_duration_seconds",
			Help:      "Total duration of requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
}

// FileOutcome counts one importer file by outcome ("processed", "skipped",
// "unchanged", or a loader failure kind).
func (m *Manager) FileOutcome(outcome string) {
	if m == nil {
		return
	}
	m.CounterFiles.WithLabelValues(outcome).Inc()
}

// ObserveSession records an evaluated session's breakdown.
func (m *Manager) ObserveSession(workout, outdoor bool, b intensity.Breakdown) {
	if m == nil {
		return
	}
	if outdoor {
		m.CounterSessions.WithLabelValues("outdoor").Inc()
	}
	if !workout {
		return
	}
	m.CounterSessions.WithLabelValues("workout").Inc()
	m.HistSessionIntensity.WithLabelValues("fingerboard").Observe(b.Fingerboard)
	m.HistSessionIntensity.WithLabelValues("campusboard").Observe(b.Campusboard)
	m.HistSessionIntensity.WithLabelValues("pullup").Observe(b.Pullup)
	m.HistSessionIntensity.WithLabelValues("project").Observe(b.Project)
	m.HistSessionIntensity.WithLabelValues("total").Observe(b.Total())
}

// ObserveImport records the duration of a directory import.
func (m *Manager) ObserveImport(seconds float64) {
	if m == nil {
		return
	}
	m.HistImportDuration.Observe(seconds)
}

// RequestStarted tracks one more in-flight request.
func (m *Manager) RequestStarted() {
	if m == nil {
		return
	}
	m.GaugeRequests.Inc()
}

// RequestFinished records a served request. route is the chi route pattern, so path
// parameters do not blow up the label set.
func (m *Manager) RequestFinished(method, route string, status int, seconds float64) {
	if m == nil {
		return
	}
	m.GaugeRequests.Dec()
	m.CounterRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HistRequestDuration.WithLabelValues(route).Observe(seconds)
}
