// Package metrics holds the Prometheus collectors of the grade watcher.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for fetching, cycles and notifications.
type Metrics struct {
	Registry           *prometheus.Registry
	RequestsTotal      *prometheus.CounterVec
	RequestDuration    prometheus.Histogram
	ErrorsTotal        *prometheus.CounterVec
	CyclesTotal        *prometheus.CounterVec
	GradesExtracted    prometheus.Gauge
	NewGradesTotal     prometheus.Counter
	NotificationsTotal *prometheus.CounterVec
	PersistErrorsTotal *prometheus.CounterVec
	ParseFailureStreak prometheus.Gauge
	PollState          prometheus.Gauge
}

// New constructs and registers all metrics on a dedicated registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gradewatch_requests_total",
			Help: "Total HTTP requests issued for the grades page.",
		},
		[]string{"phase"},
	)
	requestDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gradewatch_request_duration_seconds",
			Help:    "HTTP request latency for the grades page.",
			Buckets: prometheus.DefBuckets,
		},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gradewatch_fetch_errors_total",
			Help: "Total number of fetch errors by type.",
		},
		[]string{"error_type"},
	)
	cycles := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gradewatch_cycles_total",
			Help: "Poll cycles by outcome.",
		},
		[]string{"outcome"},
	)
	extracted := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "gradewatch_grades_extracted",
			Help: "Grade records in the most recent snapshot.",
		},
	)
	newGrades := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gradewatch_new_grades_total",
			Help: "Total number of new grades detected.",
		},
	)
	notifications := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gradewatch_notifications_total",
			Help: "Notifications by result.",
		},
		[]string{"result"},
	)
	persistErrors := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gradewatch_persist_errors_total",
			Help: "Snapshot file errors by operation.",
		},
		[]string{"op"},
	)
	parseStreak := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "gradewatch_parse_failure_streak",
			Help: "Consecutive cycles whose page had no grades table.",
		},
	)
	pollState := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "gradewatch_poll_active",
			Help: "1 while polling inside the active window, 0 while dormant.",
		},
	)

	registry.MustRegister(requests, requestDuration, errorsTotal, cycles, extracted,
		newGrades, notifications, persistErrors, parseStreak, pollState)

	return &Metrics{
		Registry:           registry,
		RequestsTotal:      requests,
		RequestDuration:    requestDuration,
		ErrorsTotal:        errorsTotal,
		CyclesTotal:        cycles,
		GradesExtracted:    extracted,
		NewGradesTotal:     newGrades,
		NotificationsTotal: notifications,
		PersistErrorsTotal: persistErrors,
		ParseFailureStreak: parseStreak,
		PollState:          pollState,
	}
}

// IncRequest increments the requests total counter.
func (m *Metrics) IncRequest(phase string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(phase).Inc()
}

// ObserveDuration records an HTTP request duration.
func (m *Metrics) ObserveDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.Observe(d.Seconds())
}

// IncError increments the fetch errors counter for a type label.
func (m *Metrics) IncError(errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}

// IncCycle counts a finished cycle.
func (m *Metrics) IncCycle(outcome string) {
	if m == nil {
		return
	}
	m.CyclesTotal.WithLabelValues(outcome).Inc()
}

// SetExtracted records the size of the latest snapshot.
func (m *Metrics) SetExtracted(n int) {
	if m == nil {
		return
	}
	m.GradesExtracted.Set(float64(n))
}

// AddNewGrades counts detected grades.
func (m *Metrics) AddNewGrades(n int) {
	if m == nil {
		return
	}
	m.NewGradesTotal.Add(float64(n))
}

// IncNotification counts a notification attempt by result.
func (m *Metrics) IncNotification(result string) {
	if m == nil {
		return
	}
	m.NotificationsTotal.WithLabelValues(result).Inc()
}

// IncPersistError counts a snapshot file failure.
func (m *Metrics) IncPersistError(op string) {
	if m == nil {
		return
	}
	m.PersistErrorsTotal.WithLabelValues(op).Inc()
}

// SetParseFailureStreak records consecutive parse failures.
func (m *Metrics) SetParseFailureStreak(n int) {
	if m == nil {
		return
	}
	m.ParseFailureStreak.Set(float64(n))
}

// SetActive records the poll state.
func (m *Metrics) SetActive(active bool) {
	if m == nil {
		return
	}
	if active {
		m.PollState.Set(1)
		return
	}
	m.PollState.Set(0)
}
