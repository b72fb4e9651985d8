package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for assessments. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	// Assessment outcomes by status and risk level
	Outcomes *prometheus.CounterVec

	// Rejected submissions by reason: "validation", "scoring", "store"
	Failures *prometheus.CounterVec

	// Scoring model latency
	ScoringLatency prometheus.Histogram

	// Rows written by CSV exports
	ExportedRows prometheus.Counter
}

// New creates the metrics and registers them with reg
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Outcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "loan_assessment_outcomes_total",
			Help: "Total persisted assessments by loan status and risk level",
		}, []string{"status", "risk"}),

		Failures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "loan_assessment_failures_total",
			Help: "Total rejected assessment submissions by reason",
		}, []string{"reason"}),

		ScoringLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "loan_assessment_scoring_duration_seconds",
			Help:    "Duration of scoring model calls",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),

		ExportedRows: factory.NewCounter(prometheus.CounterOpts{
			Name: "loan_assessment_exported_rows_total",
			Help: "Total data rows written by CSV exports",
		}),
	}
}

// IncrementOutcome records a persisted assessment
func (m *Metrics) IncrementOutcome(status, risk string) {
	if m != nil {
		m.Outcomes.WithLabelValues(status, risk).Inc()
	}
}

// IncrementFailure records a rejected submission
func (m *Metrics) IncrementFailure(reason string) {
	if m != nil {
		m.Failures.WithLabelValues(reason).Inc()
	}
}

// ObserveScoringLatency records the duration of one scoring call
func (m *Metrics) ObserveScoringLatency(d time.Duration) {
	if m != nil {
		m.ScoringLatency.Observe(d.Seconds())
	}
}

// AddExportedRows records rows written by an export
func (m *Metrics) AddExportedRows(n int) {
	if m != nil {
		m.ExportedRows.Add(float64(n))
	}
}
