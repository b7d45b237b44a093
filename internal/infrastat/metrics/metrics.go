package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the declaration pipeline.
type Metrics struct {
	// Records accepted into batches during ingestion
	LinesIngested prometheus.Counter

	// Records dropped during ingestion with a skip warning
	LinesSkipped prometheus.Counter

	// Validation runs by outcome ("passed", "failed")
	ValidationOutcome *prometheus.CounterVec

	// Full ingestion latency including validation and persistence
	IngestLatency prometheus.Histogram

	// Submission outcomes by terminal status ("submitted", "failed", "dry_run")
	SubmissionOutcome *prometheus.CounterVec

	// Individual portal upload attempts including retries
	UploadAttempts prometheus.Counter

	// Rolling ratio of failed submissions over the recent window
	SubmissionFailureRatio prometheus.Gauge

	// Full submission latency including retries
	SubmitLatency prometheus.Histogram
}

// New creates a new Metrics instance with all pipeline metrics registered.
func New() *Metrics {
	return &Metrics{
		LinesIngested: promauto.NewCounter(prometheus.CounterOpts{
			Name: "infrastat_lines_ingested_total",
			Help: "Total declaration lines accepted during ingestion",
		}),

		LinesSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "infrastat_lines_skipped_total",
			Help: "Total raw records dropped during ingestion",
		}),

		ValidationOutcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "infrastat_validation_outcomes_total",
			Help: "Total batch validation runs by outcome",
		}, []string{"outcome"}), // outcome: "passed", "failed"

		IngestLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "infrastat_ingest_duration_seconds",
			Help:    "Duration of full ingestion including validation and persistence",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),

		SubmissionOutcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "infrastat_submission_outcomes_total",
			Help: "Total submission attempts by terminal status",
		}, []string{"status"}), // status: "submitted", "failed", "dry_run"

		UploadAttempts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "infrastat_upload_attempts_total",
			Help: "Total portal upload attempts including retries",
		}),

		SubmissionFailureRatio: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "infrastat_submission_failure_ratio",
			Help: "Ratio of failed submissions over the recent window",
		}),

		SubmitLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "infrastat_submit_duration_seconds",
			Help:    "Duration of full submission including retries",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
	}
}

// AddLinesIngested records accepted declaration lines.
func (m *Metrics) AddLinesIngested(n int) {
	if m != nil {
		m.LinesIngested.Add(float64(n))
	}
}

// AddLinesSkipped records dropped raw records.
func (m *Metrics) AddLinesSkipped(n int) {
	if m != nil {
		m.LinesSkipped.Add(float64(n))
	}
}

// IncrementValidation records a validation run outcome.
func (m *Metrics) IncrementValidation(outcome string) {
	if m != nil {
		m.ValidationOutcome.WithLabelValues(outcome).Inc()
	}
}

// ObserveIngestLatency records the total ingestion duration.
func (m *Metrics) ObserveIngestLatency(d time.Duration) {
	if m != nil {
		m.IngestLatency.Observe(d.Seconds())
	}
}

// IncrementSubmission records a terminal submission outcome.
func (m *Metrics) IncrementSubmission(status string) {
	if m != nil {
		m.SubmissionOutcome.WithLabelValues(status).Inc()
	}
}

// IncrementUploadAttempt records a single portal upload attempt.
func (m *Metrics) IncrementUploadAttempt() {
	if m != nil {
		m.UploadAttempts.Inc()
	}
}

// SetFailureRatio updates the rolling submission failure ratio.
func (m *Metrics) SetFailureRatio(ratio float64) {
	if m != nil {
		m.SubmissionFailureRatio.Set(ratio)
	}
}

// ObserveSubmitLatency records the total submission duration.
func (m *Metrics) ObserveSubmitLatency(d time.Duration) {
	if m != nil {
		m.SubmitLatency.Observe(d.Seconds())
	}
}
