package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels for SubmissionOutcome
const (
	OutcomeCreated          = "created"
	OutcomeDryRun           = "dry_run"
	OutcomeValidationFailed = "validation_failed"
	OutcomePublishFailed    = "publish_failed"
	OutcomeError            = "error"
)

// Metrics provides observability for the submission pipeline.
type Metrics struct {
	// Submission outcomes by outcome and kind ("pull_request" or "issue")
	SubmissionOutcome *prometheus.CounterVec

	// Publisher step failures by step name
	StepFailures *prometheus.CounterVec

	// End-to-end submission latency
	SubmissionLatency prometheus.Histogram

	gatherer prometheus.Gatherer
}

// New creates a Metrics instance registered with reg. A nil reg uses a fresh
// private registry.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Metrics{
		SubmissionOutcome: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "formbridge_submissions_total",
			Help: "Total form submissions by outcome and kind",
		}, []string{"outcome", "kind"}),

		StepFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "formbridge_publish_step_failures_total",
			Help: "Total publisher failures by the step that failed",
		}, []string{"step"}),

		SubmissionLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "formbridge_submission_duration_seconds",
			Help:    "Duration of full submission handling including GitHub calls",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),

		gatherer: reg,
	}
}

// IncrementOutcome records a submission outcome.
func (m *Metrics) IncrementOutcome(outcome, kind string) {
	if m != nil {
		m.SubmissionOutcome.WithLabelValues(outcome, kind).Inc()
	}
}

// IncrementStepFailure records a failed publisher step.
func (m *Metrics) IncrementStepFailure(step string) {
	if m != nil {
		m.StepFailures.WithLabelValues(step).Inc()
	}
}

// ObserveSubmissionLatency records the total duration of one submission.
func (m *Metrics) ObserveSubmissionLatency(d time.Duration) {
	if m != nil {
		m.SubmissionLatency.Observe(d.Seconds())
	}
}

// Handler serves the registered metrics in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
