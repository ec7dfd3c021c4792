package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "idcheck"

// Metrics provides observability for the verification pipeline.
// Every method is safe to call on a nil *Metrics.
type Metrics struct {
	// Step latencies by step type and outcome
	StepDuration *prometheus.HistogramVec

	// Step failures by step type and error kind
	StepFailures *prometheus.CounterVec

	// Step retries by step type
	StepRetries *prometheus.CounterVec

	// Decisions by decision and matched rule
	Decisions *prometheus.CounterVec

	// Overall risk score distribution
	RiskScore prometheus.Histogram

	// End to end pipeline latency
	PipelineDuration prometheus.Histogram

	// Verifications currently stored per status, refreshed by the Aggregator
	VerificationsByStatus *prometheus.GaugeVec
}

// New registers all verification metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		StepDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "step_duration_seconds",
			Help:      "Duration of verification steps including retries",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15, 30},
		}, []string{"step", "outcome"}),

		StepFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "step_failures_total",
			Help:      "Failed verification steps by error kind",
		}, []string{"step", "kind"}),

		StepRetries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "step_retries_total",
			Help:      "Retried verification step attempts",
		}, []string{"step"}),

		Decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decisions_total",
			Help:      "Verification decisions by outcome and rule",
		}, []string{"decision", "rule"}),

		RiskScore: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "risk_score",
			Help:      "Overall risk score of completed verifications",
			Buckets:   []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1},
		}),

		PipelineDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_duration_seconds",
			Help:      "Duration of the full verification pipeline",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),

		VerificationsByStatus: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "verifications",
			Help:      "Stored verifications by status",
		}, []string{"status"}),
	}
}

// ObserveStep records a finished step.
func (m *Metrics) ObserveStep(step string, success bool, d time.Duration) {
	if m == nil {
		return
	}
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	m.StepDuration.WithLabelValues(step, outcome).Observe(d.Seconds())
}

// IncrementStepFailure records a step error of the given kind.
func (m *Metrics) IncrementStepFailure(step, kind string) {
	if m != nil {
		m.StepFailures.WithLabelValues(step, kind).Inc()
	}
}

// IncrementStepRetry records one retried attempt.
func (m *Metrics) IncrementStepRetry(step string) {
	if m != nil {
		m.StepRetries.WithLabelValues(step).Inc()
	}
}

// ObserveDecision records a decision and the risk score it was based on.
func (m *Metrics) ObserveDecision(decision, rule string, riskScore float64) {
	if m == nil {
		return
	}
	if rule == "" {
		rule = "fallback"
	}
	m.Decisions.WithLabelValues(decision, rule).Inc()
	m.RiskScore.Observe(riskScore)
}

// ObservePipeline records the total pipeline duration.
func (m *Metrics) ObservePipeline(d time.Duration) {
	if m != nil {
		m.PipelineDuration.Observe(d.Seconds())
	}
}

// SetStatusCount sets the stored verification count for a status.
func (m *Metrics) SetStatusCount(status string, count int) {
	if m != nil {
		m.VerificationsByStatus.WithLabelValues(status).Set(float64(count))
	}
}
