// Package workflow runs a verification request through the pipeline: the
// three analyses concurrently, then risk assessment, then the decision.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/saturnino-fabrica-de-software/idcheck/internal/audit"
	"github.com/saturnino-fabrica-de-software/idcheck/internal/authenticity"
	"github.com/saturnino-fabrica-de-software/idcheck/internal/decision"
	"github.com/saturnino-fabrica-de-software/idcheck/internal/domain"
	"github.com/saturnino-fabrica-de-software/idcheck/internal/metrics"
	"github.com/saturnino-fabrica-de-software/idcheck/internal/provider"
	"github.com/saturnino-fabrica-de-software/idcheck/internal/risk"
	"github.com/saturnino-fabrica-de-software/idcheck/internal/validation"
)

const (
	defaultFaceMatchThreshold = 0.8

	// rulePipelineFailure labels decisions produced without the rule chain.
	rulePipelineFailure = "pipeline_failure"
)

var errMissingRequest = errors.New("verification request is missing")

// FieldExtractor reads structured fields from a document image.
type FieldExtractor interface {
	ExtractFields(ctx context.Context, image []byte, docType domain.DocumentType) (*domain.OCRResult, error)
}

// Orchestrator owns no per-request state and may serve concurrent requests.
type Orchestrator struct {
	vision     provider.VisionProvider
	extractor  FieldExtractor
	scorer     *authenticity.Scorer
	validator  *validation.FieldValidator
	aggregator *risk.Aggregator
	engine     *decision.Engine

	steps              map[domain.StepType]domain.VerificationStep
	faceMatchThreshold float64
	backoffBase        time.Duration
	backoffMax         time.Duration

	metrics *metrics.Metrics
	audit   audit.Logger
	logger  *slog.Logger
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithSteps overrides step definitions by type. Types not given keep their defaults.
func WithSteps(steps ...domain.VerificationStep) Option {
	return func(o *Orchestrator) {
		for _, s := range steps {
			o.steps[s.Type] = s
		}
	}
}

func WithScorer(s *authenticity.Scorer) Option {
	return func(o *Orchestrator) { o.scorer = s }
}

func WithValidator(v *validation.FieldValidator) Option {
	return func(o *Orchestrator) { o.validator = v }
}

func WithAggregator(a *risk.Aggregator) Option {
	return func(o *Orchestrator) { o.aggregator = a }
}

func WithEngine(e *decision.Engine) Option {
	return func(o *Orchestrator) { o.engine = e }
}

// WithFaceMatchThreshold sets the minimum similarity for a facial match
func WithFaceMatchThreshold(threshold float64) Option {
	return func(o *Orchestrator) { o.faceMatchThreshold = threshold }
}

// WithBackoff sets the first retry delay and its cap
func WithBackoff(base, limit time.Duration) Option {
	return func(o *Orchestrator) {
		o.backoffBase = base
		o.backoffMax = limit
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

func WithAuditLogger(l audit.Logger) Option {
	return func(o *Orchestrator) { o.audit = l }
}

func New(vision provider.VisionProvider, extractor FieldExtractor, logger *slog.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		vision:             vision,
		extractor:          extractor,
		scorer:             authenticity.NewScorer(),
		validator:          validation.NewFieldValidator(),
		aggregator:         risk.NewAggregator(),
		engine:             decision.NewEngine(),
		steps:              indexSteps(DefaultSteps(DefaultStepTimeout, DefaultRetryCount)),
		faceMatchThreshold: defaultFaceMatchThreshold,
		backoffBase:        defaultBackoffBase,
		backoffMax:         defaultBackoffMax,
		logger:             logger.With("component", "workflow"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// RunVerification runs the full pipeline and never fails: step errors become
// failed step results, a failed risk assessment rejects the verification and
// a failed decision flags it for review. The verification ID is taken from
// ctx (see audit.WithVerificationID) or generated.
func (o *Orchestrator) RunVerification(ctx context.Context, req *domain.VerificationRequest, history *domain.UserHistory) (result *domain.VerificationResult) {
	start := time.Now()

	id := audit.VerificationIDFromContext(ctx)
	if id == uuid.Nil {
		id = uuid.New()
		ctx = audit.WithVerificationID(ctx, id)
	}

	var steps []domain.StepResult
	defer func() {
		if r := recover(); r != nil {
			result = o.fail(ctx, id, start, steps, domain.NewAggregationFailure("verification pipeline panicked", fmt.Errorf("panic: %v", r)))
		}
		o.metrics.ObservePipeline(time.Since(start))
	}()

	if req == nil {
		return o.fail(ctx, id, start, nil, domain.NewAggregationFailure("cannot assess risk", errMissingRequest))
	}

	o.logger.InfoContext(ctx, "verification running",
		slog.String("verification_id", id.String()),
		slog.String("document_type", string(req.DocumentType)),
		slog.String("user_type", string(req.UserType)),
	)

	steps = o.runAnalyses(ctx, req)

	in, err := collectInputs(steps, history)
	if err != nil {
		return o.fail(ctx, id, start, steps, domain.NewAggregationFailure("cannot assess risk", err))
	}

	riskResult := o.runStep(ctx, o.steps[domain.StepRiskAssessment], o.riskAssessment(in))
	steps = append(steps, riskResult)

	assessment, ok := riskResult.Payload.(*domain.RiskAssessment)
	if !ok {
		var cause error = errors.New("risk assessment produced no result")
		if riskResult.Error != nil {
			cause = riskResult.Error
		}
		return o.fail(ctx, id, start, steps, domain.NewAggregationFailure("risk assessment unavailable", cause))
	}

	d, err := o.engine.Decide(decision.Input{Steps: steps, Assessment: assessment})
	if err != nil {
		o.logger.ErrorContext(ctx, "decision failed, flagging for review",
			slog.String("verification_id", id.String()),
			slog.String("error", err.Error()),
		)
		o.metrics.IncrementStepFailure("decision", string(domain.KindDecisionFailure))
		o.logAudit(ctx, audit.EventVerificationFailed, false, err, map[string]string{
			"kind": string(domain.KindDecisionFailure),
		})
		d = decision.Fallback(err)
	}
	o.metrics.ObserveDecision(string(d.Decision), d.Rule, assessment.OverallRisk)

	result = &domain.VerificationResult{
		VerificationID: id,
		Success:        true,
		RiskScore:      assessment.OverallRisk,
		Status:         d.Decision.Status(),
		Message:        strings.Join(d.Reasoning, "; "),
		Decision:       d,
		Assessment:     assessment,
		Steps:          steps,
		ProcessingTime: domain.MillisecondsSince(start),
	}
	if in.Authenticity != nil {
		result.AuthenticityScore = in.Authenticity.Confidence
	}
	if in.OCR != nil {
		result.DataValidationScore = in.OCR.Validation.Score
	}
	if in.Facial != nil {
		result.FacialMatchScore = in.Facial.Confidence / 100
	}

	o.logger.InfoContext(ctx, "verification decided",
		slog.String("verification_id", id.String()),
		slog.String("decision", string(d.Decision)),
		slog.String("rule", d.Rule),
		slog.Float64("risk_score", assessment.OverallRisk),
		slog.String("risk_level", string(assessment.RiskLevel)),
		slog.Duration("duration", result.ProcessingTime.Duration()),
	)

	return result
}

// runAnalyses launches the independent analyses concurrently. Each writes
// only its own slot and a failure in one never cancels the others.
func (o *Orchestrator) runAnalyses(ctx context.Context, req *domain.VerificationRequest) []domain.StepResult {
	funcs := map[domain.StepType]stepFunc{
		domain.StepDocumentAuthenticity: o.documentAuthenticity(req),
		domain.StepOCRExtraction:        o.ocrExtraction(req),
		domain.StepFacialRecognition:    o.facialRecognition(req),
	}

	results := make([]domain.StepResult, len(analysisSteps))
	var g errgroup.Group

	for i, t := range analysisSteps {
		step := o.steps[t]
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					results[i] = domain.StepResult{
						StepID:    step.ID,
						Type:      step.Type,
						Required:  step.Required,
						Error:     panicFailure(r),
						Timestamp: time.Now().UTC(),
					}
				}
			}()
			results[i] = o.runStep(ctx, step, funcs[t])
			return nil
		})
	}

	_ = g.Wait()
	return results
}

// collectInputs pattern-matches the analysis payloads. Missing payloads are
// scored as unavailable by the aggregator; a missing step result is an error.
func collectInputs(steps []domain.StepResult, history *domain.UserHistory) (risk.Inputs, error) {
	in := risk.Inputs{History: history}
	seen := make(map[domain.StepType]bool, len(steps))

	for _, s := range steps {
		seen[s.Type] = true
		switch p := s.Payload.(type) {
		case *domain.DocumentAuthenticityResult:
			in.Authenticity = p
		case *domain.OCRResult:
			in.OCR = p
		case *domain.FacialRecognitionResult:
			in.Facial = p
		case *domain.RiskAssessment, nil:
		}
	}

	for _, t := range analysisSteps {
		if !seen[t] {
			return in, fmt.Errorf("%s result is absent", t)
		}
	}
	return in, nil
}

// fail converts a pipeline-level failure into a rejected verification.
func (o *Orchestrator) fail(ctx context.Context, id uuid.UUID, start time.Time, steps []domain.StepResult, stepErr *domain.StepError) *domain.VerificationResult {
	message := "Verification failed: " + stepErr.Error()

	o.logger.ErrorContext(ctx, "verification pipeline failed",
		slog.String("verification_id", id.String()),
		slog.String("kind", string(stepErr.Kind)),
		slog.String("error", stepErr.Error()),
	)
	o.metrics.IncrementStepFailure("pipeline", string(stepErr.Kind))
	o.metrics.ObserveDecision(string(domain.DecisionReject), rulePipelineFailure, 1.0)
	o.logAudit(ctx, audit.EventVerificationFailed, false, stepErr, map[string]string{
		"kind": string(stepErr.Kind),
	})

	return &domain.VerificationResult{
		VerificationID: id,
		Success:        false,
		RiskScore:      1.0,
		Status:         domain.StatusRejected,
		Message:        message,
		Decision: &domain.VerificationDecision{
			Decision:  domain.DecisionReject,
			Reasoning: []string{message},
			Automated: true,
			NextSteps: []string{
				"Update verification status to REJECTED",
				"Log rejection reason",
			},
			Rule: rulePipelineFailure,
		},
		Steps:          steps,
		ProcessingTime: domain.MillisecondsSince(start),
	}
}
