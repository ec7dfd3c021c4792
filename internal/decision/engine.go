package decision

import (
	"errors"
	"fmt"
	"strings"

	"github.com/saturnino-fabrica-de-software/idcheck/internal/domain"
)

var (
	ErrNoSteps      = errors.New("no step results to decide on")
	ErrNoAssessment = errors.New("risk assessment missing")
	ErrNoRuleMatch  = errors.New("no decision rule matched")
)

const (
	baseConfidence = 0.5

	automatedApproveBonus = 0.2
	automatedRejectBonus  = 0.1
	manualReviewPenalty   = 0.1

	reasoningFactorThreshold = 0.7
)

var levelConfidence = map[domain.RiskLevel]float64{
	domain.RiskLow:      0.3,
	domain.RiskMedium:   0.1,
	domain.RiskHigh:     -0.2,
	domain.RiskCritical: -0.4,
}

// Engine evaluates an ordered rule chain. It holds no mutable state and is
// safe for concurrent use.
type Engine struct {
	rules []Rule
}

// NewEngine creates an engine over rules, or DefaultRules when none are given.
func NewEngine(rules ...Rule) *Engine {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &Engine{rules: rules}
}

// Decide returns the outcome of the first matching rule. Any failure,
// including a panicking rule, is returned as a DECISION_FAILURE StepError;
// callers should fall back to Fallback.
func (e *Engine) Decide(in Input) (d *domain.VerificationDecision, err error) {
	defer func() {
		if r := recover(); r != nil {
			d = nil
			err = domain.NewDecisionFailure("rule evaluation panicked", fmt.Errorf("%v", r))
		}
	}()

	if len(in.Steps) == 0 {
		return nil, domain.NewDecisionFailure("cannot decide", ErrNoSteps)
	}
	if in.Assessment == nil {
		return nil, domain.NewDecisionFailure("cannot decide", ErrNoAssessment)
	}

	for _, rule := range e.rules {
		if !rule.Matches(in) {
			continue
		}

		out := &domain.VerificationDecision{
			Decision:             rule.Decision,
			Automated:            rule.Automated,
			RequiresManualReview: rule.ManualReview,
			Rule:                 rule.Name,
		}
		out.Confidence = confidence(out, in.Assessment.RiskLevel)
		out.Reasoning = reasoning(out, in)
		out.NextSteps = nextSteps(out, in.Assessment)
		return out, nil
	}

	return nil, domain.NewDecisionFailure("cannot decide", ErrNoRuleMatch)
}

// Fallback is the decision used when the engine fails: flag for review with
// zero confidence, never approve.
func Fallback(err error) *domain.VerificationDecision {
	reason := "Decision could not be evaluated"
	if err != nil {
		reason = fmt.Sprintf("%s: %v", reason, err)
	}
	return &domain.VerificationDecision{
		Decision:             domain.DecisionFlagForReview,
		Confidence:           0,
		Reasoning:            []string{reason, "Verification requires manual review"},
		Automated:            false,
		RequiresManualReview: true,
		NextSteps: []string{
			"Add to manual review queue",
			"Notify review team",
			"Keep verification status pending",
		},
		Rule: RuleDecisionFailure,
	}
}

func confidence(d *domain.VerificationDecision, level domain.RiskLevel) float64 {
	c := baseConfidence + levelConfidence[level]

	switch {
	case d.Decision == domain.DecisionApprove && d.Automated:
		c += automatedApproveBonus
	case d.Decision == domain.DecisionReject && d.Automated:
		c += automatedRejectBonus
	}
	if d.RequiresManualReview {
		c -= manualReviewPenalty
	}

	switch {
	case c < 0:
		return 0
	case c > 1:
		return 1
	}
	return c
}

func reasoning(d *domain.VerificationDecision, in Input) []string {
	a := in.Assessment
	lines := []string{
		fmt.Sprintf("Overall risk level: %s (%.2f)", a.RiskLevel, a.OverallRisk),
	}

	for _, f := range a.Factors {
		if f.Score > reasoningFactorThreshold {
			lines = append(lines, fmt.Sprintf("%s risk: %s (%.2f)", f.Category, f.Description, f.Score))
		}
	}

	failed := in.FailedSteps()
	switch d.Decision {
	case domain.DecisionApprove:
		lines = append(lines,
			"All verification checks passed",
			"Automated approval criteria met",
		)
	case domain.DecisionReject:
		lines = append(lines, "Required verification checks failed: "+joinSteps(in.FailedRequiredSteps()))
		lines = append(lines, "Automated rejection criteria met")
	default:
		if len(failed) > 0 {
			lines = append(lines, "Inconclusive verification checks: "+joinSteps(failed))
		}
		lines = append(lines, "Verification requires manual review")
	}

	return lines
}

func nextSteps(d *domain.VerificationDecision, a *domain.RiskAssessment) []string {
	var steps []string

	switch d.Decision {
	case domain.DecisionApprove:
		steps = []string{
			"Update verification status to APPROVED",
			"Notify user of successful verification",
			"Enable platform access",
		}
	case domain.DecisionReject:
		steps = []string{
			"Update verification status to REJECTED",
			"Notify user of verification failure",
			"Log rejection reason",
			"Block platform access",
		}
	default:
		steps = []string{
			"Add to manual review queue",
			"Notify review team",
			"Keep verification status pending",
		}
	}

	if a.RequiresManualReview {
		steps = append(steps, "Schedule manual review")
	}
	if a.RiskLevel == domain.RiskCritical {
		steps = append(steps,
			"Enable enhanced account monitoring",
			"Refer to fraud investigation team",
		)
	}

	return steps
}

func joinSteps(steps []domain.StepType) string {
	if len(steps) == 0 {
		return "none"
	}
	names := make([]string, len(steps))
	for i, s := range steps {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}
