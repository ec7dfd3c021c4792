// Package decision turns workflow step outcomes and a risk assessment into an
// auditable verification decision by evaluating an ordered rule chain.
package decision

import (
	"github.com/saturnino-fabrica-de-software/idcheck/internal/domain"
)

// Input is everything the rule chain is evaluated against.
type Input struct {
	Steps      []domain.StepResult
	Assessment *domain.RiskAssessment
}

// AllSucceeded reports whether every step succeeded.
func (in Input) AllSucceeded() bool {
	for _, s := range in.Steps {
		if !s.Success {
			return false
		}
	}
	return true
}

// RequiredSucceeded reports whether every required step succeeded.
func (in Input) RequiredSucceeded() bool {
	for _, s := range in.Steps {
		if s.Required && !s.Success {
			return false
		}
	}
	return true
}

// CriticalFailures counts failed required steps.
func (in Input) CriticalFailures() int {
	n := 0
	for _, s := range in.Steps {
		if s.CriticalFailure() {
			n++
		}
	}
	return n
}

// OptionalFailed reports whether any non-required step failed.
func (in Input) OptionalFailed() bool {
	for _, s := range in.Steps {
		if !s.Required && !s.Success {
			return true
		}
	}
	return false
}

// FailedSteps lists the types of steps that did not succeed, in order.
func (in Input) FailedSteps() []domain.StepType {
	var failed []domain.StepType
	for _, s := range in.Steps {
		if !s.Success {
			failed = append(failed, s.Type)
		}
	}
	return failed
}

// FailedRequiredSteps lists the types of required steps that did not succeed.
func (in Input) FailedRequiredSteps() []domain.StepType {
	var failed []domain.StepType
	for _, s := range in.Steps {
		if s.CriticalFailure() {
			failed = append(failed, s.Type)
		}
	}
	return failed
}

// Rule is one predicate and the outcome it yields when matched.
type Rule struct {
	Name         string
	Matches      func(Input) bool
	Decision     domain.Decision
	Automated    bool
	ManualReview bool
}

const (
	RuleAutoApprove  = "auto_approve"
	RuleAutoReject   = "auto_reject"
	RuleManualReview = "manual_review"
	RuleDefault      = "default"

	// RuleDecisionFailure labels decisions produced by Fallback.
	RuleDecisionFailure = "decision_failure"
)

// DefaultRules is the rule chain in evaluation order. The first match wins.
//  1. AutoApprove: every step succeeded with no critical failure
//  2. AutoReject: a critical failure or a failed required step
//  3. ManualReview: required steps succeeded but an optional one failed
//  4. Default: always matches
func DefaultRules() []Rule {
	return []Rule{
		{
			Name: RuleAutoApprove,
			Matches: func(in Input) bool {
				return in.AllSucceeded() && in.CriticalFailures() == 0
			},
			Decision:  domain.DecisionApprove,
			Automated: true,
		},
		{
			Name: RuleAutoReject,
			Matches: func(in Input) bool {
				return in.CriticalFailures() > 0 || !in.RequiredSucceeded()
			},
			Decision:  domain.DecisionReject,
			Automated: true,
		},
		{
			Name: RuleManualReview,
			Matches: func(in Input) bool {
				return in.RequiredSucceeded() && in.OptionalFailed()
			},
			Decision:     domain.DecisionFlagForReview,
			ManualReview: true,
		},
		{
			Name:         RuleDefault,
			Matches:      func(Input) bool { return true },
			Decision:     domain.DecisionFlagForReview,
			ManualReview: true,
		},
	}
}
