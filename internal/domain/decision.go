package domain

type Decision string

const (
	DecisionApprove       Decision = "APPROVE"
	DecisionReject        Decision = "REJECT"
	DecisionFlagForReview Decision = "FLAG_FOR_REVIEW"
)

// VerificationDecision is the auditable outcome of the rule chain.
type VerificationDecision struct {
	Decision             Decision `json:"decision"`
	Confidence           float64  `json:"confidence"`
	Reasoning            []string `json:"reasoning"`
	Automated            bool     `json:"automated"`
	RequiresManualReview bool     `json:"requires_manual_review"`
	NextSteps            []string `json:"next_steps"`
	Rule                 string   `json:"rule,omitempty"`
}

// Status maps a decision onto the terminal verification status it produces.
func (d Decision) Status() VerificationStatus {
	switch d {
	case DecisionApprove:
		return StatusApproved
	case DecisionReject:
		return StatusRejected
	default:
		return StatusFlagged
	}
}
