package risk

import (
	"fmt"
	"time"

	"github.com/saturnino-fabrica-de-software/idcheck/internal/domain"
)

const (
	newUserScore = 0.3

	manyRejectionsPenalty = 0.6
	fewRejectionsPenalty  = 0.3
	manyRejections        = 2

	attemptWindow       = time.Hour
	maxAttemptsInWindow = 3
	attemptRatePenalty  = 0.5

	suspiciousPenalty = 0.4
)

// ScoreBehavioral derives the BEHAVIORAL factor. A nil history is a new user
// and carries moderate risk rather than none.
func ScoreBehavioral(h *domain.UserHistory, now time.Time) domain.RiskFactor {
	if h == nil {
		return newFactor(domain.RiskBehavioral, newUserScore, []string{"New user with no verification history"})
	}

	var (
		score    float64
		evidence []string
	)

	switch rejected := h.RejectedCount(); {
	case rejected > manyRejections:
		score += manyRejectionsPenalty
		evidence = append(evidence, fmt.Sprintf("%d previous verifications rejected", rejected))
	case rejected > 0:
		score += fewRejectionsPenalty
		evidence = append(evidence, fmt.Sprintf("%d previous verifications rejected", rejected))
	}

	if attempts := h.AttemptsSince(now.Add(-attemptWindow)); attempts > maxAttemptsInWindow {
		score += attemptRatePenalty
		evidence = append(evidence, fmt.Sprintf("%d verification attempts in the last hour", attempts))
	}

	if h.SuspiciousActivity {
		score += suspiciousPenalty
		evidence = append(evidence, "Suspicious activity flagged on account")
	}

	return newFactor(domain.RiskBehavioral, score, evidence)
}
