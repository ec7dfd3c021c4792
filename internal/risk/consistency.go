package risk

import (
	"fmt"

	"github.com/saturnino-fabrica-de-software/idcheck/internal/domain"
)

const (
	incompletenessWeight = 0.5
	perSuspiciousPattern = 0.15
	perConsistencyIssue  = 0.25
	lowOCRConfidence     = 0.7
	lowOCRPenalty        = 0.2
)

// ScoreDataConsistency derives the DATA_CONSISTENCY factor from the OCR result
// and its field validation.
func ScoreDataConsistency(r *domain.OCRResult) domain.RiskFactor {
	if r == nil {
		return unavailable(domain.RiskDataConsistency, "Data extraction")
	}

	v := r.Validation
	score := (1 - v.Completeness) * incompletenessWeight

	var evidence []string
	if len(v.MissingFields) > 0 {
		evidence = append(evidence, fmt.Sprintf("Missing required fields: %v", v.MissingFields))
	}
	for _, p := range v.SuspiciousPatterns {
		score += perSuspiciousPattern
		evidence = append(evidence, "Suspicious pattern: "+p)
	}
	for _, issue := range v.ConsistencyIssues {
		score += perConsistencyIssue
		evidence = append(evidence, "Consistency issue: "+issue)
	}
	if r.Confidence < lowOCRConfidence {
		score += lowOCRPenalty
		evidence = append(evidence, fmt.Sprintf("Low OCR confidence: %.2f", r.Confidence))
	}

	return newFactor(domain.RiskDataConsistency, score, evidence)
}
