// Package risk scores the individual risk factors of a verification and
// aggregates them into an overall assessment. Every function here is pure.
package risk

import (
	"fmt"

	"github.com/saturnino-fabrica-de-software/idcheck/internal/domain"
)

// Weights are fixed per category and sum to 1.
var Weights = map[domain.RiskCategory]float64{
	domain.RiskDocumentAuthenticity: 0.35,
	domain.RiskDataConsistency:      0.25,
	domain.RiskFacialMatch:          0.25,
	domain.RiskBehavioral:           0.10,
	domain.RiskTechnical:            0.05,
}

var descriptions = map[domain.RiskCategory]string{
	domain.RiskDocumentAuthenticity: "Document may be forged or altered",
	domain.RiskDataConsistency:      "Extracted data is incomplete or inconsistent",
	domain.RiskFacialMatch:          "Selfie may not match the document holder",
	domain.RiskBehavioral:           "User verification history is unusual",
	domain.RiskTechnical:            "Analysis signal is degraded",
}

// newFactor builds a factor with its category weight and a clamped score.
func newFactor(category domain.RiskCategory, score float64, evidence []string) domain.RiskFactor {
	if evidence == nil {
		evidence = []string{}
	}
	return domain.RiskFactor{
		Category:    category,
		Score:       clamp01(score),
		Weight:      Weights[category],
		Description: descriptions[category],
		Evidence:    evidence,
	}
}

// unavailable scores a factor whose analysis produced nothing at maximum risk.
func unavailable(category domain.RiskCategory, analysis string) domain.RiskFactor {
	return newFactor(category, 1.0, []string{fmt.Sprintf("%s analysis unavailable", analysis)})
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
