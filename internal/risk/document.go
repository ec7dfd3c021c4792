package risk

import (
	"fmt"

	"github.com/saturnino-fabrica-de-software/idcheck/internal/domain"
)

var anomalyWeight = map[domain.Severity]float64{
	domain.SeverityLow:      0.05,
	domain.SeverityMedium:   0.15,
	domain.SeverityHigh:     0.3,
	domain.SeverityCritical: 0.4,
}

const (
	notAuthenticPenalty    = 0.6
	lowConfidenceWeight    = 0.5
	missingFeaturesWeight  = 0.3
	authenticityFailedNote = "Document authenticity check failed"
)

// ScoreDocument derives the DOCUMENT_AUTHENTICITY factor.
func ScoreDocument(r *domain.DocumentAuthenticityResult) domain.RiskFactor {
	if r == nil {
		return unavailable(domain.RiskDocumentAuthenticity, "Document authenticity")
	}

	var (
		score    float64
		evidence []string
	)

	if !r.IsAuthentic {
		score += notAuthenticPenalty
		evidence = append(evidence, authenticityFailedNote)
	} else {
		score += (1 - r.Confidence) * lowConfidenceWeight
	}

	for _, a := range r.Anomalies {
		score += anomalyWeight[a.Severity] * a.Confidence
		evidence = append(evidence, fmt.Sprintf("%s anomaly (%s): %s", a.Type, a.Severity, a.Description))
	}

	if total := len(r.SecurityFeatures); total > 0 {
		if missing := total - r.DetectedFeatures(); missing > 0 {
			score += float64(missing) / float64(total) * missingFeaturesWeight
			evidence = append(evidence, fmt.Sprintf("%d of %d security features not detected", missing, total))
		}
	}

	return newFactor(domain.RiskDocumentAuthenticity, score, evidence)
}
