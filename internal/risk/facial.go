package risk

import (
	"fmt"

	"github.com/saturnino-fabrica-de-software/idcheck/internal/domain"
)

const (
	noFacePenalty      = 0.9
	noMatchPenalty     = 0.8
	matchConfWeight    = 0.6
	minFaceQuality     = 0.6
	lowQualityPenalty  = 0.3
	minLandmarks       = 5
	fewLandmarkPenalty = 0.2
)

// ScoreFacial derives the FACIAL_MATCH factor. The liveness gate must already
// have been applied to r.
func ScoreFacial(r *domain.FacialRecognitionResult) domain.RiskFactor {
	if r == nil {
		return unavailable(domain.RiskFacialMatch, "Facial recognition")
	}

	var (
		score    float64
		evidence []string
	)

	switch {
	case !r.FaceDetected:
		score += noFacePenalty
		evidence = append(evidence, "No face detected in images")
	case !r.Match:
		score += noMatchPenalty
		evidence = append(evidence, "Facial recognition match failed")
	default:
		score += (1 - r.Confidence/100) * matchConfWeight
	}

	if !r.Liveness && r.FaceDetected {
		evidence = append(evidence, "Liveness check failed")
	}
	if r.FaceQuality < minFaceQuality {
		score += lowQualityPenalty
		evidence = append(evidence, fmt.Sprintf("Low face quality: %.2f", r.FaceQuality))
	}
	if len(r.Landmarks) < minLandmarks {
		score += fewLandmarkPenalty
		evidence = append(evidence, fmt.Sprintf("Only %d facial landmarks detected", len(r.Landmarks)))
	}

	return newFactor(domain.RiskFacialMatch, score, evidence)
}
