package risk

import (
	"fmt"
	"time"

	"github.com/saturnino-fabrica-de-software/idcheck/internal/domain"
)

// TechnicalThresholds are the empirical limits of the TECHNICAL factor.
type TechnicalThresholds struct {
	SlowFacial           time.Duration
	SlowOCR              time.Duration
	MinAverageConfidence float64
}

func DefaultTechnicalThresholds() TechnicalThresholds {
	return TechnicalThresholds{
		SlowFacial:           10 * time.Second,
		SlowOCR:              15 * time.Second,
		MinAverageConfidence: 0.6,
	}
}

const (
	slowAnalysisPenalty = 0.2
	ocrErrorsPenalty    = 0.3
	lowAveragePenalty   = 0.4
)

// ScoreTechnical derives the TECHNICAL factor from processing times, OCR
// errors and the average confidence of the three analyses. A missing analysis
// counts as zero confidence.
func ScoreTechnical(in Inputs, t TechnicalThresholds) domain.RiskFactor {
	var (
		score    float64
		evidence []string
		total    float64
	)

	if in.Authenticity != nil {
		total += in.Authenticity.Confidence
	}

	if f := in.Facial; f != nil {
		total += f.Confidence / 100
		if f.ProcessingTime.Duration() > t.SlowFacial {
			score += slowAnalysisPenalty
			evidence = append(evidence, fmt.Sprintf("Slow facial recognition: %s", f.ProcessingTime.Duration().Round(time.Millisecond)))
		}
	}

	if o := in.OCR; o != nil {
		total += o.Confidence
		if o.ProcessingTime.Duration() > t.SlowOCR {
			score += slowAnalysisPenalty
			evidence = append(evidence, fmt.Sprintf("Slow OCR extraction: %s", o.ProcessingTime.Duration().Round(time.Millisecond)))
		}
		if len(o.Errors) > 0 {
			score += ocrErrorsPenalty
			evidence = append(evidence, fmt.Sprintf("OCR reported %d errors", len(o.Errors)))
		}
	}

	if avg := total / 3; avg < t.MinAverageConfidence {
		score += lowAveragePenalty
		evidence = append(evidence, fmt.Sprintf("Low average analysis confidence: %.2f", avg))
	}

	return newFactor(domain.RiskTechnical, score, evidence)
}
