// Package authenticity scores how likely a document image is genuine from the
// vision provider's text and face detections.
package authenticity

import (
	"fmt"

	"github.com/saturnino-fabrica-de-software/idcheck/internal/domain"
	"github.com/saturnino-fabrica-de-software/idcheck/internal/provider"
)

const (
	// AuthenticThreshold is the minimum score for a document to be authentic
	AuthenticThreshold = 0.7

	lowConfidenceLine         = 70.0
	lowQualityLineRatio       = 0.3
	anomalyScoreWeight        = 0.7
	featureCompletenessWeight = 0.3
)

var severityWeight = map[domain.Severity]float64{
	domain.SeverityLow:      0.1,
	domain.SeverityMedium:   0.3,
	domain.SeverityHigh:     0.6,
	domain.SeverityCritical: 0.9,
}

// Scorer turns a document analysis into a DocumentAuthenticityResult.
// It holds only read-only configuration and is safe for concurrent use.
type Scorer struct {
	checks map[domain.DocumentType][]FeatureCheck
}

// Option configures a Scorer
type Option func(*Scorer)

// WithFeatureChecks replaces the security feature checks for a document type
func WithFeatureChecks(docType domain.DocumentType, checks ...FeatureCheck) Option {
	return func(s *Scorer) {
		s.checks[docType] = checks
	}
}

func NewScorer(opts ...Option) *Scorer {
	s := &Scorer{checks: DefaultFeatureChecks()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Score evaluates analysis for docType. A nil analysis is treated as an empty one.
func (s *Scorer) Score(analysis *provider.DocumentAnalysis, docType domain.DocumentType) *domain.DocumentAuthenticityResult {
	if analysis == nil {
		analysis = &provider.DocumentAnalysis{}
	}

	result := &domain.DocumentAuthenticityResult{
		DocumentType:     docType,
		Anomalies:        DetectAnomalies(analysis),
		SecurityFeatures: s.securityFeatures(analysis, docType),
	}

	score := 1.0
	for _, a := range result.Anomalies {
		score -= severityWeight[a.Severity] * a.Confidence
	}

	if total := len(result.SecurityFeatures); total > 0 {
		ratio := float64(result.DetectedFeatures()) / float64(total)
		score = score*anomalyScoreWeight + ratio*featureCompletenessWeight
	} else {
		score *= anomalyScoreWeight
	}

	result.Confidence = clamp01(score)
	result.IsAuthentic = result.Confidence >= AuthenticThreshold

	return result
}

func (s *Scorer) securityFeatures(analysis *provider.DocumentAnalysis, docType domain.DocumentType) []domain.SecurityFeature {
	checks := s.checks[docType]
	features := make([]domain.SecurityFeature, 0, len(checks))
	for _, check := range checks {
		features = append(features, check(analysis))
	}
	return features
}

// DetectAnomalies applies the document image anomaly rules.
func DetectAnomalies(analysis *provider.DocumentAnalysis) []domain.Anomaly {
	var anomalies []domain.Anomaly

	if n := len(analysis.TextLines); n > 0 {
		low := 0
		for _, line := range analysis.TextLines {
			if line.Confidence < lowConfidenceLine {
				low++
			}
		}
		if float64(low)/float64(n) >= lowQualityLineRatio {
			anomalies = append(anomalies, domain.Anomaly{
				Type:        domain.AnomalyLowQuality,
				Severity:    domain.SeverityMedium,
				Description: fmt.Sprintf("%d of %d text lines have low confidence", low, n),
				Confidence:  0.8,
			})
		}
	}

	switch faces := len(analysis.Faces); {
	case faces == 0:
		anomalies = append(anomalies, domain.Anomaly{
			Type:        domain.AnomalyWrongDocumentType,
			Severity:    domain.SeverityHigh,
			Description: "No portrait found on document",
			Confidence:  0.9,
		})
	case faces > 1:
		anomalies = append(anomalies, domain.Anomaly{
			Type:        domain.AnomalyTampering,
			Severity:    domain.SeverityMedium,
			Description: fmt.Sprintf("%d faces found on document", faces),
			Confidence:  0.7,
		})
	}

	return anomalies
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
