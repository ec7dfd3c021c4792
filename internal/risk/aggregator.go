package risk

import (
	"fmt"
	"math"
	"time"

	"github.com/saturnino-fabrica-de-software/idcheck/internal/domain"
)

const (
	lowRiskMax    = 0.3
	mediumRiskMax = 0.6
	highRiskMax   = 0.8

	manualReviewOverall   = 0.8
	manualReviewFactor    = 0.8
	elevatedFactor        = 0.6
	elevatedFactorsNeeded = 3

	// overall risk is rounded to this many steps per unit before banding
	riskPrecision = 1e9
)

// Inputs are the analysis outputs a risk assessment is computed from.
// Any of them may be nil when its analysis produced nothing.
type Inputs struct {
	Authenticity *domain.DocumentAuthenticityResult
	OCR          *domain.OCRResult
	Facial       *domain.FacialRecognitionResult
	History      *domain.UserHistory
}

// Aggregator combines the five risk factors into a RiskAssessment.
// It holds only read-only configuration and is safe for concurrent use.
type Aggregator struct {
	thresholds TechnicalThresholds
	now        func() time.Time
}

// Option configures an Aggregator
type Option func(*Aggregator)

// WithTechnicalThresholds overrides the TECHNICAL factor limits
func WithTechnicalThresholds(t TechnicalThresholds) Option {
	return func(a *Aggregator) {
		a.thresholds = t
	}
}

// WithClock sets the clock used for the attempt-rate window
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) {
		a.now = now
	}
}

func NewAggregator(opts ...Option) *Aggregator {
	a := &Aggregator{
		thresholds: DefaultTechnicalThresholds(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Assess scores every factor and aggregates them.
func (a *Aggregator) Assess(in Inputs) (*domain.RiskAssessment, error) {
	return Aggregate([]domain.RiskFactor{
		ScoreDocument(in.Authenticity),
		ScoreDataConsistency(in.OCR),
		ScoreFacial(in.Facial),
		ScoreBehavioral(in.History, a.now()),
		ScoreTechnical(in, a.thresholds),
	})
}

// Aggregate computes the weighted overall risk, level, manual review flag and
// recommendations of exactly one factor per category. It is deterministic:
// the same factors always produce the same assessment.
func Aggregate(factors []domain.RiskFactor) (*domain.RiskAssessment, error) {
	if len(factors) != len(domain.RiskCategories) {
		return nil, fmt.Errorf("expected %d risk factors, got %d", len(domain.RiskCategories), len(factors))
	}

	byCategory := make(map[domain.RiskCategory]domain.RiskFactor, len(factors))
	for _, f := range factors {
		if _, ok := Weights[f.Category]; !ok {
			return nil, fmt.Errorf("unknown risk category %q", f.Category)
		}
		if _, dup := byCategory[f.Category]; dup {
			return nil, fmt.Errorf("duplicate risk category %q", f.Category)
		}
		if math.IsNaN(f.Score) || f.Score < 0 || f.Score > 1 {
			return nil, fmt.Errorf("risk factor %s has invalid score %v", f.Category, f.Score)
		}
		byCategory[f.Category] = f
	}

	// Sum in fixed category order so the result is bit-identical across runs.
	ordered := make([]domain.RiskFactor, 0, len(factors))
	var weighted, totalWeight float64
	elevated := 0
	anyExtreme := false
	for _, c := range domain.RiskCategories {
		f := byCategory[c]
		f.Weight = Weights[c]
		ordered = append(ordered, f)

		weighted += f.Score * f.Weight
		totalWeight += f.Weight
		if f.Score > manualReviewFactor {
			anyExtreme = true
		}
		if f.Score > elevatedFactor {
			elevated++
		}
	}

	overall := clamp01(math.Round(weighted/totalWeight*riskPrecision) / riskPrecision)
	level := DetermineRiskLevel(overall)

	return &domain.RiskAssessment{
		OverallRisk:          overall,
		RiskLevel:            level,
		Factors:              ordered,
		Recommendations:      recommendations(level, ordered),
		RequiresManualReview: overall >= manualReviewOverall || anyExtreme || elevated >= elevatedFactorsNeeded,
	}, nil
}

// DetermineRiskLevel maps an overall risk onto a level using inclusive upper bounds.
func DetermineRiskLevel(overall float64) domain.RiskLevel {
	switch {
	case overall <= lowRiskMax:
		return domain.RiskLow
	case overall <= mediumRiskMax:
		return domain.RiskMedium
	case overall <= highRiskMax:
		return domain.RiskHigh
	default:
		return domain.RiskCritical
	}
}
