package domain

type RiskCategory string

const (
	RiskDocumentAuthenticity RiskCategory = "DOCUMENT_AUTHENTICITY"
	RiskDataConsistency      RiskCategory = "DATA_CONSISTENCY"
	RiskFacialMatch          RiskCategory = "FACIAL_MATCH"
	RiskBehavioral           RiskCategory = "BEHAVIORAL"
	RiskTechnical            RiskCategory = "TECHNICAL"
)

// RiskCategories lists every category in aggregation order.
var RiskCategories = []RiskCategory{
	RiskDocumentAuthenticity,
	RiskDataConsistency,
	RiskFacialMatch,
	RiskBehavioral,
	RiskTechnical,
}

type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// RiskFactor is one weighted dimension of the overall risk. Higher scores are riskier.
type RiskFactor struct {
	Category    RiskCategory `json:"category"`
	Score       float64      `json:"score"`
	Weight      float64      `json:"weight"`
	Description string       `json:"description"`
	Evidence    []string     `json:"evidence"`
}

type RiskAssessment struct {
	OverallRisk          float64      `json:"overall_risk"`
	RiskLevel            RiskLevel    `json:"risk_level"`
	Factors              []RiskFactor `json:"factors"`
	Recommendations      []string     `json:"recommendations"`
	RequiresManualReview bool         `json:"requires_manual_review"`
}

// Factor returns the factor of the given category.
func (a *RiskAssessment) Factor(category RiskCategory) (RiskFactor, bool) {
	for _, f := range a.Factors {
		if f.Category == category {
			return f, true
		}
	}
	return RiskFactor{}, false
}
