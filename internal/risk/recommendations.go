package risk

import (
	"strings"

	"github.com/saturnino-fabrica-de-software/idcheck/internal/domain"
)

// factorRecommendationThreshold is the factor score above which factor
// specific recommendations are added.
const factorRecommendationThreshold = 0.7

var levelRecommendations = map[domain.RiskLevel][]string{
	domain.RiskLow: {
		"Proceed with automatic approval",
	},
	domain.RiskMedium: {
		"Request additional verification",
		"Monitor account activity",
	},
	domain.RiskHigh: {
		"Require manual review",
		"Request additional documents",
		"Enable enhanced monitoring",
	},
	domain.RiskCritical: {
		"Immediate manual review required",
		"Consider blocking the account",
		"Initiate fraud investigation",
	},
}

var factorRecommendations = map[domain.RiskCategory][]string{
	domain.RiskDocumentAuthenticity: {
		"Request a different identity document",
		"Verify document with the issuing authority",
	},
	domain.RiskDataConsistency: {
		"Request a clearer image of the document",
		"Manually verify extracted document data",
	},
	domain.RiskFacialMatch: {
		"Request a new selfie",
		"Perform live video verification",
	},
	domain.RiskBehavioral: {
		"Review user verification history",
		"Enable enhanced monitoring",
	},
	domain.RiskTechnical: {
		"Retry verification with better quality images",
	},
}

func recommendations(level domain.RiskLevel, factors []domain.RiskFactor) []string {
	recs := append([]string(nil), levelRecommendations[level]...)
	for _, f := range factors {
		if f.Score > factorRecommendationThreshold {
			recs = append(recs, factorRecommendations[f.Category]...)
		}
	}
	return dedupeAndTrim(recs)
}

// dedupeAndTrim removes duplicates and empty strings, trimming whitespace from
// each element. Order is preserved.
func dedupeAndTrim(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))

	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; !ok {
			seen[trimmed] = struct{}{}
			result = append(result, trimmed)
		}
	}

	return result
}
