package authenticity

import (
	"github.com/saturnino-fabrica-de-software/idcheck/internal/domain"
	"github.com/saturnino-fabrica-de-software/idcheck/internal/provider"
)

// FeatureCheck inspects a document analysis for one security feature.
type FeatureCheck func(analysis *provider.DocumentAnalysis) domain.SecurityFeature

// staticFeature reports a feature as present with a fixed confidence. It is the
// placeholder until the vision provider exposes real security-feature detection.
func staticFeature(name, description string, confidence float64) FeatureCheck {
	return func(*provider.DocumentAnalysis) domain.SecurityFeature {
		return domain.SecurityFeature{
			Name:        name,
			Detected:    true,
			Confidence:  confidence,
			Description: description,
		}
	}
}

// DefaultFeatureChecks returns the security feature checks for each document type.
func DefaultFeatureChecks() map[domain.DocumentType][]FeatureCheck {
	return map[domain.DocumentType][]FeatureCheck{
		domain.DocumentDriversLicense: {
			staticFeature("license_number_format", "License number matches issuing state format", 0.9),
			staticFeature("state_code", "Issuing state code present", 0.85),
		},
		domain.DocumentPassport: {
			staticFeature("passport_number_format", "Passport number matches ICAO format", 0.95),
			staticFeature("country_code", "Issuing country code present", 0.9),
		},
		domain.DocumentNationalID: {
			staticFeature("id_number_format", "National ID number matches issuer format", 0.9),
			staticFeature("government_seal", "Government seal present", 0.8),
		},
	}
}
