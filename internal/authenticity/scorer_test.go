package authenticity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/idcheck/internal/domain"
	"github.com/saturnino-fabrica-de-software/idcheck/internal/provider"
)

func lines(confidences ...float64) []provider.TextLine {
	out := make([]provider.TextLine, len(confidences))
	for i, c := range confidences {
		out[i] = provider.TextLine{Text: "LINE", Confidence: c}
	}
	return out
}

func faces(n int) []provider.DetectedFace {
	return make([]provider.DetectedFace, n)
}

func TestScorer_Score(t *testing.T) {
	scorer := NewScorer()

	tests := []struct {
		name          string
		analysis      *provider.DocumentAnalysis
		wantScore     float64
		wantAuthentic bool
		wantAnomalies []domain.AnomalyType
	}{
		{
			name:          "clean document",
			analysis:      &provider.DocumentAnalysis{TextLines: lines(99, 98, 97), Faces: faces(1)},
			wantScore:     1.0,
			wantAuthentic: true,
		},
		{
			name:          "no portrait",
			analysis:      &provider.DocumentAnalysis{TextLines: lines(99, 98), Faces: faces(0)},
			wantScore:     (1-0.6*0.9)*0.7 + 0.3,
			wantAuthentic: false,
			wantAnomalies: []domain.AnomalyType{domain.AnomalyWrongDocumentType},
		},
		{
			name:          "two portraits",
			analysis:      &provider.DocumentAnalysis{TextLines: lines(99), Faces: faces(2)},
			wantScore:     (1-0.3*0.7)*0.7 + 0.3,
			wantAuthentic: true,
			wantAnomalies: []domain.AnomalyType{domain.AnomalyTampering},
		},
		{
			name:          "low quality text at exactly 30 percent",
			analysis:      &provider.DocumentAnalysis{TextLines: lines(50, 60, 65, 90, 90, 90, 90, 90, 90, 90), Faces: faces(1)},
			wantScore:     (1-0.3*0.8)*0.7 + 0.3,
			wantAuthentic: true,
			wantAnomalies: []domain.AnomalyType{domain.AnomalyLowQuality},
		},
		{
			name:          "low quality text below ratio",
			analysis:      &provider.DocumentAnalysis{TextLines: lines(50, 90, 90, 90), Faces: faces(1)},
			wantScore:     1.0,
			wantAuthentic: true,
		},
		{
			name:          "low quality and no portrait",
			analysis:      &provider.DocumentAnalysis{TextLines: lines(40, 40), Faces: faces(0)},
			wantScore:     (1-0.24-0.54)*0.7 + 0.3,
			wantAuthentic: false,
			wantAnomalies: []domain.AnomalyType{domain.AnomalyLowQuality, domain.AnomalyWrongDocumentType},
		},
		{
			name:          "nil analysis",
			analysis:      nil,
			wantScore:     (1-0.54)*0.7 + 0.3,
			wantAuthentic: false,
			wantAnomalies: []domain.AnomalyType{domain.AnomalyWrongDocumentType},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := scorer.Score(tt.analysis, domain.DocumentPassport)

			require.NotNil(t, result)
			assert.InDelta(t, tt.wantScore, result.Confidence, 1e-9)
			assert.Equal(t, tt.wantAuthentic, result.IsAuthentic)
			assert.Equal(t, domain.DocumentPassport, result.DocumentType)
			assert.Len(t, result.SecurityFeatures, 2)

			var got []domain.AnomalyType
			for _, a := range result.Anomalies {
				got = append(got, a.Type)
			}
			assert.Equal(t, tt.wantAnomalies, got)
		})
	}
}

func TestScorer_CustomFeatureChecks(t *testing.T) {
	missing := func(*provider.DocumentAnalysis) domain.SecurityFeature {
		return domain.SecurityFeature{Name: "hologram", Detected: false, Confidence: 0.2}
	}
	scorer := NewScorer(WithFeatureChecks(domain.DocumentDriversLicense, missing, missing))

	result := scorer.Score(&provider.DocumentAnalysis{TextLines: lines(99), Faces: faces(1)}, domain.DocumentDriversLicense)

	assert.Equal(t, 0, result.DetectedFeatures())
	assert.InDelta(t, 0.7, result.Confidence, 1e-9)
	assert.True(t, result.IsAuthentic)
}

func TestScorer_SecurityFeaturesPerType(t *testing.T) {
	scorer := NewScorer()
	analysis := &provider.DocumentAnalysis{Faces: faces(1)}

	for docType, want := range map[domain.DocumentType][]string{
		domain.DocumentDriversLicense: {"license_number_format", "state_code"},
		domain.DocumentPassport:       {"passport_number_format", "country_code"},
		domain.DocumentNationalID:     {"id_number_format", "government_seal"},
	} {
		t.Run(string(docType), func(t *testing.T) {
			var names []string
			for _, f := range scorer.Score(analysis, docType).SecurityFeatures {
				assert.True(t, f.Detected)
				names = append(names, f.Name)
			}
			assert.Equal(t, want, names)
		})
	}
}
