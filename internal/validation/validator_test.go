package validation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/saturnino-fabrica-de-software/idcheck/internal/domain"
)

func newTestValidator() *FieldValidator {
	return &FieldValidator{now: func() time.Time { return date(2025, 6, 1) }}
}

func licenseData() domain.ExtractedDocumentData {
	return domain.ExtractedDocumentData{
		DocumentNumber: "D1234567",
		FirstName:      "JANE",
		LastName:       "SMITH",
		DateOfBirth:    "1990-01-02",
		ExpiryDate:     "2031-01-02",
		DocumentType:   domain.DocumentDriversLicense,
	}
}

func TestFieldValidator_Validate(t *testing.T) {
	v := newTestValidator()

	tests := []struct {
		name             string
		mutate           func(*domain.ExtractedDocumentData)
		docType          domain.DocumentType
		userType         domain.UserType
		wantValid        bool
		wantCompleteness float64
		wantScore        float64
		wantMissing      []string
		wantSuspicious   int
		wantConsistency  int
	}{
		{
			name:             "complete license",
			docType:          domain.DocumentDriversLicense,
			userType:         domain.UserDriver,
			wantValid:        true,
			wantCompleteness: 1,
			wantScore:        1,
		},
		{
			name:             "license missing expiry",
			mutate:           func(d *domain.ExtractedDocumentData) { d.ExpiryDate = "" },
			docType:          domain.DocumentDriversLicense,
			userType:         domain.UserCustomer,
			wantCompleteness: 0.8,
			wantScore:        0.8,
			wantMissing:      []string{"expiry_date"},
		},
		{
			name:             "passport requires nationality",
			docType:          domain.DocumentPassport,
			userType:         domain.UserCustomer,
			wantCompleteness: 5.0 / 6.0,
			wantScore:        5.0 / 6.0,
			wantMissing:      []string{"nationality"},
		},
		{
			name:             "national id needs only base fields",
			mutate:           func(d *domain.ExtractedDocumentData) { d.ExpiryDate = "" },
			docType:          domain.DocumentNationalID,
			userType:         domain.UserCustomer,
			wantValid:        true,
			wantCompleteness: 1,
			wantScore:        1,
		},
		{
			name:             "short document number",
			mutate:           func(d *domain.ExtractedDocumentData) { d.DocumentNumber = "D12" },
			docType:          domain.DocumentDriversLicense,
			userType:         domain.UserCustomer,
			wantCompleteness: 1,
			wantScore:        0.8,
			wantSuspicious:   1,
		},
		{
			name:             "repeated digit and short names",
			mutate:           func(d *domain.ExtractedDocumentData) { d.DocumentNumber = "1111111"; d.FirstName = "J"; d.LastName = "S" },
			docType:          domain.DocumentDriversLicense,
			userType:         domain.UserCustomer,
			wantCompleteness: 1,
			wantScore:        0.4,
			wantSuspicious:   3,
		},
		{
			name:             "driver with national id",
			docType:          domain.DocumentNationalID,
			userType:         domain.UserDriver,
			wantCompleteness: 1,
			wantScore:        0.75,
			wantConsistency:  1,
		},
		{
			name:             "underage driver",
			mutate:           func(d *domain.ExtractedDocumentData) { d.DateOfBirth = "2007-06-02" },
			docType:          domain.DocumentDriversLicense,
			userType:         domain.UserDriver,
			wantCompleteness: 1,
			wantScore:        0.75,
			wantConsistency:  1,
		},
		{
			name:             "driver turning 18 today",
			mutate:           func(d *domain.ExtractedDocumentData) { d.DateOfBirth = "2007-06-01" },
			docType:          domain.DocumentDriversLicense,
			userType:         domain.UserDriver,
			wantValid:        true,
			wantCompleteness: 1,
			wantScore:        1,
		},
		{
			name:             "customer age is not checked",
			mutate:           func(d *domain.ExtractedDocumentData) { d.DateOfBirth = "2015-01-01" },
			docType:          domain.DocumentDriversLicense,
			userType:         domain.UserCustomer,
			wantValid:        true,
			wantCompleteness: 1,
			wantScore:        1,
		},
		{
			name:             "expired document",
			mutate:           func(d *domain.ExtractedDocumentData) { d.ExpiryDate = "2012-04-15" },
			docType:          domain.DocumentDriversLicense,
			userType:         domain.UserCustomer,
			wantCompleteness: 1,
			wantScore:        0.75,
			wantConsistency:  1,
		},
		{
			name:             "nothing extracted",
			mutate:           func(d *domain.ExtractedDocumentData) { *d = domain.ExtractedDocumentData{} },
			docType:          domain.DocumentDriversLicense,
			userType:         domain.UserCustomer,
			wantCompleteness: 0,
			wantScore:        0,
			wantMissing:      []string{"document_number", "first_name", "last_name", "date_of_birth", "expiry_date"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := licenseData()
			if tt.mutate != nil {
				tt.mutate(&data)
			}

			got := v.Validate(data, tt.docType, tt.userType)

			assert.Equal(t, tt.wantValid, got.Valid)
			assert.InDelta(t, tt.wantCompleteness, got.Completeness, 1e-9)
			assert.InDelta(t, tt.wantScore, got.Score, 1e-9)
			assert.Equal(t, tt.wantMissing, got.MissingFields)
			assert.Len(t, got.SuspiciousPatterns, tt.wantSuspicious)
			assert.Len(t, got.ConsistencyIssues, tt.wantConsistency)
			assert.Len(t, got.Errors, len(tt.wantMissing)+tt.wantSuspicious+tt.wantConsistency)
		})
	}
}

func TestIsRepeatedDigit(t *testing.T) {
	assert.True(t, isRepeatedDigit("0"))
	assert.True(t, isRepeatedDigit("99999"))
	assert.False(t, isRepeatedDigit("99989"))
	assert.False(t, isRepeatedDigit("AAAAA"))
	assert.False(t, isRepeatedDigit(""))
}
