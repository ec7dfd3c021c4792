package validation

import (
	"fmt"
	"strings"
	"time"

	"github.com/saturnino-fabrica-de-software/idcheck/internal/domain"
)

const (
	minDocumentNumberLength = 5
	minNameLength           = 2
	minDriverAge            = 18

	suspiciousPenalty  = 0.2
	consistencyPenalty = 0.25
)

type requiredField struct {
	name  string
	value func(domain.ExtractedDocumentData) string
}

var (
	baseRequiredFields = []requiredField{
		{"document_number", func(d domain.ExtractedDocumentData) string { return d.DocumentNumber }},
		{"first_name", func(d domain.ExtractedDocumentData) string { return d.FirstName }},
		{"last_name", func(d domain.ExtractedDocumentData) string { return d.LastName }},
		{"date_of_birth", func(d domain.ExtractedDocumentData) string { return d.DateOfBirth }},
	}
	expiryField      = requiredField{"expiry_date", func(d domain.ExtractedDocumentData) string { return d.ExpiryDate }}
	nationalityField = requiredField{"nationality", func(d domain.ExtractedDocumentData) string { return d.Nationality }}
)

func requiredFieldsFor(docType domain.DocumentType) []requiredField {
	fields := append([]requiredField(nil), baseRequiredFields...)
	switch docType {
	case domain.DocumentDriversLicense:
		fields = append(fields, expiryField)
	case domain.DocumentPassport:
		fields = append(fields, nationalityField, expiryField)
	}
	return fields
}

// FieldValidator checks extracted document data for completeness,
// suspicious values and consistency with the user's role.
type FieldValidator struct {
	now func() time.Time
}

func NewFieldValidator() *FieldValidator {
	return &FieldValidator{now: time.Now}
}

// Validate scores data. The result is valid only when every required field
// is present and no suspicious pattern or consistency issue was found.
func (v *FieldValidator) Validate(data domain.ExtractedDocumentData, docType domain.DocumentType, userType domain.UserType) domain.FieldValidation {
	var result domain.FieldValidation

	required := requiredFieldsFor(docType)
	present := 0
	for _, f := range required {
		if strings.TrimSpace(f.value(data)) != "" {
			present++
			continue
		}
		result.MissingFields = append(result.MissingFields, f.name)
		result.Errors = append(result.Errors, "missing required field: "+f.name)
	}
	result.Completeness = float64(present) / float64(len(required))

	result.SuspiciousPatterns = suspiciousPatterns(data)
	result.ConsistencyIssues = v.consistencyIssues(data, docType, userType)
	result.Errors = append(result.Errors, result.SuspiciousPatterns...)
	result.Errors = append(result.Errors, result.ConsistencyIssues...)

	score := result.Completeness -
		suspiciousPenalty*float64(len(result.SuspiciousPatterns)) -
		consistencyPenalty*float64(len(result.ConsistencyIssues))
	result.Score = clamp01(score)

	result.Valid = len(result.MissingFields) == 0 &&
		len(result.SuspiciousPatterns) == 0 &&
		len(result.ConsistencyIssues) == 0

	return result
}

func suspiciousPatterns(data domain.ExtractedDocumentData) []string {
	var patterns []string

	if number := strings.TrimSpace(data.DocumentNumber); number != "" {
		if len(number) < minDocumentNumberLength {
			patterns = append(patterns, "document number is too short")
		}
		if isRepeatedDigit(number) {
			patterns = append(patterns, "document number is a single repeated digit")
		}
	}

	if name := strings.TrimSpace(data.FirstName); name != "" && len([]rune(name)) < minNameLength {
		patterns = append(patterns, "first name is too short")
	}
	if name := strings.TrimSpace(data.LastName); name != "" && len([]rune(name)) < minNameLength {
		patterns = append(patterns, "last name is too short")
	}

	if dob := strings.TrimSpace(data.DateOfBirth); dob != "" {
		if _, err := ParseDate(dob); err != nil {
			patterns = append(patterns, "date of birth is not a valid date")
		}
	}

	return patterns
}

// isRepeatedDigit matches ^(\d)\1*$, which RE2 cannot express.
func isRepeatedDigit(s string) bool {
	if s == "" || s[0] < '0' || s[0] > '9' {
		return false
	}
	for i := 1; i < len(s); i++ {
		if s[i] != s[0] {
			return false
		}
	}
	return true
}

func (v *FieldValidator) consistencyIssues(data domain.ExtractedDocumentData, docType domain.DocumentType, userType domain.UserType) []string {
	var issues []string
	today := v.now()

	if userType == domain.UserDriver {
		if docType != domain.DocumentDriversLicense {
			issues = append(issues, "drivers must verify with a driver's license")
		}
		if birth, err := ParseDate(data.DateOfBirth); err == nil {
			if age := Age(birth, today); age < minDriverAge {
				issues = append(issues, fmt.Sprintf("driver is %d, minimum age is %d", age, minDriverAge))
			}
		}
	}

	if expiry, err := ParseDate(data.ExpiryDate); err == nil && expiry.Before(today) {
		issues = append(issues, "document expired on "+expiry.Format(ISODate))
	}

	return issues
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
