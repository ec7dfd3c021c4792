package domain

import "time"

// DocumentType identifies the kind of identity document submitted.
type DocumentType string

const (
	DocumentDriversLicense DocumentType = "DRIVERS_LICENSE"
	DocumentNationalID     DocumentType = "NATIONAL_ID"
	DocumentPassport       DocumentType = "PASSPORT"
)

func (t DocumentType) Valid() bool {
	switch t {
	case DocumentDriversLicense, DocumentNationalID, DocumentPassport:
		return true
	}
	return false
}

// UserType is the marketplace role the user is verifying for.
type UserType string

const (
	UserCustomer UserType = "CUSTOMER"
	UserDriver   UserType = "DRIVER"
	UserAdmin    UserType = "ADMIN"
)

func (t UserType) Valid() bool {
	switch t {
	case UserCustomer, UserDriver, UserAdmin:
		return true
	}
	return false
}

type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

type AnomalyType string

const (
	AnomalyLowQuality        AnomalyType = "LOW_QUALITY"
	AnomalyWrongDocumentType AnomalyType = "WRONG_DOCUMENT_TYPE"
	AnomalyTampering         AnomalyType = "TAMPERING"
)

// SecurityFeature is the outcome of a single document security check.
type SecurityFeature struct {
	Name        string  `json:"name"`
	Detected    bool    `json:"detected"`
	Confidence  float64 `json:"confidence"`
	Description string  `json:"description"`
}

// Anomaly is an irregularity found in the document image.
type Anomaly struct {
	Type        AnomalyType `json:"type"`
	Severity    Severity    `json:"severity"`
	Description string      `json:"description"`
	Confidence  float64     `json:"confidence"`
}

type DocumentAuthenticityResult struct {
	IsAuthentic      bool              `json:"is_authentic"`
	Confidence       float64           `json:"confidence"`
	SecurityFeatures []SecurityFeature `json:"security_features"`
	Anomalies        []Anomaly         `json:"anomalies"`
	DocumentType     DocumentType      `json:"document_type"`
	Issuer           string            `json:"issuer,omitempty"`
	IssueDate        *time.Time        `json:"issue_date,omitempty"`
	ExpiryDate       *time.Time        `json:"expiry_date,omitempty"`
}

// DetectedFeatures returns how many security features were detected.
func (r *DocumentAuthenticityResult) DetectedFeatures() int {
	n := 0
	for _, f := range r.SecurityFeatures {
		if f.Detected {
			n++
		}
	}
	return n
}

// ExtractedDocumentData holds the textual fields read from a document.
// An empty string means the field could not be extracted.
type ExtractedDocumentData struct {
	DocumentNumber string       `json:"document_number"`
	FirstName      string       `json:"first_name"`
	LastName       string       `json:"last_name"`
	DateOfBirth    string       `json:"date_of_birth"`
	ExpiryDate     string       `json:"expiry_date"`
	IssueDate      string       `json:"issue_date"`
	Address        string       `json:"address"`
	Nationality    string       `json:"nationality"`
	Gender         string       `json:"gender"`
	Issuer         string       `json:"issuer"`
	DocumentType   DocumentType `json:"document_type"`
}

// FieldValidation is the verdict of the field validator over extracted data.
type FieldValidation struct {
	Valid              bool     `json:"valid"`
	Completeness       float64  `json:"completeness"`
	Score              float64  `json:"score"`
	MissingFields      []string `json:"missing_fields,omitempty"`
	SuspiciousPatterns []string `json:"suspicious_patterns,omitempty"`
	ConsistencyIssues  []string `json:"consistency_issues,omitempty"`
	Errors             []string `json:"errors,omitempty"`
}

type OCRResult struct {
	ExtractedData    ExtractedDocumentData `json:"extracted_data"`
	Confidence       float64               `json:"confidence"`
	FieldConfidences map[string]float64    `json:"field_confidences,omitempty"`
	ProcessingTime   Milliseconds          `json:"processing_time_ms"`
	Errors           []string              `json:"errors,omitempty"`
	Validation       FieldValidation       `json:"validation"`
}
