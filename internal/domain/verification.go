package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var validate = validator.New()

// VerificationRequest is a single identity submission. Images are never persisted.
type VerificationRequest struct {
	UserID       uuid.UUID    `json:"user_id" validate:"required"`
	DocumentType DocumentType `json:"document_type" validate:"required,oneof=DRIVERS_LICENSE NATIONAL_ID PASSPORT"`
	UserType     UserType     `json:"user_type" validate:"required,oneof=CUSTOMER DRIVER ADMIN"`
	FrontImage   []byte       `json:"-" validate:"required"`
	BackImage    []byte       `json:"-"`
	SelfieImage  []byte       `json:"-" validate:"required"`
}

// Validate checks the request shape and returns ErrValidationFailed describing
// every offending field.
func (r *VerificationRequest) Validate() error {
	err := validate.Struct(r)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return ErrValidationFailed.WithError(err)
	}

	details := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		details = append(details, e.Field()+": "+formatValidationError(e))
	}
	return ErrValidationFailed.WithError(errors.New(strings.Join(details, "; ")))
}

func formatValidationError(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "this field is required"
	case "oneof":
		return "must be one of: " + e.Param()
	default:
		return "invalid value"
	}
}

type VerificationStatus string

const (
	StatusPending  VerificationStatus = "PENDING"
	StatusRunning  VerificationStatus = "RUNNING"
	StatusApproved VerificationStatus = "APPROVED"
	StatusRejected VerificationStatus = "REJECTED"
	StatusFlagged  VerificationStatus = "FLAGGED"
)

var statusTransitions = map[VerificationStatus][]VerificationStatus{
	StatusPending: {StatusRunning},
	StatusRunning: {StatusApproved, StatusRejected, StatusFlagged},
	StatusFlagged: {StatusApproved, StatusRejected},
}

// CanTransitionTo reports whether the lifecycle allows moving from s to next.
func (s VerificationStatus) CanTransitionTo(next VerificationStatus) bool {
	for _, allowed := range statusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s VerificationStatus) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// VerificationResult is everything a caller gets back from one pipeline run.
type VerificationResult struct {
	VerificationID      uuid.UUID             `json:"verification_id"`
	Success             bool                  `json:"success"`
	RiskScore           float64               `json:"risk_score"`
	AuthenticityScore   float64               `json:"authenticity_score"`
	DataValidationScore float64               `json:"data_validation_score"`
	FacialMatchScore    float64               `json:"facial_match_score"`
	Status              VerificationStatus    `json:"status"`
	Message             string                `json:"message"`
	Decision            *VerificationDecision `json:"decision,omitempty"`
	Assessment          *RiskAssessment       `json:"risk_assessment,omitempty"`
	Steps               []StepResult          `json:"steps,omitempty"`
	ProcessingTime      Milliseconds          `json:"processing_time_ms"`
}

// StepSummary is the persisted trace of a step, without its payload.
type StepSummary struct {
	StepID         string        `json:"step_id"`
	Type           StepType      `json:"type"`
	Required       bool          `json:"required"`
	Success        bool          `json:"success"`
	ErrorKind      StepErrorKind `json:"error_kind,omitempty"`
	Error          string        `json:"error,omitempty"`
	Attempts       int           `json:"attempts"`
	ProcessingTime Milliseconds  `json:"processing_time_ms"`
}

func SummarizeSteps(results []StepResult) []StepSummary {
	summaries := make([]StepSummary, 0, len(results))
	for _, r := range results {
		s := StepSummary{
			StepID:         r.StepID,
			Type:           r.Type,
			Required:       r.Required,
			Success:        r.Success,
			Attempts:       r.Attempts,
			ProcessingTime: r.ProcessingTime,
		}
		if r.Error != nil {
			s.ErrorKind = r.Error.Kind
			s.Error = r.Error.Error()
		}
		summaries = append(summaries, s)
	}
	return summaries
}

// VerificationRecord is the stored form of a verification.
type VerificationRecord struct {
	ID                   uuid.UUID          `json:"id"`
	UserID               uuid.UUID          `json:"user_id"`
	DocumentType         DocumentType       `json:"document_type"`
	UserType             UserType           `json:"user_type"`
	Status               VerificationStatus `json:"status"`
	Decision             Decision           `json:"decision,omitempty"`
	DecisionConfidence   float64            `json:"decision_confidence"`
	RiskScore            float64            `json:"risk_score"`
	RiskLevel            RiskLevel          `json:"risk_level,omitempty"`
	AuthenticityScore    float64            `json:"authenticity_score"`
	DataValidationScore  float64            `json:"data_validation_score"`
	FacialMatchScore     float64            `json:"facial_match_score"`
	RequiresManualReview bool               `json:"requires_manual_review"`
	Reasoning            []string           `json:"reasoning"`
	NextSteps            []string           `json:"next_steps"`
	Steps                []StepSummary      `json:"steps"`
	Embedding            []float64          `json:"-"`
	ReviewerID           string             `json:"reviewer_id,omitempty"`
	ReviewNotes          string             `json:"review_notes,omitempty"`
	ReviewedAt           *time.Time         `json:"reviewed_at,omitempty"`
	CreatedAt            time.Time          `json:"created_at"`
	UpdatedAt            time.Time          `json:"updated_at"`
}

// DecisionScores are the numbers persisted alongside a decision.
type DecisionScores struct {
	RiskScore           float64
	RiskLevel           RiskLevel
	AuthenticityScore   float64
	DataValidationScore float64
	FacialMatchScore    float64
}

// UserHistory summarises a user's prior verifications.
type UserHistory struct {
	UserID             uuid.UUID            `json:"user_id"`
	PriorOutcomes      []VerificationStatus `json:"prior_outcomes"`
	RecentAttempts     []time.Time          `json:"recent_attempts"`
	SuspiciousActivity bool                 `json:"suspicious_activity"`
}

func (h *UserHistory) RejectedCount() int {
	n := 0
	for _, o := range h.PriorOutcomes {
		if o == StatusRejected {
			n++
		}
	}
	return n
}

// AttemptsSince counts attempts at or after since.
func (h *UserHistory) AttemptsSince(since time.Time) int {
	n := 0
	for _, at := range h.RecentAttempts {
		if !at.Before(since) {
			n++
		}
	}
	return n
}

// AuditEntry is one row of the verification audit log.
type AuditEntry struct {
	ID             uuid.UUID         `json:"id"`
	VerificationID uuid.UUID         `json:"verification_id"`
	Action         string            `json:"action"`
	Actor          string            `json:"actor"`
	Success        bool              `json:"success"`
	Error          string            `json:"error,omitempty"`
	Details        map[string]string `json:"details,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
}
