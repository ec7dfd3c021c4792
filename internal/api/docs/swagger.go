package docs

import (
	"github.com/go-swagno/swagno"
	"github.com/go-swagno/swagno/components/endpoint"
	"github.com/go-swagno/swagno/components/http/response"
	"github.com/go-swagno/swagno/components/mime"
	"github.com/go-swagno/swagno/components/parameter"
)

// StepSummaryData represents the outcome of one pipeline step
type StepSummaryData struct {
	StepID           string  `json:"step_id" example:"facial_recognition"`
	Type             string  `json:"type" example:"FACIAL_RECOGNITION"`
	Required         bool    `json:"required" example:"true"`
	Success          bool    `json:"success" example:"true"`
	ErrorKind        string  `json:"error_kind,omitempty" example:""`
	Attempts         int     `json:"attempts" example:"1"`
	ProcessingTimeMs float64 `json:"processing_time_ms" example:"812"`
}

// DecisionData represents the decision taken by the engine
type DecisionData struct {
	Decision             string   `json:"decision" example:"APPROVE"`
	Confidence           float64  `json:"confidence" example:"0.82"`
	Reasoning            []string `json:"reasoning" example:"low risk: all checks passed"`
	RequiresManualReview bool     `json:"requires_manual_review" example:"false"`
	NextSteps            []string `json:"next_steps" example:"grant access"`
	Rule                 string   `json:"rule" example:"low_risk"`
}

// RiskAssessmentData represents the aggregated risk
type RiskAssessmentData struct {
	OverallScore float64  `json:"overall_score" example:"0.12"`
	Level        string   `json:"level" example:"LOW"`
	Factors      []string `json:"factors" example:"[]"`
}

// VerificationResultResponse represents the response of a verification run
type VerificationResultResponse struct {
	VerificationID      string             `json:"verification_id" example:"550e8400-e29b-41d4-a716-446655440000"`
	Success             bool               `json:"success" example:"true"`
	RiskScore           float64            `json:"risk_score" example:"0.12"`
	AuthenticityScore   float64            `json:"authenticity_score" example:"0.91"`
	DataValidationScore float64            `json:"data_validation_score" example:"0.95"`
	FacialMatchScore    float64            `json:"facial_match_score" example:"0.93"`
	Status              string             `json:"status" example:"APPROVED"`
	Message             string             `json:"message" example:"verification approved"`
	Decision            DecisionData       `json:"decision"`
	Assessment          RiskAssessmentData `json:"risk_assessment"`
	Steps               []StepSummaryData  `json:"steps"`
	ProcessingTimeMs    float64            `json:"processing_time_ms" example:"1540"`
}

// VerificationRecordResponse represents a stored verification
type VerificationRecordResponse struct {
	ID                   string            `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	UserID               string            `json:"user_id" example:"1b4e28ba-2fa1-11d2-883f-0016d3cca427"`
	DocumentType         string            `json:"document_type" example:"PASSPORT"`
	UserType             string            `json:"user_type" example:"CUSTOMER"`
	Status               string            `json:"status" example:"FLAGGED"`
	Decision             string            `json:"decision" example:"MANUAL_REVIEW"`
	DecisionConfidence   float64           `json:"decision_confidence" example:"0.6"`
	RiskScore            float64           `json:"risk_score" example:"0.55"`
	RiskLevel            string            `json:"risk_level" example:"MEDIUM"`
	AuthenticityScore    float64           `json:"authenticity_score" example:"0.7"`
	DataValidationScore  float64           `json:"data_validation_score" example:"0.8"`
	FacialMatchScore     float64           `json:"facial_match_score" example:"0.75"`
	RequiresManualReview bool              `json:"requires_manual_review" example:"true"`
	Reasoning            []string          `json:"reasoning" example:"medium risk"`
	NextSteps            []string          `json:"next_steps" example:"manual review"`
	Steps                []StepSummaryData `json:"steps"`
	ReviewerID           string            `json:"reviewer_id,omitempty" example:""`
	ReviewNotes          string            `json:"review_notes,omitempty" example:""`
	CreatedAt            string            `json:"created_at" example:"2024-01-01T00:00:00Z"`
	UpdatedAt            string            `json:"updated_at" example:"2024-01-01T00:00:02Z"`
}

// ReviewQueueResponse represents a page of flagged verifications
type ReviewQueueResponse struct {
	Items  []VerificationRecordResponse `json:"items"`
	Limit  int                          `json:"limit" example:"20"`
	Offset int                          `json:"offset" example:"0"`
}

// AuditEntryData represents one audit log entry
type AuditEntryData struct {
	ID             string            `json:"id" example:"7c9e6679-7425-40de-944b-e07fc1f90ae7"`
	VerificationID string            `json:"verification_id" example:"550e8400-e29b-41d4-a716-446655440000"`
	Action         string            `json:"action" example:"VERIFICATION_DECIDED"`
	Actor          string            `json:"actor" example:"system"`
	Success        bool              `json:"success" example:"true"`
	Error          string            `json:"error,omitempty" example:""`
	Details        map[string]string `json:"details,omitempty"`
	CreatedAt      string            `json:"created_at" example:"2024-01-01T00:00:02Z"`
}

// AuditTrailResponse represents the audit trail of a verification
type AuditTrailResponse struct {
	VerificationID string           `json:"verification_id" example:"550e8400-e29b-41d4-a716-446655440000"`
	Entries        []AuditEntryData `json:"entries"`
}

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Code    string `json:"code" example:"VALIDATION_FAILED"`
	Message string `json:"message" example:"Request validation failed"`
}

// HealthResponse represents the health and readiness probes
type HealthResponse struct {
	Status  string            `json:"status" example:"ok"`
	Version string            `json:"version,omitempty" example:"0.1.0"`
	Checks  map[string]string `json:"checks,omitempty"`
}

var (
	errValidation  = response.New(ErrorResponse{Code: "VALIDATION_FAILED", Message: "Request validation failed"}, "422", "Unprocessable Entity")
	errNotFound    = response.New(ErrorResponse{Code: "VERIFICATION_NOT_FOUND", Message: "Verification not found"}, "404", "Not Found")
	errInternal    = response.New(ErrorResponse{Code: "INTERNAL_ERROR", Message: "An unexpected error occurred"}, "500", "Internal Server Error")
	idPathParam    = parameter.StrParam("id", parameter.Path, parameter.WithDescription("Verification ID (UUID)"))
	jsonProduction = []mime.MIME{mime.JSON}
)

func NewSwagger() *swagno.Swagger {
	sw := swagno.New(swagno.Config{
		Title:       "IDCheck Verification API",
		Version:     "v1.0.0",
		Description: "Identity verification pipeline: document OCR, authenticity, data validation and facial match, scored into an approve/reject/review decision",
		Host:        "localhost:3000",
		Path:        "/v1",
	})

	endpoints := []*endpoint.EndPoint{
		// POST /v1/verifications - Run a verification
		endpoint.New(
			endpoint.POST,
			"/verifications",
			endpoint.WithTags("Verifications"),
			endpoint.WithSummary("Run an identity verification"),
			endpoint.WithDescription("Multipart form with user_id, document_type (DRIVERS_LICENSE, NATIONAL_ID, PASSPORT), user_type (CUSTOMER, DRIVER, ADMIN), front_image, optional back_image and selfie_image. Runs the full pipeline and returns the decision."),
			endpoint.WithConsume([]mime.MIME{mime.MIME("multipart/form-data")}),
			endpoint.WithProduce(jsonProduction),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(VerificationResultResponse{}, "200", "Verification completed"),
			}),
			endpoint.WithErrors([]response.Response{
				errValidation,
				response.New(ErrorResponse{Code: "INVALID_IMAGE", Message: "Invalid image format or size"}, "422", "Unprocessable Entity"),
				errInternal,
			}),
		),

		// GET /v1/verifications/:id - Get a verification
		endpoint.New(
			endpoint.GET,
			"/verifications/{id}",
			endpoint.WithTags("Verifications"),
			endpoint.WithSummary("Get a verification"),
			endpoint.WithProduce(jsonProduction),
			endpoint.WithParams(idPathParam),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(VerificationRecordResponse{}, "200", "Verification retrieved"),
			}),
			endpoint.WithErrors([]response.Response{errValidation, errNotFound, errInternal}),
		),

		// POST /v1/verifications/:id/review - Manual review
		endpoint.New(
			endpoint.POST,
			"/verifications/{id}/review",
			endpoint.WithTags("Review"),
			endpoint.WithSummary("Resolve a flagged verification"),
			endpoint.WithDescription(`JSON body {"reviewer_id": string, "approve": bool, "notes": string}. Only FLAGGED verifications can be reviewed.`),
			endpoint.WithConsume(jsonProduction),
			endpoint.WithProduce(jsonProduction),
			endpoint.WithParams(idPathParam),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(VerificationRecordResponse{}, "200", "Review recorded"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "BAD_REQUEST", Message: "Bad request"}, "400", "Bad Request"),
				errNotFound,
				response.New(ErrorResponse{Code: "INVALID_STATUS_TRANSITION", Message: "Verification status does not allow this operation"}, "409", "Conflict"),
				errValidation,
				errInternal,
			}),
		),

		// GET /v1/verifications/:id/audit - Audit trail
		endpoint.New(
			endpoint.GET,
			"/verifications/{id}/audit",
			endpoint.WithTags("Verifications"),
			endpoint.WithSummary("Get the audit trail of a verification"),
			endpoint.WithProduce(jsonProduction),
			endpoint.WithParams(idPathParam),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(AuditTrailResponse{}, "200", "Audit trail retrieved"),
			}),
			endpoint.WithErrors([]response.Response{errValidation, errNotFound, errInternal}),
		),

		// GET /v1/review-queue - Flagged verifications
		endpoint.New(
			endpoint.GET,
			"/review-queue",
			endpoint.WithTags("Review"),
			endpoint.WithSummary("List verifications awaiting manual review"),
			endpoint.WithProduce(jsonProduction),
			endpoint.WithParams(
				parameter.IntParam("limit", parameter.Query, parameter.WithDescription("Page size (1-100, default: 20)")),
				parameter.IntParam("offset", parameter.Query, parameter.WithDescription("Page offset (default: 0)")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(ReviewQueueResponse{}, "200", "Queue retrieved"),
			}),
			endpoint.WithErrors([]response.Response{errValidation, errInternal}),
		),
	}

	sw.AddEndpoints(endpoints)

	return sw
}
