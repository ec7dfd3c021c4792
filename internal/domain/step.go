package domain

import (
	"context"
	"errors"
	"fmt"
	"time"
)

type StepType string

const (
	StepDocumentAuthenticity StepType = "document_authenticity"
	StepOCRExtraction        StepType = "ocr_extraction"
	StepFacialRecognition    StepType = "facial_recognition"
	StepRiskAssessment       StepType = "risk_assessment"
)

// VerificationStep is the static definition of one workflow step.
type VerificationStep struct {
	ID         string        `json:"id"`
	Type       StepType      `json:"type"`
	Required   bool          `json:"required"`
	Timeout    time.Duration `json:"timeout"`
	RetryCount int           `json:"retry_count"`
}

// StepPayload is implemented only by the analysis results a step can produce:
// *DocumentAuthenticityResult, *OCRResult, *FacialRecognitionResult and *RiskAssessment.
type StepPayload interface {
	StepType() StepType
	isStepPayload()
}

func (*DocumentAuthenticityResult) StepType() StepType { return StepDocumentAuthenticity }
func (*OCRResult) StepType() StepType                  { return StepOCRExtraction }
func (*FacialRecognitionResult) StepType() StepType    { return StepFacialRecognition }
func (*RiskAssessment) StepType() StepType             { return StepRiskAssessment }

func (*DocumentAuthenticityResult) isStepPayload() {}
func (*OCRResult) isStepPayload()                  {}
func (*FacialRecognitionResult) isStepPayload()    {}
func (*RiskAssessment) isStepPayload()             {}

// StepResult records the outcome of running a step, including failed ones.
type StepResult struct {
	StepID         string       `json:"step_id"`
	Type           StepType     `json:"type"`
	Required       bool         `json:"required"`
	Success        bool         `json:"success"`
	Payload        StepPayload  `json:"payload,omitempty"`
	Error          *StepError   `json:"error,omitempty"`
	Attempts       int          `json:"attempts"`
	ProcessingTime Milliseconds `json:"processing_time_ms"`
	Timestamp      time.Time    `json:"timestamp"`
}

// CriticalFailure reports whether a required step did not succeed.
func (r StepResult) CriticalFailure() bool {
	return r.Required && !r.Success
}

type StepErrorKind string

const (
	KindAnalysisFailure    StepErrorKind = "ANALYSIS_FAILURE"
	KindInsufficientSignal StepErrorKind = "INSUFFICIENT_SIGNAL"
	KindAggregationFailure StepErrorKind = "AGGREGATION_FAILURE"
	KindDecisionFailure    StepErrorKind = "DECISION_FAILURE"
)

// StepError classifies a failure inside the verification pipeline.
type StepError struct {
	Kind      StepErrorKind `json:"kind"`
	Message   string        `json:"message"`
	Retryable bool          `json:"retryable"`
	Err       error         `json:"-"`
}

func (e *StepError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

func NewAnalysisFailure(message string, err error, retryable bool) *StepError {
	return &StepError{Kind: KindAnalysisFailure, Message: message, Retryable: retryable, Err: err}
}

func NewInsufficientSignal(message string) *StepError {
	return &StepError{Kind: KindInsufficientSignal, Message: message}
}

func NewAggregationFailure(message string, err error) *StepError {
	return &StepError{Kind: KindAggregationFailure, Message: message, Err: err}
}

func NewDecisionFailure(message string, err error) *StepError {
	return &StepError{Kind: KindDecisionFailure, Message: message, Err: err}
}

// ClassifyStepError turns an arbitrary capability error into a StepError.
// Cancellation and invalid input are not retryable; anything else is.
func ClassifyStepError(err error) *StepError {
	if err == nil {
		return nil
	}

	var stepErr *StepError
	if errors.As(err, &stepErr) {
		return stepErr
	}

	switch {
	case errors.Is(err, ErrNoFaceDetected), errors.Is(err, ErrNoTextDetected):
		return &StepError{Kind: KindInsufficientSignal, Message: "insufficient signal", Err: err}
	case errors.Is(err, context.Canceled):
		return NewAnalysisFailure("analysis cancelled", err, false)
	case errors.Is(err, context.DeadlineExceeded):
		return NewAnalysisFailure("analysis timed out", err, true)
	case errors.Is(err, ErrInvalidImage), errors.Is(err, ErrUnsupportedDocument):
		return NewAnalysisFailure("invalid input", err, false)
	}

	return NewAnalysisFailure("capability call failed", err, true)
}
