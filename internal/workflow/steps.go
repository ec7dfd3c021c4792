package workflow

import (
	"time"

	"github.com/saturnino-fabrica-de-software/idcheck/internal/domain"
)

const (
	DefaultStepTimeout = 30 * time.Second
	DefaultRetryCount  = 2

	riskStepTimeout = 5 * time.Second

	defaultBackoffBase = 200 * time.Millisecond
	defaultBackoffMax  = 2 * time.Second
)

// analysisSteps are the steps that run concurrently, in result order.
var analysisSteps = []domain.StepType{
	domain.StepDocumentAuthenticity,
	domain.StepOCRExtraction,
	domain.StepFacialRecognition,
}

// DefaultSteps returns the workflow definition. Document authenticity and
// facial recognition are required; OCR and risk assessment are not.
// timeout and retries apply to the three analysis steps only.
func DefaultSteps(timeout time.Duration, retries int) []domain.VerificationStep {
	return []domain.VerificationStep{
		{ID: string(domain.StepDocumentAuthenticity), Type: domain.StepDocumentAuthenticity, Required: true, Timeout: timeout, RetryCount: retries},
		{ID: string(domain.StepOCRExtraction), Type: domain.StepOCRExtraction, Required: false, Timeout: timeout, RetryCount: retries},
		{ID: string(domain.StepFacialRecognition), Type: domain.StepFacialRecognition, Required: true, Timeout: timeout, RetryCount: retries},
		{ID: string(domain.StepRiskAssessment), Type: domain.StepRiskAssessment, Required: false, Timeout: riskStepTimeout, RetryCount: 0},
	}
}

func indexSteps(steps []domain.VerificationStep) map[domain.StepType]domain.VerificationStep {
	byType := make(map[domain.StepType]domain.VerificationStep, len(steps))
	for _, s := range steps {
		byType[s.Type] = s
	}
	return byType
}
