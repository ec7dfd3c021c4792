package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/saturnino-fabrica-de-software/idcheck/internal/domain"
	"github.com/saturnino-fabrica-de-software/idcheck/internal/extraction"
	"github.com/saturnino-fabrica-de-software/idcheck/internal/provider"
	"github.com/saturnino-fabrica-de-software/idcheck/internal/risk"
)

func (o *Orchestrator) documentAuthenticity(req *domain.VerificationRequest) stepFunc {
	return func(ctx context.Context) (outcome, error) {
		analysis, err := o.vision.AnalyzeDocument(ctx, req.FrontImage)
		if err != nil {
			return outcome{}, fmt.Errorf("analyze document: %w", err)
		}

		result := o.scorer.Score(analysis, req.DocumentType)
		return outcome{payload: result, success: result.IsAuthentic}, nil
	}
}

// ocrExtraction reads the front image and, when required fields are still
// missing, the back image. The merged data is validated against the user's role.
func (o *Orchestrator) ocrExtraction(req *domain.VerificationRequest) stepFunc {
	return func(ctx context.Context) (outcome, error) {
		start := time.Now()

		result, err := o.extractor.ExtractFields(ctx, req.FrontImage, req.DocumentType)
		if err != nil && !errors.Is(err, domain.ErrNoTextDetected) {
			return outcome{}, fmt.Errorf("extract front: %w", err)
		}

		if len(req.BackImage) > 0 && o.needsBack(result, req) {
			back, err := o.extractor.ExtractFields(ctx, req.BackImage, req.DocumentType)
			switch {
			case err == nil:
				result = extraction.MergeResults(result, back)
			case errors.Is(err, domain.ErrNoTextDetected):
			case result == nil:
				return outcome{}, fmt.Errorf("extract back: %w", err)
			default:
				o.logger.WarnContext(ctx, "back image extraction failed", slog.String("error", err.Error()))
			}
		}

		if result == nil {
			empty := &domain.OCRResult{
				ExtractedData:  domain.ExtractedDocumentData{DocumentType: req.DocumentType},
				Errors:         []string{domain.ErrNoTextDetected.Message},
				ProcessingTime: domain.MillisecondsSince(start),
			}
			empty.Validation = o.validator.Validate(empty.ExtractedData, req.DocumentType, req.UserType)
			return outcome{payload: empty}, &domain.StepError{
				Kind:    domain.KindInsufficientSignal,
				Message: "no text detected on document",
				Err:     domain.ErrNoTextDetected,
			}
		}

		validated := *result
		validated.Validation = o.validator.Validate(validated.ExtractedData, req.DocumentType, req.UserType)
		validated.ProcessingTime = domain.MillisecondsSince(start)

		return outcome{payload: &validated, success: validated.Validation.Valid}, nil
	}
}

func (o *Orchestrator) needsBack(front *domain.OCRResult, req *domain.VerificationRequest) bool {
	if front == nil {
		return true
	}
	return len(o.validator.Validate(front.ExtractedData, req.DocumentType, req.UserType).MissingFields) > 0
}

// facialRecognition compares the document portrait with the selfie and gates
// the match on selfie liveness.
func (o *Orchestrator) facialRecognition(req *domain.VerificationRequest) stepFunc {
	return func(ctx context.Context) (outcome, error) {
		start := time.Now()
		noFace := func(err error) (outcome, error) {
			return outcome{payload: &domain.FacialRecognitionResult{ProcessingTime: domain.MillisecondsSince(start)}},
				&domain.StepError{Kind: domain.KindInsufficientSignal, Message: "no face detected in images", Err: err}
		}

		comparison, err := o.vision.CompareFaces(ctx, req.FrontImage, req.SelfieImage)
		if errors.Is(err, domain.ErrNoFaceDetected) {
			return noFace(err)
		}
		if err != nil {
			return outcome{}, fmt.Errorf("compare faces: %w", err)
		}

		// Liveness carries the selfie detections.
		liveness, err := o.vision.DetectLiveness(ctx, req.SelfieImage)
		if errors.Is(err, domain.ErrNoFaceDetected) {
			return noFace(err)
		}
		if err != nil {
			return outcome{}, fmt.Errorf("detect liveness: %w", err)
		}
		if len(liveness.Faces) == 0 {
			return noFace(domain.ErrNoFaceDetected)
		}

		face := largestFace(liveness.Faces)
		result := domain.FacialRecognitionResult{
			Match:              comparison.Similarity >= o.faceMatchThreshold,
			Confidence:         comparison.Similarity * 100,
			Similarity:         comparison.Similarity,
			FaceDetected:       true,
			FaceQuality:        face.QualityScore,
			Landmarks:          toLandmarks(face),
			Liveness:           liveness.IsLive,
			LivenessConfidence: liveness.Confidence,
			SpoofingIndicators: liveness.Indicators,
		}.ApplyLivenessGate()
		result.ProcessingTime = domain.MillisecondsSince(start)

		return outcome{payload: &result, success: result.FaceDetected && result.Match}, nil
	}
}

func (o *Orchestrator) riskAssessment(in risk.Inputs) stepFunc {
	return func(context.Context) (outcome, error) {
		assessment, err := o.aggregator.Assess(in)
		if err != nil {
			return outcome{}, domain.NewAggregationFailure("aggregate risk factors", err)
		}
		return outcome{payload: assessment, success: !assessment.RequiresManualReview}, nil
	}
}

func largestFace(faces []provider.DetectedFace) provider.DetectedFace {
	best := faces[0]
	for _, f := range faces[1:] {
		if f.BoundingBox.Width*f.BoundingBox.Height > best.BoundingBox.Width*best.BoundingBox.Height {
			best = f
		}
	}
	return best
}

// toLandmarks maps provider landmark names such as "eyeLeft", "leftPupil"
// or "chinBottom" onto landmark types. Brows and jawline points are dropped.
func toLandmarks(face provider.DetectedFace) []domain.Landmark {
	landmarks := make([]domain.Landmark, 0, len(face.Landmarks))
	for _, lm := range face.Landmarks {
		t, ok := landmarkType(lm.Type)
		if !ok {
			continue
		}
		landmarks = append(landmarks, domain.Landmark{
			Type:       t,
			X:          lm.X,
			Y:          lm.Y,
			Confidence: face.Confidence,
		})
	}
	return landmarks
}

func landmarkType(name string) (domain.LandmarkType, bool) {
	n := strings.ToLower(name)
	switch {
	case strings.Contains(n, "brow"), strings.Contains(n, "jawline"):
		return "", false
	case strings.Contains(n, "eye"), strings.Contains(n, "pupil"):
		return domain.LandmarkEye, true
	case strings.Contains(n, "nose"):
		return domain.LandmarkNose, true
	case strings.Contains(n, "mouth"):
		return domain.LandmarkMouth, true
	case strings.Contains(n, "ear"):
		return domain.LandmarkEar, true
	case strings.Contains(n, "chin"):
		return domain.LandmarkChin, true
	}
	return "", false
}
