package provider

import "math"

const (
	// DefaultLivenessThreshold is the minimum confidence for a selfie to count as live
	DefaultLivenessThreshold = 0.85

	minLivenessQuality = 0.6
	maxFacingAngle     = 30.0
)

// EvaluateLiveness derives a passive liveness verdict from face detection output.
// A live selfie has exactly one face, facing the camera, eyes open and enough
// quality; confidence is detection confidence weighted by quality.
func EvaluateLiveness(faces []DetectedFace, threshold float64) *LivenessResult {
	singleFace := len(faces) == 1

	var (
		qualityOK    bool
		facingCamera bool
		eyesOpen     bool
		confidence   float64
	)

	if singleFace {
		face := faces[0]
		qualityOK = face.QualityScore >= minLivenessQuality
		facingCamera = face.Pose == nil ||
			(math.Abs(face.Pose.Yaw) <= maxFacingAngle && math.Abs(face.Pose.Pitch) <= maxFacingAngle)
		eyesOpen = face.EyesOpen == nil || *face.EyesOpen
		confidence = face.Confidence * face.QualityScore
	}

	isLive := singleFace && qualityOK && facingCamera && eyesOpen && confidence >= threshold

	result := &LivenessResult{
		IsLive:     isLive,
		Confidence: confidence,
		Checks: LivenessChecks{
			EyesOpen:     eyesOpen,
			FacingCamera: facingCamera,
			QualityOK:    qualityOK,
			SingleFace:   singleFace,
		},
		Faces: faces,
	}

	if isLive {
		return result
	}

	switch {
	case len(faces) == 0:
		result.Indicators = append(result.Indicators, "no face detected")
	case !singleFace:
		result.Indicators = append(result.Indicators, "multiple faces detected")
	default:
		if !qualityOK {
			result.Indicators = append(result.Indicators, "image quality too low")
		}
		if !facingCamera {
			result.Indicators = append(result.Indicators, "face not facing camera")
		}
		if !eyesOpen {
			result.Indicators = append(result.Indicators, "eyes closed")
		}
	}
	if confidence < threshold {
		result.Indicators = append(result.Indicators, "confidence below threshold")
	}

	return result
}
