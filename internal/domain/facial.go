package domain

import (
	"github.com/google/uuid"
)

type LandmarkType string

const (
	LandmarkEye   LandmarkType = "EYE"
	LandmarkNose  LandmarkType = "NOSE"
	LandmarkMouth LandmarkType = "MOUTH"
	LandmarkEar   LandmarkType = "EAR"
	LandmarkChin  LandmarkType = "CHIN"
)

type Landmark struct {
	Type       LandmarkType `json:"type"`
	X          float64      `json:"x"`
	Y          float64      `json:"y"`
	Confidence float64      `json:"confidence"`
}

// FacialRecognitionResult compares the document portrait with the selfie.
// Confidence is on a 0..100 scale; every other score is 0..1.
type FacialRecognitionResult struct {
	Match              bool         `json:"match"`
	Confidence         float64      `json:"confidence"`
	Similarity         float64      `json:"similarity"`
	FaceDetected       bool         `json:"face_detected"`
	FaceQuality        float64      `json:"face_quality"`
	Landmarks          []Landmark   `json:"landmarks"`
	Liveness           bool         `json:"liveness"`
	LivenessConfidence float64      `json:"liveness_confidence"`
	SpoofingIndicators []string     `json:"spoofing_indicators,omitempty"`
	ProcessingTime     Milliseconds `json:"processing_time_ms"`
}

// livenessPenalty is subtracted from Confidence when the selfie fails liveness.
const livenessPenalty = 20.0

// ApplyLivenessGate returns a copy of r in which a failed liveness check
// forces a non-match and lowers the match confidence.
func (r FacialRecognitionResult) ApplyLivenessGate() FacialRecognitionResult {
	if r.Liveness {
		return r
	}
	r.Match = false
	r.Confidence -= livenessPenalty
	if r.Confidence < 0 {
		r.Confidence = 0
	}
	return r
}

// FaceMatch is a stored selfie of another user similar to the current one.
type FaceMatch struct {
	VerificationID uuid.UUID `json:"verification_id"`
	UserID         uuid.UUID `json:"user_id"`
	Similarity     float64   `json:"similarity"`
}
