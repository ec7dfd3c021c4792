package provider

import "context"

// VisionProvider is the external vision capability used by the verification pipeline.
type VisionProvider interface {
	// AnalyzeDocument detects text lines and faces on a document image
	AnalyzeDocument(ctx context.Context, image []byte) (*DocumentAnalysis, error)

	// DetectFaces detects faces in the image with quality, pose and landmarks
	DetectFaces(ctx context.Context, image []byte) ([]DetectedFace, error)

	// CompareFaces compares the largest face of source against target
	CompareFaces(ctx context.Context, source, target []byte) (*FaceComparison, error)

	// DetectLiveness performs passive liveness detection on a selfie
	DetectLiveness(ctx context.Context, image []byte) (*LivenessResult, error)
}

// TextDetector is the subset of VisionProvider needed by field extraction.
type TextDetector interface {
	DetectText(ctx context.Context, image []byte) ([]TextLine, error)
}

// FaceEmbedder is implemented by providers that expose face embeddings.
// Rekognition does not, so duplicate-face detection is skipped with it.
type FaceEmbedder interface {
	EmbedFace(ctx context.Context, image []byte) ([]float64, error)
}

// TextLine is one line of detected text. Confidence is on a 0..100 scale.
type TextLine struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// DocumentAnalysis is the raw vision output for a document image.
type DocumentAnalysis struct {
	TextLines []TextLine     `json:"text_lines"`
	Faces     []DetectedFace `json:"faces"`
}

// DetectedFace represents a detected face in the image
type DetectedFace struct {
	BoundingBox  BoundingBox    `json:"bounding_box"`
	Confidence   float64        `json:"confidence"`
	QualityScore float64        `json:"quality_score"`
	EyesOpen     *bool          `json:"eyes_open,omitempty"`
	Pose         *Pose          `json:"pose,omitempty"`
	Landmarks    []FaceLandmark `json:"landmarks,omitempty"`
}

// FaceLandmark is a provider-native landmark point, e.g. "eyeLeft" or "nose".
type FaceLandmark struct {
	Type string  `json:"type"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// Pose represents face orientation angles
type Pose struct {
	Pitch float64 `json:"pitch"` // up/down rotation
	Roll  float64 `json:"roll"`  // tilted rotation
	Yaw   float64 `json:"yaw"`   // left/right rotation
}

// BoundingBox represents the face area in the image
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// FaceComparison is the result of comparing two face images.
// Similarity is normalized to 0..1.
type FaceComparison struct {
	Match      bool    `json:"match"`
	Similarity float64 `json:"similarity"`
}

// LivenessResult represents the result of a liveness check
type LivenessResult struct {
	IsLive     bool           `json:"is_live"`
	Confidence float64        `json:"confidence"`
	Indicators []string       `json:"indicators,omitempty"`
	Checks     LivenessChecks `json:"checks"`
	// Faces are the detections the verdict was derived from.
	Faces []DetectedFace `json:"-"`
}

// LivenessChecks contains individual liveness check results
type LivenessChecks struct {
	EyesOpen     bool `json:"eyes_open"`
	FacingCamera bool `json:"facing_camera"`
	QualityOK    bool `json:"quality_ok"`
	SingleFace   bool `json:"single_face"`
}
