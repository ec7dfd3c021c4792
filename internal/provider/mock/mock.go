package mock

import (
	"bytes"
	"context"
	"crypto/sha256"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/saturnino-fabrica-de-software/idcheck/internal/domain"
	"github.com/saturnino-fabrica-de-software/idcheck/internal/provider"
)

const (
	embeddingDimension = 512
	minImageSize       = 1000

	textConfidence = 98.5
)

// cannedMRZ is returned for images that carry no readable text so local runs
// produce a complete passport.
var cannedMRZ = []string{
	"PASSPORT",
	"P<UTOERIKSSON<<ANNA<MARIA<<<<<<<<<<<<<<<<<<<",
	"L898902C36UTO7408122F3404159ZE184226B<<<<<10",
}

// Provider implements provider.VisionProvider for tests and local development.
// Images smaller than 1000 bytes are rejected as invalid. Images whose bytes
// are UTF-8 text are "read" line by line.
type Provider struct {
	similarity float64
	faceCount  int
	quality    float64
	threshold  float64
}

// Option configures the mock
type Option func(*Provider)

// WithSimilarity sets the similarity returned by CompareFaces
func WithSimilarity(similarity float64) Option {
	return func(p *Provider) {
		p.similarity = similarity
	}
}

// WithFaceCount sets how many faces DetectFaces returns
func WithFaceCount(n int) Option {
	return func(p *Provider) {
		p.faceCount = n
	}
}

// WithQuality sets the quality score of detected faces
func WithQuality(quality float64) Option {
	return func(p *Provider) {
		p.quality = quality
	}
}

// WithLivenessThreshold sets the liveness threshold used by DetectLiveness
func WithLivenessThreshold(threshold float64) Option {
	return func(p *Provider) {
		p.threshold = threshold
	}
}

// New creates a mock provider that reports a live, matching face by default
func New(opts ...Option) *Provider {
	p := &Provider{
		similarity: 0.95,
		faceCount:  1,
		quality:    0.95,
		threshold:  provider.DefaultLivenessThreshold,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var (
	_ provider.VisionProvider = (*Provider)(nil)
	_ provider.TextDetector   = (*Provider)(nil)
	_ provider.FaceEmbedder   = (*Provider)(nil)
)

// DetectText returns the image's text lines, or a passport MRZ for binary images
func (p *Provider) DetectText(ctx context.Context, image []byte) ([]provider.TextLine, error) {
	if len(image) < minImageSize {
		return nil, domain.ErrInvalidImage
	}

	raw := cannedMRZ
	if text := bytes.TrimRight(image, "\x00 "); len(text) > 0 && utf8.Valid(text) && bytes.IndexByte(text, 0) < 0 {
		raw = strings.Split(string(text), "\n")
	}

	lines := make([]provider.TextLine, 0, len(raw))
	for _, l := range raw {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, provider.TextLine{Text: l, Confidence: textConfidence})
		}
	}
	return lines, nil
}

// AnalyzeDocument combines DetectText and DetectFaces
func (p *Provider) AnalyzeDocument(ctx context.Context, image []byte) (*provider.DocumentAnalysis, error) {
	lines, err := p.DetectText(ctx, image)
	if err != nil {
		return nil, err
	}
	faces, err := p.DetectFaces(ctx, image)
	if err != nil {
		return nil, err
	}
	return &provider.DocumentAnalysis{TextLines: lines, Faces: faces}, nil
}

// DetectFaces simulates face detection
func (p *Provider) DetectFaces(ctx context.Context, image []byte) ([]provider.DetectedFace, error) {
	if len(image) < minImageSize {
		return nil, domain.ErrInvalidImage
	}

	eyesOpen := true
	faces := make([]provider.DetectedFace, 0, p.faceCount)
	for i := 0; i < p.faceCount; i++ {
		faces = append(faces, provider.DetectedFace{
			BoundingBox: provider.BoundingBox{
				X:      0.1,
				Y:      0.1,
				Width:  0.8,
				Height: 0.8,
			},
			Confidence:   0.99,
			QualityScore: p.quality,
			EyesOpen:     &eyesOpen,
			Pose:         &provider.Pose{},
			Landmarks: []provider.FaceLandmark{
				{Type: "eyeLeft", X: 0.35, Y: 0.4},
				{Type: "eyeRight", X: 0.65, Y: 0.4},
				{Type: "nose", X: 0.5, Y: 0.55},
				{Type: "mouthLeft", X: 0.4, Y: 0.7},
				{Type: "mouthRight", X: 0.6, Y: 0.7},
			},
		})
	}
	return faces, nil
}

// CompareFaces returns the configured similarity
func (p *Provider) CompareFaces(ctx context.Context, source, target []byte) (*provider.FaceComparison, error) {
	if len(source) < minImageSize || len(target) < minImageSize {
		return nil, domain.ErrInvalidImage
	}
	if p.faceCount == 0 {
		return nil, domain.ErrNoFaceDetected
	}

	return &provider.FaceComparison{
		Match:      p.similarity >= 0.8,
		Similarity: p.similarity,
	}, nil
}

// DetectLiveness evaluates the simulated selfie faces
func (p *Provider) DetectLiveness(ctx context.Context, image []byte) (*provider.LivenessResult, error) {
	faces, err := p.DetectFaces(ctx, image)
	if err != nil {
		return nil, err
	}
	return provider.EvaluateLiveness(faces, p.threshold), nil
}

// EmbedFace generates a deterministic embedding from the image hash
func (p *Provider) EmbedFace(ctx context.Context, image []byte) ([]float64, error) {
	if len(image) < minImageSize {
		return nil, domain.ErrInvalidImage
	}
	return generateEmbedding(image), nil
}

func generateEmbedding(image []byte) []float64 {
	hash := sha256.Sum256(image)
	embedding := make([]float64, embeddingDimension)
	hashLen := len(hash)

	for i := 0; i < embeddingDimension; i++ {
		idx := i % hashLen
		//nolint:gosec // idx is always < hashLen due to modulo operation
		embedding[i] = (float64(hash[idx])/255.0)*2 - 1
	}

	norm := 0.0
	for _, v := range embedding {
		norm += v * v
	}
	norm = math.Sqrt(norm)

	for i := range embedding {
		embedding[i] /= norm
	}

	return embedding
}

// CosineSimilarity returns the cosine similarity of two embeddings
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
