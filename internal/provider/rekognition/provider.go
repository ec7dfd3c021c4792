package rekognition

import (
	"context"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"

	"github.com/saturnino-fabrica-de-software/idcheck/internal/audit"
	"github.com/saturnino-fabrica-de-software/idcheck/internal/domain"
	"github.com/saturnino-fabrica-de-software/idcheck/internal/provider"
)

const (
	// maxImageSize is the maximum image size supported by AWS Rekognition (5MB)
	maxImageSize = 5 * 1024 * 1024
	// minImageSize is the minimum image size for valid processing
	minImageSize = 100

	providerName = "rekognition"
)

// Provider implements provider.VisionProvider using AWS Rekognition
type Provider struct {
	client      *Client
	auditLogger audit.Logger
}

// ProviderOption defines optional configuration for Provider
type ProviderOption func(*Provider)

// WithAuditLogger sets the audit logger for the provider
func WithAuditLogger(logger audit.Logger) ProviderOption {
	return func(p *Provider) {
		p.auditLogger = logger
	}
}

// Ensure Provider implements the provider interfaces at compile time
var (
	_ provider.VisionProvider = (*Provider)(nil)
	_ provider.TextDetector   = (*Provider)(nil)
)

// NewProvider creates a new Rekognition provider using the default AWS credential chain
func NewProvider(ctx context.Context, cfg Config, opts ...ProviderOption) (*Provider, error) {
	client, err := NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create rekognition client: %w", err)
	}
	return NewProviderWithClient(client, opts...), nil
}

// NewProviderWithClient creates a provider around an existing client
func NewProviderWithClient(client *Client, opts ...ProviderOption) *Provider {
	p := &Provider{client: client}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// logAudit logs an audit event if an audit logger is configured
// Audit failure does not affect the operation (fire-and-forget)
func (p *Provider) logAudit(ctx context.Context, eventType audit.EventType, success bool, err error, details map[string]string) {
	if p.auditLogger == nil {
		return
	}

	event := audit.Event{
		EventType: eventType,
		Provider:  providerName,
		Success:   success,
		Details:   details,
	}

	if err != nil {
		event.Error = err.Error()
	}

	_ = p.auditLogger.Log(ctx, event)
}

// validateImage checks if image data is valid for Rekognition processing
func validateImage(image []byte) error {
	if len(image) == 0 {
		return domain.ErrInvalidImage
	}
	if len(image) < minImageSize {
		return domain.ErrInvalidImage.WithError(fmt.Errorf("image too small (%d bytes, minimum %d)", len(image), minImageSize))
	}
	if len(image) > maxImageSize {
		return domain.ErrInvalidImage.WithError(fmt.Errorf("image too large (%d bytes, maximum %d)", len(image), maxImageSize))
	}
	return nil
}

// DetectText returns the LINE detections of an image; WORD detections are ignored
func (p *Provider) DetectText(ctx context.Context, image []byte) ([]provider.TextLine, error) {
	if err := validateImage(image); err != nil {
		p.logAudit(ctx, audit.EventTextDetected, false, err, map[string]string{
			"image_size": strconv.Itoa(len(image)),
		})
		return nil, err
	}

	output, err := p.client.rekognition.DetectText(ctx, &rekognition.DetectTextInput{
		Image: &types.Image{Bytes: image},
	})
	if err != nil {
		mapped := mapAPIError("detect text", err)
		p.logAudit(ctx, audit.EventTextDetected, false, mapped, map[string]string{
			"image_size": strconv.Itoa(len(image)),
		})
		return nil, mapped
	}

	lines := make([]provider.TextLine, 0, len(output.TextDetections))
	for _, detection := range output.TextDetections {
		if detection.Type != types.TextTypesLine {
			continue
		}
		lines = append(lines, provider.TextLine{
			Text:       aws.ToString(detection.DetectedText),
			Confidence: float64(aws.ToFloat32(detection.Confidence)),
		})
	}

	p.logAudit(ctx, audit.EventTextDetected, true, nil, map[string]string{
		"lines_count": strconv.Itoa(len(lines)),
		"image_size":  strconv.Itoa(len(image)),
	})

	return lines, nil
}

// DetectFaces detects faces in an image using AWS Rekognition DetectFaces API
// Returns an empty slice if no faces are detected (not an error)
func (p *Provider) DetectFaces(ctx context.Context, image []byte) ([]provider.DetectedFace, error) {
	if err := validateImage(image); err != nil {
		p.logAudit(ctx, audit.EventFacesDetected, false, err, map[string]string{
			"image_size": strconv.Itoa(len(image)),
		})
		return nil, err
	}

	input := &rekognition.DetectFacesInput{
		Image: &types.Image{
			Bytes: image,
		},
		Attributes: []types.Attribute{types.AttributeAll},
	}

	output, err := p.client.rekognition.DetectFaces(ctx, input)
	if err != nil {
		mapped := mapAPIError("detect faces", err)
		p.logAudit(ctx, audit.EventFacesDetected, false, mapped, map[string]string{
			"image_size": strconv.Itoa(len(image)),
		})
		return nil, mapped
	}

	faces := make([]provider.DetectedFace, 0, len(output.FaceDetails))
	for _, detail := range output.FaceDetails {
		faces = append(faces, toDetectedFace(detail))
	}

	p.logAudit(ctx, audit.EventFacesDetected, true, nil, map[string]string{
		"faces_count": strconv.Itoa(len(faces)),
		"image_size":  strconv.Itoa(len(image)),
	})

	return faces, nil
}

// AnalyzeDocument runs text and face detection on a document image
func (p *Provider) AnalyzeDocument(ctx context.Context, image []byte) (*provider.DocumentAnalysis, error) {
	lines, err := p.DetectText(ctx, image)
	if err != nil {
		return nil, fmt.Errorf("analyze document: %w", err)
	}

	faces, err := p.DetectFaces(ctx, image)
	if err != nil {
		return nil, fmt.Errorf("analyze document: %w", err)
	}

	return &provider.DocumentAnalysis{TextLines: lines, Faces: faces}, nil
}

// CompareFaces compares the largest face in source against the faces in target.
// Similarity is normalized to 0-1; no match above the threshold yields similarity 0.
func (p *Provider) CompareFaces(ctx context.Context, source, target []byte) (*provider.FaceComparison, error) {
	sizes := map[string]string{
		"source_image_size": strconv.Itoa(len(source)),
		"target_image_size": strconv.Itoa(len(target)),
	}

	if err := validateImage(source); err != nil {
		p.logAudit(ctx, audit.EventFacesCompared, false, err, sizes)
		return nil, fmt.Errorf("source image: %w", err)
	}
	if err := validateImage(target); err != nil {
		p.logAudit(ctx, audit.EventFacesCompared, false, err, sizes)
		return nil, fmt.Errorf("target image: %w", err)
	}

	input := &rekognition.CompareFacesInput{
		SourceImage:         &types.Image{Bytes: source},
		TargetImage:         &types.Image{Bytes: target},
		SimilarityThreshold: aws.Float32(float32(p.client.config.SimilarityThreshold * 100)), // Convert 0-1 to 0-100
	}

	output, err := p.client.rekognition.CompareFaces(ctx, input)
	if err != nil {
		mapped := mapAPIError("compare faces", err)
		p.logAudit(ctx, audit.EventFacesCompared, false, mapped, sizes)
		return nil, mapped
	}

	if len(output.FaceMatches) == 0 {
		p.logAudit(ctx, audit.EventFacesCompared, true, nil, map[string]string{
			"similarity": "0",
			"matched":    "false",
		})
		return &provider.FaceComparison{}, nil
	}

	best := 0.0
	for _, match := range output.FaceMatches {
		if s := float64(aws.ToFloat32(match.Similarity)) / 100.0; s > best {
			best = s
		}
	}

	comparison := &provider.FaceComparison{
		Match:      best >= p.client.config.SimilarityThreshold,
		Similarity: best,
	}

	p.logAudit(ctx, audit.EventFacesCompared, true, nil, map[string]string{
		"similarity": fmt.Sprintf("%.4f", best),
		"matched":    strconv.FormatBool(comparison.Match),
	})

	return comparison, nil
}

// DetectLiveness performs passive liveness detection from face attributes
func (p *Provider) DetectLiveness(ctx context.Context, image []byte) (*provider.LivenessResult, error) {
	faces, err := p.DetectFaces(ctx, image)
	if err != nil {
		return nil, fmt.Errorf("detect liveness: %w", err)
	}

	result := provider.EvaluateLiveness(faces, p.client.config.LivenessThreshold)

	p.logAudit(ctx, audit.EventLivenessChecked, true, nil, map[string]string{
		"is_live":    strconv.FormatBool(result.IsLive),
		"confidence": fmt.Sprintf("%.4f", result.Confidence),
	})

	return result, nil
}

func toDetectedFace(detail types.FaceDetail) provider.DetectedFace {
	face := provider.DetectedFace{
		Confidence:   float64(aws.ToFloat32(detail.Confidence)) / 100.0,
		QualityScore: calculateQualityScore(detail.Quality),
	}

	if box := detail.BoundingBox; box != nil {
		face.BoundingBox = provider.BoundingBox{
			X:      float64(aws.ToFloat32(box.Left)),
			Y:      float64(aws.ToFloat32(box.Top)),
			Width:  float64(aws.ToFloat32(box.Width)),
			Height: float64(aws.ToFloat32(box.Height)),
		}
	}

	if detail.EyesOpen != nil {
		open := detail.EyesOpen.Value
		face.EyesOpen = &open
	}

	if pose := detail.Pose; pose != nil {
		face.Pose = &provider.Pose{
			Pitch: float64(aws.ToFloat32(pose.Pitch)),
			Roll:  float64(aws.ToFloat32(pose.Roll)),
			Yaw:   float64(aws.ToFloat32(pose.Yaw)),
		}
	}

	for _, lm := range detail.Landmarks {
		face.Landmarks = append(face.Landmarks, provider.FaceLandmark{
			Type: string(lm.Type),
			X:    float64(aws.ToFloat32(lm.X)),
			Y:    float64(aws.ToFloat32(lm.Y)),
		})
	}

	return face
}

// calculateQualityScore computes an overall quality score from Rekognition quality metrics
// Returns a score between 0.0 (poor quality) and 1.0 (excellent quality)
func calculateQualityScore(quality *types.ImageQuality) float64 {
	if quality == nil {
		return 0.0
	}

	brightness := 0.0
	sharpness := 0.0

	if quality.Brightness != nil {
		brightness = float64(*quality.Brightness) / 100.0
	}

	if quality.Sharpness != nil {
		sharpness = float64(*quality.Sharpness) / 100.0
	}

	// Sharpness matters more than brightness for face matching
	return brightness*0.3 + sharpness*0.7
}
