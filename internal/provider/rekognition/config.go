package rekognition

// Config holds configuration for AWS Rekognition provider
type Config struct {
	// Region is the AWS region where Rekognition service will be used (e.g., "us-east-1")
	Region string

	// SimilarityThreshold is the minimum similarity (0-1) for CompareFaces to report a match
	SimilarityThreshold float64

	// LivenessThreshold is the minimum passive liveness confidence (0-1)
	LivenessThreshold float64
}

// DefaultConfig returns a Config with default values
func DefaultConfig() Config {
	return Config{
		Region:              "us-east-1",
		SimilarityThreshold: 0.8,
		LivenessThreshold:   0.85,
	}
}
