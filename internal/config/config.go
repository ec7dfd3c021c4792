package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// Server
	Port        int    `envconfig:"PORT" default:"3000"`
	Environment string `envconfig:"ENV" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL"`

	// Database
	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	// Vision provider
	ProviderType string `envconfig:"PROVIDER_TYPE" default:"mock"`
	AWSRegion    string `envconfig:"AWS_REGION" default:"us-east-1"`

	// Thresholds
	FaceMatchThreshold     float64 `envconfig:"FACE_MATCH_THRESHOLD" default:"0.8"`
	LivenessThreshold      float64 `envconfig:"LIVENESS_THRESHOLD" default:"0.85"`
	DuplicateFaceThreshold float64 `envconfig:"DUPLICATE_FACE_THRESHOLD" default:"0.92"`

	// Optional infrastructure
	RedisURL     string `envconfig:"REDIS_URL"`
	AMQPURL      string `envconfig:"AMQP_URL"`
	AMQPExchange string `envconfig:"AMQP_EXCHANGE" default:"verification.events"`

	// Submission throttling per client IP
	SubmitRateLimit  int           `envconfig:"SUBMIT_RATE_LIMIT" default:"30"`
	SubmitRateWindow time.Duration `envconfig:"SUBMIT_RATE_WINDOW" default:"1m"`

	// Pipeline
	StepTimeout    time.Duration `envconfig:"STEP_TIMEOUT" default:"30s"`
	StepRetryCount int           `envconfig:"STEP_RETRY_COUNT" default:"2"`

	// Technical risk thresholds
	TechSlowFacial       time.Duration `envconfig:"TECH_SLOW_FACIAL" default:"10s"`
	TechSlowOCR          time.Duration `envconfig:"TECH_SLOW_OCR" default:"15s"`
	TechMinAvgConfidence float64       `envconfig:"TECH_MIN_AVG_CONFIDENCE" default:"0.6"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.ProviderType {
	case "mock", "rekognition":
	default:
		return fmt.Errorf("PROVIDER_TYPE must be mock or rekognition, got %q", c.ProviderType)
	}

	for name, v := range map[string]float64{
		"FACE_MATCH_THRESHOLD":     c.FaceMatchThreshold,
		"LIVENESS_THRESHOLD":       c.LivenessThreshold,
		"DUPLICATE_FACE_THRESHOLD": c.DuplicateFaceThreshold,
		"TECH_MIN_AVG_CONFIDENCE":  c.TechMinAvgConfidence,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s must be within [0, 1], got %v", name, v)
		}
	}

	if c.StepTimeout <= 0 {
		return fmt.Errorf("STEP_TIMEOUT must be positive")
	}
	if c.SubmitRateLimit <= 0 || c.SubmitRateWindow <= 0 {
		return fmt.Errorf("SUBMIT_RATE_LIMIT and SUBMIT_RATE_WINDOW must be positive")
	}
	if c.StepRetryCount < 0 {
		return fmt.Errorf("STEP_RETRY_COUNT must not be negative")
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
