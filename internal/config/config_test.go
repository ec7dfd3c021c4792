package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		wantErr bool
		check   func(*Config) bool
	}{
		{
			name: "loads with all required vars",
			envVars: map[string]string{
				"PORT":                 "8080",
				"ENV":                  "production",
				"DATABASE_URL":         "postgres://localhost/test",
				"PROVIDER_TYPE":        "rekognition",
				"AWS_REGION":           "sa-east-1",
				"FACE_MATCH_THRESHOLD": "0.9",
				"STEP_TIMEOUT":         "10s",
				"STEP_RETRY_COUNT":     "0",
				"REDIS_URL":            "redis://localhost:6379/0",
			},
			wantErr: false,
			check: func(c *Config) bool {
				return c.Port == 8080 &&
					c.Environment == "production" &&
					c.DatabaseURL == "postgres://localhost/test" &&
					c.ProviderType == "rekognition" &&
					c.AWSRegion == "sa-east-1" &&
					c.FaceMatchThreshold == 0.9 &&
					c.StepTimeout == 10*time.Second &&
					c.StepRetryCount == 0 &&
					c.RedisURL == "redis://localhost:6379/0"
			},
		},
		{
			name: "uses defaults when optional vars missing",
			envVars: map[string]string{
				"DATABASE_URL": "postgres://localhost/test",
			},
			wantErr: false,
			check: func(c *Config) bool {
				return c.Port == 3000 &&
					c.Environment == "development" &&
					c.ProviderType == "mock" &&
					c.AWSRegion == "us-east-1" &&
					c.FaceMatchThreshold == 0.8 &&
					c.LivenessThreshold == 0.85 &&
					c.DuplicateFaceThreshold == 0.92 &&
					c.AMQPExchange == "verification.events" &&
					c.StepTimeout == 30*time.Second &&
					c.StepRetryCount == 2 &&
					c.SubmitRateLimit == 30 &&
					c.SubmitRateWindow == time.Minute &&
					c.TechSlowFacial == 10*time.Second &&
					c.TechSlowOCR == 15*time.Second &&
					c.TechMinAvgConfidence == 0.6 &&
					c.RedisURL == "" &&
					c.AMQPURL == ""
			},
		},
		{
			name:    "fails when DATABASE_URL missing",
			envVars: map[string]string{},
			wantErr: true,
			check:   nil,
		},
		{
			name: "fails on unknown provider",
			envVars: map[string]string{
				"DATABASE_URL":  "postgres://localhost/test",
				"PROVIDER_TYPE": "deepface",
			},
			wantErr: true,
			check:   nil,
		},
		{
			name: "fails on threshold out of range",
			envVars: map[string]string{
				"DATABASE_URL":         "postgres://localhost/test",
				"FACE_MATCH_THRESHOLD": "80",
			},
			wantErr: true,
			check:   nil,
		},
		{
			name: "fails on negative retry count",
			envVars: map[string]string{
				"DATABASE_URL":     "postgres://localhost/test",
				"STEP_RETRY_COUNT": "-1",
			},
			wantErr: true,
			check:   nil,
		},
		{
			name: "fails on zero submit rate limit",
			envVars: map[string]string{
				"DATABASE_URL":      "postgres://localhost/test",
				"SUBMIT_RATE_LIMIT": "0",
			},
			wantErr: true,
			check:   nil,
		},
		{
			name: "fails on malformed duration",
			envVars: map[string]string{
				"DATABASE_URL": "postgres://localhost/test",
				"STEP_TIMEOUT": "soon",
			},
			wantErr: true,
			check:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Clear environment
			os.Clearenv()

			// Set test environment variables
			for k, v := range tt.envVars {
				os.Setenv(k, v)
			}

			cfg, err := Load()

			if tt.wantErr {
				if err == nil {
					t.Errorf("Load() expected error, got nil")
				}
				return
			}

			if err != nil {
				t.Errorf("Load() unexpected error: %v", err)
				return
			}

			if tt.check != nil && !tt.check(cfg) {
				t.Errorf("Load() config check failed, got: %+v", cfg)
			}
		})
	}
}

func TestConfig_IsDevelopment(t *testing.T) {
	tests := []struct {
		name string
		env  string
		want bool
	}{
		{"development", "development", true},
		{"production", "production", false},
		{"staging", "staging", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Config{Environment: tt.env}
			if got := c.IsDevelopment(); got != tt.want {
				t.Errorf("IsDevelopment() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConfig_IsProduction(t *testing.T) {
	tests := []struct {
		name string
		env  string
		want bool
	}{
		{"production", "production", true},
		{"development", "development", false},
		{"staging", "staging", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Config{Environment: tt.env}
			if got := c.IsProduction(); got != tt.want {
				t.Errorf("IsProduction() = %v, want %v", got, tt.want)
			}
		})
	}
}
