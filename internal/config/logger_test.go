package config

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name      string
		env       string
		level     string
		wantDebug bool
		wantJSON  bool
	}{
		{"development logs debug text", "development", "", true, false},
		{"production logs info json", "production", "", false, true},
		{"level override", "production", "debug", true, true},
		{"case insensitive level", "staging", "WARN", false, false},
		{"unknown level keeps default", "production", "verbose", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := newLogger(&buf, tt.env, tt.level)

			if got := logger.Enabled(context.Background(), slog.LevelDebug); got != tt.wantDebug {
				t.Errorf("debug enabled = %v, want %v", got, tt.wantDebug)
			}

			logger.Error("boom")
			out := buf.String()

			var payload map[string]any
			isJSON := json.Unmarshal([]byte(out), &payload) == nil
			if isJSON != tt.wantJSON {
				t.Errorf("json output = %v, want %v: %q", isJSON, tt.wantJSON, out)
			}
			if !strings.Contains(out, "idcheck") {
				t.Errorf("output missing service attribute: %q", out)
			}
		})
	}
}
