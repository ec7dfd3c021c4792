package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMilliseconds_JSON(t *testing.T) {
	t.Run("result serializes whole milliseconds", func(t *testing.T) {
		data, err := json.Marshal(VerificationResult{ProcessingTime: Milliseconds(812 * time.Millisecond)})
		require.NoError(t, err)

		var raw map[string]any
		require.NoError(t, json.Unmarshal(data, &raw))
		assert.Equal(t, float64(812), raw["processing_time_ms"])
	})

	t.Run("sub-millisecond remainder is truncated", func(t *testing.T) {
		data, err := json.Marshal(Milliseconds(1540*time.Millisecond + 700*time.Microsecond))
		require.NoError(t, err)
		assert.Equal(t, "1540", string(data))
	})

	t.Run("step summaries round trip", func(t *testing.T) {
		in := []StepSummary{{StepID: "facial", Type: StepFacialRecognition, ProcessingTime: Milliseconds(250 * time.Millisecond)}}

		data, err := json.Marshal(in)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"processing_time_ms":250`)

		var out []StepSummary
		require.NoError(t, json.Unmarshal(data, &out))
		require.Len(t, out, 1)
		assert.Equal(t, 250*time.Millisecond, out[0].ProcessingTime.Duration())
	})

	t.Run("rejects non numeric values", func(t *testing.T) {
		var m Milliseconds
		assert.Error(t, json.Unmarshal([]byte(`"fast"`), &m))
	})
}
