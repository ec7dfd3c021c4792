package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Milliseconds is an elapsed time that serializes as whole milliseconds.
type Milliseconds time.Duration

// MillisecondsSince returns the time elapsed since start.
func MillisecondsSince(start time.Time) Milliseconds {
	return Milliseconds(time.Since(start))
}

func (m Milliseconds) Duration() time.Duration {
	return time.Duration(m)
}

func (m Milliseconds) String() string {
	return time.Duration(m).String()
}

func (m Milliseconds) MarshalJSON() ([]byte, error) {
	return strconv.AppendInt(nil, time.Duration(m).Milliseconds(), 10), nil
}

func (m *Milliseconds) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	var ms float64
	if err := json.Unmarshal(data, &ms); err != nil {
		return fmt.Errorf("processing time: %w", err)
	}
	*m = Milliseconds(ms * float64(time.Millisecond))
	return nil
}
