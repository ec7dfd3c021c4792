package validation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		input   string
		want    time.Time
		wantErr bool
	}{
		{"1990-01-02", date(1990, 1, 2), false},
		{"01/02/1990", date(1990, 1, 2), false},
		{"02.01.1990", date(1990, 1, 2), false},
		{"02 Jan 1990", date(1990, 1, 2), false},
		{"19900102", date(1990, 1, 2), false},
		{"  1990-01-02 ", date(1990, 1, 2), false},
		{"1990/01/02", time.Time{}, true},
		{"", time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDate(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnparseableDate)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}
}

func TestParseMRZDate(t *testing.T) {
	now := date(2025, 6, 1)

	tests := []struct {
		name    string
		input   string
		birth   bool
		want    time.Time
		wantErr bool
	}{
		{"birth last century", "740812", true, date(1974, 8, 12), false},
		{"birth this century", "050101", true, date(2005, 1, 1), false},
		{"expiry in the past", "120415", false, date(2012, 4, 15), false},
		{"expiry in the future", "340415", false, date(2034, 4, 15), false},
		{"expiry parsed as 1900s", "991231", false, date(2099, 12, 31), false},
		{"wrong length", "7408", true, time.Time{}, true},
		{"filler", "<<<<<<", true, time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMRZDate(tt.input, tt.birth, now)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnparseableDate)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}
}

func TestNormalizeDate(t *testing.T) {
	assert.Equal(t, "1990-01-02", NormalizeDate("01/02/1990"))
	assert.Equal(t, "SOMEDAY", NormalizeDate(" SOMEDAY "))
}

func TestAge(t *testing.T) {
	birth := date(2007, 6, 15)

	assert.Equal(t, 17, Age(birth, date(2025, 6, 14)))
	assert.Equal(t, 18, Age(birth, date(2025, 6, 15)))
	assert.Equal(t, 18, Age(birth, date(2025, 12, 1)))
}
