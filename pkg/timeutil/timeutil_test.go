package timeutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseTimeToMinutes(t *testing.T) {
	tests := []struct {
		in       string
		expected int
	}{
		{"09:00", 540},
		{"14:30", 870},
		{"00:00", 0},
		{"23:59", 1439},
		{"", 0},
		{"garbage", 0},
		{"25:00", 0},
		{"12:75", 0},
		{"12", 0},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseTimeToMinutes(tt.in))
		})
	}
}

func TestFormatMinutes_RoundTrip(t *testing.T) {
	for _, clock := range []string{"09:00", "14:30", "00:00", "23:59"} {
		assert.Equal(t, clock, FormatMinutes(ParseTimeToMinutes(clock)))
	}
}

func TestFormatMinutes_OutOfRange(t *testing.T) {
	assert.Equal(t, "00:00", FormatMinutes(-5))
	assert.Equal(t, "00:00", FormatMinutes(24*60))
}

func TestWindow_Contains(t *testing.T) {
	day := NewWindow("09:00", "17:00")
	assert.True(t, day.Contains(ParseTimeToMinutes("12:00")))
	assert.False(t, day.Contains(ParseTimeToMinutes("08:59")))
	assert.False(t, day.Contains(ParseTimeToMinutes("17:00")))

	overnight := NewWindow("22:00", "08:00")
	assert.True(t, overnight.Contains(ParseTimeToMinutes("23:30")))
	assert.True(t, overnight.Contains(ParseTimeToMinutes("03:00")))
	assert.False(t, overnight.Contains(ParseTimeToMinutes("12:00")))
}

func TestWindow_Zero(t *testing.T) {
	w := NewWindow("", "")
	assert.True(t, w.IsZero())
	assert.False(t, w.Contains(0))
}
