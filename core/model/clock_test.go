package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"17:00:00", 1020},
		{"17:30", 1050},
		{"00:00:00", 0},
		{"2025-01-15 18:07:00", 1087},
		{"23:59:30", 1439.5},
	}
	for _, c := range cases {
		got, err := ParseClock(c.in)
		require.NoError(t, err, c.in)
		assert.InDelta(t, c.want, got, 1e-9, c.in)
	}
}

func TestParseClockRejectsMalformed(t *testing.T) {
	for _, in := range []string{"", "17", "25:00:00", "17:61:00", "abc", "17:00:xx"} {
		_, err := ParseClock(in)
		assert.Error(t, err, in)
	}
}

func TestFormatClock(t *testing.T) {
	assert.Equal(t, "17:05", FormatClock(1025))
	assert.Equal(t, "00:00", FormatClock(0))
	assert.Equal(t, "00:30", FormatClock(1470.7))
}
