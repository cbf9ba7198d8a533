package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Simulation time is expressed as minutes since midnight. Fractional minutes
// are used for ETAs; the tick clock itself advances in whole minutes.

// ParseClock converts an HH:MM:SS (or HH:MM) timestamp to minutes since
// midnight. A full "YYYY-MM-DD HH:MM:SS" datetime is accepted as well; the
// date part is discarded since runs span a single day.
func ParseClock(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, ' '); i >= 0 {
		s = s[i+1:]
	}
	parts := strings.Split(s, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, fmt.Errorf("malformed timestamp %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("malformed timestamp %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("malformed timestamp %q", s)
	}
	var sec int
	if len(parts) == 3 {
		sec, err = strconv.Atoi(parts[2])
		if err != nil || sec < 0 || sec > 59 {
			return 0, fmt.Errorf("malformed timestamp %q", s)
		}
	}
	return float64(h*60+m) + float64(sec)/60, nil
}

// FormatClock renders minutes since midnight as HH:MM, wrapping at midnight.
func FormatClock(minute float64) string {
	total := int(minute) % (24 * 60)
	if total < 0 {
		total += 24 * 60
	}
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}
