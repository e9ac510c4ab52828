// Package clock handles wall-clock time-of-day strings ("HH:MM:SS") and
// their minute buckets, the resolution at which intraday points are rendered.
package clock

import (
	"fmt"
	"time"
)

const layout = "15:04:05"

// Parse validates an HH:MM:SS string and normalizes it back to HH:MM:SS.
func Parse(s string) (string, error) {
	t, err := time.Parse(layout, s)
	if err != nil {
		return "", fmt.Errorf("invalid clock %q: %w", s, err)
	}
	return t.Format(layout), nil
}

// MinuteKey returns the HH:MM bucket of a clock string. The input is assumed
// to be a valid HH:MM:SS value.
func MinuteKey(s string) string {
	if len(s) < 5 {
		return s
	}
	return s[:5]
}

// SameMinute reports whether two clock strings fall in the same minute bucket.
func SameMinute(a, b string) bool {
	return MinuteKey(a) == MinuteKey(b)
}

// OfTime formats a time as an HH:MM:SS clock string.
func OfTime(t time.Time) string {
	return t.Format(layout)
}
