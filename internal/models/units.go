package models

import (
	"regexp"
	"strconv"
	"strings"
)

// PoundsToKg converts a logged pound weight to kilograms.
const PoundsToKg = 0.453592

// durationRe matches the leading "<number><unit>" of a logged duration, e.g. "7s", "2.5m".
var durationRe = regexp.MustCompile(`^(\d+\.?\d*)([sm])`)

// ParseDuration converts a logged duration like "7s" or "15m" to seconds.
// An empty (absent) or unrecognised string yields 0.
func ParseDuration(s string) float64 {
	s = strings.ToLower(strings.TrimSpace(s))
	m := durationRe.FindStringSubmatch(s)
	if m == nil {
		return 0
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0
	}
	if m[2] == "m" {
		return v * 60
	}
	return v
}

// ExtractEdgeValue returns the numeric part of an edge string ("20mm" -> 20).
// Digits and dots are concatenated in order; ok is false when no number can be read,
// which keeps "sphere" distinguishable from a legitimate "0mm".
func ExtractEdgeValue(edge string) (value float64, ok bool) {
	var b strings.Builder
	for _, r := range edge {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return 0, false
	}
	v, err := strconv.ParseFloat(b.String(), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
