package matching

import (
	"strings"

	"mubi1000/internal/identity"
)

// Score thresholds and weights.
const (
	TitleExact    = 1.0
	TitleContains = 0.5

	YearExact = 1.0
	YearNear  = 0.7 // within one year
	YearClose = 0.3 // within two or three years

	AcceptScore       = 1.0
	AcceptSingleScore = 0.5
)

// TitleScore compares two titles by their normalized forms.
func TitleScore(target, candidate string) float64 {
	a := identity.Normalize(target)
	b := identity.Normalize(candidate)
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return TitleExact
	}
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return TitleContains
	}
	return 0
}

// YearScore rates how close a candidate's release year is to the target year.
// Callers handle a missing target year; a missing candidate year (0) scores 0.
func YearScore(target, candidate int) float64 {
	if target <= 0 || candidate <= 0 {
		return 0
	}
	diff := target - candidate
	if diff < 0 {
		diff = -diff
	}
	switch {
	case diff == 0:
		return YearExact
	case diff == 1:
		return YearNear
	case diff <= 3:
		return YearClose
	default:
		return 0
	}
}
