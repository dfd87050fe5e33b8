package domain

import "math"

const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

// Confidence scales the number of days with data across the basis and
// prior windows into [0, ceiling]. It never decreases as days grows.
func Confidence(days, windowDays, ceiling int) int {
	if days <= 0 || windowDays <= 0 || ceiling <= 0 {
		return 0
	}
	full := 2 * windowDays
	if days > full {
		days = full
	}
	score := int(math.Round(float64(ceiling) * float64(days) / float64(full)))
	if score > 100 {
		return 100
	}
	return score
}

func ConfidenceLevel(score int) string {
	switch {
	case score >= 70:
		return ConfidenceHigh
	case score >= 40:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}
