package executor

import (
	"fmt"
	"math"
)

// ============================================================================
// FORMATTING — Indian-system number rendering for explanations
// ============================================================================

// FormatCurrency renders an INR amount with Cr/L/K suffixes.
func FormatCurrency(value float64) string {
	if math.IsNaN(value) {
		return "N/A"
	}
	abs := math.Abs(value)
	switch {
	case abs >= 1e7:
		return fmt.Sprintf("₹%.2f Cr", value/1e7)
	case abs >= 1e5:
		return fmt.Sprintf("₹%.2f L", value/1e5)
	case abs >= 1e3:
		return fmt.Sprintf("₹%.1fK", value/1e3)
	default:
		return fmt.Sprintf("₹%s", groupDigits(value))
	}
}

// FormatNumber renders a large count with K/L/Cr suffixes.
func FormatNumber(value float64) string {
	if math.IsNaN(value) {
		return "N/A"
	}
	abs := math.Abs(value)
	switch {
	case abs >= 1e7:
		return fmt.Sprintf("%.2f Cr", value/1e7)
	case abs >= 1e5:
		return fmt.Sprintf("%.2f L", value/1e5)
	case abs >= 1e3:
		return fmt.Sprintf("%.1fK", value/1e3)
	default:
		return groupDigits(value)
	}
}

// FormatPct renders a signed percentage.
func FormatPct(value float64) string {
	if math.IsNaN(value) {
		return "N/A"
	}
	return fmt.Sprintf("%+.2f%%", value)
}

// groupDigits renders a rounded value with comma thousand separators.
func groupDigits(value float64) string {
	n := int64(math.Round(value))
	neg := n < 0
	if neg {
		n = -n
	}
	s := fmt.Sprintf("%d", n)
	for i := len(s) - 3; i > 0; i -= 3 {
		s = s[:i] + "," + s[i:]
	}
	if neg {
		return "-" + s
	}
	return s
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round3(v float64) float64 { return math.Round(v*1000) / 1000 }
