package utils

import "math"

// IsValidRate reports whether v can be used as an exchange rate: finite and strictly positive.
func IsValidRate(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
