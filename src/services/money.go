package services

import "math"

// toCents rounds a monetary amount to integer cents. All amount grouping and
// equality in the detectors goes through cents to avoid float drift.
func toCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// roundCents rounds a monetary amount to two decimal places.
func roundCents(amount float64) float64 {
	return math.Round(amount*100) / 100
}

// sameAmount reports whether two amounts agree to the cent.
func sameAmount(a, b float64) bool {
	return toCents(a) == toCents(b)
}

// withinTolerance reports whether b is within max(pct of a, abs) of a.
func withinTolerance(a, b, pct, abs float64) bool {
	tolerance := math.Max(math.Abs(a)*pct, abs)
	return math.Abs(a-b) <= tolerance
}
