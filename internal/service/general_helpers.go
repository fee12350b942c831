package service

import (
	"math"
	"time"
)

// RoundingPrecision is the multiplier used for two-decimal rounding of
// monetary values and percentages.
const RoundingPrecision = 100.0

// round rounds a float64 value to two decimal places.
// Used throughout the service layer so persisted and returned figures agree.
func round(value float64) float64 {
	return math.Round(value*RoundingPrecision) / RoundingPrecision
}

// dateOnly truncates a time to midnight UTC. Snapshot dates, price dates and
// period boundaries all compare at day granularity.
func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// daysBetween returns the whole days from a to b at day granularity.
func daysBetween(a, b time.Time) int {
	return int(dateOnly(b).Sub(dateOnly(a)).Hours() / 24)
}
