package validation

import (
	"fmt"
	"time"
)

// Common validation errors
var (
	ErrInvalidDateRange = fmt.Errorf("invalid date range")
	ErrInvalidTicker    = fmt.Errorf("invalid ticker symbol")
)

// ValidateDateRange checks that start does not fall after end.
func ValidateDateRange(start, end time.Time) error {
	if start.After(end) {
		return fmt.Errorf("%w: %s after %s",
			ErrInvalidDateRange, start.Format("2006-01-02"), end.Format("2006-01-02"))
	}
	return nil
}

// ValidateTicker checks a ticker symbol: 1-12 characters, uppercase letters,
// digits, dots and dashes only.
func ValidateTicker(ticker string) error {
	if len(ticker) == 0 || len(ticker) > 12 {
		return fmt.Errorf("%w: %q", ErrInvalidTicker, ticker)
	}
	for _, c := range ticker {
		switch {
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '.' || c == '-' || c == '^':
		default:
			return fmt.Errorf("%w: %q", ErrInvalidTicker, ticker)
		}
	}
	return nil
}
