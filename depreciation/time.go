package depreciation

import (
	"fmt"
	"strings"
	"time"
)

// =============================================================================
// CALENDAR DATES - Depreciation works on whole days, never on clock time
// =============================================================================

// DateLayout is the ISO-8601 calendar date layout used on every boundary.
const DateLayout = "2006-01-02"

// NewDate returns midnight UTC of the given calendar day.
func NewDate(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// DateOf truncates t to its calendar date, keeping the date as seen in t's location.
func DateOf(t time.Time) time.Time {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// Today returns the current calendar date.
func Today() time.Time {
	return DateOf(time.Now())
}

// EndOfYear returns December 31 of year.
func EndOfYear(year int) time.Time { return NewDate(year, time.December, 31) }

// IsYearEnd reports whether t falls on December 31.
func IsYearEnd(t time.Time) bool {
	return t.Month() == time.December && t.Day() == 31
}

// ParseDate accepts an ISO-8601 date ("2025-10-15") or date-time
// ("2025-10-15T09:30:00Z", "2025-10-15T09:30:00", "2025-10-15 09:30:00").
// Date-times are truncated to their date component.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}

	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}

	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return DateOf(t), nil
		}
	}

	// Fall back to the leading date component, e.g. "2025-10-15T09:30".
	if len(s) > len(DateLayout) && (s[len(DateLayout)] == 'T' || s[len(DateLayout)] == ' ') {
		if t, err := time.Parse(DateLayout, s[:len(DateLayout)]); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("invalid ISO-8601 date %q", s)
}
