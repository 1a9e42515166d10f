package engine

import (
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

// DateOf drops the clock and zone of t, keeping its calendar date as midnight UTC.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDate accepts YYYY-MM-DD and, for older clients, RFC3339.
func ParseDate(field, raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, invalid(field, "is required")
	}
	if t, err := time.Parse(DateLayout, raw); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return DateOf(t), nil
	}
	return time.Time{}, invalid(field, "must be a date in YYYY-MM-DD format, got %q", raw)
}

func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// NightsBetween counts calendar nights in [in, out). It is negative when out precedes in.
func NightsBetween(in, out time.Time) int {
	return int(DateOf(out).Sub(DateOf(in)).Hours() / 24)
}

// StayDates lists every night of [in, out).
func StayDates(in, out time.Time) []time.Time {
	n := NightsBetween(in, out)
	if n <= 0 {
		return nil
	}
	first := DateOf(in)
	dates := make([]time.Time, n)
	for i := range dates {
		dates[i] = first.AddDate(0, 0, i)
	}
	return dates
}

// ValidateStay rejects ranges with zero or negative nights.
func ValidateStay(in, out time.Time) error {
	if in.IsZero() {
		return invalid("check_in", "is required")
	}
	if out.IsZero() {
		return invalid("check_out", "is required")
	}
	if !DateOf(out).After(DateOf(in)) {
		return invalid("check_out", "must be after check_in (%s >= %s)", FormatDate(in), FormatDate(out))
	}
	return nil
}
