// Package timeutil provides academic calendar helpers: parsing report
// dates and computing semester windows. No external dependencies - uses
// only standard library.
package timeutil

import (
	"fmt"
	"time"
)

// DateLayout is the wire format for dates in report requests.
const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD string into a UTC date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}

// FormatDate renders a date in the wire format.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// SemesterWindow returns the inclusive date bounds of an academic semester.
// The fall semester (1) runs September 1 to December 31; the spring
// semester (2) runs February 1 to June 30.
func SemesterWindow(year, semester int) (start, end time.Time) {
	if semester == 1 {
		return time.Date(year, time.September, 1, 0, 0, 0, 0, time.UTC),
			time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)
	}
	return time.Date(year, time.February, 1, 0, 0, 0, 0, time.UTC),
		time.Date(year, time.June, 30, 0, 0, 0, 0, time.UTC)
}
