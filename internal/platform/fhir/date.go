package fhir

import (
	"fmt"
	"strings"
	"time"
)

// Date is a FHIR date: a calendar day without a time-of-day component.
// It marshals to and from the YYYY-MM-DD form and carries the local zone so
// that day arithmetic happens in the system's day, not UTC's.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate builds a Date from its components.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Year: year, Month: month, Day: day}
}

// DateOf truncates an instant to the calendar day it falls on locally.
func DateOf(t time.Time) Date {
	y, m, d := t.Local().Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate parses the FHIR date form YYYY-MM-DD.
func ParseDate(s string) (Date, error) {
	t, err := time.ParseInLocation("2006-01-02", s, time.Local)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// Time returns midnight of the date in the local zone.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.Local)
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// IsZero reports whether the date is the zero value.
func (d Date) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	// Engines may emit partial dates (YYYY or YYYY-MM); widen to the first day.
	parsed, err := ParseDateTime(s)
	if err != nil {
		return fmt.Errorf("unmarshal date %q: %w", s, err)
	}
	*d = DateOf(parsed)
	return nil
}

// ParseDateTime parses an instant in any of the precisions FHIR allows,
// from a full RFC3339 timestamp down to a bare year.
func ParseDateTime(s string) (time.Time, error) {
	formats := []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02",
		"2006-01",
		"2006",
	}
	for _, f := range formats {
		if t, err := time.ParseInLocation(f, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse date: %s", s)
}
