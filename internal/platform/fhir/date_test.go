package fhir

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("1990-03-15")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Year != 1990 || d.Month != time.March || d.Day != 15 {
		t.Errorf("got %v, want 1990-03-15", d)
	}
	if d.String() != "1990-03-15" {
		t.Errorf("String() = %q, want %q", d.String(), "1990-03-15")
	}

	if _, err := ParseDate("15.03.1990"); err == nil {
		t.Error("expected error for non-FHIR date format")
	}
}

func TestDateOfUsesLocalDay(t *testing.T) {
	// 23:30 local on the 1st must not roll into the 2nd.
	loc := time.Local
	instant := time.Date(2024, 6, 1, 23, 30, 0, 0, loc)
	d := DateOf(instant)
	if d.Day != 1 || d.Month != time.June || d.Year != 2024 {
		t.Errorf("DateOf(%v) = %v, want 2024-06-01", instant, d)
	}
}

func TestDateJSONRoundTrip(t *testing.T) {
	type wrapper struct {
		BirthDate *Date `json:"birthDate,omitempty"`
	}

	var w wrapper
	if err := json.Unmarshal([]byte(`{"birthDate":"1985-12-01"}`), &w); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w.BirthDate == nil || w.BirthDate.String() != "1985-12-01" {
		t.Fatalf("got %v, want 1985-12-01", w.BirthDate)
	}

	out, err := json.Marshal(w)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(out) != `{"birthDate":"1985-12-01"}` {
		t.Errorf("marshal = %s", out)
	}

	// Absent date stays absent.
	empty, err := json.Marshal(wrapper{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(empty) != `{}` {
		t.Errorf("marshal of empty = %s, want {}", empty)
	}
}

func TestDateUnmarshalPartialPrecision(t *testing.T) {
	var d Date
	if err := d.UnmarshalJSON([]byte(`"1972"`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Year != 1972 || d.Month != time.January || d.Day != 1 {
		t.Errorf("got %v, want 1972-01-01", d)
	}
}

func TestParseDateTime(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		valid bool
	}{
		{"rfc3339", "2023-05-01T10:30:00Z", true},
		{"no zone", "2023-05-01T10:30:00", true},
		{"date only", "2023-05-01", true},
		{"year month", "2023-05", true},
		{"year", "2023", true},
		{"garbage", "next tuesday", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDateTime(tt.in)
			if tt.valid && err != nil {
				t.Fatalf("ParseDateTime(%q) returned error: %v", tt.in, err)
			}
			if !tt.valid && err == nil {
				t.Fatalf("ParseDateTime(%q) expected error", tt.in)
			}
		})
	}
}
