package fhir

import (
	"testing"
)

func TestSplitReference(t *testing.T) {
	tests := []struct {
		name   string
		ref    string
		wantRT string
		wantID string
	}{
		{"relative", "Patient/p1", "Patient", "p1"},
		{"absolute", "https://fhir.example.org/r4/Patient/42", "Patient", "42"},
		{"trailing slash", "Patient/p1/", "Patient", "p1"},
		{"query stripped", "Patient/p1?_format=json", "Patient", "p1"},
		{"bare id", "p1", "", ""},
		{"empty", "", "", ""},
		{"urn", "urn:uuid:3b1f2c6e", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt, id := SplitReference(tt.ref)
			if rt != tt.wantRT || id != tt.wantID {
				t.Errorf("SplitReference(%q) = (%q, %q), want (%q, %q)", tt.ref, rt, id, tt.wantRT, tt.wantID)
			}
		})
	}
}

func TestRelativeReference(t *testing.T) {
	tests := []struct {
		name string
		ref  string
		want string
	}{
		{"already relative", "Patient/p1", "Patient/p1"},
		{"absolute normalized", "https://fhir.example.org/r4/Patient/42", "Patient/42"},
		{"no type segment unchanged", "p1", "p1"},
		{"empty unchanged", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RelativeReference(tt.ref); got != tt.want {
				t.Errorf("RelativeReference(%q) = %q, want %q", tt.ref, got, tt.want)
			}
		})
	}
}

func TestFormatReference(t *testing.T) {
	if got := FormatReference("RiskAssessment", "r7"); got != "RiskAssessment/r7" {
		t.Errorf("FormatReference() = %q, want %q", got, "RiskAssessment/r7")
	}
}
