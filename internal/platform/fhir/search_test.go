package fhir

import (
	"testing"
	"time"
)

func TestParseSearchValue(t *testing.T) {
	tests := []struct {
		input  string
		prefix SearchPrefix
		value  string
	}{
		{"2023-01-01", PrefixEq, "2023-01-01"},
		{"gt2023-01-01", PrefixGt, "2023-01-01"},
		{"lt2023-12-31", PrefixLt, "2023-12-31"},
		{"ge100", PrefixGe, "100"},
		{"le200", PrefixLe, "200"},
		{"ne50", PrefixNe, "50"},
		{"sa2023-06-01", PrefixSa, "2023-06-01"},
		{"eb2023-06-30", PrefixEb, "2023-06-30"},
		{"eq2023-01-01", PrefixEq, "2023-01-01"},
		{"abc", PrefixEq, "abc"},
		{"", PrefixEq, ""},
		{"g", PrefixEq, "g"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := ParseSearchValue(tt.input)
			if result.Prefix != tt.prefix {
				t.Errorf("ParseSearchValue(%q).Prefix = %q, want %q", tt.input, result.Prefix, tt.prefix)
			}
			if result.Value != tt.value {
				t.Errorf("ParseSearchValue(%q).Value = %q, want %q", tt.input, result.Value, tt.value)
			}
		})
	}
}

func TestParseSearchValue_UpperCasePrefix(t *testing.T) {
	// Prefixes are case-insensitive: "GT2023" should be parsed as PrefixGt
	result := ParseSearchValue("GT2023-01-01")
	if result.Prefix != PrefixGt {
		t.Errorf("prefix = %q, want %q", result.Prefix, PrefixGt)
	}
	if result.Value != "2023-01-01" {
		t.Errorf("value = %q, want %q", result.Value, "2023-01-01")
	}
}

func TestDateSearchClause(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		wantSQL  string
		wantArgs int
	}{
		{"exact date", "2023-01-15", "(occurrence_time >= $1 AND occurrence_time <= $2)", 2},
		{"gt prefix", "gt2023-01-15", "occurrence_time > $1", 1},
		{"lt prefix", "lt2023-01-15", "occurrence_time < $1", 1},
		{"ge prefix", "ge2023-01-15", "occurrence_time >= $1", 1},
		{"le prefix", "le2023-01-15", "occurrence_time <= $1", 1},
		{"ne prefix", "ne2023-01-15", "occurrence_time != $1", 1},
		{"sa prefix", "sa2023-01-15", "occurrence_time > $1", 1},
		{"eb prefix", "eb2023-01-15", "occurrence_time < $1", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clause, args, _ := DateSearchClause("occurrence_time", tt.value, 1)
			if clause != tt.wantSQL {
				t.Errorf("DateSearchClause(%q) clause = %q, want %q", tt.value, clause, tt.wantSQL)
			}
			if len(args) != tt.wantArgs {
				t.Errorf("DateSearchClause(%q) args count = %d, want %d", tt.value, len(args), tt.wantArgs)
			}
		})
	}
}

func TestDateSearchClause_ExactDateSpansDay(t *testing.T) {
	_, args, nextIdx := DateSearchClause("birth_date", "2023-05-01", 3)
	if len(args) != 2 {
		t.Fatalf("expected 2 args for a date-only match, got %d", len(args))
	}
	low, ok := args[0].(time.Time)
	if !ok {
		t.Fatalf("arg[0] should be time.Time, got %T", args[0])
	}
	high, ok := args[1].(time.Time)
	if !ok {
		t.Fatalf("arg[1] should be time.Time, got %T", args[1])
	}
	if !high.After(low) {
		t.Errorf("bounds not ordered: %v .. %v", low, high)
	}
	if high.Sub(low) >= 24*time.Hour {
		t.Errorf("range wider than a day: %v", high.Sub(low))
	}
	if nextIdx != 5 {
		t.Errorf("nextIdx = %d, want 5", nextIdx)
	}
}

func TestDateSearchClause_ExactDatetime(t *testing.T) {
	// An exact datetime (not just date) should produce an equality clause
	clause, args, nextIdx := DateSearchClause("occurrence_time", "2023-06-15T10:30:00Z", 1)
	wantClause := "occurrence_time = $1"
	if clause != wantClause {
		t.Errorf("clause = %q, want %q", clause, wantClause)
	}
	if len(args) != 1 {
		t.Fatalf("expected 1 arg for exact datetime, got %d", len(args))
	}
	if nextIdx != 2 {
		t.Errorf("nextIdx = %d, want 2", nextIdx)
	}
	if _, ok := args[0].(time.Time); !ok {
		t.Errorf("arg[0] should be time.Time, got %T", args[0])
	}
}

func TestDateSearchClause_YearOnlyFormat(t *testing.T) {
	// Year-only "2023" parses, and since it is not a full date it produces equality
	clause, args, _ := DateSearchClause("occurrence_time", "2023", 1)
	if clause != "occurrence_time = $1" {
		t.Errorf("clause = %q, want %q", clause, "occurrence_time = $1")
	}
	if _, ok := args[0].(time.Time); !ok {
		t.Errorf("arg[0] should be time.Time, got %T", args[0])
	}
}

func TestDateSearchClause_UnparseableDate(t *testing.T) {
	// A value that cannot be parsed falls back to a text match
	clause, args, nextIdx := DateSearchClause("occurrence_time", "not-a-real-date", 1)
	wantClause := "occurrence_time::text = $1"
	if clause != wantClause {
		t.Errorf("clause = %q, want %q", clause, wantClause)
	}
	if len(args) != 1 {
		t.Fatalf("expected 1 arg for fallback, got %d", len(args))
	}
	if nextIdx != 2 {
		t.Errorf("nextIdx = %d, want 2", nextIdx)
	}
	if args[0] != "not-a-real-date" {
		t.Errorf("arg[0] = %v, want 'not-a-real-date'", args[0])
	}
}

func TestTokenSearchClause(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantSQL string
		args    int
	}{
		{"code only", "final", "status = $1", 1},
		{"system|code", "http://terminology.hl7.org/CodeSystem/risk-probability|high", "(status_system = $1 AND status = $2)", 2},
		{"|code", "|final", "status = $1", 1},
		{"system|", "http://loinc.org|", "status_system = $1", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clause, args, _ := TokenSearchClause("status_system", "status", tt.value, 1)
			if clause != tt.wantSQL {
				t.Errorf("TokenSearchClause(%q) = %q, want %q", tt.value, clause, tt.wantSQL)
			}
			if len(args) != tt.args {
				t.Errorf("TokenSearchClause(%q) args = %d, want %d", tt.value, len(args), tt.args)
			}
		})
	}
}

func TestStringSearchClause(t *testing.T) {
	tests := []struct {
		value    string
		modifier SearchModifier
		wantSQL  string
		wantArg  string
	}{
		{"Anna", "", "family_name ILIKE $1", "Anna%"},
		{"Anna", ModifierExact, "family_name = $1", "Anna"},
		{"nna", ModifierContains, "family_name ILIKE $1", "%nna%"},
		{"nna", ModifierText, "family_name ILIKE $1", "%nna%"},
	}

	for _, tt := range tests {
		t.Run(string(tt.modifier), func(t *testing.T) {
			clause, args, nextIdx := StringSearchClause("family_name", tt.value, tt.modifier, 1)
			if clause != tt.wantSQL {
				t.Errorf("StringSearchClause modifier=%q: got %q, want %q", tt.modifier, clause, tt.wantSQL)
			}
			if args[0] != tt.wantArg {
				t.Errorf("arg = %v, want %q", args[0], tt.wantArg)
			}
			if nextIdx != 2 {
				t.Errorf("nextIdx = %d, want 2", nextIdx)
			}
		})
	}
}

func TestReferenceSearchClause(t *testing.T) {
	t.Run("typed reference matches exactly", func(t *testing.T) {
		clause, args, nextIdx := ReferenceSearchClause("subject_ref", "Patient/abc-123", 3)
		if clause != "subject_ref = $3" {
			t.Errorf("clause = %q, want %q", clause, "subject_ref = $3")
		}
		if len(args) != 1 || args[0] != "Patient/abc-123" {
			t.Errorf("args = %v, want [Patient/abc-123]", args)
		}
		if nextIdx != 4 {
			t.Errorf("nextIdx = %d, want 4", nextIdx)
		}
	})

	t.Run("absolute reference normalized", func(t *testing.T) {
		clause, args, _ := ReferenceSearchClause("subject_ref", "http://example.org/fhir/Patient/123", 1)
		if clause != "subject_ref = $1" {
			t.Errorf("clause = %q, want %q", clause, "subject_ref = $1")
		}
		if len(args) != 1 || args[0] != "Patient/123" {
			t.Errorf("args = %v, want [Patient/123]", args)
		}
	})

	t.Run("bare id matches any resource type", func(t *testing.T) {
		clause, args, _ := ReferenceSearchClause("subject_ref", "abc-123", 1)
		if clause != "subject_ref LIKE $1" {
			t.Errorf("clause = %q, want %q", clause, "subject_ref LIKE $1")
		}
		if len(args) != 1 || args[0] != "%/abc-123" {
			t.Errorf("args = %v, want [%%/abc-123]", args)
		}
	})
}
