package fhir

import (
	"fmt"
	"strings"
	"time"
)

// SearchPrefix represents a FHIR search prefix for ordered values.
type SearchPrefix string

const (
	PrefixEq SearchPrefix = "eq"
	PrefixNe SearchPrefix = "ne"
	PrefixGt SearchPrefix = "gt"
	PrefixLt SearchPrefix = "lt"
	PrefixGe SearchPrefix = "ge"
	PrefixLe SearchPrefix = "le"
	PrefixSa SearchPrefix = "sa" // starts after
	PrefixEb SearchPrefix = "eb" // ends before
)

// SearchModifier represents a FHIR search modifier.
type SearchModifier string

const (
	ModifierExact    SearchModifier = "exact"
	ModifierContains SearchModifier = "contains"
	ModifierText     SearchModifier = "text"
	ModifierMissing  SearchModifier = "missing"
)

// ParsedSearch holds a parsed search parameter value with its prefix.
type ParsedSearch struct {
	Prefix SearchPrefix
	Value  string
}

// ParseSearchValue extracts the prefix from a FHIR search value.
// Examples: "gt2023-01-01" -> (gt, "2023-01-01"), "100" -> (eq, "100")
func ParseSearchValue(raw string) ParsedSearch {
	if len(raw) >= 2 {
		prefix := SearchPrefix(strings.ToLower(raw[:2]))
		switch prefix {
		case PrefixEq, PrefixNe, PrefixGt, PrefixLt, PrefixGe, PrefixLe, PrefixSa, PrefixEb:
			return ParsedSearch{Prefix: prefix, Value: raw[2:]}
		}
	}
	return ParsedSearch{Prefix: PrefixEq, Value: raw}
}

// DateSearchClause generates SQL for a date search parameter with prefix
// support. Returns the clause, the arguments to bind, and the next
// positional index.
func DateSearchClause(column string, value string, argIdx int) (string, []interface{}, int) {
	parsed := ParseSearchValue(value)

	t, err := ParseDateTime(parsed.Value)
	if err != nil {
		// Fallback to exact match on the raw string
		return fmt.Sprintf("%s::text = $%d", column, argIdx), []interface{}{parsed.Value}, argIdx + 1
	}

	switch parsed.Prefix {
	case PrefixGt, PrefixSa:
		return fmt.Sprintf("%s > $%d", column, argIdx), []interface{}{t}, argIdx + 1
	case PrefixLt, PrefixEb:
		return fmt.Sprintf("%s < $%d", column, argIdx), []interface{}{t}, argIdx + 1
	case PrefixGe:
		return fmt.Sprintf("%s >= $%d", column, argIdx), []interface{}{t}, argIdx + 1
	case PrefixLe:
		return fmt.Sprintf("%s <= $%d", column, argIdx), []interface{}{t}, argIdx + 1
	case PrefixNe:
		return fmt.Sprintf("%s != $%d", column, argIdx), []interface{}{t}, argIdx + 1
	default: // eq
		// Date-only values match the entire day.
		if len(parsed.Value) == 10 {
			endOfDay := t.Add(24*time.Hour - time.Nanosecond)
			clause := fmt.Sprintf("(%s >= $%d AND %s <= $%d)", column, argIdx, column, argIdx+1)
			return clause, []interface{}{t, endOfDay}, argIdx + 2
		}
		return fmt.Sprintf("%s = $%d", column, argIdx), []interface{}{t}, argIdx + 1
	}
}

// TokenSearchClause handles token search parameters in the format
// "system|code", "|code", "system|", or just "code".
func TokenSearchClause(systemCol, codeCol string, value string, argIdx int) (string, []interface{}, int) {
	if strings.Contains(value, "|") {
		parts := strings.SplitN(value, "|", 2)
		system := parts[0]
		code := parts[1]

		if system != "" && code != "" {
			clause := fmt.Sprintf("(%s = $%d AND %s = $%d)", systemCol, argIdx, codeCol, argIdx+1)
			return clause, []interface{}{system, code}, argIdx + 2
		} else if system != "" {
			return fmt.Sprintf("%s = $%d", systemCol, argIdx), []interface{}{system}, argIdx + 1
		} else if code != "" {
			return fmt.Sprintf("%s = $%d", codeCol, argIdx), []interface{}{code}, argIdx + 1
		}
	}

	// No pipe: just match the code
	return fmt.Sprintf("%s = $%d", codeCol, argIdx), []interface{}{value}, argIdx + 1
}

// StringSearchClause handles string search parameters with modifier support.
// The default FHIR string search is a case-insensitive prefix match; the
// contains and text modifiers widen it to a substring match.
func StringSearchClause(column string, value string, modifier SearchModifier, argIdx int) (string, []interface{}, int) {
	switch modifier {
	case ModifierExact:
		return fmt.Sprintf("%s = $%d", column, argIdx), []interface{}{value}, argIdx + 1
	case ModifierContains, ModifierText:
		return fmt.Sprintf("%s ILIKE $%d", column, argIdx), []interface{}{"%" + value + "%"}, argIdx + 1
	default:
		return fmt.Sprintf("%s ILIKE $%d", column, argIdx), []interface{}{value + "%"}, argIdx + 1
	}
}

// ReferenceSearchClause matches a reference column holding relative
// references ("Patient/42"). Values with a type segment are normalized and
// matched exactly; bare ids match any resource type by suffix.
func ReferenceSearchClause(column string, value string, argIdx int) (string, []interface{}, int) {
	if strings.Contains(value, "/") {
		return fmt.Sprintf("%s = $%d", column, argIdx), []interface{}{RelativeReference(value)}, argIdx + 1
	}
	return fmt.Sprintf("%s LIKE $%d", column, argIdx), []interface{}{"%/" + value}, argIdx + 1
}
