package fhir

import (
	"strings"
)

// SortSpec represents a single sort directive.
type SortSpec struct {
	Field      SearchParam
	Descending bool
}

// EncodeSort renders sort specs as a FHIR _sort value. "-date,status" means
// date DESC then status ASC.
func EncodeSort(specs []SortSpec) string {
	if len(specs) == 0 {
		return ""
	}
	parts := make([]string, 0, len(specs))
	for _, spec := range specs {
		if spec.Field == "" {
			continue
		}
		if spec.Descending {
			parts = append(parts, "-"+string(spec.Field))
		} else {
			parts = append(parts, string(spec.Field))
		}
	}
	return strings.Join(parts, ",")
}

// OrderClause generates an ORDER BY body from sort specs using a field
// mapping from search parameter to SQL column. Descending columns sort
// NULLS LAST so unset values trail. Falls back to defaultOrder when no spec
// maps to a column.
func OrderClause(specs []SortSpec, fieldMap map[SearchParam]string, defaultOrder string) string {
	var parts []string
	for _, spec := range specs {
		col, ok := fieldMap[spec.Field]
		if !ok || col == "" {
			continue
		}
		if spec.Descending {
			parts = append(parts, col+" DESC NULLS LAST")
		} else {
			parts = append(parts, col+" ASC")
		}
	}
	if len(parts) == 0 {
		return defaultOrder
	}
	return strings.Join(parts, ", ")
}
