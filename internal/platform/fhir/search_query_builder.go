package fhir

import (
	"fmt"
	"strings"
)

// SearchParamType defines the FHIR search parameter type.
type SearchParamType int

const (
	SearchParamToken     SearchParamType = iota // Token: status, gender (exact match or system|code)
	SearchParamDate                             // Date: supports prefixes (gt, lt, ge, le, eq, etc.)
	SearchParamString                           // String: case-insensitive prefix match, supports :exact, :contains
	SearchParamReference                        // Reference: relative "ResourceType/id" column
)

// SearchParamConfig maps a FHIR search parameter to its database
// representation. Columns lists additional OR'd columns for string params
// that span several fields (a name search hits given, family and text).
type SearchParamConfig struct {
	Type      SearchParamType
	Column    string
	SysColumn string
	Columns   []string
}

// SearchQuery builds SQL WHERE clauses from search filters. It encapsulates
// the count-then-data pattern the read adapters share.
type SearchQuery struct {
	table   string
	cols    string
	where   string
	args    []interface{}
	idx     int
	orderBy string
}

// NewSearchQuery creates a new SearchQuery for the given table and columns.
func NewSearchQuery(table, cols string) *SearchQuery {
	return &SearchQuery{
		table: table,
		cols:  cols,
		idx:   1,
	}
}

// Idx returns the next available parameter index.
func (q *SearchQuery) Idx() int { return q.idx }

// Add appends a raw WHERE clause fragment (without leading "AND").
func (q *SearchQuery) Add(clause string, args ...interface{}) {
	q.where += " AND " + clause
	q.args = append(q.args, args...)
	q.idx += len(args)
}

// AddToken adds a token search clause.
func (q *SearchQuery) AddToken(sysCol, codeCol, value string) {
	clause, args, nextIdx := TokenSearchClause(sysCol, codeCol, value, q.idx)
	q.where += " AND " + clause
	q.args = append(q.args, args...)
	q.idx = nextIdx
}

// AddDate adds a date search clause with FHIR prefix support.
func (q *SearchQuery) AddDate(column, value string) {
	clause, args, nextIdx := DateSearchClause(column, value, q.idx)
	q.where += " AND " + clause
	q.args = append(q.args, args...)
	q.idx = nextIdx
}

// AddString adds a string search clause with modifier support.
func (q *SearchQuery) AddString(column, value string, modifier SearchModifier) {
	clause, args, nextIdx := StringSearchClause(column, value, modifier, q.idx)
	q.where += " AND " + clause
	q.args = append(q.args, args...)
	q.idx = nextIdx
}

// AddStringAny adds a string clause matched against any of the given
// columns. A single bind argument is shared across the OR branches.
func (q *SearchQuery) AddStringAny(columns []string, value string, modifier SearchModifier) {
	if len(columns) == 0 {
		return
	}
	pattern := "%" + value + "%"
	op := "ILIKE"
	switch modifier {
	case ModifierExact:
		pattern = value
		op = "="
	case ModifierContains, ModifierText:
		// substring
	default:
		pattern = value + "%"
	}

	parts := make([]string, len(columns))
	for i, col := range columns {
		parts[i] = fmt.Sprintf("%s %s $%d", col, op, q.idx)
	}
	q.where += " AND (" + strings.Join(parts, " OR ") + ")"
	q.args = append(q.args, pattern)
	q.idx++
}

// AddRef adds a reference search clause against a relative-reference column.
func (q *SearchQuery) AddRef(column, value string) {
	clause, args, nextIdx := ReferenceSearchClause(column, value, q.idx)
	q.where += " AND " + clause
	q.args = append(q.args, args...)
	q.idx = nextIdx
}

// ApplyFilter applies a single search filter using the config map. Filters
// whose parameter has no config entry are ignored.
func (q *SearchQuery) ApplyFilter(f SearchFilter, configs map[SearchParam]SearchParamConfig) {
	config, ok := configs[f.Param]
	if !ok {
		return
	}
	switch config.Type {
	case SearchParamDate:
		q.AddDate(config.Column, f.Value)
	case SearchParamToken:
		if config.SysColumn != "" {
			q.AddToken(config.SysColumn, config.Column, f.Value)
		} else {
			q.where += fmt.Sprintf(" AND %s = $%d", config.Column, q.idx)
			q.args = append(q.args, f.Value)
			q.idx++
		}
	case SearchParamString:
		if len(config.Columns) > 0 {
			q.AddStringAny(config.Columns, f.Value, f.Modifier)
		} else {
			q.AddString(config.Column, f.Value, f.Modifier)
		}
	case SearchParamReference:
		q.AddRef(config.Column, f.Value)
	}
}

// ApplyFilters applies all filters of a query in order.
func (q *SearchQuery) ApplyFilters(filters []SearchFilter, configs map[SearchParam]SearchParamConfig) {
	for _, f := range filters {
		q.ApplyFilter(f, configs)
	}
}

// ApplySort sets ORDER BY from sort specs using the config column mappings,
// falling back to defaultOrder when no spec maps to a column.
func (q *SearchQuery) ApplySort(specs []SortSpec, defaultOrder string, configs map[SearchParam]SearchParamConfig) {
	fieldMap := make(map[SearchParam]string, len(configs))
	for param, config := range configs {
		fieldMap[param] = config.Column
	}
	q.orderBy = OrderClause(specs, fieldMap, defaultOrder)
}

// OrderBy sets the ORDER BY clause (without the "ORDER BY" keyword).
func (q *SearchQuery) OrderBy(orderBy string) {
	q.orderBy = orderBy
}

// CountSQL returns the count query SQL.
func (q *SearchQuery) CountSQL() string {
	return fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE 1=1%s", q.table, q.where)
}

// CountArgs returns the arguments for the count query.
func (q *SearchQuery) CountArgs() []interface{} {
	return q.args
}

// DataSQL returns the data query SQL with ORDER BY and LIMIT/OFFSET.
func (q *SearchQuery) DataSQL() string {
	sql := q.baseSQL()
	sql += fmt.Sprintf(" LIMIT $%d OFFSET $%d", q.idx, q.idx+1)
	return sql
}

// DataArgs returns the arguments for the data query (filter args + limit +
// offset).
func (q *SearchQuery) DataArgs(limit, offset int) []interface{} {
	result := make([]interface{}, len(q.args)+2)
	copy(result, q.args)
	result[len(q.args)] = limit
	result[len(q.args)+1] = offset
	return result
}

// DataSQLAll returns the data query SQL without a page window, for
// fetch-everything reads.
func (q *SearchQuery) DataSQLAll() string {
	return q.baseSQL()
}

func (q *SearchQuery) baseSQL() string {
	sql := fmt.Sprintf("SELECT %s FROM %s WHERE 1=1%s", q.cols, q.table, q.where)
	if q.orderBy != "" {
		sql += " ORDER BY " + q.orderBy
	}
	return sql
}
