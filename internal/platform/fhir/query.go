package fhir

import (
	"net/url"
	"strconv"
)

// SearchParam identifies a FHIR search parameter by name.
type SearchParam string

// Search parameters this service issues against an engine.
const (
	ParamID        SearchParam = "_id"
	ParamName      SearchParam = "name"
	ParamGiven     SearchParam = "given"
	ParamFamily    SearchParam = "family"
	ParamGender    SearchParam = "gender"
	ParamBirthdate SearchParam = "birthdate"
	ParamSubject   SearchParam = "subject"
	ParamStatus    SearchParam = "status"
	ParamDate      SearchParam = "date"
)

// SearchFilter is one conjunctive clause of a resource query: a parameter,
// an optional modifier, and the value to match.
type SearchFilter struct {
	Param    SearchParam
	Modifier SearchModifier
	Value    string
}

// Contains builds a case-insensitive substring filter.
func Contains(param SearchParam, value string) SearchFilter {
	return SearchFilter{Param: param, Modifier: ModifierContains, Value: value}
}

// Eq builds an unmodified (engine-default) match filter.
func Eq(param SearchParam, value string) SearchFilter {
	return SearchFilter{Param: param, Value: value}
}

// Query describes one resource search: conjunctive filters plus optional
// sort and paging. The zero value matches every resource of the type, and a
// Count of zero means "no page limit".
type Query struct {
	Filters []SearchFilter
	Sort    []SortSpec
	Count   int
	Offset  int
}

// paramKey renders the wire form of a filter's parameter name, e.g.
// "given:contains".
func (f SearchFilter) paramKey() string {
	if f.Modifier == "" {
		return string(f.Param)
	}
	return string(f.Param) + ":" + string(f.Modifier)
}

// Values encodes the query as FHIR REST API query parameters. The encoding
// is pure: equal queries produce equal values.
func (q Query) Values() url.Values {
	v := url.Values{}
	for _, f := range q.Filters {
		v.Add(f.paramKey(), f.Value)
	}
	if sort := EncodeSort(q.Sort); sort != "" {
		v.Set("_sort", sort)
	}
	if q.Count > 0 {
		v.Set("_count", strconv.Itoa(q.Count))
	}
	if q.Offset > 0 {
		v.Set("_offset", strconv.Itoa(q.Offset))
	}
	return v
}
