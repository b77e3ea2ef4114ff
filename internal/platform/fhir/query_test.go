package fhir

import (
	"testing"
)

func TestQueryValues(t *testing.T) {
	q := Query{
		Filters: []SearchFilter{
			Contains(ParamGiven, "an"),
			Eq(ParamGender, "female"),
		},
		Sort:   []SortSpec{{Field: ParamGiven}},
		Count:  100,
		Offset: 0,
	}
	v := q.Values()

	if got := v.Get("given:contains"); got != "an" {
		t.Errorf("given:contains = %q, want %q", got, "an")
	}
	if got := v.Get("gender"); got != "female" {
		t.Errorf("gender = %q, want %q", got, "female")
	}
	if got := v.Get("_sort"); got != "given" {
		t.Errorf("_sort = %q, want %q", got, "given")
	}
	if got := v.Get("_count"); got != "100" {
		t.Errorf("_count = %q, want %q", got, "100")
	}
	if _, ok := v["_offset"]; ok {
		t.Error("zero offset should not be encoded")
	}
}

func TestQueryValuesZero(t *testing.T) {
	v := Query{}.Values()
	if len(v) != 0 {
		t.Errorf("zero query encoded %d params, want none: %v", len(v), v)
	}
}

func TestQueryValuesRepeatedParam(t *testing.T) {
	q := Query{Filters: []SearchFilter{
		Eq(ParamStatus, "final"),
		Eq(ParamStatus, "amended"),
	}}
	got := q.Values()["status"]
	if len(got) != 2 || got[0] != "final" || got[1] != "amended" {
		t.Errorf("status = %v, want [final amended]", got)
	}
}

func TestQueryValuesDescendingSort(t *testing.T) {
	q := Query{Sort: []SortSpec{{Field: ParamDate, Descending: true}, {Field: ParamID}}}
	if got := q.Values().Get("_sort"); got != "-date,_id" {
		t.Errorf("_sort = %q, want %q", got, "-date,_id")
	}
}
