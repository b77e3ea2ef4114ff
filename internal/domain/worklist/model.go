// Package worklist presents a filtered, risk-enriched patient list on top of
// a FHIR read engine. It is the read side of the clinician-facing patient
// worklist: free-text or name-part filtering, a fixed first page sorted by
// given name, and each row annotated with the patient's most recent risk
// assessment.
package worklist

import (
	"fmt"
	"time"

	"github.com/carelist/carelist/internal/platform/fhir"
)

// PatientItem is one row of the worklist as consumers receive it. Optional
// source fields flatten to "" so clients never branch on presence; BirthDate
// stays absent when the source has none.
type PatientItem struct {
	ID         string     `json:"id"`
	ResourceID string     `json:"resourceId"`
	Name       string     `json:"name"`
	Gender     string     `json:"gender"`
	BirthDate  *fhir.Date `json:"birthDate,omitempty"`
	Phone      string     `json:"phone"`
	City       string     `json:"city"`
	Country    string     `json:"country"`
	Active     bool       `json:"isActive"`
	HTML       string     `json:"html"`
	Risk       string     `json:"risk"`
	RiskDetail *RiskItem  `json:"riskDetail,omitempty"`
}

// RiskItem carries the detail of the assessment behind a row's risk code.
// The list view omits it; the patient detail view fills it in.
type RiskItem struct {
	ResourceID string    `json:"resourceId"`
	Code       string    `json:"code"`
	Display    string    `json:"display,omitempty"`
	AssessedAt time.Time `json:"assessedAt"`
}

// Filter narrows the worklist. Name searches every part of a patient's name;
// Given and Family each search their own part and combine conjunctively.
// All matching is a case-insensitive substring test, and a zero Filter
// matches every patient.
type Filter struct {
	Name   string `json:"name,omitempty"`
	Given  string `json:"given,omitempty"`
	Family string `json:"family,omitempty"`
}

// Validate rejects filters that mix the free-text name search with the
// per-part fields.
func (f Filter) Validate() error {
	if f.Name != "" && (f.Given != "" || f.Family != "") {
		return fmt.Errorf("worklist: name filter cannot be combined with given or family")
	}
	return nil
}

// IsZero reports whether the filter matches everything.
func (f Filter) IsZero() bool {
	return f.Name == "" && f.Given == "" && f.Family == ""
}

// Query renders the filter as engine search clauses. The rendering is pure:
// equal filters always yield equal queries, sort and paging are left to the
// caller.
func (f Filter) Query() fhir.Query {
	var q fhir.Query
	if f.Name != "" {
		q.Filters = append(q.Filters, fhir.Contains(fhir.ParamName, f.Name))
	}
	if f.Given != "" {
		q.Filters = append(q.Filters, fhir.Contains(fhir.ParamGiven, f.Given))
	}
	if f.Family != "" {
		q.Filters = append(q.Filters, fhir.Contains(fhir.ParamFamily, f.Family))
	}
	return q
}
