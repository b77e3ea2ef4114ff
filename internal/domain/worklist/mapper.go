package worklist

import (
	"strconv"

	"github.com/carelist/carelist/internal/platform/fhir"
)

// NewPatientItem flattens a FHIR patient into a worklist row. The mapping is
// total: any patient yields a row, with missing optional fields rendered as
// "". Position is the row's 1-based place in the current page and becomes
// the row id. Risk stays "" here; the enrichment join fills it afterwards.
func NewPatientItem(p fhir.Patient, position int) PatientItem {
	item := PatientItem{
		ID:         strconv.Itoa(position),
		ResourceID: p.ID,
		Name:       p.DisplayName(),
		Gender:     p.Gender,
		Phone:      firstTelecom(p.Telecom),
		Active:     p.Active,
	}
	if p.BirthDate != nil {
		d := *p.BirthDate
		item.BirthDate = &d
	}
	if len(p.Address) > 0 {
		item.City = p.Address[0].City
		item.Country = p.Address[0].Country
	}
	if p.Text != nil {
		item.HTML = p.Text.Div
	}
	return item
}

// firstTelecom returns the first contact point's value no matter its system,
// or "". The row column is named phone; what lands there is whatever contact
// the upstream record lists first.
func firstTelecom(telecom []fhir.ContactPoint) string {
	if len(telecom) == 0 {
		return ""
	}
	return telecom[0].Value
}
