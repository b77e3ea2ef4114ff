package fhir

import (
	"time"
)

// RiskAssessment is the subset of the FHIR R4 RiskAssessment resource this
// service reads. Occurrence is a choice type; only the dateTime and Period
// variants are carried.
type RiskAssessment struct {
	ResourceType       string           `json:"resourceType"`
	ID                 string           `json:"id,omitempty"`
	Meta               *Meta            `json:"meta,omitempty"`
	Status             string           `json:"status,omitempty"`
	Subject            *Reference       `json:"subject,omitempty"`
	OccurrenceDateTime string           `json:"occurrenceDateTime,omitempty"`
	OccurrencePeriod   *Period          `json:"occurrencePeriod,omitempty"`
	Condition          *Reference       `json:"condition,omitempty"`
	Prediction         []RiskPrediction `json:"prediction,omitempty"`
	Mitigation         string           `json:"mitigation,omitempty"`
}

// RiskPrediction is one predicted outcome of a RiskAssessment.
type RiskPrediction struct {
	Outcome            *CodeableConcept `json:"outcome,omitempty"`
	QualitativeRisk    *CodeableConcept `json:"qualitativeRisk,omitempty"`
	ProbabilityDecimal *float64         `json:"probabilityDecimal,omitempty"`
}

// OccurrenceTime resolves the assessment's occurrence to an instant. The
// dateTime variant wins; a Period falls back to its start. The second return
// is false when no variant resolves.
func (ra RiskAssessment) OccurrenceTime() (time.Time, bool) {
	if ra.OccurrenceDateTime != "" {
		t, err := ParseDateTime(ra.OccurrenceDateTime)
		if err == nil {
			return t, true
		}
	}
	if ra.OccurrencePeriod != nil && ra.OccurrencePeriod.Start != nil {
		return *ra.OccurrencePeriod.Start, true
	}
	return time.Time{}, false
}

// SubjectKey returns the assessment's subject as a relative reference key
// ("Patient/123"), or "" when there is no usable subject.
func (ra RiskAssessment) SubjectKey() string {
	if ra.Subject == nil {
		return ""
	}
	return RelativeReference(ra.Subject.Reference)
}

// QualitativeRiskCode returns the code of the first coding of the first
// prediction's qualitative risk, or "" when any link in that chain is
// missing.
func (ra RiskAssessment) QualitativeRiskCode() string {
	if len(ra.Prediction) == 0 {
		return ""
	}
	qr := ra.Prediction[0].QualitativeRisk
	if qr == nil || len(qr.Coding) == 0 {
		return ""
	}
	return qr.Coding[0].Code
}

// QualitativeRiskDisplay returns the display text of the first qualitative
// risk coding, falling back to the concept text, then "".
func (ra RiskAssessment) QualitativeRiskDisplay() string {
	if len(ra.Prediction) == 0 {
		return ""
	}
	qr := ra.Prediction[0].QualitativeRisk
	if qr == nil {
		return ""
	}
	if len(qr.Coding) > 0 && qr.Coding[0].Display != "" {
		return qr.Coding[0].Display
	}
	return qr.Text
}
