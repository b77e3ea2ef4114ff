package fhir

import (
	"strings"
)

// Patient is the subset of the FHIR R4 Patient resource this service reads.
type Patient struct {
	ResourceType string         `json:"resourceType"`
	ID           string         `json:"id,omitempty"`
	Meta         *Meta          `json:"meta,omitempty"`
	Text         *Narrative     `json:"text,omitempty"`
	Identifier   []Identifier   `json:"identifier,omitempty"`
	Active       bool           `json:"active"`
	Name         []HumanName    `json:"name,omitempty"`
	Telecom      []ContactPoint `json:"telecom,omitempty"`
	Gender       string         `json:"gender,omitempty"`
	BirthDate    *Date          `json:"birthDate,omitempty"`
	Address      []Address      `json:"address,omitempty"`
}

// PrimaryName returns the patient's first listed name. FHIR convention puts
// the canonical name first; later entries carry nicknames, maiden names and
// the like. The second return is false when the patient has no name at all.
func (p Patient) PrimaryName() (HumanName, bool) {
	if len(p.Name) == 0 {
		return HumanName{}, false
	}
	return p.Name[0], true
}

// DisplayName renders the patient's primary name as a single string, or ""
// for an unnamed patient.
func (p Patient) DisplayName() string {
	name, ok := p.PrimaryName()
	if !ok {
		return ""
	}
	return name.Render()
}

// Render flattens a structured name into one display string. The text form
// wins when present; otherwise prefix, given and family parts are joined
// with single spaces.
func (n HumanName) Render() string {
	if n.Text != "" {
		return n.Text
	}
	parts := make([]string, 0, len(n.Prefix)+len(n.Given)+1)
	parts = append(parts, n.Prefix...)
	parts = append(parts, n.Given...)
	if n.Family != "" {
		parts = append(parts, n.Family)
	}
	return strings.Join(parts, " ")
}

// FirstGiven returns the first given name of the patient's primary name, or
// "" when unnamed.
func (p Patient) FirstGiven() string {
	name, ok := p.PrimaryName()
	if !ok || len(name.Given) == 0 {
		return ""
	}
	return name.Given[0]
}
