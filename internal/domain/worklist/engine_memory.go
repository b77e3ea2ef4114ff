package worklist

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/carelist/carelist/internal/platform/fhir"
)

// MemoryEngine is an in-process engine backed by plain slices. It serves
// development mode and tests; its matching rules mirror what the postgres
// engine expresses in SQL.
type MemoryEngine struct {
	mu       sync.RWMutex
	patients []fhir.Patient
	risks    []fhir.RiskAssessment
}

func NewMemoryEngine() *MemoryEngine {
	return &MemoryEngine{}
}

func (e *MemoryEngine) SeedPatients(patients ...fhir.Patient) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.patients = append(e.patients, patients...)
}

func (e *MemoryEngine) SeedRiskAssessments(risks ...fhir.RiskAssessment) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.risks = append(e.risks, risks...)
}

func (e *MemoryEngine) SearchPatients(ctx context.Context, q fhir.Query) ([]fhir.Patient, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	e.mu.RLock()
	defer e.mu.RUnlock()

	var matched []fhir.Patient
	for _, p := range e.patients {
		if patientMatches(p, q.Filters) {
			matched = append(matched, p)
		}
	}
	sortPatients(matched, q.Sort)

	total := len(matched)
	if q.Offset > 0 {
		if q.Offset >= len(matched) {
			matched = nil
		} else {
			matched = matched[q.Offset:]
		}
	}
	if q.Count > 0 && len(matched) > q.Count {
		matched = matched[:q.Count]
	}
	return append([]fhir.Patient(nil), matched...), total, nil
}

func (e *MemoryEngine) CountPatients(ctx context.Context, q fhir.Query) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	e.mu.RLock()
	defer e.mu.RUnlock()

	n := 0
	for _, p := range e.patients {
		if patientMatches(p, q.Filters) {
			n++
		}
	}
	return n, nil
}

func (e *MemoryEngine) GetPatient(ctx context.Context, id string) (*fhir.Patient, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.mu.RLock()
	defer e.mu.RUnlock()

	for _, p := range e.patients {
		if p.ID == id {
			cp := p
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (e *MemoryEngine) SearchRiskAssessments(ctx context.Context, q fhir.Query) ([]fhir.RiskAssessment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.mu.RLock()
	defer e.mu.RUnlock()

	var matched []fhir.RiskAssessment
	for _, ra := range e.risks {
		if riskMatches(ra, q.Filters) {
			matched = append(matched, ra)
		}
	}
	return matched, nil
}

func patientMatches(p fhir.Patient, filters []fhir.SearchFilter) bool {
	for _, f := range filters {
		if !patientMatchesFilter(p, f) {
			return false
		}
	}
	return true
}

func patientMatchesFilter(p fhir.Patient, f fhir.SearchFilter) bool {
	switch f.Param {
	case fhir.ParamID:
		return p.ID == f.Value
	case fhir.ParamGender:
		return p.Gender == f.Value
	case fhir.ParamBirthdate:
		return p.BirthDate != nil && p.BirthDate.String() == f.Value
	case fhir.ParamName:
		return matchAny(nameParts(p), f)
	case fhir.ParamGiven:
		return matchAny(givenParts(p), f)
	case fhir.ParamFamily:
		return matchAny(familyParts(p), f)
	default:
		// unknown params do not narrow the result, same as the SQL builder
		return true
	}
}

func nameParts(p fhir.Patient) []string {
	var parts []string
	for _, n := range p.Name {
		if n.Text != "" {
			parts = append(parts, n.Text)
		}
		if n.Family != "" {
			parts = append(parts, n.Family)
		}
		parts = append(parts, n.Given...)
	}
	return parts
}

func givenParts(p fhir.Patient) []string {
	var parts []string
	for _, n := range p.Name {
		parts = append(parts, n.Given...)
	}
	return parts
}

func familyParts(p fhir.Patient) []string {
	var parts []string
	for _, n := range p.Name {
		if n.Family != "" {
			parts = append(parts, n.Family)
		}
	}
	return parts
}

// matchAny mirrors StringSearchClause: exact compares verbatim, contains is
// a case-folded substring test, everything else a case-folded prefix test.
func matchAny(candidates []string, f fhir.SearchFilter) bool {
	value := strings.ToLower(f.Value)
	for _, cand := range candidates {
		switch f.Modifier {
		case fhir.ModifierExact:
			if cand == f.Value {
				return true
			}
		case fhir.ModifierContains, fhir.ModifierText:
			if strings.Contains(strings.ToLower(cand), value) {
				return true
			}
		default:
			if strings.HasPrefix(strings.ToLower(cand), value) {
				return true
			}
		}
	}
	return false
}

func sortPatients(patients []fhir.Patient, specs []fhir.SortSpec) {
	keys := make([]func(fhir.Patient) string, 0, len(specs))
	desc := make([]bool, 0, len(specs))
	for _, s := range specs {
		var key func(fhir.Patient) string
		switch s.Field {
		case fhir.ParamGiven:
			key = sortGiven
		case fhir.ParamFamily:
			key = sortFamily
		case fhir.ParamID:
			key = func(p fhir.Patient) string { return p.ID }
		default:
			continue
		}
		keys = append(keys, key)
		desc = append(desc, s.Descending)
	}
	sort.SliceStable(patients, func(i, j int) bool {
		for k, key := range keys {
			a, b := key(patients[i]), key(patients[j])
			if a == b {
				continue
			}
			if desc[k] {
				return a > b
			}
			return a < b
		}
		return patients[i].ID < patients[j].ID
	})
}

func sortGiven(p fhir.Patient) string {
	name, ok := p.PrimaryName()
	if !ok {
		return ""
	}
	return strings.ToLower(strings.Join(name.Given, " "))
}

func sortFamily(p fhir.Patient) string {
	name, ok := p.PrimaryName()
	if !ok {
		return ""
	}
	return strings.ToLower(name.Family)
}

func riskMatches(ra fhir.RiskAssessment, filters []fhir.SearchFilter) bool {
	for _, f := range filters {
		switch f.Param {
		case fhir.ParamSubject:
			if !subjectMatches(ra.SubjectKey(), f.Value) {
				return false
			}
		case fhir.ParamStatus:
			if ra.Status != f.Value {
				return false
			}
		}
	}
	return true
}

// subjectMatches follows ReferenceSearchClause: a typed reference must equal
// the stored key after normalization, a bare id matches any subject type.
func subjectMatches(key, value string) bool {
	if key == "" {
		return false
	}
	if strings.Contains(value, "/") {
		return key == fhir.RelativeReference(value)
	}
	return strings.HasSuffix(key, "/"+value)
}
