package worklist

import (
	"context"
	"fmt"
	"time"

	"github.com/carelist/carelist/internal/platform/fhir"
)

// DefaultPageSize is the fixed window of the worklist: the first hundred
// matches, sorted ascending by given name.
const DefaultPageSize = 100

// subjectType is the resource type risk assessments are joined on.
const subjectType = "Patient"

// Service answers worklist reads against an engine. Engine errors propagate
// to callers unmodified; the service adds no retries and no translation.
type Service struct {
	engine   Engine
	pageSize int
}

// NewService wires a worklist service to its engine. A pageSize of zero
// selects DefaultPageSize; anything negative or beyond DefaultPageSize is a
// construction error.
func NewService(engine Engine, pageSize int) (*Service, error) {
	if engine == nil {
		return nil, fmt.Errorf("worklist: engine is required")
	}
	if pageSize == 0 {
		pageSize = DefaultPageSize
	}
	if pageSize < 0 || pageSize > DefaultPageSize {
		return nil, fmt.Errorf("worklist: page size must be between 1 and %d, got %d", DefaultPageSize, pageSize)
	}
	return &Service{engine: engine, pageSize: pageSize}, nil
}

// Search runs the worklist pipeline for one filter: fetch the first page of
// matching patients sorted by given name, then fetch all risk assessments,
// reduce them to the latest per subject, and write the qualitative risk code
// of that assessment onto each matching row. The int result is the total
// match count before the page window.
func (s *Service) Search(ctx context.Context, f Filter) ([]PatientItem, int, error) {
	if err := f.Validate(); err != nil {
		return nil, 0, err
	}

	q := f.Query()
	q.Sort = []fhir.SortSpec{{Field: fhir.ParamGiven}}
	q.Count = s.pageSize

	patients, total, err := s.engine.SearchPatients(ctx, q)
	if err != nil {
		return nil, 0, err
	}

	items := make([]PatientItem, len(patients))
	for i, p := range patients {
		items[i] = NewPatientItem(p, i+1)
	}

	risks, err := s.engine.SearchRiskAssessments(ctx, fhir.Query{})
	if err != nil {
		return nil, 0, err
	}

	latest := latestBySubject(risks)
	for i := range items {
		if ra, ok := latest[fhir.FormatReference(subjectType, items[i].ResourceID)]; ok {
			items[i].Risk = ra.QualitativeRiskCode()
		}
	}
	return items, total, nil
}

// Count reports how many patients the filter matches, ignoring the page
// window. It is consistent with Search: the count equals the total Search
// reports for the same filter.
func (s *Service) Count(ctx context.Context, f Filter) (int, error) {
	if err := f.Validate(); err != nil {
		return 0, err
	}
	return s.engine.CountPatients(ctx, f.Query())
}

// Get loads one patient row by resource id, enriched like a list row plus
// the full detail of its latest assessment. Returns ErrNotFound from the
// engine when the id is unknown.
func (s *Service) Get(ctx context.Context, resourceID string) (*PatientItem, error) {
	p, err := s.engine.GetPatient(ctx, resourceID)
	if err != nil {
		return nil, err
	}
	item := NewPatientItem(*p, 1)

	subject := fhir.FormatReference(subjectType, resourceID)
	risks, err := s.engine.SearchRiskAssessments(ctx, fhir.Query{
		Filters: []fhir.SearchFilter{fhir.Eq(fhir.ParamSubject, subject)},
	})
	if err != nil {
		return nil, err
	}

	if ra, ok := latestBySubject(risks)[subject]; ok {
		assessedAt, _ := ra.OccurrenceTime()
		item.Risk = ra.QualitativeRiskCode()
		item.RiskDetail = &RiskItem{
			ResourceID: ra.ID,
			Code:       ra.QualitativeRiskCode(),
			Display:    ra.QualitativeRiskDisplay(),
			AssessedAt: assessedAt,
		}
	}
	return &item, nil
}

// latestBySubject reduces assessments to the most recent one per subject.
// Assessments without a resolvable subject or occurrence are dropped. Equal
// occurrence times pick the lexicographically smallest assessment id, so the
// reduction is deterministic regardless of input order.
func latestBySubject(risks []fhir.RiskAssessment) map[string]fhir.RiskAssessment {
	latest := make(map[string]fhir.RiskAssessment)
	times := make(map[string]time.Time)
	for _, ra := range risks {
		key := ra.SubjectKey()
		if key == "" {
			continue
		}
		t, ok := ra.OccurrenceTime()
		if !ok {
			continue
		}
		prev, seen := latest[key]
		switch {
		case !seen, t.After(times[key]):
			latest[key] = ra
			times[key] = t
		case t.Equal(times[key]) && ra.ID < prev.ID:
			latest[key] = ra
		}
	}
	return latest
}
