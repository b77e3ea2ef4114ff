package worklist

import (
	"context"
	"errors"

	"github.com/carelist/carelist/internal/platform/fhir"
)

// ErrNotFound reports that the engine holds no resource with the requested
// id.
var ErrNotFound = errors.New("worklist: resource not found")

// Engine is the FHIR read boundary the worklist consumes. Implementations
// answer searches over patients and risk assessments; they never interpret
// worklist semantics.
//
// SearchPatients applies the query's sort and page window and additionally
// reports the total match count before truncation. CountPatients answers
// the same total without fetching rows. SearchRiskAssessments returns every
// match regardless of the query's Count. All errors come back unwrapped so
// callers see exactly what the engine saw, except GetPatient which maps a
// missing resource to ErrNotFound.
type Engine interface {
	SearchPatients(ctx context.Context, q fhir.Query) ([]fhir.Patient, int, error)
	CountPatients(ctx context.Context, q fhir.Query) (int, error)
	GetPatient(ctx context.Context, id string) (*fhir.Patient, error)
	SearchRiskAssessments(ctx context.Context, q fhir.Query) ([]fhir.RiskAssessment, error)
}
