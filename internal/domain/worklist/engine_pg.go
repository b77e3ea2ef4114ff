package worklist

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carelist/carelist/internal/platform/db"
	"github.com/carelist/carelist/internal/platform/fhir"
	"github.com/carelist/carelist/pkg/fhirmodels"
)

type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// PGEngine reads from a local postgres mirror. Resources land here through
// the upserts, flattened to the columns the worklist searches on: one
// preferred name per patient, one qualitative risk per assessment.
type PGEngine struct {
	pool *pgxpool.Pool
}

func NewPGEngine(pool *pgxpool.Pool) *PGEngine {
	return &PGEngine{pool: pool}
}

func (e *PGEngine) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return e.pool
}

const patientCols = `fhir_id, active, name_text, family_name, given_names, prefix, gender, birth_date, phone, city, country, narrative`

// Sorting folds case so "anna" and "Ben" order the way a reader expects.
const (
	givenOrder  = "lower(array_to_string(given_names, ' '))"
	familyOrder = "lower(family_name)"
)

var patientSearchParams = map[fhir.SearchParam]fhir.SearchParamConfig{
	fhir.ParamID:        {Type: fhir.SearchParamToken, Column: "fhir_id"},
	fhir.ParamGender:    {Type: fhir.SearchParamToken, Column: "gender"},
	fhir.ParamBirthdate: {Type: fhir.SearchParamDate, Column: "birth_date"},
	fhir.ParamGiven:     {Type: fhir.SearchParamString, Column: givenOrder},
	fhir.ParamFamily:    {Type: fhir.SearchParamString, Column: familyOrder},
	fhir.ParamName:      {Type: fhir.SearchParamString, Columns: []string{givenOrder, familyOrder, "lower(name_text)"}},
}

func (e *PGEngine) SearchPatients(ctx context.Context, q fhir.Query) ([]fhir.Patient, int, error) {
	qb := fhir.NewSearchQuery("patient", patientCols)
	qb.ApplyFilters(q.Filters, patientSearchParams)
	qb.ApplySort(q.Sort, "fhir_id ASC", patientSearchParams)

	var total int
	if err := e.conn(ctx).QueryRow(ctx, qb.CountSQL(), qb.CountArgs()...).Scan(&total); err != nil {
		return nil, 0, err
	}

	var (
		rows pgx.Rows
		err  error
	)
	if q.Count > 0 {
		rows, err = e.conn(ctx).Query(ctx, qb.DataSQL(), qb.DataArgs(q.Count, q.Offset)...)
	} else {
		rows, err = e.conn(ctx).Query(ctx, qb.DataSQLAll(), qb.CountArgs()...)
	}
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var patients []fhir.Patient
	for rows.Next() {
		p, err := scanStoredPatient(rows)
		if err != nil {
			return nil, 0, err
		}
		patients = append(patients, p)
	}
	return patients, total, nil
}

func (e *PGEngine) CountPatients(ctx context.Context, q fhir.Query) (int, error) {
	qb := fhir.NewSearchQuery("patient", patientCols)
	qb.ApplyFilters(q.Filters, patientSearchParams)

	var total int
	if err := e.conn(ctx).QueryRow(ctx, qb.CountSQL(), qb.CountArgs()...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (e *PGEngine) GetPatient(ctx context.Context, id string) (*fhir.Patient, error) {
	p, err := scanStoredPatient(e.conn(ctx).QueryRow(ctx, `SELECT `+patientCols+` FROM patient WHERE fhir_id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

const riskCols = `fhir_id, status, subject_ref, occurrence_time, risk_code, risk_display, probability`

var riskSearchParams = map[fhir.SearchParam]fhir.SearchParamConfig{
	fhir.ParamID:      {Type: fhir.SearchParamToken, Column: "fhir_id"},
	fhir.ParamStatus:  {Type: fhir.SearchParamToken, Column: "status"},
	fhir.ParamSubject: {Type: fhir.SearchParamReference, Column: "subject_ref"},
	fhir.ParamDate:    {Type: fhir.SearchParamDate, Column: "occurrence_time"},
}

func (e *PGEngine) SearchRiskAssessments(ctx context.Context, q fhir.Query) ([]fhir.RiskAssessment, error) {
	qb := fhir.NewSearchQuery("risk_assessment", riskCols)
	qb.ApplyFilters(q.Filters, riskSearchParams)
	qb.OrderBy("fhir_id ASC")

	rows, err := e.conn(ctx).Query(ctx, qb.DataSQLAll(), qb.CountArgs()...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var risks []fhir.RiskAssessment
	for rows.Next() {
		ra, err := scanStoredRisk(rows)
		if err != nil {
			return nil, err
		}
		risks = append(risks, ra)
	}
	return risks, nil
}

// UpsertPatient flattens a patient into its mirror row, keyed by fhir_id.
func (e *PGEngine) UpsertPatient(ctx context.Context, p fhir.Patient) error {
	var nameText, family, prefix string
	given := []string{}
	if name, ok := p.PrimaryName(); ok {
		nameText = name.Text
		family = name.Family
		given = append(given, name.Given...)
		if len(name.Prefix) > 0 {
			prefix = name.Prefix[0]
		}
	}

	var birth *time.Time
	if p.BirthDate != nil {
		t := p.BirthDate.Time()
		birth = &t
	}

	var phone string
	if len(p.Telecom) > 0 {
		phone = p.Telecom[0].Value
	}

	var city, country string
	if len(p.Address) > 0 {
		city = p.Address[0].City
		country = p.Address[0].Country
	}

	var narrative string
	if p.Text != nil {
		narrative = p.Text.Div
	}

	_, err := e.conn(ctx).Exec(ctx, `
		INSERT INTO patient (fhir_id, active, name_text, family_name, given_names, prefix, gender, birth_date, phone, city, country, narrative)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		ON CONFLICT (fhir_id) DO UPDATE SET
			active=EXCLUDED.active, name_text=EXCLUDED.name_text, family_name=EXCLUDED.family_name,
			given_names=EXCLUDED.given_names, prefix=EXCLUDED.prefix, gender=EXCLUDED.gender,
			birth_date=EXCLUDED.birth_date, phone=EXCLUDED.phone, city=EXCLUDED.city,
			country=EXCLUDED.country, narrative=EXCLUDED.narrative, updated_at=NOW()`,
		p.ID, p.Active, nameText, family, given, prefix, p.Gender, birth, phone, city, country, narrative,
	)
	return err
}

// UpsertRiskAssessment flattens an assessment into its mirror row. Only the
// first prediction's qualitative risk survives, which is all the worklist
// ever reads.
func (e *PGEngine) UpsertRiskAssessment(ctx context.Context, ra fhir.RiskAssessment) error {
	var occurrence *time.Time
	if t, ok := ra.OccurrenceTime(); ok {
		occurrence = &t
	}

	var riskCode, riskDisplay *string
	if code := ra.QualitativeRiskCode(); code != "" {
		riskCode = &code
		if display := ra.QualitativeRiskDisplay(); display != "" {
			riskDisplay = &display
		}
	}

	var probability *float64
	if len(ra.Prediction) > 0 {
		probability = ra.Prediction[0].ProbabilityDecimal
	}

	_, err := e.conn(ctx).Exec(ctx, `
		INSERT INTO risk_assessment (fhir_id, status, subject_ref, occurrence_time, risk_code, risk_display, probability)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (fhir_id) DO UPDATE SET
			status=EXCLUDED.status, subject_ref=EXCLUDED.subject_ref, occurrence_time=EXCLUDED.occurrence_time,
			risk_code=EXCLUDED.risk_code, risk_display=EXCLUDED.risk_display, probability=EXCLUDED.probability,
			updated_at=NOW()`,
		ra.ID, ra.Status, ra.SubjectKey(), occurrence, riskCode, riskDisplay, probability,
	)
	return err
}

func scanStoredPatient(row pgx.Row) (fhir.Patient, error) {
	var (
		p         fhir.Patient
		nameText  string
		family    string
		given     []string
		prefix    string
		birth     *time.Time
		phone     string
		city      string
		country   string
		narrative string
	)
	err := row.Scan(
		&p.ID, &p.Active, &nameText, &family, &given, &prefix,
		&p.Gender, &birth, &phone, &city, &country, &narrative,
	)
	if err != nil {
		return fhir.Patient{}, err
	}

	p.ResourceType = "Patient"
	if nameText != "" || family != "" || len(given) > 0 {
		name := fhir.HumanName{
			Use:    fhirmodels.NameUseOfficial,
			Text:   nameText,
			Family: family,
			Given:  given,
		}
		if prefix != "" {
			name.Prefix = []string{prefix}
		}
		p.Name = []fhir.HumanName{name}
	}
	if birth != nil {
		// Take the calendar day from the scanned value's own location so the
		// date survives round trips through any session time zone.
		y, m, d := birth.Date()
		bd := fhir.NewDate(y, m, d)
		p.BirthDate = &bd
	}
	if phone != "" {
		p.Telecom = []fhir.ContactPoint{{System: fhirmodels.ContactSystemPhone, Value: phone}}
	}
	if city != "" || country != "" {
		p.Address = []fhir.Address{{City: city, Country: country}}
	}
	if narrative != "" {
		p.Text = &fhir.Narrative{Status: fhirmodels.NarrativeGenerated, Div: narrative}
	}
	return p, nil
}

func scanStoredRisk(row pgx.Row) (fhir.RiskAssessment, error) {
	var (
		ra          fhir.RiskAssessment
		subjectRef  string
		occurrence  *time.Time
		riskCode    *string
		riskDisplay *string
		probability *float64
	)
	err := row.Scan(&ra.ID, &ra.Status, &subjectRef, &occurrence, &riskCode, &riskDisplay, &probability)
	if err != nil {
		return fhir.RiskAssessment{}, err
	}

	ra.ResourceType = "RiskAssessment"
	if subjectRef != "" {
		ra.Subject = &fhir.Reference{Reference: subjectRef}
	}
	if occurrence != nil {
		ra.OccurrenceDateTime = occurrence.Format(time.RFC3339)
	}
	if riskCode != nil {
		qr := &fhir.CodeableConcept{
			Coding: []fhir.Coding{{System: fhirmodels.RiskProbabilitySystem, Code: *riskCode}},
		}
		if riskDisplay != nil {
			qr.Coding[0].Display = *riskDisplay
		}
		ra.Prediction = []fhir.RiskPrediction{{QualitativeRisk: qr, ProbabilityDecimal: probability}}
	}
	return ra, nil
}
