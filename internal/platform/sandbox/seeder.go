// Package sandbox generates synthetic patients and risk assessments for
// development and demo environments. Output is reproducible for a given
// seed, so a restarted dev server shows the same worklist.
package sandbox

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/carelist/carelist/internal/platform/fhir"
	"github.com/carelist/carelist/pkg/fhirmodels"
)

// SeedConfig controls the volume and shape of generated data.
type SeedConfig struct {
	PatientCount          int   `json:"patientCount"`
	AssessmentsPerPatient int   `json:"assessmentsPerPatient"`
	Seed                  int64 `json:"seed"`
}

// DefaultSeedConfig returns the volume a dev server seeds on startup.
func DefaultSeedConfig() SeedConfig {
	return SeedConfig{
		PatientCount:          25,
		AssessmentsPerPatient: 3,
		Seed:                  1,
	}
}

// SeedResult summarizes one seed run.
type SeedResult struct {
	Patients        int           `json:"patients"`
	RiskAssessments int           `json:"riskAssessments"`
	Duration        time.Duration `json:"duration"`
}

var (
	givenNames = []string{
		"Clara", "Jonas", "Lena", "Felix", "Mia", "Paul", "Emma", "Noah",
		"Sofia", "Elias", "Marie", "Leon", "Ida", "Anton", "Greta", "Max",
		"Johanna", "Oskar", "Frieda", "Emil",
	}
	familyNames = []string{
		"Weber", "Wagner", "Becker", "Hoffmann", "Koch", "Bauer", "Richter",
		"Klein", "Wolf", "Neumann", "Schwarz", "Zimmermann", "Braun",
		"Hartmann", "Lange", "Krause", "Werner", "Lehmann", "Vogel", "Frank",
	}
	cities = []string{
		"Berlin", "Hamburg", "Munich", "Cologne", "Frankfurt", "Leipzig",
		"Dresden", "Bremen",
	}
)

// occurrenceBase anchors all generated timestamps. Generation never reads
// the wall clock, so two runs with the same seed produce identical data.
var occurrenceBase = time.Date(2026, time.June, 1, 12, 0, 0, 0, time.UTC)

// DataGenerator produces individual synthetic resources. The same generator
// instance must be used for a whole run, ids are sequential.
type DataGenerator struct {
	rng     *rand.Rand
	counter int
}

// NewDataGenerator returns a generator seeded for reproducibility. If seed
// is 0 a time-based seed is chosen.
func NewDataGenerator(seed int64) *DataGenerator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &DataGenerator{
		rng: rand.New(rand.NewSource(seed)),
	}
}

func (g *DataGenerator) pick(pool []string) string {
	return pool[g.rng.Intn(len(pool))]
}

func (g *DataGenerator) randomBirthDate() fhir.Date {
	y := 1935 + g.rng.Intn(70)
	m := time.Month(1 + g.rng.Intn(12))
	d := 1 + g.rng.Intn(28)
	return fhir.NewDate(y, m, d)
}

func (g *DataGenerator) randomPhone() string {
	return fmt.Sprintf("+49 %d %07d", 30+g.rng.Intn(60), g.rng.Intn(10000000))
}

// GeneratePatient produces the i-th synthetic patient. The first two are
// fixed anchors so demos and docs can rely on them being present.
func (g *DataGenerator) GeneratePatient(i int) fhir.Patient {
	g.counter++
	id := fmt.Sprintf("p-%04d", g.counter)

	var given, family, gender string
	switch i {
	case 0:
		given, family, gender = "Anna", "Schmidt", fhirmodels.GenderFemale
	case 1:
		given, family, gender = "Ben", "Miller", fhirmodels.GenderMale
	default:
		given = g.pick(givenNames)
		family = g.pick(familyNames)
		gender = fhirmodels.GenderFemale
		if g.rng.Intn(2) == 0 {
			gender = fhirmodels.GenderMale
		}
	}

	bd := g.randomBirthDate()
	return fhir.Patient{
		ResourceType: "Patient",
		ID:           id,
		Active:       true,
		Name: []fhir.HumanName{{
			Use:    fhirmodels.NameUseOfficial,
			Family: family,
			Given:  []string{given},
		}},
		Gender:    gender,
		BirthDate: &bd,
		Telecom: []fhir.ContactPoint{{
			System: fhirmodels.ContactSystemPhone,
			Value:  g.randomPhone(),
			Use:    "home",
		}},
		Address: []fhir.Address{{
			Use:     "home",
			City:    g.pick(cities),
			Country: "DE",
		}},
		Text: &fhir.Narrative{
			Status: fhirmodels.NarrativeGenerated,
			Div:    fmt.Sprintf(`<div xmlns="http://www.w3.org/1999/xhtml">%s %s</div>`, given, family),
		},
	}
}

// GenerateRiskAssessments produces up to maxPerPatient assessments for a
// patient. Every fifth patient gets none, and some assessments carry no
// occurrence timestamp, mirroring the gaps real upstream data has.
func (g *DataGenerator) GenerateRiskAssessments(p fhir.Patient, patientIndex, maxPerPatient int) []fhir.RiskAssessment {
	if patientIndex%5 == 4 || maxPerPatient <= 0 {
		return nil
	}

	n := 1 + g.rng.Intn(maxPerPatient)
	risks := make([]fhir.RiskAssessment, 0, n)
	for j := 0; j < n; j++ {
		g.counter++
		ra := fhir.RiskAssessment{
			ResourceType: "RiskAssessment",
			ID:           fmt.Sprintf("ra-%04d", g.counter),
			Status:       fhirmodels.RiskStatusFinal,
			Subject:      &fhir.Reference{Reference: "Patient/" + p.ID},
		}

		if (patientIndex+j)%7 != 6 {
			occurred := occurrenceBase.Add(-time.Duration(g.rng.Intn(180*24)) * time.Hour)
			ra.OccurrenceDateTime = occurred.Format(time.RFC3339)
		}

		code, prob := g.randomRisk()
		ra.Prediction = []fhir.RiskPrediction{{
			QualitativeRisk: &fhir.CodeableConcept{
				Coding: []fhir.Coding{{
					System: fhirmodels.RiskProbabilitySystem,
					Code:   code,
				}},
			},
			ProbabilityDecimal: &prob,
		}}
		risks = append(risks, ra)
	}
	return risks
}

func (g *DataGenerator) randomRisk() (string, float64) {
	switch g.rng.Intn(4) {
	case 0:
		return fhirmodels.RiskNegligible, 0.01 + g.rng.Float64()*0.04
	case 1:
		return fhirmodels.RiskLow, 0.05 + g.rng.Float64()*0.15
	case 2:
		return fhirmodels.RiskModerate, 0.20 + g.rng.Float64()*0.30
	default:
		return fhirmodels.RiskHigh, 0.50 + g.rng.Float64()*0.45
	}
}

// Sink accepts generated resources. The in-memory engine satisfies it.
type Sink interface {
	SeedPatients(patients ...fhir.Patient)
	SeedRiskAssessments(risks ...fhir.RiskAssessment)
}

// Seeder generates a full synthetic data set.
type Seeder struct {
	cfg SeedConfig
	gen *DataGenerator
}

func NewSeeder(cfg SeedConfig) *Seeder {
	return &Seeder{
		cfg: cfg,
		gen: NewDataGenerator(cfg.Seed),
	}
}

// Generate builds the configured number of patients and their assessments.
// The first patient additionally gets a pair of assessments sharing one
// occurrence instant, which exercises deterministic tie-breaking downstream.
func (s *Seeder) Generate() ([]fhir.Patient, []fhir.RiskAssessment) {
	patients := make([]fhir.Patient, 0, s.cfg.PatientCount)
	var risks []fhir.RiskAssessment

	for i := 0; i < s.cfg.PatientCount; i++ {
		p := s.gen.GeneratePatient(i)
		patients = append(patients, p)
		risks = append(risks, s.gen.GenerateRiskAssessments(p, i, s.cfg.AssessmentsPerPatient)...)
	}

	if len(patients) > 0 {
		risks = append(risks, s.tiedPair(patients[0])...)
	}
	return patients, risks
}

func (s *Seeder) tiedPair(p fhir.Patient) []fhir.RiskAssessment {
	occurred := occurrenceBase.Format(time.RFC3339)
	pair := make([]fhir.RiskAssessment, 2)
	for i, code := range []string{fhirmodels.RiskHigh, fhirmodels.RiskModerate} {
		s.gen.counter++
		pair[i] = fhir.RiskAssessment{
			ResourceType:       "RiskAssessment",
			ID:                 fmt.Sprintf("ra-tied-%d", i+1),
			Status:             fhirmodels.RiskStatusFinal,
			Subject:            &fhir.Reference{Reference: "Patient/" + p.ID},
			OccurrenceDateTime: occurred,
			Prediction: []fhir.RiskPrediction{{
				QualitativeRisk: &fhir.CodeableConcept{
					Coding: []fhir.Coding{{
						System: fhirmodels.RiskProbabilitySystem,
						Code:   code,
					}},
				},
			}},
		}
	}
	return pair
}

// Seed generates the data set and pushes it into sink.
func (s *Seeder) Seed(sink Sink) SeedResult {
	start := time.Now()
	patients, risks := s.Generate()
	sink.SeedPatients(patients...)
	sink.SeedRiskAssessments(risks...)
	return SeedResult{
		Patients:        len(patients),
		RiskAssessments: len(risks),
		Duration:        time.Since(start),
	}
}
