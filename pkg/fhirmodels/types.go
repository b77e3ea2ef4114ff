package fhirmodels

// Common FHIR value set constants used across the application.

// AdministrativeGender codes.
const (
	GenderMale    = "male"
	GenderFemale  = "female"
	GenderOther   = "other"
	GenderUnknown = "unknown"
)

// RiskAssessmentStatus values per FHIR R4 observation-status.
const (
	RiskStatusRegistered     = "registered"
	RiskStatusPreliminary    = "preliminary"
	RiskStatusFinal          = "final"
	RiskStatusAmended        = "amended"
	RiskStatusCancelled      = "cancelled"
	RiskStatusEnteredInError = "entered-in-error"
)

// RiskProbability codes per FHIR R4 risk-probability.
const (
	RiskNegligible = "negligible"
	RiskLow        = "low"
	RiskModerate   = "moderate"
	RiskHigh       = "high"
	RiskCertain    = "certain"
)

// RiskProbabilitySystem is the canonical code system for qualitative risk.
const RiskProbabilitySystem = "http://terminology.hl7.org/CodeSystem/risk-probability"

// ContactPointSystem codes.
const (
	ContactSystemPhone = "phone"
	ContactSystemFax   = "fax"
	ContactSystemEmail = "email"
	ContactSystemSMS   = "sms"
	ContactSystemURL   = "url"
)

// NameUse codes.
const (
	NameUseUsual    = "usual"
	NameUseOfficial = "official"
	NameUseNickname = "nickname"
	NameUseMaiden   = "maiden"
)

// NarrativeStatus codes.
const (
	NarrativeGenerated = "generated"
	NarrativeExtension = "extensions"
	NarrativeEmpty     = "empty"
)
