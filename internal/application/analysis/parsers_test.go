package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/healthsnap/backend/internal/domain/entities"
)

func TestParseRiskAssessmentAppliesDefaults(t *testing.T) {
	result, err := parseRiskAssessment(`{
		"riskFlags": [],
		"symptomsExtracted": [{"symptom": "headache"}],
		"overallAcuity": "routine"
	}`)
	require.NoError(t, err)
	assert.NotNil(t, result.RedFlags)
	assert.Empty(t, result.RedFlags)
	assert.Equal(t, 0.75, result.Confidence)
	assert.Nil(t, result.VitalsMentioned)
}

func TestParseRiskAssessmentRejectsMissingArrays(t *testing.T) {
	_, err := parseRiskAssessment(`{"overallAcuity": "routine"}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "riskFlags")

	_, err = parseRiskAssessment(`{"riskFlags": [], "overallAcuity": "routine"}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "symptomsExtracted")
}

func TestParseRiskAssessmentRejectsBadSeverity(t *testing.T) {
	_, err := parseRiskAssessment(`{
		"riskFlags": [{"flag": "x", "severity": "catastrophic"}],
		"symptomsExtracted": [],
		"overallAcuity": "routine"
	}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "severity")
}

func TestParseRiskAssessmentKeepsVitals(t *testing.T) {
	result, err := parseRiskAssessment(`{
		"riskFlags": [],
		"symptomsExtracted": [],
		"overallAcuity": "urgent",
		"vitalsMentioned": {"bloodPressure": "150/95", "heartRate": "102"}
	}`)
	require.NoError(t, err)
	require.NotNil(t, result.VitalsMentioned)
	assert.Equal(t, "150/95", result.VitalsMentioned.BloodPressure)
	assert.Equal(t, "102", result.VitalsMentioned.HeartRate)
}

func TestParseClinicalSummaryRequiresCoreFields(t *testing.T) {
	_, err := parseClinicalSummary(`{"chiefComplaint": "headache"}`)
	require.Error(t, err)

	result, err := parseClinicalSummary(`{
		"chiefComplaint": "headache",
		"summaryText": "Patient reports headache."
	}`)
	require.NoError(t, err)
	assert.NotNil(t, result.KeyFindings)
	assert.Equal(t, 0.75, result.Confidence)
}

func TestParseNextStepsRequiresCoreFields(t *testing.T) {
	_, err := parseNextSteps(`{"recommendedAction": "see a doctor"}`)
	require.Error(t, err)

	result, err := parseNextSteps(`{
		"recommendedAction": "see a doctor",
		"urgencyTimeframe": "Within 24 hours",
		"specialistTypeRecommended": null
	}`)
	require.NoError(t, err)
	assert.Empty(t, result.SpecialistTypeRecommended)
	assert.NotNil(t, result.WarningSigns)
}

func TestBuildRiskAssessmentPromptIncludesContext(t *testing.T) {
	prompt := buildRiskAssessmentPrompt("I feel dizzy", &entities.PatientContext{
		Age:             54,
		Sex:             "female",
		KnownConditions: []string{"hypertension"},
		CurrentMedications: []entities.Medication{
			{Name: "lisinopril", Dosage: "10mg"},
		},
	})

	assert.Contains(t, prompt, "I feel dizzy")
	assert.Contains(t, prompt, "Age: 54 years")
	assert.Contains(t, prompt, "Sex: female")
	assert.Contains(t, prompt, "hypertension")
	assert.Contains(t, prompt, "lisinopril 10mg")
}

func TestBuildRiskAssessmentPromptWithoutContext(t *testing.T) {
	prompt := buildRiskAssessmentPrompt("I feel dizzy", nil)
	assert.Contains(t, prompt, "I feel dizzy")
	assert.NotContains(t, prompt, "PATIENT CONTEXT")
}
