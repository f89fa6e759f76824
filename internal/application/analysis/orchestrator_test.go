package analysis

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/healthsnap/backend/internal/domain/entities"
	"github.com/healthsnap/backend/internal/domain/providers"
	"github.com/healthsnap/backend/pkg/config"
)

const riskResponse = `{
  "riskFlags": [
    {"flag": "Persistent fever", "severity": "moderate", "description": "Fever lasting three days", "clinicalRationale": "Duration suggests infection"}
  ],
  "symptomsExtracted": [
    {"symptom": "fever", "duration": "3 days"},
    {"symptom": "cough", "duration": "3 days"}
  ],
  "vitalsMentioned": null,
  "overallAcuity": "urgent",
  "redFlags": [],
  "confidence": 0.9,
  "reasoning": "Multi-day fever with cough warrants prompt evaluation"
}`

const summaryResponse = `{
  "chiefComplaint": "3-day history of fever and cough",
  "summaryText": "Patient reports a three day history of fever and productive cough.",
  "keyFindings": ["Fever for 3 days", "Cough for 3 days"],
  "timeline": "Symptoms began three days ago",
  "pertinentNegatives": ["No chest pain reported"],
  "differentialConsiderations": ["Viral upper respiratory infection"],
  "confidence": 0.85
}`

const nextStepsResponse = `{
  "recommendedAction": "Schedule a same-day or next-day appointment",
  "urgencyTimeframe": "Within 24 hours",
  "reasoning": "Persistent fever should be evaluated promptly",
  "patientInstructions": ["Track your temperature twice daily"],
  "warningSigns": ["Difficulty breathing", "Chest pain", "Fever above 104F"],
  "selfCareRecommendations": ["Rest and hydration"],
  "specialistTypeRecommended": "primary-care",
  "followUpRecommendation": "Follow up if symptoms persist beyond a week",
  "confidence": 0.85
}`

// scriptedClient returns canned responses in call order.
type scriptedClient struct {
	responses []string
	errs      []error
	calls     int
	usage     providers.TokenUsage
}

func (c *scriptedClient) Model() string { return "test-model" }

func (c *scriptedClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (*providers.Completion, error) {
	idx := c.calls
	c.calls++
	if idx < len(c.errs) && c.errs[idx] != nil {
		return nil, c.errs[idx]
	}
	if idx >= len(c.responses) {
		return nil, fmt.Errorf("unexpected call %d", idx)
	}
	usage := c.usage
	if usage == (providers.TokenUsage{}) {
		usage = providers.TokenUsage{Input: 100, Output: 50}
	}
	return &providers.Completion{Text: c.responses[idx], Usage: usage}, nil
}

type stubMatcher struct {
	result *entities.DoctorMatchingResult
	err    error
	calls  int
}

func (m *stubMatcher) Match(risk *entities.RiskAssessmentResult, next *entities.NextStepsResult, doctors []entities.DoctorForMatching) (*entities.DoctorMatchingResult, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

func testDoctors() []entities.DoctorForMatching {
	return []entities.DoctorForMatching{
		{ID: "d-1", Name: "Dr. Adams", Specialty: "primary-care", Rating: 4.6, YearsExperience: 12, AvailableSlots: 6},
	}
}

func anthropicConfig() *config.AnthropicConfig {
	return &config.AnthropicConfig{InputCostPer1K: 0.003, OutputCostPer1K: 0.015}
}

func TestOrchestratorRunsAllStages(t *testing.T) {
	client := &scriptedClient{responses: []string{riskResponse, summaryResponse, nextStepsResponse}}
	matcher := &stubMatcher{result: &entities.DoctorMatchingResult{
		Matches:              []entities.DoctorMatch{{DoctorID: "d-1", MatchScore: 0.8}},
		RecommendedSpecialty: "primary-care",
	}}

	o := NewOrchestrator(client, matcher, anthropicConfig())
	result, err := o.Run(context.Background(), AnalysisInput{
		VoiceNoteID: "vn-1",
		Transcript:  "I have had a fever and cough for three days",
	}, testDoctors())

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "vn-1", result.VoiceNoteID)
	assert.Equal(t, entities.AcuityUrgent, result.RiskAssessment.OverallAcuity)
	assert.Equal(t, "3-day history of fever and cough", result.ClinicalSummary.ChiefComplaint)
	assert.Equal(t, "Within 24 hours", result.NextSteps.UrgencyTimeframe)
	require.NotNil(t, result.DoctorMatching)
	assert.Len(t, result.DoctorMatching.Matches, 1)
	assert.Equal(t, MedicalDisclaimer, result.Disclaimer)
	assert.Equal(t, 1, matcher.calls)

	require.Len(t, result.Metadata.Stages, 4)
	assert.Equal(t, "risk-assessment", result.Metadata.Stages[0].Stage)
	assert.Equal(t, "clinical-summary", result.Metadata.Stages[1].Stage)
	assert.Equal(t, "next-steps", result.Metadata.Stages[2].Stage)
	assert.Equal(t, "doctor-matching", result.Metadata.Stages[3].Stage)
	for _, stage := range result.Metadata.Stages {
		assert.True(t, stage.Success)
	}
}

func TestOrchestratorTokenAccountingAndCost(t *testing.T) {
	client := &scriptedClient{
		responses: []string{riskResponse, summaryResponse, nextStepsResponse},
		usage:     providers.TokenUsage{Input: 1000, Output: 500},
	}

	o := NewOrchestrator(client, nil, anthropicConfig())
	result, err := o.Run(context.Background(), AnalysisInput{Transcript: "fever"}, nil)
	require.NoError(t, err)

	assert.Equal(t, 4500, result.Metadata.TotalTokensUsed)
	// 3000 input * 0.003/1K + 1500 output * 0.015/1K
	assert.InDelta(t, 0.0315, result.Metadata.EstimatedCost, 0.00001)
	assert.Equal(t, "test-model", result.Metadata.ModelUsed)
}

func TestOrchestratorControlFlowIsDeterministic(t *testing.T) {
	run := func() *entities.FullAnalysisResult {
		client := &scriptedClient{responses: []string{riskResponse, summaryResponse, nextStepsResponse}}
		o := NewOrchestrator(client, nil, anthropicConfig())
		result, err := o.Run(context.Background(), AnalysisInput{Transcript: "fever"}, nil)
		require.NoError(t, err)
		return result
	}

	first := run()
	second := run()

	require.Equal(t, len(first.Metadata.Stages), len(second.Metadata.Stages))
	for i := range first.Metadata.Stages {
		assert.Equal(t, first.Metadata.Stages[i].Stage, second.Metadata.Stages[i].Stage)
		assert.Equal(t, first.Metadata.Stages[i].TokensUsed, second.Metadata.Stages[i].TokensUsed)
	}
	assert.Equal(t, first.Metadata.TotalTokensUsed, second.Metadata.TotalTokensUsed)
}

func TestOrchestratorAbsorbsMatchingFailure(t *testing.T) {
	client := &scriptedClient{responses: []string{riskResponse, summaryResponse, nextStepsResponse}}
	matcher := &stubMatcher{err: errors.New("candidate pool unavailable")}

	o := NewOrchestrator(client, matcher, anthropicConfig())
	result, err := o.Run(context.Background(), AnalysisInput{Transcript: "fever"}, testDoctors())

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Nil(t, result.DoctorMatching)

	require.Len(t, result.Metadata.Stages, 4)
	last := result.Metadata.Stages[3]
	assert.Equal(t, "doctor-matching", last.Stage)
	assert.False(t, last.Success)
	assert.Equal(t, "candidate pool unavailable", last.Error)
	assert.Equal(t, 0, last.TokensUsed)
}

func TestOrchestratorSkipsMatchingWithoutDoctors(t *testing.T) {
	client := &scriptedClient{responses: []string{riskResponse, summaryResponse, nextStepsResponse}}
	matcher := &stubMatcher{}

	o := NewOrchestrator(client, matcher, anthropicConfig())
	result, err := o.Run(context.Background(), AnalysisInput{Transcript: "fever"}, nil)

	require.NoError(t, err)
	assert.Nil(t, result.DoctorMatching)
	assert.Len(t, result.Metadata.Stages, 3)
	assert.Equal(t, 0, matcher.calls)
}

func TestOrchestratorRejectsInvalidAcuity(t *testing.T) {
	badRisk := `{
  "riskFlags": [],
  "symptomsExtracted": [],
  "overallAcuity": "severe",
  "redFlags": []
}`
	client := &scriptedClient{responses: []string{badRisk}}

	o := NewOrchestrator(client, nil, anthropicConfig())
	_, err := o.Run(context.Background(), AnalysisInput{Transcript: "fever"}, nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "overallAcuity")
	// A contract violation is terminal for the stage, never retried.
	assert.Equal(t, 1, client.calls)
}

func TestOrchestratorFailsWhenMandatoryStageFails(t *testing.T) {
	client := &scriptedClient{
		responses: []string{riskResponse},
		errs:      []error{nil, providers.NewProviderError("anthropic", providers.FailureAuth, "invalid api key", nil)},
	}

	o := NewOrchestrator(client, nil, anthropicConfig())
	_, err := o.Run(context.Background(), AnalysisInput{Transcript: "fever"}, nil)

	require.Error(t, err)
	assert.Equal(t, providers.FailureAuth, providers.KindOf(err))
	assert.Equal(t, 2, client.calls)
}
