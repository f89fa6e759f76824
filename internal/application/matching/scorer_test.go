package matching

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/healthsnap/backend/internal/domain/entities"
)

var fixedNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func fixedScorer() *Scorer {
	return NewScorerAt(func() time.Time { return fixedNow })
}

func slotAt(offset time.Duration) *time.Time {
	t := fixedNow.Add(offset)
	return &t
}

func cardiologyProfile() (*entities.RiskAssessmentResult, *entities.NextStepsResult) {
	risk := &entities.RiskAssessmentResult{
		OverallAcuity: entities.AcuityUrgent,
	}
	next := &entities.NextStepsResult{
		UrgencyTimeframe:          "Within 24 hours",
		SpecialistTypeRecommended: "cardiology",
	}
	return risk, next
}

func TestScorerRanksSpecialistFirst(t *testing.T) {
	risk, next := cardiologyProfile()

	doctors := []entities.DoctorForMatching{
		{ID: "d-derm", Specialty: "dermatology", Rating: 5.0, YearsExperience: 20, AvailableSlots: 10, NextAvailableSlot: slotAt(2 * time.Hour)},
		{ID: "d-cardio", Specialty: "cardiology", Rating: 4.0, YearsExperience: 8, AvailableSlots: 3, NextAvailableSlot: slotAt(48 * time.Hour)},
	}

	result, err := fixedScorer().Match(risk, next, doctors)
	require.NoError(t, err)
	require.NotEmpty(t, result.Matches)
	assert.Equal(t, "d-cardio", result.Matches[0].DoctorID)
	assert.Equal(t, "cardiology", result.RecommendedSpecialty)
}

func TestScorerPrimaryCareFallback(t *testing.T) {
	risk, next := cardiologyProfile()

	doctors := []entities.DoctorForMatching{
		{ID: "d-pc", Specialty: "primary-care", Rating: 4.5, YearsExperience: 12, AvailableSlots: 6, NextAvailableSlot: slotAt(12 * time.Hour)},
	}

	result, err := fixedScorer().Match(risk, next, doctors)
	require.NoError(t, err)
	require.Len(t, result.Matches, 1)
	assert.Contains(t, result.Matches[0].SpecialtyRelevance, "triage")
}

func TestScorerExcludesBelowFloor(t *testing.T) {
	risk, next := cardiologyProfile()

	// Wrong specialty, no rating, no experience, no availability.
	doctors := []entities.DoctorForMatching{
		{ID: "d-weak", Specialty: "dermatology"},
	}

	result, err := fixedScorer().Match(risk, next, doctors)
	require.NoError(t, err)
	assert.Empty(t, result.Matches)
}

func TestScorerScoresWithinBounds(t *testing.T) {
	risk, next := cardiologyProfile()

	doctors := []entities.DoctorForMatching{
		{ID: "d-max", Specialty: "cardiology", Rating: 5.0, YearsExperience: 30, AvailableSlots: 12, NextAvailableSlot: slotAt(time.Hour)},
		{ID: "d-mid", Specialty: "cardiology", Rating: 3.0, YearsExperience: 5, AvailableSlots: 2, NextAvailableSlot: slotAt(6 * 24 * time.Hour)},
	}

	result, err := fixedScorer().Match(risk, next, doctors)
	require.NoError(t, err)
	for _, m := range result.Matches {
		assert.GreaterOrEqual(t, m.MatchScore, 0.30)
		assert.LessOrEqual(t, m.MatchScore, 1.0)
	}
}

func TestScorerRatingIsMonotonic(t *testing.T) {
	risk, next := cardiologyProfile()

	base := entities.DoctorForMatching{
		ID: "d-1", Specialty: "cardiology", YearsExperience: 10,
		AvailableSlots: 5, NextAvailableSlot: slotAt(time.Hour),
	}

	prev := -1.0
	for rating := 1.0; rating <= 5.0; rating += 0.5 {
		d := base
		d.Rating = rating
		result, err := fixedScorer().Match(risk, next, []entities.DoctorForMatching{d})
		require.NoError(t, err)
		require.Len(t, result.Matches, 1)
		assert.GreaterOrEqual(t, result.Matches[0].MatchScore, prev)
		prev = result.Matches[0].MatchScore
	}
}

func TestScorerTruncatesToTopTen(t *testing.T) {
	risk, next := cardiologyProfile()

	var doctors []entities.DoctorForMatching
	for i := 0; i < 15; i++ {
		doctors = append(doctors, entities.DoctorForMatching{
			ID:                fmt.Sprintf("d-%d", i),
			Specialty:         "cardiology",
			Rating:            4.0,
			YearsExperience:   10,
			AvailableSlots:    6,
			NextAvailableSlot: slotAt(time.Hour),
		})
	}

	result, err := fixedScorer().Match(risk, next, doctors)
	require.NoError(t, err)
	assert.Len(t, result.Matches, 10)
}

func TestScorerLimitsReasons(t *testing.T) {
	risk, next := cardiologyProfile()

	// Fires every component: specialty, rating, experience, availability, slots.
	doctors := []entities.DoctorForMatching{
		{ID: "d-all", Specialty: "cardiology", Rating: 5.0, YearsExperience: 25, AvailableSlots: 10, NextAvailableSlot: slotAt(time.Hour)},
	}

	result, err := fixedScorer().Match(risk, next, doctors)
	require.NoError(t, err)
	require.Len(t, result.Matches, 1)

	reasons := result.Matches[0].MatchReasons
	assert.LessOrEqual(t, len(reasons), 3)
	// Priority order: specialty first, then rating, then experience.
	assert.Contains(t, reasons[0], "Specialty")
	assert.Contains(t, reasons[1], "rated")
	assert.Contains(t, reasons[2], "experience")
}

func TestScorerEmergentUrgencyNote(t *testing.T) {
	risk := &entities.RiskAssessmentResult{OverallAcuity: entities.AcuityEmergent}
	next := &entities.NextStepsResult{UrgencyTimeframe: "Within 1-2 weeks"}

	result, err := fixedScorer().Match(risk, next, nil)
	require.NoError(t, err)
	assert.True(t, strings.Contains(result.UrgencyNote, "immediate care"))
	assert.NotContains(t, result.UrgencyNote, "1-2 weeks")
}

func TestScorerDeterministic(t *testing.T) {
	risk, next := cardiologyProfile()

	doctors := []entities.DoctorForMatching{
		{ID: "a", Specialty: "cardiology", Rating: 4.0, YearsExperience: 10, AvailableSlots: 5, NextAvailableSlot: slotAt(time.Hour)},
		{ID: "b", Specialty: "cardiology", Rating: 4.0, YearsExperience: 10, AvailableSlots: 5, NextAvailableSlot: slotAt(time.Hour)},
		{ID: "c", Specialty: "primary-care", Rating: 4.8, YearsExperience: 15, AvailableSlots: 8, NextAvailableSlot: slotAt(time.Hour)},
	}

	first, err := fixedScorer().Match(risk, next, doctors)
	require.NoError(t, err)
	second, err := fixedScorer().Match(risk, next, doctors)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
