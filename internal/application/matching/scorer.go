package matching

import (
	"fmt"
	"sort"
	"time"

	"github.com/healthsnap/backend/internal/domain/entities"
)

const (
	specialtyExactWeight    = 0.40
	primaryCareFallback     = 0.20
	ratingWeight            = 0.20
	experienceWeight        = 0.15
	experienceCeilingYears  = 20.0
	availabilityWithin1Day  = 0.15
	availabilityWithin3Days = 0.10
	availabilityWithin7Days = 0.05
	slotAbundanceHigh       = 0.10
	slotAbundanceLow        = 0.05
	slotAbundanceThreshold  = 5

	// Candidates below the floor are dropped rather than ranked low, so a
	// thin pool never pads the shortlist with irrelevant doctors.
	scoreFloor = 0.30

	maxMatches = 10
	maxReasons = 3
)

const primaryCareSpecialty = "primary-care"

// Scorer ranks doctors against an analysis deterministically: the same
// clinical profile and candidate pool always produce the same shortlist.
type Scorer struct {
	now func() time.Time
}

// NewScorer creates a doctor-matching scorer.
func NewScorer() *Scorer {
	return &Scorer{now: time.Now}
}

// NewScorerAt creates a scorer with a fixed clock, for tests.
func NewScorerAt(now func() time.Time) *Scorer {
	return &Scorer{now: now}
}

// Match scores every candidate, drops those under the floor, and returns
// the top matches sorted by score.
func (s *Scorer) Match(riskAssessment *entities.RiskAssessmentResult, nextSteps *entities.NextStepsResult, doctors []entities.DoctorForMatching) (*entities.DoctorMatchingResult, error) {
	recommended := primaryCareSpecialty
	if nextSteps != nil && nextSteps.SpecialistTypeRecommended != "" {
		recommended = nextSteps.SpecialistTypeRecommended
	}

	hasExactSpecialist := false
	for _, d := range doctors {
		if d.Specialty == recommended {
			hasExactSpecialist = true
			break
		}
	}

	now := s.now()
	matches := make([]entities.DoctorMatch, 0, len(doctors))
	for _, d := range doctors {
		match := s.score(d, recommended, hasExactSpecialist, now)
		if match.MatchScore < scoreFloor {
			continue
		}
		matches = append(matches, match)
	}

	// Stable sort keeps input order for equal scores, making ties
	// deterministic across runs.
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].MatchScore > matches[j].MatchScore
	})
	if len(matches) > maxMatches {
		matches = matches[:maxMatches]
	}

	return &entities.DoctorMatchingResult{
		Matches:              matches,
		RecommendedSpecialty: recommended,
		UrgencyNote:          urgencyNote(riskAssessment, nextSteps),
		Confidence:           1.0,
	}, nil
}

func (s *Scorer) score(d entities.DoctorForMatching, recommended string, hasExactSpecialist bool, now time.Time) entities.DoctorMatch {
	var score float64
	var reasons []string
	var relevance string

	// Reasons are collected in priority order so truncation keeps the
	// most significant ones.
	if d.Specialty == recommended {
		score += specialtyExactWeight
		reasons = append(reasons, fmt.Sprintf("Specialty (%s) matches the recommended specialist type", d.Specialty))
		relevance = fmt.Sprintf("Direct match for the recommended %s specialist", recommended)
	} else if d.Specialty == primaryCareSpecialty && !hasExactSpecialist {
		score += primaryCareFallback
		reasons = append(reasons, "Primary care physician who can evaluate and refer")
		relevance = fmt.Sprintf("No %s specialist available; primary care can triage and refer", recommended)
	} else {
		relevance = fmt.Sprintf("Specialty (%s) does not directly address the recommended %s need", d.Specialty, recommended)
	}

	if d.Rating > 0 {
		contribution := d.Rating / 5 * ratingWeight
		score += contribution
		if d.Rating >= 4.5 {
			reasons = append(reasons, fmt.Sprintf("Highly rated (%.1f/5.0)", d.Rating))
		}
	}

	if d.YearsExperience > 0 {
		years := float64(d.YearsExperience)
		if years > experienceCeilingYears {
			years = experienceCeilingYears
		}
		score += years / experienceCeilingYears * experienceWeight
		if d.YearsExperience >= 10 {
			reasons = append(reasons, fmt.Sprintf("%d years of experience", d.YearsExperience))
		}
	}

	if d.NextAvailableSlot != nil {
		until := d.NextAvailableSlot.Sub(now)
		switch {
		case until <= 24*time.Hour:
			score += availabilityWithin1Day
			reasons = append(reasons, "Available within a day")
		case until <= 3*24*time.Hour:
			score += availabilityWithin3Days
			reasons = append(reasons, "Available within three days")
		case until <= 7*24*time.Hour:
			score += availabilityWithin7Days
			reasons = append(reasons, "Available within a week")
		}
	}

	switch {
	case d.AvailableSlots >= slotAbundanceThreshold:
		score += slotAbundanceHigh
		reasons = append(reasons, fmt.Sprintf("%d open appointment slots", d.AvailableSlots))
	case d.AvailableSlots > 0:
		score += slotAbundanceLow
		reasons = append(reasons, "Has open appointment slots")
	}

	if score > 1.0 {
		score = 1.0
	}
	if len(reasons) > maxReasons {
		reasons = reasons[:maxReasons]
	}

	return entities.DoctorMatch{
		DoctorID:           d.ID,
		MatchScore:         score,
		MatchReasons:       reasons,
		SpecialtyRelevance: relevance,
	}
}

// urgencyNote derives scheduling guidance from the acuity alone. Emergent
// acuity always directs to immediate care, whatever the next-steps stage
// suggested about timing.
func urgencyNote(riskAssessment *entities.RiskAssessmentResult, nextSteps *entities.NextStepsResult) string {
	acuity := entities.AcuityRoutine
	if riskAssessment != nil {
		acuity = riskAssessment.OverallAcuity
	}

	switch acuity {
	case entities.AcuityEmergent:
		return "Seek immediate care: go to the nearest emergency room or call 911. Do not wait for a scheduled appointment."
	case entities.AcuityUrgent:
		if nextSteps != nil && nextSteps.UrgencyTimeframe != "" {
			return fmt.Sprintf("Book the earliest available appointment (%s).", nextSteps.UrgencyTimeframe)
		}
		return "Book the earliest available appointment, ideally within 24 hours."
	default:
		if nextSteps != nil && nextSteps.UrgencyTimeframe != "" {
			return fmt.Sprintf("Schedule an appointment at your convenience (%s).", nextSteps.UrgencyTimeframe)
		}
		return "Schedule an appointment at your convenience within the next one to two weeks."
	}
}
