package entities

import (
	"time"
)

// Doctor represents a bookable physician profile.
type Doctor struct {
	ID                string    `json:"id" db:"id"`
	Name              string    `json:"name" db:"name"`
	Specialty         string    `json:"specialty" db:"specialty"`
	Hospital          string    `json:"hospital" db:"hospital"`
	Location          string    `json:"location" db:"location"`
	Languages         []string  `json:"languages" db:"languages"`
	AcceptedInsurance []string  `json:"acceptedInsurance" db:"accepted_insurance"`
	Rating            float64   `json:"rating" db:"rating"`
	YearsExperience   int       `json:"yearsExperience" db:"years_experience"`
	Bio               string    `json:"bio" db:"bio"`
	ImageURL          string    `json:"imageUrl" db:"image_url"`
	Available         bool      `json:"available" db:"available"`
	CreatedAt         time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt         time.Time `json:"updatedAt" db:"updated_at"`
}

// DoctorForMatching is the candidate view consumed by the matching scorer.
// AvailableSlots counts open slots in the booking window; NextAvailableSlot
// is the earliest open slot, nil when the doctor has none.
type DoctorForMatching struct {
	ID                string     `json:"id"`
	Name              string     `json:"name"`
	Specialty         string     `json:"specialty"`
	YearsExperience   int        `json:"yearsExperience"`
	Rating            float64    `json:"rating"`
	Location          string     `json:"location,omitempty"`
	Languages         []string   `json:"languages,omitempty"`
	AvailableSlots    int        `json:"availableSlots"`
	NextAvailableSlot *time.Time `json:"nextAvailableSlot,omitempty"`
}
