package repositories

import (
	"context"
	"time"

	"github.com/healthsnap/backend/internal/domain/entities"
)

// DoctorFilter defines filters for listing doctors
type DoctorFilter struct {
	Specialty     string
	Search        string
	AvailableOnly bool
	Limit         int
	Offset        int
}

// DoctorRepository defines the interface for doctor data operations
type DoctorRepository interface {
	// GetByID retrieves a doctor by ID
	GetByID(ctx context.Context, id string) (*entities.Doctor, error)

	// List retrieves doctors matching the filter
	List(ctx context.Context, filter DoctorFilter) ([]*entities.Doctor, error)

	// ListAvailableForMatching returns available doctors joined with their
	// open-slot counts and next open slot, the candidate pool for the
	// matching scorer.
	ListAvailableForMatching(ctx context.Context) ([]*entities.DoctorForMatching, error)
}

// TimeSlotRepository defines the interface for time slot operations
type TimeSlotRepository interface {
	// GetByID retrieves a time slot by ID
	GetByID(ctx context.Context, id string) (*entities.TimeSlot, error)

	// ListOpenByDoctor retrieves unbooked future slots for a doctor
	ListOpenByDoctor(ctx context.Context, doctorID string, from, to time.Time) ([]*entities.TimeSlot, error)

	// Book atomically flips is_booked from false to true. It returns a
	// CONFLICT error when the slot was already taken.
	Book(ctx context.Context, id string) error

	// Release flips is_booked back to false when a booking is cancelled.
	Release(ctx context.Context, id string) error
}
