package repositories

import (
	"context"
	"time"

	"github.com/healthsnap/backend/internal/domain/entities"
)

// AppointmentFilter defines filters for listing appointments
type AppointmentFilter struct {
	Status entities.AppointmentStatus
	From   *time.Time
	To     *time.Time
	Limit  int
	Offset int
}

// AppointmentRepository defines the interface for appointment data operations
type AppointmentRepository interface {
	// Create creates a new appointment
	Create(ctx context.Context, appointment *entities.Appointment) error

	// GetByID retrieves an appointment by ID
	GetByID(ctx context.Context, id string) (*entities.Appointment, error)

	// Cancel marks an appointment cancelled
	Cancel(ctx context.Context, id string) error

	// ListByPatient retrieves appointments for a patient
	ListByPatient(ctx context.Context, patientID string, filter AppointmentFilter) ([]*entities.Appointment, error)
}
