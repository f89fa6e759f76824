package entities

import (
	"time"
)

// AppointmentStatus represents the status of an appointment
type AppointmentStatus string

const (
	AppointmentStatusConfirmed AppointmentStatus = "confirmed"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
	AppointmentStatusCompleted AppointmentStatus = "completed"
)

// Appointment represents a booked consultation with a doctor.
type Appointment struct {
	ID         string            `json:"id" db:"id"`
	PatientID  string            `json:"patientId" db:"patient_id"`
	DoctorID   string            `json:"doctorId" db:"doctor_id"`
	TimeSlotID string            `json:"timeSlotId" db:"time_slot_id"`
	ReportID   *string           `json:"reportId,omitempty" db:"report_id"`
	Status     AppointmentStatus `json:"status" db:"status"`
	Notes      string            `json:"notes" db:"notes"`
	CreatedAt  time.Time         `json:"createdAt" db:"created_at"`
	UpdatedAt  time.Time         `json:"updatedAt" db:"updated_at"`
}

// TimeSlot is a bookable window in a doctor's schedule. Booking flips
// IsBooked with a compare-and-swap so two patients cannot take the same slot.
type TimeSlot struct {
	ID        string    `json:"id" db:"id"`
	DoctorID  string    `json:"doctorId" db:"doctor_id"`
	StartTime time.Time `json:"startTime" db:"start_time"`
	EndTime   time.Time `json:"endTime" db:"end_time"`
	IsBooked  bool      `json:"isBooked" db:"is_booked"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}
