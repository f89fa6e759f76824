package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/healthsnap/backend/internal/domain/entities"
	"github.com/healthsnap/backend/internal/domain/repositories"
	"github.com/healthsnap/backend/internal/infrastructure/observability"
	apperrors "github.com/healthsnap/backend/pkg/errors"
)

// CreateAppointmentRequest is the booking request body
type CreateAppointmentRequest struct {
	PatientID  string `json:"patientId" validate:"required"`
	DoctorID   string `json:"doctorId" validate:"required"`
	TimeSlotID string `json:"timeSlotId" validate:"required"`
	ReportID   string `json:"reportId,omitempty"`
	Notes      string `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

// AppointmentHandler handles appointment booking requests
type AppointmentHandler struct {
	appointments repositories.AppointmentRepository
	slots        repositories.TimeSlotRepository
	validate     *validator.Validate
}

// NewAppointmentHandler creates a new appointment handler
func NewAppointmentHandler(appointments repositories.AppointmentRepository, slots repositories.TimeSlotRepository) *AppointmentHandler {
	return &AppointmentHandler{
		appointments: appointments,
		slots:        slots,
		validate:     validator.New(),
	}
}

// CreateAppointment handles POST /api/appointments. The slot is booked with
// a compare-and-swap first, so a losing racer gets 409 before any
// appointment row exists.
func (h *AppointmentHandler) CreateAppointment(w http.ResponseWriter, r *http.Request) {
	var req CreateAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, apperrors.NewValidationError("invalid request body"))
		return
	}

	if err := h.validate.Struct(&req); err != nil {
		respondWithError(w, apperrors.NewValidationError("invalid booking request: "+err.Error()))
		return
	}

	if err := h.slots.Book(r.Context(), req.TimeSlotID); err != nil {
		respondWithError(w, err)
		return
	}

	appointment := &entities.Appointment{
		PatientID:  req.PatientID,
		DoctorID:   req.DoctorID,
		TimeSlotID: req.TimeSlotID,
		Status:     entities.AppointmentStatusConfirmed,
		Notes:      req.Notes,
	}
	if req.ReportID != "" {
		appointment.ReportID = &req.ReportID
	}

	if err := h.appointments.Create(r.Context(), appointment); err != nil {
		// The slot was taken above; give it back so it stays bookable
		if releaseErr := h.slots.Release(r.Context(), req.TimeSlotID); releaseErr != nil {
			observability.LoggerFromContext(r.Context()).Error().
				Err(releaseErr).
				Str("time_slot_id", req.TimeSlotID).
				Msg("failed to release slot after booking failure")
		}
		respondWithError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, appointment)
}

// GetAppointment handles GET /api/appointments/{id}
func (h *AppointmentHandler) GetAppointment(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		respondWithError(w, apperrors.NewValidationError("appointment ID is required"))
		return
	}

	appointment, err := h.appointments.GetByID(r.Context(), id)
	if err != nil {
		respondWithError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, appointment)
}

// CancelAppointment handles DELETE /api/appointments/{id}. Cancelling
// releases the slot so another patient can book it.
func (h *AppointmentHandler) CancelAppointment(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		respondWithError(w, apperrors.NewValidationError("appointment ID is required"))
		return
	}

	appointment, err := h.appointments.GetByID(r.Context(), id)
	if err != nil {
		respondWithError(w, err)
		return
	}

	if appointment.Status == entities.AppointmentStatusCancelled {
		respondWithError(w, apperrors.NewConflictError("appointment is already cancelled"))
		return
	}

	if err := h.appointments.Cancel(r.Context(), id); err != nil {
		respondWithError(w, err)
		return
	}

	if err := h.slots.Release(r.Context(), appointment.TimeSlotID); err != nil {
		observability.LoggerFromContext(r.Context()).Error().
			Err(err).
			Str("time_slot_id", appointment.TimeSlotID).
			Msg("failed to release slot for cancelled appointment")
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"id": id, "status": string(entities.AppointmentStatusCancelled)})
}

// ListAppointments handles GET /api/appointments?patientId=
func (h *AppointmentHandler) ListAppointments(w http.ResponseWriter, r *http.Request) {
	patientID := r.URL.Query().Get("patientId")
	if patientID == "" {
		respondWithError(w, apperrors.NewValidationError("patientId query parameter is required"))
		return
	}

	filter := repositories.AppointmentFilter{
		Status: entities.AppointmentStatus(r.URL.Query().Get("status")),
		Limit:  parseIntParam(r, "limit", 20),
		Offset: parseIntParam(r, "offset", 0),
	}

	appointments, err := h.appointments.ListByPatient(r.Context(), patientID, filter)
	if err != nil {
		respondWithError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, appointments)
}
