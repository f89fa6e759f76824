package handlers

import (
	"net/http"
	"time"

	"github.com/healthsnap/backend/internal/domain/repositories"
	apperrors "github.com/healthsnap/backend/pkg/errors"
)

// defaultSlotWindow bounds the slot listing when the caller gives no range
const defaultSlotWindow = 7 * 24 * time.Hour

// DoctorHandler handles doctor catalog requests
type DoctorHandler struct {
	doctors repositories.DoctorRepository
	slots   repositories.TimeSlotRepository
}

// NewDoctorHandler creates a new doctor handler
func NewDoctorHandler(doctors repositories.DoctorRepository, slots repositories.TimeSlotRepository) *DoctorHandler {
	return &DoctorHandler{doctors: doctors, slots: slots}
}

// ListDoctors handles GET /api/doctors
func (h *DoctorHandler) ListDoctors(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	filter := repositories.DoctorFilter{
		Specialty:     query.Get("specialty"),
		Search:        query.Get("search"),
		AvailableOnly: query.Get("available") == "true",
		Limit:         parseIntParam(r, "limit", 20),
		Offset:        parseIntParam(r, "offset", 0),
	}

	doctors, err := h.doctors.List(r.Context(), filter)
	if err != nil {
		respondWithError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, doctors)
}

// GetDoctor handles GET /api/doctors/{id}
func (h *DoctorHandler) GetDoctor(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		respondWithError(w, apperrors.NewValidationError("doctor ID is required"))
		return
	}

	doctor, err := h.doctors.GetByID(r.Context(), id)
	if err != nil {
		respondWithError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, doctor)
}

// ListDoctorSlots handles GET /api/doctors/{id}/slots. Without from/to
// parameters it lists open slots over the next week.
func (h *DoctorHandler) ListDoctorSlots(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		respondWithError(w, apperrors.NewValidationError("doctor ID is required"))
		return
	}

	from := time.Now()
	to := from.Add(defaultSlotWindow)

	query := r.URL.Query()
	if raw := query.Get("from"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			respondWithError(w, apperrors.NewValidationError("from must be an RFC 3339 timestamp"))
			return
		}
		from = parsed
	}
	if raw := query.Get("to"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			respondWithError(w, apperrors.NewValidationError("to must be an RFC 3339 timestamp"))
			return
		}
		to = parsed
	}
	if !to.After(from) {
		respondWithError(w, apperrors.NewValidationError("to must be after from"))
		return
	}

	slots, err := h.slots.ListOpenByDoctor(r.Context(), id, from, to)
	if err != nil {
		respondWithError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, slots)
}
