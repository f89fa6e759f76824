package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/healthsnap/backend/internal/application/pipeline"
	"github.com/healthsnap/backend/internal/domain/entities"
	"github.com/healthsnap/backend/internal/domain/providers"
	"github.com/healthsnap/backend/internal/domain/repositories"
	"github.com/healthsnap/backend/internal/infrastructure/observability"
	apperrors "github.com/healthsnap/backend/pkg/errors"
)

// maxUploadBytes caps the multipart form size. The gateway enforces its own
// audio size bounds; this guard stops oversized bodies before they are read.
const maxUploadBytes = 12 << 20

// ReportPipeline starts a detached report-generation run and returns the
// job id to poll.
type ReportPipeline interface {
	Start(ctx context.Context, input pipeline.Input) (string, error)
}

// ReportHandler handles report generation and retrieval requests
type ReportHandler struct {
	pipeline ReportPipeline
	jobs     providers.JobStore
	reports  repositories.ReportRepository
	validate *validator.Validate
}

// NewReportHandler creates a new report handler. reports may be nil when no
// database is configured; report retrieval then returns 404.
func NewReportHandler(p ReportPipeline, jobs providers.JobStore, reports repositories.ReportRepository) *ReportHandler {
	return &ReportHandler{
		pipeline: p,
		jobs:     jobs,
		reports:  reports,
		validate: validator.New(),
	}
}

// GenerateReport handles POST /api/reports/generate. It accepts a multipart
// form with an audio file plus optional patient fields, starts a pipeline
// run, and returns the job id immediately.
func (h *ReportHandler) GenerateReport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		respondWithError(w, apperrors.NewValidationError("invalid multipart form"))
		return
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		respondWithError(w, apperrors.NewValidationError("No audio file provided"))
		return
	}
	defer file.Close()

	audio, err := io.ReadAll(file)
	if err != nil {
		respondWithError(w, apperrors.NewInternalError("failed to read audio file", err))
		return
	}

	input := pipeline.Input{
		Audio:     audio,
		MIMEType:  header.Header.Get("Content-Type"),
		Language:  r.FormValue("language"),
		PatientID: r.FormValue("patientId"),
	}

	if raw := r.FormValue("patientContext"); raw != "" {
		var pc entities.PatientContext
		if err := json.Unmarshal([]byte(raw), &pc); err != nil {
			respondWithError(w, apperrors.NewValidationError("patientContext must be valid JSON"))
			return
		}
		if err := h.validate.Struct(&pc); err != nil {
			respondWithError(w, apperrors.NewValidationError("invalid patientContext: "+err.Error()))
			return
		}
		input.PatientContext = &pc
	}

	jobID, err := h.pipeline.Start(r.Context(), input)
	if err != nil {
		observability.LoggerFromContext(r.Context()).Error().
			Err(err).
			Msg("failed to start report pipeline")
		respondWithError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"jobId": jobID})
}

// GetGenerationStatus handles GET /api/reports/generate?jobId=. Polling
// clients call this roughly once a second until the job goes terminal.
func (h *ReportHandler) GetGenerationStatus(w http.ResponseWriter, r *http.Request) {
	jobID := r.URL.Query().Get("jobId")
	if jobID == "" {
		respondWithError(w, apperrors.NewValidationError("jobId query parameter is required"))
		return
	}

	job, err := h.jobs.Get(r.Context(), jobID)
	if err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
			respondWithError(w, apperrors.NewNotFoundError("Job not found"))
			return
		}
		respondWithError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, job)
}

// GetReport handles GET /api/reports/{id}
func (h *ReportHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		respondWithError(w, apperrors.NewValidationError("report ID is required"))
		return
	}

	if h.reports == nil {
		respondWithError(w, apperrors.NewNotFoundError("report not found"))
		return
	}

	detail, err := h.reports.GetDetail(r.Context(), id)
	if err != nil {
		respondWithError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, detail)
}

// ListReports handles GET /api/reports?patientId=
func (h *ReportHandler) ListReports(w http.ResponseWriter, r *http.Request) {
	patientID := r.URL.Query().Get("patientId")
	if patientID == "" {
		respondWithError(w, apperrors.NewValidationError("patientId query parameter is required"))
		return
	}

	limit := parseIntParam(r, "limit", 20)
	offset := parseIntParam(r, "offset", 0)

	if h.reports == nil {
		respondWithJSON(w, http.StatusOK, []*entities.Report{})
		return
	}

	reports, err := h.reports.ListByPatient(r.Context(), patientID, limit, offset)
	if err != nil {
		respondWithError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, reports)
}

// parseIntParam reads an integer query parameter, falling back to def on
// absent or malformed values
func parseIntParam(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return def
	}
	return value
}

// respondWithJSON writes a success envelope with the given payload
func respondWithJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"data":    data,
	})
}

// respondWithError maps an application error to a status code and writes an
// error envelope
func respondWithError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := "internal server error"

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		message = appErr.Message
		switch appErr.Type {
		case apperrors.ErrorTypeNotFound:
			status = http.StatusNotFound
		case apperrors.ErrorTypeValidation:
			status = http.StatusBadRequest
		case apperrors.ErrorTypeConflict:
			status = http.StatusConflict
		case apperrors.ErrorTypeUnauthorized:
			status = http.StatusUnauthorized
		case apperrors.ErrorTypeExternal:
			status = http.StatusBadGateway
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"error":   message,
	})
}
