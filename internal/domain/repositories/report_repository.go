package repositories

import (
	"context"

	"github.com/healthsnap/backend/internal/domain/entities"
)

// VoiceNoteRepository defines the interface for voice note persistence
type VoiceNoteRepository interface {
	// Create persists a transcribed voice note and returns its id
	Create(ctx context.Context, note *entities.VoiceNote) (string, error)

	// GetByID retrieves a voice note by ID
	GetByID(ctx context.Context, id string) (*entities.VoiceNote, error)
}

// ReportRepository defines the interface for structured report persistence
type ReportRepository interface {
	// SaveAnalysis persists the stage outputs of a completed analysis as a
	// report and returns the report id.
	SaveAnalysis(ctx context.Context, patientID, voiceNoteID string, analysis *entities.FullAnalysisResult) (string, error)

	// GetDetail retrieves the assembled report view by report ID
	GetDetail(ctx context.Context, id string) (*entities.ReportDetail, error)

	// ListByPatient retrieves report headers for a patient, newest first
	ListByPatient(ctx context.Context, patientID string, limit, offset int) ([]*entities.Report, error)
}
