package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/google/uuid"
	"github.com/healthsnap/backend/internal/domain/entities"
	"github.com/healthsnap/backend/internal/domain/repositories"
	"github.com/healthsnap/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/healthsnap/backend/pkg/errors"
)

// VoiceNoteAdapter implements the VoiceNoteRepository interface
type VoiceNoteAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewVoiceNoteAdapter creates a new voice note adapter
func NewVoiceNoteAdapter(client *postgres.Client) repositories.VoiceNoteRepository {
	return &VoiceNoteAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// Create persists a transcribed voice note and returns its id
func (a *VoiceNoteAdapter) Create(ctx context.Context, note *entities.VoiceNote) (string, error) {
	if note.ID == "" {
		note.ID = uuid.New().String()
	}
	if note.CreatedAt.IsZero() {
		note.CreatedAt = time.Now().UTC()
	}

	record := goqu.Record{
		"id":               note.ID,
		"patient_id":       note.PatientID,
		"transcript":       note.Transcript,
		"duration_seconds": note.DurationSeconds,
		"provider":         note.Provider,
		"created_at":       note.CreatedAt,
	}

	query, args, err := a.db.Insert("voice_notes").Rows(record).ToSQL()
	if err != nil {
		return "", apperrors.NewInternalError("failed to build insert query", err)
	}

	_, err = a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return "", apperrors.NewInternalError("failed to create voice note", err)
	}

	return note.ID, nil
}

// GetByID retrieves a voice note by ID
func (a *VoiceNoteAdapter) GetByID(ctx context.Context, id string) (*entities.VoiceNote, error) {
	query, args, err := a.db.Select(
		"id", "patient_id", "transcript", "duration_seconds", "provider", "created_at",
	).From("voice_notes").
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	note := &entities.VoiceNote{}
	err = a.client.DB().QueryRowContext(ctx, query, args...).Scan(
		&note.ID,
		&note.PatientID,
		&note.Transcript,
		&note.DurationSeconds,
		&note.Provider,
		&note.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("voice note with id %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get voice note", err)
	}

	return note, nil
}
