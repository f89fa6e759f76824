package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/healthsnap/backend/internal/domain/entities"
	"github.com/healthsnap/backend/internal/domain/repositories"
	"github.com/healthsnap/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/healthsnap/backend/pkg/errors"
)

// AppointmentAdapter implements the AppointmentRepository interface
type AppointmentAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewAppointmentAdapter creates a new appointment adapter
func NewAppointmentAdapter(client *postgres.Client) repositories.AppointmentRepository {
	return &AppointmentAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

var appointmentColumns = []interface{}{
	"id", "patient_id", "doctor_id", "time_slot_id", "report_id",
	"status", "notes", "created_at", "updated_at",
}

// Create creates a new appointment
func (a *AppointmentAdapter) Create(ctx context.Context, appointment *entities.Appointment) error {
	record := goqu.Record{
		"id":           appointment.ID,
		"patient_id":   appointment.PatientID,
		"doctor_id":    appointment.DoctorID,
		"time_slot_id": appointment.TimeSlotID,
		"report_id":    appointment.ReportID,
		"status":       appointment.Status,
		"notes":        appointment.Notes,
		"created_at":   appointment.CreatedAt,
		"updated_at":   appointment.UpdatedAt,
	}

	query, args, err := a.db.Insert("appointments").Rows(record).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	_, err = a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to create appointment", err)
	}

	return nil
}

// GetByID retrieves an appointment by ID
func (a *AppointmentAdapter) GetByID(ctx context.Context, id string) (*entities.Appointment, error) {
	query, args, err := a.db.Select(appointmentColumns...).
		From("appointments").
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	appointment, err := scanAppointment(a.client.DB().QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("appointment with id %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get appointment", err)
	}
	return appointment, nil
}

// Cancel marks an appointment cancelled
func (a *AppointmentAdapter) Cancel(ctx context.Context, id string) error {
	query, args, err := a.db.Update("appointments").
		Set(goqu.Record{
			"status":     entities.AppointmentStatusCancelled,
			"updated_at": time.Now(),
		}).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build cancel query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to cancel appointment", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("appointment with id %s not found", id))
	}

	return nil
}

// ListByPatient retrieves appointments for a patient
func (a *AppointmentAdapter) ListByPatient(ctx context.Context, patientID string, filter repositories.AppointmentFilter) ([]*entities.Appointment, error) {
	ds := a.db.Select(appointmentColumns...).
		From("appointments").
		Where(goqu.Ex{"patient_id": patientID})

	if filter.Status != "" {
		ds = ds.Where(goqu.Ex{"status": filter.Status})
	}
	if filter.From != nil {
		ds = ds.Where(goqu.C("created_at").Gte(*filter.From))
	}
	if filter.To != nil {
		ds = ds.Where(goqu.C("created_at").Lte(*filter.To))
	}

	ds = ds.Order(goqu.I("created_at").Desc())

	if filter.Limit > 0 {
		ds = ds.Limit(uint(filter.Limit))
	}
	if filter.Offset > 0 {
		ds = ds.Offset(uint(filter.Offset))
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build list query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list appointments", err)
	}
	defer rows.Close()

	var appointments []*entities.Appointment
	for rows.Next() {
		appointment, err := scanAppointment(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan appointment", err)
		}
		appointments = append(appointments, appointment)
	}

	return appointments, nil
}

func scanAppointment(row rowScanner) (*entities.Appointment, error) {
	appointment := &entities.Appointment{}
	var reportID sql.NullString
	var notes sql.NullString

	err := row.Scan(
		&appointment.ID,
		&appointment.PatientID,
		&appointment.DoctorID,
		&appointment.TimeSlotID,
		&reportID,
		&appointment.Status,
		&notes,
		&appointment.CreatedAt,
		&appointment.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if reportID.Valid {
		appointment.ReportID = &reportID.String
	}
	appointment.Notes = notes.String

	return appointment, nil
}
