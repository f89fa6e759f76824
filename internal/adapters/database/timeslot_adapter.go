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

// TimeSlotAdapter implements the TimeSlotRepository interface
type TimeSlotAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewTimeSlotAdapter creates a new time slot adapter
func NewTimeSlotAdapter(client *postgres.Client) repositories.TimeSlotRepository {
	return &TimeSlotAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

var timeSlotColumns = []interface{}{
	"id", "doctor_id", "start_time", "end_time", "is_booked",
	"created_at", "updated_at",
}

// GetByID retrieves a time slot by ID
func (a *TimeSlotAdapter) GetByID(ctx context.Context, id string) (*entities.TimeSlot, error) {
	query, args, err := a.db.Select(timeSlotColumns...).
		From("time_slots").
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	slot := &entities.TimeSlot{}
	err = a.client.DB().QueryRowContext(ctx, query, args...).Scan(
		&slot.ID,
		&slot.DoctorID,
		&slot.StartTime,
		&slot.EndTime,
		&slot.IsBooked,
		&slot.CreatedAt,
		&slot.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("time slot with id %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get time slot", err)
	}

	return slot, nil
}

// ListOpenByDoctor retrieves unbooked slots for a doctor within the window
func (a *TimeSlotAdapter) ListOpenByDoctor(ctx context.Context, doctorID string, from, to time.Time) ([]*entities.TimeSlot, error) {
	query, args, err := a.db.Select(timeSlotColumns...).
		From("time_slots").
		Where(
			goqu.Ex{"doctor_id": doctorID, "is_booked": false},
			goqu.C("start_time").Gte(from),
			goqu.C("start_time").Lte(to),
		).
		Order(goqu.I("start_time").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build list query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list time slots", err)
	}
	defer rows.Close()

	var slots []*entities.TimeSlot
	for rows.Next() {
		slot := &entities.TimeSlot{}
		err := rows.Scan(
			&slot.ID,
			&slot.DoctorID,
			&slot.StartTime,
			&slot.EndTime,
			&slot.IsBooked,
			&slot.CreatedAt,
			&slot.UpdatedAt,
		)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan time slot", err)
		}
		slots = append(slots, slot)
	}

	return slots, nil
}

// Book flips is_booked from false to true in a single conditional update,
// so two concurrent bookings of the same slot cannot both succeed.
func (a *TimeSlotAdapter) Book(ctx context.Context, id string) error {
	query, args, err := a.db.Update("time_slots").
		Set(goqu.Record{
			"is_booked":  true,
			"updated_at": time.Now(),
		}).
		Where(goqu.Ex{"id": id, "is_booked": false}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build book query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to book time slot", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}

	if rowsAffected == 0 {
		// Distinguish an unknown slot from one that was just taken.
		if _, getErr := a.GetByID(ctx, id); getErr != nil {
			return getErr
		}
		return apperrors.NewConflictError(fmt.Sprintf("time slot %s is already booked", id))
	}

	return nil
}

// Release flips is_booked back to false when a booking is cancelled
func (a *TimeSlotAdapter) Release(ctx context.Context, id string) error {
	query, args, err := a.db.Update("time_slots").
		Set(goqu.Record{
			"is_booked":  false,
			"updated_at": time.Now(),
		}).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build release query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to release time slot", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("time slot with id %s not found", id))
	}

	return nil
}
