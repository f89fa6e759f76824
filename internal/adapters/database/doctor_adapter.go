package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/lib/pq"
	"github.com/healthsnap/backend/internal/domain/entities"
	"github.com/healthsnap/backend/internal/domain/repositories"
	"github.com/healthsnap/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/healthsnap/backend/pkg/errors"
)

// DoctorAdapter implements the DoctorRepository interface
type DoctorAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewDoctorAdapter creates a new doctor adapter
func NewDoctorAdapter(client *postgres.Client) repositories.DoctorRepository {
	return &DoctorAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

var doctorColumns = []interface{}{
	"id", "name", "specialty", "hospital", "location", "languages",
	"accepted_insurance", "rating", "years_experience", "bio",
	"image_url", "available", "created_at", "updated_at",
}

// GetByID retrieves a doctor by ID
func (a *DoctorAdapter) GetByID(ctx context.Context, id string) (*entities.Doctor, error) {
	query, args, err := a.db.Select(doctorColumns...).
		From("doctors").
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	doctor, err := scanDoctor(a.client.DB().QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("doctor with id %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get doctor", err)
	}
	return doctor, nil
}

// List retrieves doctors matching the filter
func (a *DoctorAdapter) List(ctx context.Context, filter repositories.DoctorFilter) ([]*entities.Doctor, error) {
	ds := a.db.Select(doctorColumns...).From("doctors")

	if filter.Specialty != "" {
		ds = ds.Where(goqu.Ex{"specialty": filter.Specialty})
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		ds = ds.Where(goqu.Or(
			goqu.C("name").ILike(pattern),
			goqu.C("hospital").ILike(pattern),
		))
	}
	if filter.AvailableOnly {
		ds = ds.Where(goqu.Ex{"available": true})
	}

	ds = ds.Order(goqu.I("rating").Desc(), goqu.I("name").Asc())

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
		return nil, apperrors.NewInternalError("failed to list doctors", err)
	}
	defer rows.Close()

	var doctors []*entities.Doctor
	for rows.Next() {
		doctor, err := scanDoctor(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan doctor", err)
		}
		doctors = append(doctors, doctor)
	}

	return doctors, nil
}

// ListAvailableForMatching returns available doctors with their open-slot
// counts and earliest open slot, the candidate pool for the matching scorer.
func (a *DoctorAdapter) ListAvailableForMatching(ctx context.Context) ([]*entities.DoctorForMatching, error) {
	slotStats := a.db.From("time_slots").
		Select(
			goqu.C("doctor_id"),
			goqu.COUNT("*").As("open_slots"),
			goqu.MIN("start_time").As("next_slot"),
		).
		Where(
			goqu.Ex{"is_booked": false},
			goqu.C("start_time").Gt(time.Now()),
		).
		GroupBy("doctor_id")

	query, args, err := a.db.From(goqu.T("doctors").As("d")).
		Select(
			goqu.I("d.id"),
			goqu.I("d.name"),
			goqu.I("d.specialty"),
			goqu.I("d.years_experience"),
			goqu.I("d.rating"),
			goqu.I("d.location"),
			goqu.I("d.languages"),
			goqu.COALESCE(goqu.I("s.open_slots"), 0).As("available_slots"),
			goqu.I("s.next_slot"),
		).
		LeftJoin(slotStats.As("s"), goqu.On(goqu.I("s.doctor_id").Eq(goqu.I("d.id")))).
		Where(goqu.Ex{"d.available": true}).
		Order(goqu.I("d.rating").Desc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build matching pool query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list matching candidates", err)
	}
	defer rows.Close()

	var candidates []*entities.DoctorForMatching
	for rows.Next() {
		candidate := &entities.DoctorForMatching{}
		var location sql.NullString
		var nextSlot sql.NullTime

		err := rows.Scan(
			&candidate.ID,
			&candidate.Name,
			&candidate.Specialty,
			&candidate.YearsExperience,
			&candidate.Rating,
			&location,
			pq.Array(&candidate.Languages),
			&candidate.AvailableSlots,
			&nextSlot,
		)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan matching candidate", err)
		}

		candidate.Location = location.String
		if nextSlot.Valid {
			t := nextSlot.Time
			candidate.NextAvailableSlot = &t
		}

		candidates = append(candidates, candidate)
	}

	return candidates, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDoctor(row rowScanner) (*entities.Doctor, error) {
	doctor := &entities.Doctor{}
	var hospital, location, bio, imageURL sql.NullString

	err := row.Scan(
		&doctor.ID,
		&doctor.Name,
		&doctor.Specialty,
		&hospital,
		&location,
		pq.Array(&doctor.Languages),
		pq.Array(&doctor.AcceptedInsurance),
		&doctor.Rating,
		&doctor.YearsExperience,
		&bio,
		&imageURL,
		&doctor.Available,
		&doctor.CreatedAt,
		&doctor.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	doctor.Hospital = hospital.String
	doctor.Location = location.String
	doctor.Bio = bio.String
	doctor.ImageURL = imageURL.String

	return doctor, nil
}
