package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/healthsnap/backend/internal/api/handlers"
	"github.com/healthsnap/backend/internal/domain/entities"
	"github.com/healthsnap/backend/internal/domain/repositories"
	apperrors "github.com/healthsnap/backend/pkg/errors"
)

type MockAppointmentRepo struct {
	mock.Mock
}

func (m *MockAppointmentRepo) Create(ctx context.Context, appointment *entities.Appointment) error {
	args := m.Called(ctx, appointment)
	return args.Error(0)
}

func (m *MockAppointmentRepo) GetByID(ctx context.Context, id string) (*entities.Appointment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Appointment), args.Error(1)
}

func (m *MockAppointmentRepo) Cancel(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockAppointmentRepo) ListByPatient(ctx context.Context, patientID string, filter repositories.AppointmentFilter) ([]*entities.Appointment, error) {
	args := m.Called(ctx, patientID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Appointment), args.Error(1)
}

type MockTimeSlotRepo struct {
	mock.Mock
}

func (m *MockTimeSlotRepo) GetByID(ctx context.Context, id string) (*entities.TimeSlot, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.TimeSlot), args.Error(1)
}

func (m *MockTimeSlotRepo) ListOpenByDoctor(ctx context.Context, doctorID string, from, to time.Time) ([]*entities.TimeSlot, error) {
	args := m.Called(ctx, doctorID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.TimeSlot), args.Error(1)
}

func (m *MockTimeSlotRepo) Book(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockTimeSlotRepo) Release(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func postAppointment(t *testing.T, handler *handlers.AppointmentHandler, payload string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/appointments", bytes.NewBufferString(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.CreateAppointment(rec, req)
	return rec
}

func TestCreateAppointment_Success(t *testing.T) {
	appointments := new(MockAppointmentRepo)
	slots := new(MockTimeSlotRepo)
	handler := handlers.NewAppointmentHandler(appointments, slots)

	slots.On("Book", mock.Anything, "slot-1").Return(nil)
	appointments.On("Create", mock.Anything, mock.MatchedBy(func(a *entities.Appointment) bool {
		return a.PatientID == "patient-1" &&
			a.DoctorID == "doctor-1" &&
			a.TimeSlotID == "slot-1" &&
			a.Status == entities.AppointmentStatusConfirmed
	})).Return(nil)

	rec := postAppointment(t, handler, `{"patientId":"patient-1","doctorId":"doctor-1","timeSlotId":"slot-1"}`)

	assert.Equal(t, http.StatusCreated, rec.Code)
	appointments.AssertExpectations(t)
	slots.AssertExpectations(t)
	slots.AssertNotCalled(t, "Release", mock.Anything, mock.Anything)
}

func TestCreateAppointment_SlotAlreadyBooked(t *testing.T) {
	appointments := new(MockAppointmentRepo)
	slots := new(MockTimeSlotRepo)
	handler := handlers.NewAppointmentHandler(appointments, slots)

	slots.On("Book", mock.Anything, "slot-1").Return(apperrors.NewConflictError("time slot slot-1 is already booked"))

	rec := postAppointment(t, handler, `{"patientId":"patient-1","doctorId":"doctor-1","timeSlotId":"slot-1"}`)

	assert.Equal(t, http.StatusConflict, rec.Code)
	appointments.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreateAppointment_ReleasesSlotWhenCreateFails(t *testing.T) {
	appointments := new(MockAppointmentRepo)
	slots := new(MockTimeSlotRepo)
	handler := handlers.NewAppointmentHandler(appointments, slots)

	slots.On("Book", mock.Anything, "slot-1").Return(nil)
	appointments.On("Create", mock.Anything, mock.Anything).Return(apperrors.NewInternalError("insert failed", errors.New("db down")))
	slots.On("Release", mock.Anything, "slot-1").Return(nil)

	rec := postAppointment(t, handler, `{"patientId":"patient-1","doctorId":"doctor-1","timeSlotId":"slot-1"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	slots.AssertCalled(t, "Release", mock.Anything, "slot-1")
}

func TestCreateAppointment_MissingRequiredFields(t *testing.T) {
	appointments := new(MockAppointmentRepo)
	slots := new(MockTimeSlotRepo)
	handler := handlers.NewAppointmentHandler(appointments, slots)

	rec := postAppointment(t, handler, `{"patientId":"patient-1"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	slots.AssertNotCalled(t, "Book", mock.Anything, mock.Anything)
}

func TestCancelAppointment_ReleasesSlot(t *testing.T) {
	appointments := new(MockAppointmentRepo)
	slots := new(MockTimeSlotRepo)
	handler := handlers.NewAppointmentHandler(appointments, slots)

	appointments.On("GetByID", mock.Anything, "appt-1").Return(&entities.Appointment{
		ID:         "appt-1",
		TimeSlotID: "slot-1",
		Status:     entities.AppointmentStatusConfirmed,
	}, nil)
	appointments.On("Cancel", mock.Anything, "appt-1").Return(nil)
	slots.On("Release", mock.Anything, "slot-1").Return(nil)

	req := httptest.NewRequest(http.MethodDelete, "/api/appointments/appt-1", nil)
	req.SetPathValue("id", "appt-1")
	rec := httptest.NewRecorder()

	handler.CancelAppointment(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	slots.AssertCalled(t, "Release", mock.Anything, "slot-1")
}

func TestCancelAppointment_AlreadyCancelled(t *testing.T) {
	appointments := new(MockAppointmentRepo)
	slots := new(MockTimeSlotRepo)
	handler := handlers.NewAppointmentHandler(appointments, slots)

	appointments.On("GetByID", mock.Anything, "appt-1").Return(&entities.Appointment{
		ID:         "appt-1",
		TimeSlotID: "slot-1",
		Status:     entities.AppointmentStatusCancelled,
	}, nil)

	req := httptest.NewRequest(http.MethodDelete, "/api/appointments/appt-1", nil)
	req.SetPathValue("id", "appt-1")
	rec := httptest.NewRecorder()

	handler.CancelAppointment(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
	appointments.AssertNotCalled(t, "Cancel", mock.Anything, mock.Anything)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.False(t, env.Success)
}
