package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/healthsnap/backend/internal/adapters/jobs"
	"github.com/healthsnap/backend/internal/api/handlers"
	"github.com/healthsnap/backend/internal/application/pipeline"
	"github.com/healthsnap/backend/internal/domain/entities"
)

type MockPipeline struct {
	mock.Mock
}

func (m *MockPipeline) Start(ctx context.Context, input pipeline.Input) (string, error) {
	args := m.Called(ctx, input)
	return args.String(0), args.Error(1)
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func multipartBody(t *testing.T, audio []byte, mimeType string, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	if audio != nil {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", `form-data; name="audio"; filename="note.webm"`)
		header.Set("Content-Type", mimeType)
		part, err := writer.CreatePart(header)
		require.NoError(t, err)
		_, err = part.Write(audio)
		require.NoError(t, err)
	}

	for name, value := range fields {
		require.NoError(t, writer.WriteField(name, value))
	}

	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func TestGenerateReport_StartsPipeline(t *testing.T) {
	mockPipeline := new(MockPipeline)
	mockPipeline.On("Start", mock.Anything, mock.MatchedBy(func(input pipeline.Input) bool {
		return input.MIMEType == "audio/webm" &&
			input.PatientID == "patient-1" &&
			input.PatientContext != nil &&
			input.PatientContext.Age == 42
	})).Return("job-123", nil)

	handler := handlers.NewReportHandler(mockPipeline, jobs.NewMemoryStore(), nil)

	body, contentType := multipartBody(t, bytes.Repeat([]byte("a"), 2048), "audio/webm", map[string]string{
		"patientId":      "patient-1",
		"patientContext": `{"age":42,"sex":"female","knownConditions":["asthma"]}`,
	})

	req := httptest.NewRequest(http.MethodPost, "/api/reports/generate", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	handler.GenerateReport(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.True(t, env.Success)

	var data map[string]string
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, "job-123", data["jobId"])

	mockPipeline.AssertExpectations(t)
}

func TestGenerateReport_NoAudioFile(t *testing.T) {
	mockPipeline := new(MockPipeline)
	handler := handlers.NewReportHandler(mockPipeline, jobs.NewMemoryStore(), nil)

	body, contentType := multipartBody(t, nil, "", map[string]string{"patientId": "patient-1"})

	req := httptest.NewRequest(http.MethodPost, "/api/reports/generate", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	handler.GenerateReport(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.False(t, env.Success)
	assert.Equal(t, "No audio file provided", env.Error)
	mockPipeline.AssertNotCalled(t, "Start", mock.Anything, mock.Anything)
}

func TestGenerateReport_MalformedPatientContext(t *testing.T) {
	mockPipeline := new(MockPipeline)
	handler := handlers.NewReportHandler(mockPipeline, jobs.NewMemoryStore(), nil)

	body, contentType := multipartBody(t, bytes.Repeat([]byte("a"), 2048), "audio/webm", map[string]string{
		"patientContext": `{"age": "not a number"}`,
	})

	req := httptest.NewRequest(http.MethodPost, "/api/reports/generate", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	handler.GenerateReport(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	mockPipeline.AssertNotCalled(t, "Start", mock.Anything, mock.Anything)
}

func TestGenerateReport_RejectsOutOfRangeAge(t *testing.T) {
	mockPipeline := new(MockPipeline)
	handler := handlers.NewReportHandler(mockPipeline, jobs.NewMemoryStore(), nil)

	body, contentType := multipartBody(t, bytes.Repeat([]byte("a"), 2048), "audio/webm", map[string]string{
		"patientContext": `{"age":250}`,
	})

	req := httptest.NewRequest(http.MethodPost, "/api/reports/generate", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	handler.GenerateReport(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	mockPipeline.AssertNotCalled(t, "Start", mock.Anything, mock.Anything)
}

func TestGetGenerationStatus_MissingJobID(t *testing.T) {
	handler := handlers.NewReportHandler(new(MockPipeline), jobs.NewMemoryStore(), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/reports/generate", nil)
	rec := httptest.NewRecorder()

	handler.GetGenerationStatus(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.False(t, env.Success)
}

func TestGetGenerationStatus_UnknownJob(t *testing.T) {
	handler := handlers.NewReportHandler(new(MockPipeline), jobs.NewMemoryStore(), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/reports/generate?jobId=nope", nil)
	rec := httptest.NewRecorder()

	handler.GetGenerationStatus(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.False(t, env.Success)
	assert.Equal(t, "Job not found", env.Error)
}

func TestGetGenerationStatus_ReturnsJob(t *testing.T) {
	store := jobs.NewMemoryStore()
	jobID, err := store.Create(context.Background())
	require.NoError(t, err)

	handler := handlers.NewReportHandler(new(MockPipeline), store, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/reports/generate?jobId="+jobID, nil)
	rec := httptest.NewRecorder()

	handler.GetGenerationStatus(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.True(t, env.Success)

	var job entities.Job
	require.NoError(t, json.Unmarshal(env.Data, &job))
	assert.Equal(t, jobID, job.ID)
	assert.Equal(t, entities.JobStatusUploading, job.Status)
}
