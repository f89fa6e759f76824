package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/healthsnap/backend/internal/adapters/jobs"
	"github.com/healthsnap/backend/internal/application/analysis"
	"github.com/healthsnap/backend/internal/domain/entities"
	"github.com/healthsnap/backend/internal/domain/providers"
)

type stubTranscriber struct {
	result *providers.TranscriptionResult
	err    error
}

func (s *stubTranscriber) Transcribe(ctx context.Context, req providers.TranscriptionRequest) (*providers.TranscriptionResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

type stubAnalyzer struct {
	result  *entities.FullAnalysisResult
	err     error
	doctors []entities.DoctorForMatching
}

func (s *stubAnalyzer) Run(ctx context.Context, input analysis.AnalysisInput, doctors []entities.DoctorForMatching) (*entities.FullAnalysisResult, error) {
	s.doctors = doctors
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

type stubVoiceNotes struct {
	id  string
	err error
}

func (s *stubVoiceNotes) Create(ctx context.Context, note *entities.VoiceNote) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.id, nil
}

func (s *stubVoiceNotes) GetByID(ctx context.Context, id string) (*entities.VoiceNote, error) {
	return nil, errors.New("not implemented")
}

type stubReports struct {
	id    string
	err   error
	saved *entities.FullAnalysisResult
}

func (s *stubReports) SaveAnalysis(ctx context.Context, patientID, voiceNoteID string, result *entities.FullAnalysisResult) (string, error) {
	s.saved = result
	if s.err != nil {
		return "", s.err
	}
	return s.id, nil
}

func (s *stubReports) GetDetail(ctx context.Context, id string) (*entities.ReportDetail, error) {
	return nil, errors.New("not implemented")
}

func (s *stubReports) ListByPatient(ctx context.Context, patientID string, limit, offset int) ([]*entities.Report, error) {
	return nil, errors.New("not implemented")
}

func goodTranscription() *providers.TranscriptionResult {
	return &providers.TranscriptionResult{
		Transcript:      "I have had a fever and cough for three days",
		Confidence:      0.95,
		DurationSeconds: 12.5,
		Provider:        "deepgram",
	}
}

func goodAnalysis() *entities.FullAnalysisResult {
	return &entities.FullAnalysisResult{
		Success: true,
		RiskAssessment: entities.RiskAssessmentResult{
			OverallAcuity: entities.AcuityUrgent,
		},
		Disclaimer: analysis.MedicalDisclaimer,
	}
}

func waitForTerminal(t *testing.T, store providers.JobStore, jobID string) *entities.Job {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, err := store.Get(context.Background(), jobID)
		require.NoError(t, err)
		if job.Status.Terminal() {
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("job did not reach a terminal state")
	return nil
}

func TestSupervisorHappyPath(t *testing.T) {
	store := jobs.NewMemoryStore()
	reports := &stubReports{id: "report-1"}
	sup := NewSupervisor(
		store,
		&stubTranscriber{result: goodTranscription()},
		&stubAnalyzer{result: goodAnalysis()},
		&stubVoiceNotes{id: "vn-1"},
		reports,
		nil,
	)

	jobID, err := sup.Start(context.Background(), Input{
		Audio:    make([]byte, 5*1024),
		MIMEType: "audio/webm",
	})
	require.NoError(t, err)
	require.NotEmpty(t, jobID)

	job := waitForTerminal(t, store, jobID)
	assert.Equal(t, entities.JobStatusComplete, job.Status)
	assert.Equal(t, 100, job.Progress)
	assert.Equal(t, "report-1", job.ReportID)
	assert.Empty(t, job.Error)
	require.NotNil(t, reports.saved)
	assert.Equal(t, entities.AcuityUrgent, reports.saved.RiskAssessment.OverallAcuity)
}

func TestSupervisorTranscriptionFailure(t *testing.T) {
	store := jobs.NewMemoryStore()
	sup := NewSupervisor(
		store,
		&stubTranscriber{err: providers.NewProviderError("deepgram", providers.FailureUnavailable, "service down", nil)},
		&stubAnalyzer{result: goodAnalysis()},
		nil,
		nil,
		nil,
	)

	jobID, err := sup.Start(context.Background(), Input{Audio: make([]byte, 2048), MIMEType: "audio/webm"})
	require.NoError(t, err)

	job := waitForTerminal(t, store, jobID)
	assert.Equal(t, entities.JobStatusError, job.Status)
	assert.Contains(t, job.Error, "service down")
	assert.Empty(t, job.ReportID)
}

func TestSupervisorAnalysisFailure(t *testing.T) {
	store := jobs.NewMemoryStore()
	sup := NewSupervisor(
		store,
		&stubTranscriber{result: goodTranscription()},
		&stubAnalyzer{err: errors.New("invalid risk assessment: invalid overallAcuity value \"severe\"")},
		nil,
		nil,
		nil,
	)

	jobID, err := sup.Start(context.Background(), Input{Audio: make([]byte, 2048), MIMEType: "audio/webm"})
	require.NoError(t, err)

	job := waitForTerminal(t, store, jobID)
	assert.Equal(t, entities.JobStatusError, job.Status)
	assert.Contains(t, job.Error, "overallAcuity")
}

func TestSupervisorEmptyTranscriptFails(t *testing.T) {
	store := jobs.NewMemoryStore()
	sup := NewSupervisor(
		store,
		&stubTranscriber{result: &providers.TranscriptionResult{Transcript: "", Provider: "deepgram"}},
		&stubAnalyzer{result: goodAnalysis()},
		nil,
		nil,
		nil,
	)

	jobID, err := sup.Start(context.Background(), Input{Audio: make([]byte, 2048), MIMEType: "audio/webm"})
	require.NoError(t, err)

	job := waitForTerminal(t, store, jobID)
	assert.Equal(t, entities.JobStatusError, job.Status)
}

func TestSupervisorPersistenceFailureStillCompletes(t *testing.T) {
	store := jobs.NewMemoryStore()
	sup := NewSupervisor(
		store,
		&stubTranscriber{result: goodTranscription()},
		&stubAnalyzer{result: goodAnalysis()},
		&stubVoiceNotes{id: "vn-1"},
		&stubReports{err: errors.New("database unavailable")},
		nil,
	)

	jobID, err := sup.Start(context.Background(), Input{Audio: make([]byte, 2048), MIMEType: "audio/webm"})
	require.NoError(t, err)

	job := waitForTerminal(t, store, jobID)
	assert.Equal(t, entities.JobStatusComplete, job.Status)
	assert.Empty(t, job.ReportID)
}

func TestSupervisorRunsWithoutPersistence(t *testing.T) {
	store := jobs.NewMemoryStore()
	sup := NewSupervisor(
		store,
		&stubTranscriber{result: goodTranscription()},
		&stubAnalyzer{result: goodAnalysis()},
		nil,
		nil,
		nil,
	)

	jobID, err := sup.Start(context.Background(), Input{Audio: make([]byte, 2048), MIMEType: "audio/webm"})
	require.NoError(t, err)

	job := waitForTerminal(t, store, jobID)
	assert.Equal(t, entities.JobStatusComplete, job.Status)
	assert.Empty(t, job.ReportID)
}
