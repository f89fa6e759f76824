package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/healthsnap/backend/internal/application/analysis"
	"github.com/healthsnap/backend/internal/domain/entities"
	"github.com/healthsnap/backend/internal/domain/providers"
	"github.com/healthsnap/backend/internal/domain/repositories"
	"github.com/healthsnap/backend/internal/infrastructure/observability"
)

const defaultPatientID = "demo-patient"

// Transcriber is the gateway contract the supervisor depends on.
type Transcriber interface {
	Transcribe(ctx context.Context, req providers.TranscriptionRequest) (*providers.TranscriptionResult, error)
}

// Analyzer is the orchestrator contract the supervisor depends on.
type Analyzer interface {
	Run(ctx context.Context, input analysis.AnalysisInput, doctors []entities.DoctorForMatching) (*entities.FullAnalysisResult, error)
}

// Input carries one report-generation request into the pipeline.
type Input struct {
	Audio          []byte
	MIMEType       string
	Language       string
	PatientID      string
	PatientContext *entities.PatientContext
}

// Supervisor drives a full report run: transcribe, persist the transcript,
// analyze, persist the report. Progress is written to the job store at each
// milestone; polling clients read it from there.
type Supervisor struct {
	jobs       providers.JobStore
	gateway    Transcriber
	analyzer   Analyzer
	voiceNotes repositories.VoiceNoteRepository
	reports    repositories.ReportRepository
	doctors    repositories.DoctorRepository
}

// NewSupervisor creates a pipeline supervisor. voiceNotes, reports, and
// doctors may be nil when no database is configured; the corresponding
// persistence and matching steps are then skipped.
func NewSupervisor(
	jobs providers.JobStore,
	gateway Transcriber,
	analyzer Analyzer,
	voiceNotes repositories.VoiceNoteRepository,
	reports repositories.ReportRepository,
	doctors repositories.DoctorRepository,
) *Supervisor {
	return &Supervisor{
		jobs:       jobs,
		gateway:    gateway,
		analyzer:   analyzer,
		voiceNotes: voiceNotes,
		reports:    reports,
		doctors:    doctors,
	}
}

// Start registers a job and launches the run detached from the caller. The
// returned job id is immediately pollable. The run deliberately does not
// inherit the request's cancellation: an abandoned poll must not abort an
// in-flight analysis.
func (s *Supervisor) Start(ctx context.Context, input Input) (string, error) {
	jobID, err := s.jobs.Create(ctx)
	if err != nil {
		return "", err
	}

	runCtx := context.WithoutCancel(ctx)
	go s.run(runCtx, jobID, input)

	return jobID, nil
}

func (s *Supervisor) run(ctx context.Context, jobID string, input Input) {
	logger := observability.LoggerFromContext(ctx).With().Str("job_id", jobID).Logger()

	patientID := input.PatientID
	if patientID == "" {
		patientID = defaultPatientID
	}

	s.progress(ctx, jobID, entities.JobStatusUploading, 5, "Preparing your voice note...", "")
	s.progress(ctx, jobID, entities.JobStatusUploading, 10, "Voice note prepared", "")

	s.progress(ctx, jobID, entities.JobStatusTranscribing, 15, "Transcribing your voice note...", "Converting speech to text")

	transcription, err := s.gateway.Transcribe(ctx, providers.TranscriptionRequest{
		Audio:    input.Audio,
		MIMEType: input.MIMEType,
		Language: input.Language,
	})
	if err != nil {
		logger.Error().Err(err).Msg("Transcription failed")
		s.fail(ctx, jobID, err)
		return
	}
	if transcription.Transcript == "" {
		logger.Error().Msg("Transcription returned an empty transcript")
		s.fail(ctx, jobID, fmt.Errorf("transcription produced no text"))
		return
	}

	wordCount := len(strings.Fields(transcription.Transcript))
	s.progress(ctx, jobID, entities.JobStatusTranscribing, 30, "Transcription complete",
		fmt.Sprintf("%d words detected", wordCount))

	var voiceNoteID string
	if s.voiceNotes != nil {
		voiceNoteID, err = s.voiceNotes.Create(ctx, &entities.VoiceNote{
			PatientID:       patientID,
			Transcript:      transcription.Transcript,
			DurationSeconds: transcription.DurationSeconds,
			Provider:        transcription.Provider,
		})
		if err != nil {
			logger.Error().Err(err).Msg("Failed to save voice note")
			s.fail(ctx, jobID, err)
			return
		}
		s.progress(ctx, jobID, entities.JobStatusTranscribing, 35, "Voice note saved", "")
	}

	s.progress(ctx, jobID, entities.JobStatusAnalyzingRisks, 40, "Analyzing symptoms and risk factors...", "AI is reviewing your symptoms")

	// The candidate pool feeds the optional matching stage, so a lookup
	// failure degrades the result instead of failing the run.
	var doctorPool []entities.DoctorForMatching
	if s.doctors != nil {
		candidates, poolErr := s.doctors.ListAvailableForMatching(ctx)
		if poolErr != nil {
			logger.Warn().Err(poolErr).Msg("Failed to load doctor pool, skipping matching")
		} else {
			doctorPool = make([]entities.DoctorForMatching, 0, len(candidates))
			for _, c := range candidates {
				doctorPool = append(doctorPool, *c)
			}
		}
	}

	analysisResult, err := s.analyzer.Run(ctx, analysis.AnalysisInput{
		VoiceNoteID:    voiceNoteID,
		Transcript:     transcription.Transcript,
		PatientContext: input.PatientContext,
	}, doctorPool)
	if err != nil {
		logger.Error().Err(err).Msg("Analysis failed")
		s.fail(ctx, jobID, err)
		return
	}

	s.progress(ctx, jobID, entities.JobStatusAnalyzingRisks, 55, "Risk assessment complete",
		fmt.Sprintf("Acuity level: %s", analysisResult.RiskAssessment.OverallAcuity))
	s.progress(ctx, jobID, entities.JobStatusSummarizing, 60, "Generating clinical summary...", "")
	s.progress(ctx, jobID, entities.JobStatusSummarizing, 70, "Clinical summary complete", "")
	s.progress(ctx, jobID, entities.JobStatusRecommending, 80, "Generating recommendations...", "")
	s.progress(ctx, jobID, entities.JobStatusSaving, 90, "Saving your report...", "")

	// The analysis is already complete; losing the write costs durability,
	// not correctness, so it does not fail the job.
	var reportID string
	if s.reports != nil {
		reportID, err = s.reports.SaveAnalysis(ctx, patientID, voiceNoteID, analysisResult)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to persist report")
			observability.RecordPipelineRun(ctx, "persist_failed")
			reportID = ""
		}
	}

	s.complete(ctx, jobID, reportID)
	observability.RecordPipelineRun(ctx, "complete")
	logger.Info().Str("report_id", reportID).Msg("Pipeline run complete")
}

func (s *Supervisor) progress(ctx context.Context, jobID string, status entities.JobStatus, progress int, message, details string) {
	update := entities.JobUpdate{
		Status:   &status,
		Progress: &progress,
		Message:  &message,
	}
	if details != "" {
		update.Details = &details
	}
	if err := s.jobs.Update(ctx, jobID, update); err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Str("job_id", jobID).Msg("Failed to update job progress")
	}
}

func (s *Supervisor) complete(ctx context.Context, jobID, reportID string) {
	status := entities.JobStatusComplete
	progress := 100
	message := "Report generated successfully!"
	update := entities.JobUpdate{
		Status:   &status,
		Progress: &progress,
		Message:  &message,
	}
	if reportID != "" {
		details := "Report ID: " + reportID
		update.Details = &details
		update.ReportID = &reportID
	}
	if err := s.jobs.Update(ctx, jobID, update); err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Str("job_id", jobID).Msg("Failed to mark job complete")
	}
}

func (s *Supervisor) fail(ctx context.Context, jobID string, cause error) {
	status := entities.JobStatusError
	message := "An error occurred"
	errMsg := cause.Error()
	update := entities.JobUpdate{
		Status:  &status,
		Message: &message,
		Error:   &errMsg,
	}
	if err := s.jobs.Update(ctx, jobID, update); err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Str("job_id", jobID).Msg("Failed to mark job failed")
	}
	observability.RecordPipelineRun(ctx, "error")
}
