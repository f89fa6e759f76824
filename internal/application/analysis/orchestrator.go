package analysis

import (
	"context"
	"math"
	"math/rand"
	"strconv"
	"time"

	"github.com/healthsnap/backend/internal/domain/entities"
	"github.com/healthsnap/backend/internal/domain/providers"
	"github.com/healthsnap/backend/internal/infrastructure/observability"
	"github.com/healthsnap/backend/pkg/config"
)

// MedicalDisclaimer is attached verbatim to every analysis result.
const MedicalDisclaimer = `IMPORTANT DISCLAIMER: This analysis is generated by an AI system and is intended for informational purposes only. It is NOT a medical diagnosis and should NOT replace professional medical advice, diagnosis, or treatment. Always consult with qualified healthcare providers for medical concerns. If you are experiencing a medical emergency, call emergency services (911) immediately.`

const (
	stageRiskAssessment  = "risk-assessment"
	stageClinicalSummary = "clinical-summary"
	stageNextSteps       = "next-steps"
	stageDoctorMatching  = "doctor-matching"
)

// AnalysisInput is everything the orchestrator needs for one run.
type AnalysisInput struct {
	VoiceNoteID    string
	Transcript     string
	PatientContext *entities.PatientContext
}

// DoctorMatcher ranks candidate doctors against an analysis. The matching
// stage is optional and its failure never fails the run.
type DoctorMatcher interface {
	Match(riskAssessment *entities.RiskAssessmentResult, nextSteps *entities.NextStepsResult, doctors []entities.DoctorForMatching) (*entities.DoctorMatchingResult, error)
}

// Orchestrator runs the staged analysis of a transcript: risk assessment,
// then clinical summary, then next steps, then optional doctor matching.
// Each stage feeds the next, so they run sequentially.
type Orchestrator struct {
	client          providers.CompletionProvider
	matcher         DoctorMatcher
	inputCostPer1K  float64
	outputCostPer1K float64
}

// NewOrchestrator creates an analysis orchestrator. matcher may be nil to
// disable the doctor-matching stage entirely.
func NewOrchestrator(client providers.CompletionProvider, matcher DoctorMatcher, cfg *config.AnthropicConfig) *Orchestrator {
	inputCost := 0.003
	outputCost := 0.015
	if cfg != nil {
		if cfg.InputCostPer1K > 0 {
			inputCost = cfg.InputCostPer1K
		}
		if cfg.OutputCostPer1K > 0 {
			outputCost = cfg.OutputCostPer1K
		}
	}

	return &Orchestrator{
		client:          client,
		matcher:         matcher,
		inputCostPer1K:  inputCost,
		outputCostPer1K: outputCost,
	}
}

// Run executes the full analysis. doctors is the candidate pool for the
// matching stage; when empty the stage is skipped.
func (o *Orchestrator) Run(ctx context.Context, input AnalysisInput, doctors []entities.DoctorForMatching) (*entities.FullAnalysisResult, error) {
	startTime := time.Now()
	analysisID := generateAnalysisID()
	logger := observability.LoggerFromContext(ctx).With().Str("analysis_id", analysisID).Logger()

	var stages []entities.StageMetadata
	var totalInput, totalOutput int

	logger.Info().Msg("Starting risk assessment")
	riskStart := time.Now()
	risk, err := runStage(ctx, o.client, stageRiskAssessment,
		riskAssessmentSystemPrompt,
		buildRiskAssessmentPrompt(input.Transcript, input.PatientContext),
		parseRiskAssessment)
	if err != nil {
		observability.RecordPipelineRun(ctx, "analysis_failed")
		return nil, err
	}
	totalInput += risk.usage.Input
	totalOutput += risk.usage.Output
	stages = append(stages, stageRecord(ctx, stageRiskAssessment, risk.usage, riskStart, true, ""))
	logger.Info().Str("acuity", string(risk.result.OverallAcuity)).Msg("Risk assessment complete")

	logger.Info().Msg("Starting clinical summary")
	summaryStart := time.Now()
	summary, err := runStage(ctx, o.client, stageClinicalSummary,
		clinicalSummarySystemPrompt,
		buildClinicalSummaryPrompt(risk.result, input.Transcript),
		parseClinicalSummary)
	if err != nil {
		observability.RecordPipelineRun(ctx, "analysis_failed")
		return nil, err
	}
	totalInput += summary.usage.Input
	totalOutput += summary.usage.Output
	stages = append(stages, stageRecord(ctx, stageClinicalSummary, summary.usage, summaryStart, true, ""))
	logger.Info().Msg("Clinical summary complete")

	logger.Info().Msg("Starting next steps")
	nextStart := time.Now()
	next, err := runStage(ctx, o.client, stageNextSteps,
		nextStepsSystemPrompt,
		buildNextStepsPrompt(risk.result, summary.result),
		parseNextSteps)
	if err != nil {
		observability.RecordPipelineRun(ctx, "analysis_failed")
		return nil, err
	}
	totalInput += next.usage.Input
	totalOutput += next.usage.Output
	stages = append(stages, stageRecord(ctx, stageNextSteps, next.usage, nextStart, true, ""))
	logger.Info().Str("urgency", next.result.UrgencyTimeframe).Msg("Next steps complete")

	var doctorMatching *entities.DoctorMatchingResult
	if o.matcher != nil && len(doctors) > 0 {
		logger.Info().Int("candidates", len(doctors)).Msg("Starting doctor matching")
		matchStart := time.Now()

		matched, matchErr := o.matcher.Match(risk.result, next.result, doctors)
		if matchErr != nil {
			logger.Error().Err(matchErr).Msg("Doctor matching failed")
			stages = append(stages, stageRecord(ctx, stageDoctorMatching, providers.TokenUsage{}, matchStart, false, matchErr.Error()))
		} else {
			doctorMatching = matched
			stages = append(stages, stageRecord(ctx, stageDoctorMatching, providers.TokenUsage{}, matchStart, true, ""))
			logger.Info().Int("matches", len(matched.Matches)).Msg("Doctor matching complete")
		}
	}

	totalTokens := totalInput + totalOutput
	cost := float64(totalInput)/1000*o.inputCostPer1K + float64(totalOutput)/1000*o.outputCostPer1K

	metadata := entities.AnalysisMetadata{
		AnalysisID:       analysisID,
		Timestamp:        time.Now().UTC().Format(time.RFC3339),
		ModelUsed:        o.client.Model(),
		TotalTokensUsed:  totalTokens,
		EstimatedCost:    math.Round(cost*10000) / 10000,
		ProcessingTimeMs: time.Since(startTime).Milliseconds(),
		Stages:           stages,
	}

	logger.Info().
		Int("total_tokens", totalTokens).
		Float64("estimated_cost", metadata.EstimatedCost).
		Int64("processing_ms", metadata.ProcessingTimeMs).
		Msg("Analysis complete")
	observability.RecordPipelineRun(ctx, "analysis_complete")

	return &entities.FullAnalysisResult{
		Success:         true,
		VoiceNoteID:     input.VoiceNoteID,
		RiskAssessment:  *risk.result,
		ClinicalSummary: *summary.result,
		NextSteps:       *next.result,
		DoctorMatching:  doctorMatching,
		Metadata:        metadata,
		Disclaimer:      MedicalDisclaimer,
	}, nil
}

func stageRecord(ctx context.Context, stage string, usage providers.TokenUsage, start time.Time, success bool, errMsg string) entities.StageMetadata {
	duration := time.Since(start)
	tokens := usage.Input + usage.Output
	observability.RecordStageMetric(ctx, stage, duration, tokens, success)
	return entities.StageMetadata{
		Stage:      stage,
		TokensUsed: tokens,
		DurationMs: duration.Milliseconds(),
		Success:    success,
		Error:      errMsg,
	}
}

func generateAnalysisID() string {
	timestamp := strconv.FormatInt(time.Now().UnixMilli(), 36)
	random := strconv.FormatInt(rand.Int63n(1<<31), 36)
	return "analysis_" + timestamp + "_" + random
}
