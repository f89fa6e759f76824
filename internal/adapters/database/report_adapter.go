package database

import (
	"context"
	"database/sql"
	"encoding/json"
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

// ReportAdapter implements the ReportRepository interface. Stage outputs
// are stored as JSONB payloads: they are read back whole for display and
// never queried field-by-field.
type ReportAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewReportAdapter creates a new report adapter
func NewReportAdapter(client *postgres.Client) repositories.ReportRepository {
	return &ReportAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// SaveAnalysis persists the stage outputs of a completed analysis as a
// report row plus a risk-assessment row, in one transaction.
func (a *ReportAdapter) SaveAnalysis(ctx context.Context, patientID, voiceNoteID string, analysis *entities.FullAnalysisResult) (string, error) {
	if analysis == nil {
		return "", apperrors.NewValidationError("analysis is required")
	}

	riskPayload, err := json.Marshal(analysis.RiskAssessment)
	if err != nil {
		return "", apperrors.NewInternalError("failed to encode risk assessment", err)
	}
	summaryPayload, err := json.Marshal(analysis.ClinicalSummary)
	if err != nil {
		return "", apperrors.NewInternalError("failed to encode clinical summary", err)
	}
	nextStepsPayload, err := json.Marshal(analysis.NextSteps)
	if err != nil {
		return "", apperrors.NewInternalError("failed to encode next steps", err)
	}
	metadataPayload, err := json.Marshal(analysis.Metadata)
	if err != nil {
		return "", apperrors.NewInternalError("failed to encode analysis metadata", err)
	}

	var matchingPayload []byte
	if analysis.DoctorMatching != nil {
		matchingPayload, err = json.Marshal(analysis.DoctorMatching)
		if err != nil {
			return "", apperrors.NewInternalError("failed to encode doctor matching", err)
		}
	}

	now := time.Now().UTC()
	riskID := uuid.New().String()
	reportID := uuid.New().String()

	tx, err := a.client.DB().BeginTx(ctx, nil)
	if err != nil {
		return "", apperrors.NewInternalError("failed to begin transaction", err)
	}
	defer tx.Rollback()

	riskQuery, riskArgs, err := a.db.Insert("risk_assessments").Rows(goqu.Record{
		"id":         riskID,
		"acuity":     analysis.RiskAssessment.OverallAcuity,
		"payload":    string(riskPayload),
		"created_at": now,
	}).ToSQL()
	if err != nil {
		return "", apperrors.NewInternalError("failed to build risk assessment insert", err)
	}
	if _, err := tx.ExecContext(ctx, riskQuery, riskArgs...); err != nil {
		return "", apperrors.NewInternalError("failed to save risk assessment", err)
	}

	reportRecord := goqu.Record{
		"id":                 reportID,
		"patient_id":         patientID,
		"voice_note_id":      voiceNoteID,
		"risk_assessment_id": riskID,
		"clinical_summary":   string(summaryPayload),
		"next_steps":         string(nextStepsPayload),
		"analysis_metadata":  string(metadataPayload),
		"disclaimer":         analysis.Disclaimer,
		"status":             entities.ReportStatusFinal,
		"created_at":         now,
		"updated_at":         now,
	}
	if matchingPayload != nil {
		reportRecord["doctor_matching"] = string(matchingPayload)
	}

	reportQuery, reportArgs, err := a.db.Insert("reports").Rows(reportRecord).ToSQL()
	if err != nil {
		return "", apperrors.NewInternalError("failed to build report insert", err)
	}
	if _, err := tx.ExecContext(ctx, reportQuery, reportArgs...); err != nil {
		return "", apperrors.NewInternalError("failed to save report", err)
	}

	if err := tx.Commit(); err != nil {
		return "", apperrors.NewInternalError("failed to commit report transaction", err)
	}

	return reportID, nil
}

// GetDetail retrieves the assembled report view by report ID
func (a *ReportAdapter) GetDetail(ctx context.Context, id string) (*entities.ReportDetail, error) {
	query, args, err := a.db.From(goqu.T("reports").As("r")).
		Select(
			goqu.I("r.id"),
			goqu.I("r.patient_id"),
			goqu.I("r.voice_note_id"),
			goqu.I("r.risk_assessment_id"),
			goqu.I("r.status"),
			goqu.I("r.created_at"),
			goqu.I("r.updated_at"),
			goqu.I("r.clinical_summary"),
			goqu.I("r.next_steps"),
			goqu.I("r.doctor_matching"),
			goqu.I("r.disclaimer"),
			goqu.I("ra.payload").As("risk_payload"),
			goqu.I("vn.transcript"),
		).
		Join(goqu.T("risk_assessments").As("ra"), goqu.On(goqu.I("ra.id").Eq(goqu.I("r.risk_assessment_id")))).
		Join(goqu.T("voice_notes").As("vn"), goqu.On(goqu.I("vn.id").Eq(goqu.I("r.voice_note_id")))).
		Where(goqu.Ex{"r.id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build detail query", err)
	}

	detail := &entities.ReportDetail{}
	var summaryPayload, nextStepsPayload, riskPayload []byte
	var matchingPayload sql.NullString

	err = a.client.DB().QueryRowContext(ctx, query, args...).Scan(
		&detail.Report.ID,
		&detail.Report.PatientID,
		&detail.Report.VoiceNoteID,
		&detail.Report.RiskAssessmentID,
		&detail.Report.Status,
		&detail.Report.CreatedAt,
		&detail.Report.UpdatedAt,
		&summaryPayload,
		&nextStepsPayload,
		&matchingPayload,
		&detail.Disclaimer,
		&riskPayload,
		&detail.Transcript,
	)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("report with id %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get report", err)
	}

	if err := json.Unmarshal(riskPayload, &detail.RiskAssessment); err != nil {
		return nil, apperrors.NewInternalError("failed to decode risk assessment payload", err)
	}
	if err := json.Unmarshal(summaryPayload, &detail.ClinicalSummary); err != nil {
		return nil, apperrors.NewInternalError("failed to decode clinical summary payload", err)
	}
	if err := json.Unmarshal(nextStepsPayload, &detail.NextSteps); err != nil {
		return nil, apperrors.NewInternalError("failed to decode next steps payload", err)
	}
	if matchingPayload.Valid {
		matching := &entities.DoctorMatchingResult{}
		if err := json.Unmarshal([]byte(matchingPayload.String), matching); err != nil {
			return nil, apperrors.NewInternalError("failed to decode doctor matching payload", err)
		}
		detail.DoctorMatching = matching
	}

	return detail, nil
}

// ListByPatient retrieves report headers for a patient, newest first
func (a *ReportAdapter) ListByPatient(ctx context.Context, patientID string, limit, offset int) ([]*entities.Report, error) {
	ds := a.db.Select(
		"id", "patient_id", "voice_note_id", "risk_assessment_id",
		"status", "created_at", "updated_at",
	).From("reports").
		Where(goqu.Ex{"patient_id": patientID}).
		Order(goqu.I("created_at").Desc())

	if limit > 0 {
		ds = ds.Limit(uint(limit))
	}
	if offset > 0 {
		ds = ds.Offset(uint(offset))
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build list query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list reports", err)
	}
	defer rows.Close()

	var reports []*entities.Report
	for rows.Next() {
		report := &entities.Report{}
		err := rows.Scan(
			&report.ID,
			&report.PatientID,
			&report.VoiceNoteID,
			&report.RiskAssessmentID,
			&report.Status,
			&report.CreatedAt,
			&report.UpdatedAt,
		)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan report", err)
		}
		reports = append(reports, report)
	}

	return reports, nil
}
