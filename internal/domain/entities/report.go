package entities

import (
	"time"
)

// VoiceNote is a transcribed patient recording.
type VoiceNote struct {
	ID              string    `json:"id" db:"id"`
	PatientID       string    `json:"patientId" db:"patient_id"`
	Transcript      string    `json:"transcript" db:"transcript"`
	DurationSeconds float64   `json:"durationSeconds" db:"duration_seconds"`
	Provider        string    `json:"provider" db:"provider"`
	CreatedAt       time.Time `json:"createdAt" db:"created_at"`
}

// ReportStatus represents the lifecycle state of a report.
type ReportStatus string

const (
	ReportStatusDraft ReportStatus = "draft"
	ReportStatusFinal ReportStatus = "final"
)

// Report links the persisted stage outputs for one completed analysis.
type Report struct {
	ID               string       `json:"id" db:"id"`
	PatientID        string       `json:"patientId" db:"patient_id"`
	VoiceNoteID      string       `json:"voiceNoteId" db:"voice_note_id"`
	RiskAssessmentID string       `json:"riskAssessmentId" db:"risk_assessment_id"`
	Status           ReportStatus `json:"status" db:"status"`
	CreatedAt        time.Time    `json:"createdAt" db:"created_at"`
	UpdatedAt        time.Time    `json:"updatedAt" db:"updated_at"`
}

// ReportDetail is the assembled view returned to clients.
type ReportDetail struct {
	Report          Report                `json:"report"`
	Transcript      string                `json:"transcript"`
	RiskAssessment  RiskAssessmentResult  `json:"riskAssessment"`
	ClinicalSummary ClinicalSummaryResult `json:"clinicalSummary"`
	NextSteps       NextStepsResult       `json:"nextSteps"`
	DoctorMatching  *DoctorMatchingResult `json:"doctorMatching,omitempty"`
	Disclaimer      string                `json:"disclaimer"`
}
