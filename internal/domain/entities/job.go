package entities

import (
	"time"
)

// JobStatus is the pipeline stage a job is currently in. Complete and Error
// are terminal.
type JobStatus string

const (
	JobStatusUploading       JobStatus = "uploading"
	JobStatusTranscribing    JobStatus = "transcribing"
	JobStatusAnalyzingRisks  JobStatus = "analyzing-risks"
	JobStatusSummarizing     JobStatus = "generating-summary"
	JobStatusRecommending    JobStatus = "generating-recommendations"
	JobStatusSaving          JobStatus = "saving"
	JobStatusComplete        JobStatus = "complete"
	JobStatusError           JobStatus = "error"
)

// Terminal reports whether the job has finished, successfully or not.
func (s JobStatus) Terminal() bool {
	return s == JobStatusComplete || s == JobStatusError
}

// Job tracks one in-flight report generation run, written by the pipeline
// and read by polling clients.
type Job struct {
	ID        string    `json:"id"`
	Status    JobStatus `json:"status"`
	Progress  int       `json:"progress"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	ReportID  string    `json:"reportId,omitempty"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// JobUpdate is a partial-field merge applied to a job record. Nil fields are
// left untouched; UpdatedAt is always stamped by the store.
type JobUpdate struct {
	Status   *JobStatus
	Progress *int
	Message  *string
	Details  *string
	ReportID *string
	Error    *string
}
