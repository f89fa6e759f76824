package providers

import (
	"context"

	"github.com/healthsnap/backend/internal/domain/entities"
)

// JobStore tracks pipeline job progress. A job has exactly one writer (its
// pipeline run) and any number of polling readers. Implementations must be
// safe for concurrent use across jobs.
type JobStore interface {
	// Create registers a new job in the first pipeline stage and returns its id.
	Create(ctx context.Context) (string, error)

	// Update merges the non-nil fields of update into the job record,
	// stamping UpdatedAt. Unknown ids are a no-op.
	Update(ctx context.Context, jobID string, update entities.JobUpdate) error

	// Get returns the job record, or a NOT_FOUND error for unknown ids.
	Get(ctx context.Context, jobID string) (*entities.Job, error)

	// Delete evicts a job record. Unknown ids are a no-op.
	Delete(ctx context.Context, jobID string) error
}
