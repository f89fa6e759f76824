package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/healthsnap/backend/internal/domain/entities"
	"github.com/healthsnap/backend/internal/domain/providers"
	apperrors "github.com/healthsnap/backend/pkg/errors"
)

// MemoryStore implements the JobStore interface with an in-process map.
// Suitable for single-instance deployments and tests; records do not
// survive a restart.
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[string]*entities.Job

	// terminalTTL, when > 0, evicts complete/error records that age past it.
	terminalTTL time.Duration
	stopSweep   chan struct{}
	sweepOnce   sync.Once
}

// NewMemoryStore creates a new in-memory job store. Records are kept
// until deleted.
func NewMemoryStore() providers.JobStore {
	return &MemoryStore{
		jobs:      make(map[string]*entities.Job),
		stopSweep: make(chan struct{}),
	}
}

// NewMemoryStoreWithTTL creates an in-memory job store that sweeps
// terminal records older than ttl once a minute.
func NewMemoryStoreWithTTL(ttl time.Duration) providers.JobStore {
	s := &MemoryStore{
		jobs:        make(map[string]*entities.Job),
		terminalTTL: ttl,
		stopSweep:   make(chan struct{}),
	}
	if ttl > 0 {
		go s.sweepLoop()
	}
	return s
}

// Create registers a new job in the uploading state and returns its id.
func (s *MemoryStore) Create(ctx context.Context) (string, error) {
	now := time.Now().UTC()
	job := &entities.Job{
		ID:        uuid.New().String(),
		Status:    entities.JobStatusUploading,
		Progress:  0,
		Message:   "Uploading audio",
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	s.jobs[job.ID] = job
	s.mu.Unlock()

	return job.ID, nil
}

// Update merges the non-nil fields of update into the stored record.
func (s *MemoryStore) Update(ctx context.Context, jobID string, update entities.JobUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return apperrors.NewNotFoundError("job not found")
	}

	applyUpdate(job, update)
	return nil
}

// Get returns a copy of the stored job.
func (s *MemoryStore) Get(ctx context.Context, jobID string) (*entities.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return nil, apperrors.NewNotFoundError("job not found")
	}

	copied := *job
	return &copied, nil
}

// Delete removes the job record. Deleting an unknown id is not an error.
func (s *MemoryStore) Delete(ctx context.Context, jobID string) error {
	s.mu.Lock()
	delete(s.jobs, jobID)
	s.mu.Unlock()
	return nil
}

// Close stops the background sweeper, if one is running.
func (s *MemoryStore) Close() {
	s.sweepOnce.Do(func() {
		close(s.stopSweep)
	})
}

func (s *MemoryStore) sweepLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopSweep:
			return
		case <-ticker.C:
			cutoff := time.Now().UTC().Add(-s.terminalTTL)
			s.mu.Lock()
			for id, job := range s.jobs {
				if job.Status.Terminal() && job.UpdatedAt.Before(cutoff) {
					delete(s.jobs, id)
				}
			}
			s.mu.Unlock()
		}
	}
}

func applyUpdate(job *entities.Job, update entities.JobUpdate) {
	if update.Status != nil {
		job.Status = *update.Status
	}
	if update.Progress != nil {
		job.Progress = *update.Progress
	}
	if update.Message != nil {
		job.Message = *update.Message
	}
	if update.Details != nil {
		job.Details = *update.Details
	}
	if update.ReportID != nil {
		job.ReportID = *update.ReportID
	}
	if update.Error != nil {
		job.Error = *update.Error
	}
	job.UpdatedAt = time.Now().UTC()
}
