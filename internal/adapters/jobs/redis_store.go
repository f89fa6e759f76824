package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/healthsnap/backend/internal/domain/entities"
	"github.com/healthsnap/backend/internal/domain/providers"
	redisclient "github.com/healthsnap/backend/internal/infrastructure/clients/redis"
	apperrors "github.com/healthsnap/backend/pkg/errors"
)

const jobKeyPrefix = "job:"

// Terminal records expire so abandoned polls do not accumulate keys.
const terminalExpiry = time.Hour

// RedisStore implements the JobStore interface on Redis, letting multiple
// API instances share job state.
type RedisStore struct {
	client *redisclient.Client
}

// NewRedisStore creates a new Redis-backed job store.
func NewRedisStore(client *redisclient.Client) providers.JobStore {
	return &RedisStore{
		client: client,
	}
}

// Create registers a new job in the uploading state and returns its id.
func (s *RedisStore) Create(ctx context.Context) (string, error) {
	now := time.Now().UTC()
	job := &entities.Job{
		ID:        uuid.New().String(),
		Status:    entities.JobStatusUploading,
		Progress:  0,
		Message:   "Uploading audio",
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.write(ctx, job); err != nil {
		return "", err
	}
	return job.ID, nil
}

// Update merges the non-nil fields of update into the stored record.
func (s *RedisStore) Update(ctx context.Context, jobID string, update entities.JobUpdate) error {
	job, err := s.Get(ctx, jobID)
	if err != nil {
		return err
	}

	applyUpdate(job, update)
	return s.write(ctx, job)
}

// Get returns the stored job.
func (s *RedisStore) Get(ctx context.Context, jobID string) (*entities.Job, error) {
	data, err := s.client.Client().Get(ctx, jobKeyPrefix+jobID).Bytes()
	if err == redis.Nil {
		return nil, apperrors.NewNotFoundError("job not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read job: %w", err)
	}

	var job entities.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("failed to decode job record: %w", err)
	}
	return &job, nil
}

// Delete removes the job record. Deleting an unknown id is not an error.
func (s *RedisStore) Delete(ctx context.Context, jobID string) error {
	if err := s.client.Client().Del(ctx, jobKeyPrefix+jobID).Err(); err != nil {
		return fmt.Errorf("failed to delete job: %w", err)
	}
	return nil
}

func (s *RedisStore) write(ctx context.Context, job *entities.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to encode job record: %w", err)
	}

	var expiry time.Duration
	if job.Status.Terminal() {
		expiry = terminalExpiry
	}

	if err := s.client.Client().Set(ctx, jobKeyPrefix+job.ID, data, expiry).Err(); err != nil {
		return fmt.Errorf("failed to write job: %w", err)
	}
	return nil
}
