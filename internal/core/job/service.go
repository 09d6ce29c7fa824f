package job

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"docintake/internal/logger"
	rds "docintake/internal/platform/redis"
)

// ErrNotFound is returned when a job id is unknown to the store.
var ErrNotFound = errors.New("job not found")

const (
	// In-flight records expire if nothing touches them; terminal records are
	// kept longer so results stay queryable.
	ttlActiveSeconds   = 3600
	ttlTerminalSeconds = 86400
)

func key(id string) string { return "intake:job:" + id }

// Service owns the job records in redis. The worker is the only writer of
// status/progress/result/error during a run; producers create and read.
// Every mutation is read-modify-write over the stored JSON blob.
type Service struct {
	redis *rds.Service
	log   *logger.Logger
}

func NewService(redis *rds.Service) *Service {
	return &Service{redis: redis, log: logger.New("JobStore")}
}

// Create persists a new queued job with progress 0.
func (s *Service) Create(ctx context.Context, inputRef, filename string, opts Options) (Job, error) {
	now := time.Now().UTC()
	j := Job{
		ID:               uuid.NewString(),
		Status:           StatusQueued,
		CreatedAt:        now,
		UpdatedAt:        now,
		InputRef:         inputRef,
		OriginalFilename: filename,
		Options:          opts,
		Progress:         0,
	}
	if err := s.redis.CacheSet(ctx, key(j.ID), j, ttlActiveSeconds); err != nil {
		return Job{}, fmt.Errorf("store job: %w", err)
	}
	return j, nil
}

// Get fetches the current job record.
func (s *Service) Get(ctx context.Context, id string) (Job, error) {
	var j Job
	if err := s.redis.CacheGet(ctx, key(id), &j); err != nil {
		if rds.IsNotFound(err) {
			return Job{}, ErrNotFound
		}
		return Job{}, fmt.Errorf("read job %s: %w", id, err)
	}
	return j, nil
}

func (s *Service) update(ctx context.Context, id string, mutate func(*Job)) (Job, error) {
	j, err := s.Get(ctx, id)
	if err != nil {
		return Job{}, err
	}
	mutate(&j)
	j.UpdatedAt = time.Now().UTC()
	ttl := ttlActiveSeconds
	if j.Status.Terminal() {
		ttl = ttlTerminalSeconds
	}
	if err := s.redis.CacheSet(ctx, key(id), j, ttl); err != nil {
		return Job{}, fmt.Errorf("write job %s: %w", id, err)
	}
	return j, nil
}

// SetRunning marks the job as owned by a worker at the given early progress
// checkpoint.
func (s *Service) SetRunning(ctx context.Context, id string, progress int) error {
	_, err := s.update(ctx, id, func(j *Job) {
		j.Status = StatusRunning
		if progress > j.Progress {
			j.Progress = progress
		}
	})
	return err
}

// SetProgress advances the progress checkpoint. Progress is monotonically
// non-decreasing within a run; stale lower values are ignored.
func (s *Service) SetProgress(ctx context.Context, id string, progress int) error {
	_, err := s.update(ctx, id, func(j *Job) {
		if progress > j.Progress {
			j.Progress = progress
		}
	})
	return err
}

// Complete terminates the job as done with its write-once result.
func (s *Service) Complete(ctx context.Context, id string, res *Result) (Job, error) {
	return s.update(ctx, id, func(j *Job) {
		j.Status = StatusDone
		j.Progress = 100
		j.Result = res
		j.Error = ""
	})
}

// Fail terminates the job with a diagnostic message and no result.
func (s *Service) Fail(ctx context.Context, id string, msg string) (Job, error) {
	return s.update(ctx, id, func(j *Job) {
		j.Status = StatusFailed
		j.Error = msg
		j.Result = nil
	})
}
