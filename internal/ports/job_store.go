package ports

import (
	"context"
	"time"

	"dispatch-routing-service/internal/domain"
)

// JobOutcome is the terminal or retry result of one processing attempt.
type JobOutcome struct {
	Status        domain.JobStatus
	Attempts      int
	NextAttemptAt *time.Time // set for retry
	AddressLine   string
	AddressHash   string
	LastError     string
	CompletedAt   *time.Time
}

// Port: durable storage for the geocode job queue. Jobs are never deleted;
// all mutation goes through these transitions.
type GeocodeJobStore interface {
	// ActiveJob returns the stop's job in {queued, retry, processing},
	// or ErrNotFound.
	ActiveJob(ctx context.Context, tenantID, stopID string) (*domain.GeocodeJob, error)

	// Insert stores a new queued job.
	Insert(ctx context.Context, job *domain.GeocodeJob) error

	// Reset forces an existing job back to queued with attempts=0,
	// next attempt now. Used only by forced enqueue.
	Reset(ctx context.Context, jobID, reason string, now time.Time) (*domain.GeocodeJob, error)

	// ListDue returns queued/retry jobs whose next attempt is at or
	// before now, oldest schedule first, bounded by limit. Jobs stuck in
	// processing past the store's lock threshold are included so crashed
	// workers do not strand work.
	ListDue(ctx context.Context, tenantID string, limit int, now time.Time) ([]*domain.GeocodeJob, error)

	// Claim attempts the optimistic queued|retry -> processing transition.
	// It reports false when the job is not claimable; a losing concurrent
	// claimant must treat that as a no-op, not retry.
	Claim(ctx context.Context, jobID string, now time.Time) (bool, error)

	// Finish writes the attempt outcome and always clears the processing
	// lock.
	Finish(ctx context.Context, jobID string, out JobOutcome) error

	// GetJob returns a job by id for inspection.
	GetJob(ctx context.Context, tenantID, jobID string) (*domain.GeocodeJob, error)
}
