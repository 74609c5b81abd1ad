package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"dispatch-routing-service/internal/domain"
	"dispatch-routing-service/internal/platform/metrics"
	"dispatch-routing-service/internal/ports"
)

// MaxGeocodeAttempts caps retries; a retry-eligible failure on the final
// attempt becomes terminally failed instead of rescheduling.
const MaxGeocodeAttempts = 6

// Fixed backoff schedule between retry attempts, indexed by attempt number.
var retryBackoff = []time.Duration{
	5 * time.Minute,
	15 * time.Minute,
	60 * time.Minute,
	180 * time.Minute,
	720 * time.Minute,
	1440 * time.Minute,
}

// RetryDelay returns the backoff delay after the given attempt count.
// Attempts beyond the table reuse the final (24h) delay.
func RetryDelay(attempts int) time.Duration {
	idx := attempts - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(retryBackoff) {
		idx = len(retryBackoff) - 1
	}
	return retryBackoff[idx]
}

// GeocodeQueue owns enqueue semantics for the durable geocoding queue.
// Claim/finish transitions live on the store; this layer enforces the
// one-active-job-per-stop invariant.
type GeocodeQueue struct {
	Jobs ports.GeocodeJobStore
}

// Enqueue schedules a geocode job for a stop.
//
// When an active (queued/retry/processing) job already exists and force is
// false, the existing job is returned unchanged, so repeated triggers are
// idempotent. With force the job is reset to queued with attempts=0.
func (q *GeocodeQueue) Enqueue(ctx context.Context, tenantID, stopID, reason string, force bool) (*domain.GeocodeJob, error) {
	existing, err := q.Jobs.ActiveJob(ctx, tenantID, stopID)
	switch {
	case err == nil:
		if !force {
			return existing, nil
		}
		job, err := q.Jobs.Reset(ctx, existing.ID, reason, time.Now().UTC())
		if err != nil {
			return nil, fmt.Errorf("enqueue geocode job: reset job %q: %w", existing.ID, err)
		}
		return job, nil
	case errors.Is(err, ports.ErrNotFound):
		// fall through to insert
	default:
		return nil, fmt.Errorf("enqueue geocode job: find active job for stop %q: %w", stopID, err)
	}

	now := time.Now().UTC()
	job := &domain.GeocodeJob{
		ID:            uuid.New().String(),
		StopID:        stopID,
		TenantID:      tenantID,
		Status:        domain.JobQueued,
		Attempts:      0,
		NextAttemptAt: now,
		Reason:        reason,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := q.Jobs.Insert(ctx, job); err != nil {
		return nil, fmt.Errorf("enqueue geocode job: insert job for stop %q: %w", stopID, err)
	}

	metrics.GeocodeEnqueued.WithLabelValues(reason).Inc()
	return job, nil
}
