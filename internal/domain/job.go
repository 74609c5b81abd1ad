package domain

import "time"

// JobStatus is the geocode job state machine:
// queued -> processing -> {completed | retry | failed}; retry becomes
// eligible again at NextAttemptAt and transitions like queued.
type JobStatus string

const (
	JobQueued     JobStatus = "queued"
	JobProcessing JobStatus = "processing"
	JobRetry      JobStatus = "retry"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// Active reports whether the status counts against the one-active-job-per-stop
// invariant.
func (s JobStatus) Active() bool {
	return s == JobQueued || s == JobProcessing || s == JobRetry
}

// Error tags recorded on failed or retried geocode attempts.
const (
	ErrTagMissingAddress      = "missing_address"
	ErrTagProviderUnavailable = "provider_unavailable"
	ErrTagProviderException   = "provider_exception"
	ErrTagNoResult            = "no_result"
	ErrTagStopNotFound        = "stop_not_found"
)

// GeocodeJob is one unit of work in the durable geocoding queue. Jobs are
// never deleted; terminal rows serve as an audit trail of attempts.
type GeocodeJob struct {
	ID       string
	StopID   string
	TenantID string
	Status   JobStatus

	Attempts      int
	NextAttemptAt time.Time

	// Snapshot of the resolved address at the last attempt, for
	// observability and change detection.
	AddressLine string
	AddressHash string

	LastError   string
	Reason      string // enqueue tag only, no behavioral effect
	LockedAt    *time.Time
	CompletedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
