package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"dispatch-routing-service/internal/domain"
	"dispatch-routing-service/internal/platform/obs"
	"dispatch-routing-service/internal/ports"
)

// Postgres-backed implementation of the GeocodeJobStore port.
//
// Claiming is a single-row compare-and-set on the status column; there is
// no separate lock table. Jobs are never deleted.
type PostgresJobStore struct {
	DB *sql.DB

	// LockThreshold overrides the abandoned-lock reclaim window when
	// positive.
	LockThreshold time.Duration
}

func NewPostgresJobStore(db *sql.DB) *PostgresJobStore {
	return &PostgresJobStore{DB: db, LockThreshold: defaultLockThreshold}
}

func (p *PostgresJobStore) lockThreshold() time.Duration {
	if p.LockThreshold > 0 {
		return p.LockThreshold
	}
	return defaultLockThreshold
}

const jobColumns = `
	id::text, stop_id::text, tenant_id, status, attempts, next_attempt_at,
	COALESCE(address_line, ''), COALESCE(address_hash, ''),
	COALESCE(last_error, ''), COALESCE(reason, ''),
	locked_at, completed_at, created_at, updated_at`

func scanJob(scan func(...any) error) (*domain.GeocodeJob, error) {
	var (
		j           domain.GeocodeJob
		lockedAt    sql.NullTime
		completedAt sql.NullTime
	)

	err := scan(
		&j.ID, &j.StopID, &j.TenantID, &j.Status, &j.Attempts, &j.NextAttemptAt,
		&j.AddressLine, &j.AddressHash,
		&j.LastError, &j.Reason,
		&lockedAt, &completedAt, &j.CreatedAt, &j.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if lockedAt.Valid {
		t := lockedAt.Time
		j.LockedAt = &t
	}
	if completedAt.Valid {
		t := completedAt.Time
		j.CompletedAt = &t
	}
	return &j, nil
}

func (p *PostgresJobStore) ActiveJob(ctx context.Context, tenantID, stopID string) (*domain.GeocodeJob, error) {
	q := `SELECT ` + jobColumns + `
	FROM geocode_jobs
	WHERE tenant_id = $1 AND stop_id = $2 AND status IN ('queued', 'retry', 'processing')
	LIMIT 1;`

	row := p.DB.QueryRowContext(ctx, q, tenantID, stopID)
	job, err := scanJob(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ports.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("active job: scan for stop %q: %w", stopID, err)
	}
	return job, nil
}

func (p *PostgresJobStore) Insert(ctx context.Context, job *domain.GeocodeJob) error {
	_, err := p.DB.ExecContext(ctx, `
	INSERT INTO geocode_jobs (id, stop_id, tenant_id, status, attempts, next_attempt_at, reason, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8);`,
		job.ID, job.StopID, job.TenantID, string(job.Status), job.Attempts,
		job.NextAttemptAt, job.Reason, job.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert geocode job for stop %q: %w", job.StopID, err)
	}
	return nil
}

func (p *PostgresJobStore) Reset(ctx context.Context, jobID, reason string, now time.Time) (*domain.GeocodeJob, error) {
	q := `UPDATE geocode_jobs
	SET status = 'queued', attempts = 0, next_attempt_at = $2, reason = $3,
	    last_error = NULL, locked_at = NULL, completed_at = NULL, updated_at = $2
	WHERE id = $1
	RETURNING ` + jobColumns + `;`

	row := p.DB.QueryRowContext(ctx, q, jobID, now, reason)
	job, err := scanJob(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ports.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reset geocode job %q: %w", jobID, err)
	}
	return job, nil
}

func (p *PostgresJobStore) ListDue(ctx context.Context, tenantID string, limit int, now time.Time) (_ []*domain.GeocodeJob, err error) {
	defer obs.Time(ctx, "jobs.ListDue")(&err)

	staleBefore := now.Add(-p.lockThreshold())

	q := `SELECT ` + jobColumns + `
	FROM geocode_jobs
	WHERE tenant_id = $1
	  AND ((status IN ('queued', 'retry') AND next_attempt_at <= $2)
	       OR (status = 'processing' AND locked_at <= $3))
	ORDER BY next_attempt_at, id
	LIMIT $4;`

	rows, err := p.DB.QueryContext(ctx, q, tenantID, now, staleBefore, limit)
	if err != nil {
		return nil, fmt.Errorf("list due jobs: query geocode_jobs: %w", err)
	}
	defer rows.Close()

	jobs := make([]*domain.GeocodeJob, 0, limit)
	for rows.Next() {
		j, err := scanJob(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("list due jobs: scan row: %w", err)
		}
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list due jobs: row iteration: %w", err)
	}
	return jobs, nil
}

// Claim is the sole cross-worker concurrency mechanism: an optimistic
// compare-and-set on the status column. Zero rows affected means another
// worker won; the caller must no-op.
func (p *PostgresJobStore) Claim(ctx context.Context, jobID string, now time.Time) (bool, error) {
	staleBefore := now.Add(-p.lockThreshold())

	res, err := p.DB.ExecContext(ctx, `
	UPDATE geocode_jobs
	SET status = 'processing', locked_at = $2, updated_at = $2
	WHERE id = $1
	  AND (status IN ('queued', 'retry')
	       OR (status = 'processing' AND locked_at <= $3));`,
		jobID, now, staleBefore)
	if err != nil {
		return false, fmt.Errorf("claim geocode job %q: %w", jobID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim geocode job %q: rows affected: %w", jobID, err)
	}
	return n == 1, nil
}

func (p *PostgresJobStore) Finish(ctx context.Context, jobID string, out ports.JobOutcome) error {
	_, err := p.DB.ExecContext(ctx, `
	UPDATE geocode_jobs
	SET status = $2, attempts = $3,
	    next_attempt_at = COALESCE($4, next_attempt_at),
	    address_line = $5, address_hash = $6, last_error = NULLIF($7, ''),
	    completed_at = $8, locked_at = NULL, updated_at = now()
	WHERE id = $1;`,
		jobID, string(out.Status), out.Attempts, out.NextAttemptAt,
		out.AddressLine, out.AddressHash, out.LastError, out.CompletedAt)
	if err != nil {
		return fmt.Errorf("finish geocode job %q: %w", jobID, err)
	}
	return nil
}

func (p *PostgresJobStore) GetJob(ctx context.Context, tenantID, jobID string) (*domain.GeocodeJob, error) {
	q := `SELECT ` + jobColumns + `
	FROM geocode_jobs
	WHERE tenant_id = $1 AND id = $2;`

	row := p.DB.QueryRowContext(ctx, q, tenantID, jobID)
	job, err := scanJob(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ports.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get geocode job %q: %w", jobID, err)
	}
	return job, nil
}
