package repositories

import (
	"context"
	"sort"
	"sync"
	"time"

	"dispatch-routing-service/internal/domain"
	"dispatch-routing-service/internal/ports"
)

// A processing lock older than this is considered abandoned (crashed
// worker) and the job becomes claimable again.
const defaultLockThreshold = 15 * time.Minute

// Memory implements StopStore and GeocodeJobStore in process memory.
// Used when no DATABASE_URL is configured and as the fixture store in tests.
type Memory struct {
	mu        sync.Mutex
	stops     map[string]*domain.ServiceStop
	customers map[string]*domain.CustomerProfile
	quotes    map[string]*domain.QuoteRecord
	summaries map[string]domain.StopSummary
	jobs      map[string]*domain.GeocodeJob

	lockThreshold time.Duration
}

func NewMemory() *Memory {
	return &Memory{
		stops:         map[string]*domain.ServiceStop{},
		customers:     map[string]*domain.CustomerProfile{},
		quotes:        map[string]*domain.QuoteRecord{},
		summaries:     map[string]domain.StopSummary{},
		jobs:          map[string]*domain.GeocodeJob{},
		lockThreshold: defaultLockThreshold,
	}
}

// Fixture helpers.

func (m *Memory) PutStop(stop *domain.ServiceStop) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *stop
	m.stops[stop.ID] = &cp
}

func (m *Memory) PutCustomer(c *domain.CustomerProfile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.customers[c.ID] = &cp
}

func (m *Memory) PutQuote(q *domain.QuoteRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *q
	m.quotes[q.ID] = &cp
}

func (m *Memory) PutSummary(s domain.StopSummary) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.summaries[s.StopID] = s
}

func cloneStop(s *domain.ServiceStop) *domain.ServiceStop {
	cp := *s
	if s.Coordinates != nil {
		c := *s.Coordinates
		cp.Coordinates = &c
	}
	if s.GeocodedAt != nil {
		t := *s.GeocodedAt
		cp.GeocodedAt = &t
	}
	if s.ManualSequence != nil {
		n := *s.ManualSequence
		cp.ManualSequence = &n
	}
	return &cp
}

func cloneJob(j *domain.GeocodeJob) *domain.GeocodeJob {
	cp := *j
	if j.LockedAt != nil {
		t := *j.LockedAt
		cp.LockedAt = &t
	}
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		cp.CompletedAt = &t
	}
	return &cp
}

// StopStore

func (m *Memory) ListStops(ctx context.Context, f ports.StopFilter) ([]*domain.ServiceStop, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []*domain.ServiceStop{}
	for _, s := range m.stops {
		if s.TenantID != f.TenantID {
			continue
		}
		if f.ServiceDate != "" && s.ServiceDate != f.ServiceDate {
			continue
		}
		if f.Priority != "" && s.Priority != f.Priority {
			continue
		}
		if !m.matchAssignment(s.ID, f) {
			continue
		}
		out = append(out, cloneStop(s))
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})

	return out, nil
}

// matchAssignment must be called with the mutex held.
func (m *Memory) matchAssignment(stopID string, f ports.StopFilter) bool {
	if f.CleanerID == "" && f.Assigned == nil {
		return true
	}

	summary := m.summaries[stopID]
	if f.Assigned != nil && (summary.AssignedCleaners > 0) != *f.Assigned {
		return false
	}
	if f.CleanerID != "" {
		for _, id := range summary.CleanerIDs {
			if id == f.CleanerID {
				return true
			}
		}
		return false
	}
	return true
}

func (m *Memory) ListRecentStops(ctx context.Context, tenantID string, limit int) ([]*domain.ServiceStop, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []*domain.ServiceStop{}
	for _, s := range m.stops {
		if s.TenantID == tenantID {
			out = append(out, cloneStop(s))
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) GetStopContext(ctx context.Context, tenantID, stopID string) (domain.StopContext, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.stops[stopID]
	if !ok || s.TenantID != tenantID {
		return domain.StopContext{}, ports.ErrNotFound
	}

	out := domain.StopContext{Stop: cloneStop(s)}
	if c, ok := m.customers[s.CustomerID]; ok {
		cp := *c
		out.Customer = &cp
	}
	if q, ok := m.quotes[s.QuoteID]; ok {
		cp := *q
		out.Quote = &cp
	}
	return out, nil
}

func (m *Memory) UpdateStopGeocode(ctx context.Context, tenantID, stopID string, upd ports.GeocodeUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.stops[stopID]
	if !ok || s.TenantID != tenantID {
		return ports.ErrNotFound
	}

	// Coordinates only ever move forward; failed attempts keep the
	// last-known-good pin.
	if upd.Coordinates != nil {
		c := *upd.Coordinates
		s.Coordinates = &c
		s.GeocodeProvider = upd.Provider
	}
	s.GeocodeStatus = upd.Status
	t := upd.GeocodedAt
	s.GeocodedAt = &t
	return nil
}

func (m *Memory) SetManualSequence(ctx context.Context, tenantID, stopID string, seq int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.stops[stopID]
	if !ok || s.TenantID != tenantID {
		return ports.ErrNotFound
	}
	s.ManualSequence = &seq
	return nil
}

func (m *Memory) ListStopSummaries(ctx context.Context, tenantID, serviceDate string) (map[string]domain.StopSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := map[string]domain.StopSummary{}
	for id, s := range m.stops {
		if s.TenantID != tenantID {
			continue
		}
		if serviceDate != "" && s.ServiceDate != serviceDate {
			continue
		}
		if summary, ok := m.summaries[id]; ok {
			out[id] = summary
		}
	}
	return out, nil
}

// GeocodeJobStore

func (m *Memory) ActiveJob(ctx context.Context, tenantID, stopID string) (*domain.GeocodeJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, j := range m.jobs {
		if j.TenantID == tenantID && j.StopID == stopID && j.Status.Active() {
			return cloneJob(j), nil
		}
	}
	return nil, ports.ErrNotFound
}

func (m *Memory) Insert(ctx context.Context, job *domain.GeocodeJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[job.ID] = cloneJob(job)
	return nil
}

func (m *Memory) Reset(ctx context.Context, jobID, reason string, now time.Time) (*domain.GeocodeJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	j, ok := m.jobs[jobID]
	if !ok {
		return nil, ports.ErrNotFound
	}

	j.Status = domain.JobQueued
	j.Attempts = 0
	j.NextAttemptAt = now
	j.Reason = reason
	j.LastError = ""
	j.LockedAt = nil
	j.CompletedAt = nil
	j.UpdatedAt = now
	return cloneJob(j), nil
}

func (m *Memory) ListDue(ctx context.Context, tenantID string, limit int, now time.Time) ([]*domain.GeocodeJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []*domain.GeocodeJob{}
	for _, j := range m.jobs {
		if j.TenantID != tenantID {
			continue
		}
		if m.dueLocked(j, now) {
			out = append(out, cloneJob(j))
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].NextAttemptAt.Equal(out[j].NextAttemptAt) {
			return out[i].NextAttemptAt.Before(out[j].NextAttemptAt)
		}
		return out[i].ID < out[j].ID
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// dueLocked must be called with the mutex held.
func (m *Memory) dueLocked(j *domain.GeocodeJob, now time.Time) bool {
	switch j.Status {
	case domain.JobQueued, domain.JobRetry:
		return !j.NextAttemptAt.After(now)
	case domain.JobProcessing:
		// Abandoned lock from a crashed worker.
		return j.LockedAt != nil && now.Sub(*j.LockedAt) >= m.lockThreshold
	default:
		return false
	}
}

func (m *Memory) Claim(ctx context.Context, jobID string, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	j, ok := m.jobs[jobID]
	if !ok {
		return false, nil
	}

	claimable := j.Status == domain.JobQueued || j.Status == domain.JobRetry ||
		(j.Status == domain.JobProcessing && j.LockedAt != nil && now.Sub(*j.LockedAt) >= m.lockThreshold)
	if !claimable {
		return false, nil
	}

	j.Status = domain.JobProcessing
	t := now
	j.LockedAt = &t
	j.UpdatedAt = now
	return true, nil
}

func (m *Memory) Finish(ctx context.Context, jobID string, out ports.JobOutcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	j, ok := m.jobs[jobID]
	if !ok {
		return ports.ErrNotFound
	}

	j.Status = out.Status
	j.Attempts = out.Attempts
	if out.NextAttemptAt != nil {
		j.NextAttemptAt = *out.NextAttemptAt
	}
	j.AddressLine = out.AddressLine
	j.AddressHash = out.AddressHash
	j.LastError = out.LastError
	j.CompletedAt = out.CompletedAt
	j.LockedAt = nil
	j.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *Memory) GetJob(ctx context.Context, tenantID, jobID string) (*domain.GeocodeJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	j, ok := m.jobs[jobID]
	if !ok || j.TenantID != tenantID {
		return nil, ports.ErrNotFound
	}
	return cloneJob(j), nil
}
