package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"dispatch-routing-service/internal/domain"
	"dispatch-routing-service/internal/platform/metrics"
	"dispatch-routing-service/internal/platform/obs"
	"dispatch-routing-service/internal/ports"
)

// GeocodeWorker drains due jobs from the queue: claim, resolve address,
// call the provider, write results back.
//
// A nil Geocoder means no provider credential is configured; jobs are then
// retried under the backoff schedule rather than failed outright, so the
// queue self-heals once a credential appears. Cache is optional.
type GeocodeWorker struct {
	Stops    ports.StopStore
	Jobs     ports.GeocodeJobStore
	Geocoder ports.Geocoder
	Cache    ports.GeocodeCache

	// ProviderName is recorded on stops geocoded by this worker.
	ProviderName string
}

// ProcessReport summarizes one ProcessDue pass.
type ProcessReport struct {
	Due       int `json:"due"`
	Claimed   int `json:"claimed"`
	Completed int `json:"completed"`
	Retried   int `json:"retried"`
	Failed    int `json:"failed"`
}

// ProcessDue claims and executes up to limit due jobs for a tenant.
// Safe to invoke repeatedly and concurrently: a losing claim is skipped,
// never retried.
func (w *GeocodeWorker) ProcessDue(ctx context.Context, tenantID string, limit int) (_ ProcessReport, err error) {
	defer obs.Time(ctx, "worker.ProcessDue")(&err)

	var report ProcessReport

	now := time.Now().UTC()
	due, err := w.Jobs.ListDue(ctx, tenantID, limit, now)
	if err != nil {
		return report, fmt.Errorf("process due jobs: list due: %w", err)
	}
	report.Due = len(due)

	for _, job := range due {
		claimed, err := w.Jobs.Claim(ctx, job.ID, time.Now().UTC())
		if err != nil {
			return report, fmt.Errorf("process due jobs: claim job %q: %w", job.ID, err)
		}
		if !claimed {
			// Another worker won the claim; no-op per the queue contract.
			continue
		}
		report.Claimed++

		outcome, err := w.processJob(ctx, job)
		if err != nil {
			// The job keeps its processing lock and is reclaimed after
			// the lock threshold elapses.
			log.Printf("geocode job=%s stop=%s err=%v", job.ID, job.StopID, err)
			continue
		}

		metrics.GeocodeJobs.WithLabelValues(string(outcome)).Inc()
		switch outcome {
		case domain.JobCompleted:
			report.Completed++
		case domain.JobRetry:
			report.Retried++
		case domain.JobFailed:
			report.Failed++
		}
	}

	return report, nil
}

// processJob runs one claimed job to a terminal or retry status.
func (w *GeocodeWorker) processJob(ctx context.Context, job *domain.GeocodeJob) (domain.JobStatus, error) {
	stopCtx, err := w.Stops.GetStopContext(ctx, job.TenantID, job.StopID)
	if errors.Is(err, ports.ErrNotFound) {
		// Stop deleted between enqueue and processing: terminal, no retry.
		return w.finishFailed(ctx, job, "", "", domain.ErrTagStopNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("load stop %q: %w", job.StopID, err)
	}

	addr := ResolveAddress(stopCtx.Stop, stopCtx.Customer, stopCtx.Quote)
	hash := ""
	if addr != "" {
		hash = AddressHash(addr)
	}

	if addr == "" {
		// No resolvable address from any source: terminal regardless of
		// attempt count. The stop keeps any previously known pin.
		if err := w.updateStop(ctx, job, nil, domain.GeocodeMissingAddress); err != nil {
			return "", err
		}
		return w.finishFailed(ctx, job, addr, hash, domain.ErrTagMissingAddress)
	}

	if w.Geocoder == nil {
		return w.finishRetryable(ctx, job, addr, hash, domain.ErrTagProviderUnavailable)
	}

	coords, fromCache, err := w.lookup(ctx, addr)
	if err != nil {
		return w.finishRetryable(ctx, job, addr, hash, domain.ErrTagProviderException)
	}
	if coords == nil {
		return w.finishRetryable(ctx, job, addr, hash, domain.ErrTagNoResult)
	}

	if w.Cache != nil && !fromCache {
		if err := w.Cache.Put(ctx, addr, *coords); err != nil {
			log.Printf("geocode cache write failed: addr=%q err=%v", addr, err)
		}
	}

	if err := w.updateStop(ctx, job, coords, domain.Geocoded); err != nil {
		return "", err
	}

	now := time.Now().UTC()
	out := ports.JobOutcome{
		Status:      domain.JobCompleted,
		Attempts:    job.Attempts + 1,
		AddressLine: addr,
		AddressHash: hash,
		CompletedAt: &now,
	}
	if err := w.Jobs.Finish(ctx, job.ID, out); err != nil {
		return "", fmt.Errorf("finish job %q: %w", job.ID, err)
	}

	return domain.JobCompleted, nil
}

// lookup consults the cache before calling the provider.
func (w *GeocodeWorker) lookup(ctx context.Context, addr string) (*domain.Coordinates, bool, error) {
	if w.Cache != nil {
		hit, err := w.Cache.Get(ctx, addr)
		if err != nil {
			log.Printf("geocode cache read failed: addr=%q err=%v", addr, err)
		} else if hit != nil {
			return hit, true, nil
		}
	}

	coords, err := w.Geocoder.Geocode(ctx, addr)
	if err != nil {
		return nil, false, err
	}
	return coords, false, nil
}

// updateStop writes geocode result columns. A nil coords preserves the
// last-known-good pin; only status and timestamp change.
func (w *GeocodeWorker) updateStop(ctx context.Context, job *domain.GeocodeJob, coords *domain.Coordinates, status domain.GeocodeStatus) error {
	upd := ports.GeocodeUpdate{
		Coordinates: coords,
		Status:      status,
		GeocodedAt:  time.Now().UTC(),
	}
	if coords != nil {
		upd.Provider = w.ProviderName
	}

	if err := w.Stops.UpdateStopGeocode(ctx, job.TenantID, job.StopID, upd); err != nil {
		return fmt.Errorf("update stop %q geocode: %w", job.StopID, err)
	}
	return nil
}

// finishRetryable schedules a retry under the backoff table, or fails the
// job terminally once the attempt cap is reached. Stop coordinates are
// always preserved.
func (w *GeocodeWorker) finishRetryable(ctx context.Context, job *domain.GeocodeJob, addr, hash, tag string) (domain.JobStatus, error) {
	attempts := job.Attempts + 1
	if attempts >= MaxGeocodeAttempts {
		if err := w.updateStop(ctx, job, nil, domain.GeocodeFailed); err != nil {
			return "", err
		}
		return w.finishFailed(ctx, job, addr, hash, tag)
	}

	next := time.Now().UTC().Add(RetryDelay(attempts))
	out := ports.JobOutcome{
		Status:        domain.JobRetry,
		Attempts:      attempts,
		NextAttemptAt: &next,
		AddressLine:   addr,
		AddressHash:   hash,
		LastError:     tag,
	}
	if err := w.Jobs.Finish(ctx, job.ID, out); err != nil {
		return "", fmt.Errorf("finish job %q: %w", job.ID, err)
	}

	return domain.JobRetry, nil
}

func (w *GeocodeWorker) finishFailed(ctx context.Context, job *domain.GeocodeJob, addr, hash, tag string) (domain.JobStatus, error) {
	now := time.Now().UTC()
	out := ports.JobOutcome{
		Status:      domain.JobFailed,
		Attempts:    job.Attempts + 1,
		AddressLine: addr,
		AddressHash: hash,
		LastError:   tag,
		CompletedAt: &now,
	}
	if err := w.Jobs.Finish(ctx, job.ID, out); err != nil {
		return "", fmt.Errorf("finish job %q: %w", job.ID, err)
	}

	return domain.JobFailed, nil
}
