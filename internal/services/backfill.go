package services

import (
	"context"
	"fmt"
	"time"

	"dispatch-routing-service/internal/platform/obs"
	"dispatch-routing-service/internal/ports"
)

// Coordinates older than this are considered stale and re-enqueued.
const defaultStaleAfter = 90 * 24 * time.Hour

// Recency sampling keeps scan cost bounded on large tenants.
const minScanSample = 200

// ReasonBackfill tags jobs enqueued by the scanner.
const ReasonBackfill = "backfill"

// BackfillScanner finds stops with stale or missing coordinates and feeds
// the geocode queue. Seed and Sweep are independent idempotent commands,
// safe under repeated or concurrent invocation from schedulers and manual
// triggers alike.
type BackfillScanner struct {
	Stops  ports.StopStore
	Queue  *GeocodeQueue
	Worker *GeocodeWorker

	// StaleAfter overrides the 90-day staleness threshold when positive.
	StaleAfter time.Duration
}

// SeedReport summarizes one scan pass.
type SeedReport struct {
	Scanned         int `json:"scanned"`
	Enqueued        int `json:"enqueued"`
	SkippedFresh    int `json:"skipped_fresh"`
	SkippedNoSource int `json:"skipped_no_source"`
}

// SweepReport is a seed immediately followed by a worker pass.
type SweepReport struct {
	Seed    SeedReport    `json:"seed"`
	Process ProcessReport `json:"process"`
}

func (b *BackfillScanner) staleAfter() time.Duration {
	if b.StaleAfter > 0 {
		return b.StaleAfter
	}
	return defaultStaleAfter
}

// Seed scans the tenant's most-recent stops and enqueues geocode jobs for
// those with missing or stale coordinates, up to limit jobs.
func (b *BackfillScanner) Seed(ctx context.Context, tenantID string, limit int) (_ SeedReport, err error) {
	defer obs.Time(ctx, "backfill.Seed")(&err)

	var report SeedReport
	if limit <= 0 {
		limit = 25
	}

	sample := limit * 5
	if sample < minScanSample {
		sample = minScanSample
	}

	stops, err := b.Stops.ListRecentStops(ctx, tenantID, sample)
	if err != nil {
		return report, fmt.Errorf("backfill seed: list recent stops: %w", err)
	}

	cutoff := time.Now().UTC().Add(-b.staleAfter())
	for _, stop := range stops {
		if report.Enqueued >= limit {
			break
		}
		report.Scanned++

		if stop.HasCoordinates() && stop.GeocodedAt != nil && stop.GeocodedAt.After(cutoff) {
			report.SkippedFresh++
			continue
		}

		stopCtx, err := b.Stops.GetStopContext(ctx, tenantID, stop.ID)
		if err != nil {
			return report, fmt.Errorf("backfill seed: load stop %q: %w", stop.ID, err)
		}

		// Queue only stops with a resolvable address; the rest would
		// just churn through missing_address failures.
		if ResolveAddress(stopCtx.Stop, stopCtx.Customer, stopCtx.Quote) == "" {
			report.SkippedNoSource++
			continue
		}

		if _, err := b.Queue.Enqueue(ctx, tenantID, stop.ID, ReasonBackfill, false); err != nil {
			return report, fmt.Errorf("backfill seed: enqueue stop %q: %w", stop.ID, err)
		}
		report.Enqueued++
	}

	return report, nil
}

// Sweep seeds the queue and immediately runs the worker over due jobs.
func (b *BackfillScanner) Sweep(ctx context.Context, tenantID string, seedLimit, processLimit int) (SweepReport, error) {
	var report SweepReport

	seed, err := b.Seed(ctx, tenantID, seedLimit)
	report.Seed = seed
	if err != nil {
		return report, fmt.Errorf("sweep: %w", err)
	}

	if processLimit <= 0 {
		processLimit = seedLimit
	}
	proc, err := b.Worker.ProcessDue(ctx, tenantID, processLimit)
	report.Process = proc
	if err != nil {
		return report, fmt.Errorf("sweep: %w", err)
	}

	return report, nil
}
