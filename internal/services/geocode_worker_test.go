package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"dispatch-routing-service/internal/adapters/repositories"
	"dispatch-routing-service/internal/domain"
)

func newWorkerFixture(geocoder *fakeGeocoder) (*repositories.Memory, *GeocodeQueue, *GeocodeWorker) {
	mem := repositories.NewMemory()
	queue := &GeocodeQueue{Jobs: mem}
	worker := &GeocodeWorker{
		Stops:        mem,
		Jobs:         mem,
		ProviderName: "openrouteservice",
	}
	if geocoder != nil {
		worker.Geocoder = geocoder
	}
	return mem, queue, worker
}

func putStop(mem *repositories.Memory, id string, addr domain.AddressFields) {
	mem.PutStop(&domain.ServiceStop{
		ID:            id,
		TenantID:      "t1",
		Priority:      domain.PriorityNormal,
		ServiceDate:   "2026-09-01",
		Address:       addr,
		GeocodeStatus: domain.GeocodePending,
		CreatedAt:     time.Now().UTC(),
	})
}

func TestProcessDueSuccess(t *testing.T) {
	geocoder := &fakeGeocoder{coords: &domain.Coordinates{Lon: -105.0, Lat: 40.0}}
	mem, queue, worker := newWorkerFixture(geocoder)
	ctx := context.Background()

	putStop(mem, "stop-1", domain.AddressFields{Street: "12 Oak St", City: "Mesa", State: "AZ"})

	job, err := queue.Enqueue(ctx, "t1", "stop-1", "manual", false)
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	report, err := worker.ProcessDue(ctx, "t1", 10)
	if err != nil {
		t.Fatalf("process due: %v", err)
	}
	if report.Due != 1 || report.Claimed != 1 || report.Completed != 1 {
		t.Fatalf("report = %+v, want one completed job", report)
	}

	stopCtx, err := mem.GetStopContext(ctx, "t1", "stop-1")
	if err != nil {
		t.Fatalf("get stop: %v", err)
	}
	stop := stopCtx.Stop
	if stop.Coordinates == nil || stop.Coordinates.Lat != 40.0 || stop.Coordinates.Lon != -105.0 {
		t.Fatalf("stop coordinates = %+v, want 40/-105", stop.Coordinates)
	}
	if stop.GeocodeStatus != domain.Geocoded {
		t.Fatalf("stop status = %s, want geocoded", stop.GeocodeStatus)
	}
	if stop.GeocodeProvider != "openrouteservice" {
		t.Fatalf("stop provider = %q", stop.GeocodeProvider)
	}

	done, err := mem.GetJob(ctx, "t1", job.ID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if done.Status != domain.JobCompleted || done.Attempts != 1 {
		t.Fatalf("job = %s attempts=%d, want completed attempts=1", done.Status, done.Attempts)
	}
	if done.CompletedAt == nil {
		t.Fatalf("completed job missing CompletedAt")
	}
	if done.AddressLine == "" || done.AddressHash == "" {
		t.Fatalf("completed job missing address snapshot")
	}
}

func TestProcessDueMissingAddressIsTerminal(t *testing.T) {
	mem, queue, worker := newWorkerFixture(&fakeGeocoder{})
	ctx := context.Background()

	putStop(mem, "stop-1", domain.AddressFields{})

	job, err := queue.Enqueue(ctx, "t1", "stop-1", "manual", false)
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	report, err := worker.ProcessDue(ctx, "t1", 10)
	if err != nil {
		t.Fatalf("process due: %v", err)
	}
	if report.Failed != 1 || report.Retried != 0 {
		t.Fatalf("report = %+v, want one terminal failure", report)
	}

	done, _ := mem.GetJob(ctx, "t1", job.ID)
	if done.Status != domain.JobFailed || done.LastError != domain.ErrTagMissingAddress {
		t.Fatalf("job = %s err=%q, want failed/missing_address", done.Status, done.LastError)
	}

	stopCtx, _ := mem.GetStopContext(ctx, "t1", "stop-1")
	if stopCtx.Stop.GeocodeStatus != domain.GeocodeMissingAddress {
		t.Fatalf("stop status = %s, want missing_address", stopCtx.Stop.GeocodeStatus)
	}
}

func TestProcessDueNoGeocoderSchedulesRetry(t *testing.T) {
	mem, queue, worker := newWorkerFixture(nil)
	ctx := context.Background()

	putStop(mem, "stop-1", domain.AddressFields{Street: "12 Oak St"})

	job, err := queue.Enqueue(ctx, "t1", "stop-1", "manual", false)
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	report, err := worker.ProcessDue(ctx, "t1", 10)
	if err != nil {
		t.Fatalf("process due: %v", err)
	}
	if report.Retried != 1 {
		t.Fatalf("report = %+v, want one retry", report)
	}

	got, _ := mem.GetJob(ctx, "t1", job.ID)
	if got.Status != domain.JobRetry || got.Attempts != 1 {
		t.Fatalf("job = %s attempts=%d, want retry attempts=1", got.Status, got.Attempts)
	}
	if got.LastError != domain.ErrTagProviderUnavailable {
		t.Fatalf("last error = %q, want provider_unavailable", got.LastError)
	}

	// First retry lands ~5 minutes out.
	wantNext := time.Now().UTC().Add(5 * time.Minute)
	if diff := got.NextAttemptAt.Sub(wantNext); diff < -time.Minute || diff > time.Minute {
		t.Fatalf("next attempt %v, want about %v", got.NextAttemptAt, wantNext)
	}
}

func TestProcessDueProviderErrorPreservesCoordinates(t *testing.T) {
	geocoder := &fakeGeocoder{err: errors.New("boom")}
	mem, queue, worker := newWorkerFixture(geocoder)
	ctx := context.Background()

	old := time.Now().UTC().Add(-time.Hour)
	mem.PutStop(&domain.ServiceStop{
		ID:            "stop-1",
		TenantID:      "t1",
		ServiceDate:   "2026-09-01",
		Address:       domain.AddressFields{Street: "12 Oak St"},
		Coordinates:   &domain.Coordinates{Lon: -111.9, Lat: 33.4},
		GeocodeStatus: domain.Geocoded,
		GeocodedAt:    &old,
		CreatedAt:     time.Now().UTC(),
	})

	job, err := queue.Enqueue(ctx, "t1", "stop-1", "manual", false)
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	// Drive the job through every attempt to terminal failure.
	for attempt := 1; attempt <= MaxGeocodeAttempts; attempt++ {
		if attempt > 1 {
			// Pull the scheduled retry back so it is due now.
			next := time.Now().UTC().Add(-time.Second)
			if err := mem.Finish(ctx, job.ID, retryOutcome(attempt-1, next)); err != nil {
				t.Fatalf("finish: %v", err)
			}
		}

		report, err := worker.ProcessDue(ctx, "t1", 10)
		if err != nil {
			t.Fatalf("attempt %d: %v", attempt, err)
		}
		if attempt < MaxGeocodeAttempts && report.Retried != 1 {
			t.Fatalf("attempt %d report = %+v, want retry", attempt, report)
		}
		if attempt == MaxGeocodeAttempts && report.Failed != 1 {
			t.Fatalf("final attempt report = %+v, want terminal failure", report)
		}
	}

	done, _ := mem.GetJob(ctx, "t1", job.ID)
	if done.Status != domain.JobFailed || done.Attempts != MaxGeocodeAttempts {
		t.Fatalf("job = %s attempts=%d, want failed attempts=%d", done.Status, done.Attempts, MaxGeocodeAttempts)
	}

	// Failed attempts never null the last-known-good pin.
	stopCtx, _ := mem.GetStopContext(ctx, "t1", "stop-1")
	stop := stopCtx.Stop
	if stop.Coordinates == nil || stop.Coordinates.Lat != 33.4 {
		t.Fatalf("stop coordinates = %+v, want preserved pin", stop.Coordinates)
	}
	if stop.GeocodeStatus != domain.GeocodeFailed {
		t.Fatalf("stop status = %s, want failed", stop.GeocodeStatus)
	}
}

func TestProcessDueNoResultSchedulesRetry(t *testing.T) {
	mem, queue, worker := newWorkerFixture(&fakeGeocoder{coords: nil})
	ctx := context.Background()

	putStop(mem, "stop-1", domain.AddressFields{Street: "nowhere at all"})

	job, err := queue.Enqueue(ctx, "t1", "stop-1", "manual", false)
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	if _, err := worker.ProcessDue(ctx, "t1", 10); err != nil {
		t.Fatalf("process due: %v", err)
	}

	got, _ := mem.GetJob(ctx, "t1", job.ID)
	if got.Status != domain.JobRetry || got.LastError != domain.ErrTagNoResult {
		t.Fatalf("job = %s err=%q, want retry/no_result", got.Status, got.LastError)
	}
}

func TestProcessDueStopNotFound(t *testing.T) {
	mem, queue, worker := newWorkerFixture(&fakeGeocoder{})
	ctx := context.Background()

	job, err := queue.Enqueue(ctx, "t1", "ghost-stop", "manual", false)
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	report, err := worker.ProcessDue(ctx, "t1", 10)
	if err != nil {
		t.Fatalf("process due: %v", err)
	}
	if report.Failed != 1 {
		t.Fatalf("report = %+v, want terminal failure", report)
	}

	got, _ := mem.GetJob(ctx, "t1", job.ID)
	if got.Status != domain.JobFailed || got.LastError != domain.ErrTagStopNotFound {
		t.Fatalf("job = %s err=%q, want failed/stop_not_found", got.Status, got.LastError)
	}
}

func TestProcessDueUsesCacheBeforeProvider(t *testing.T) {
	geocoder := &fakeGeocoder{coords: &domain.Coordinates{Lon: -1, Lat: 1}}
	mem, queue, worker := newWorkerFixture(geocoder)
	cache := newMemoryCache()
	worker.Cache = cache
	ctx := context.Background()

	putStop(mem, "stop-1", domain.AddressFields{Street: "12 Oak St"})
	putStop(mem, "stop-2", domain.AddressFields{Street: "12 Oak St"})

	if _, err := queue.Enqueue(ctx, "t1", "stop-1", "manual", false); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if _, err := queue.Enqueue(ctx, "t1", "stop-2", "manual", false); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	report, err := worker.ProcessDue(ctx, "t1", 10)
	if err != nil {
		t.Fatalf("process due: %v", err)
	}
	if report.Completed != 2 {
		t.Fatalf("report = %+v, want two completions", report)
	}

	// Identical address lines hit the provider once; the second job is
	// served from the cache.
	if geocoder.calls != 1 {
		t.Fatalf("provider calls = %d, want 1", geocoder.calls)
	}
	if cache.puts != 1 {
		t.Fatalf("cache puts = %d, want 1", cache.puts)
	}
}

func TestProcessDueRespectsLimit(t *testing.T) {
	geocoder := &fakeGeocoder{coords: &domain.Coordinates{Lon: -1, Lat: 1}}
	mem, queue, worker := newWorkerFixture(geocoder)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		putStop(mem, id, domain.AddressFields{Street: "12 Oak St"})
		if _, err := queue.Enqueue(ctx, "t1", id, "manual", false); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}

	report, err := worker.ProcessDue(ctx, "t1", 2)
	if err != nil {
		t.Fatalf("process due: %v", err)
	}
	if report.Due != 2 || report.Completed != 2 {
		t.Fatalf("report = %+v, want two jobs under limit", report)
	}
}
