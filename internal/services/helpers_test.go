package services

import (
	"context"
	"time"

	"dispatch-routing-service/internal/domain"
	"dispatch-routing-service/internal/ports"
)

// fakeGeocoder returns a scripted result and records calls.
type fakeGeocoder struct {
	coords *domain.Coordinates
	err    error
	calls  int
}

func (f *fakeGeocoder) Geocode(ctx context.Context, addressLine string) (*domain.Coordinates, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.coords == nil {
		return nil, nil
	}
	cp := *f.coords
	return &cp, nil
}

// fakeDirections records each chunk it is asked to route.
type fakeDirections struct {
	chunks [][]domain.Coordinates
	err    error
	noLeg  bool
}

func (f *fakeDirections) Route(ctx context.Context, points []domain.Coordinates) (*ports.RouteLeg, error) {
	chunk := make([]domain.Coordinates, len(points))
	copy(chunk, points)
	f.chunks = append(f.chunks, chunk)

	if f.err != nil {
		return nil, f.err
	}
	if f.noLeg {
		return nil, nil
	}

	// Echo the waypoints back as geometry with simple per-chunk totals.
	return &ports.RouteLeg{
		Geometry:        chunk,
		DistanceMeters:  float64(len(points)) * 100,
		DurationSeconds: float64(len(points)) * 10,
	}, nil
}

// memoryCache is a map-backed GeocodeCache for worker tests.
type memoryCache struct {
	entries map[string]domain.Coordinates
	puts    int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string]domain.Coordinates{}}
}

func (c *memoryCache) Get(ctx context.Context, addressLine string) (*domain.Coordinates, error) {
	if v, ok := c.entries[addressLine]; ok {
		cp := v
		return &cp, nil
	}
	return nil, nil
}

func (c *memoryCache) Put(ctx context.Context, addressLine string, coords domain.Coordinates) error {
	c.puts++
	c.entries[addressLine] = coords
	return nil
}

func completedOutcome(now time.Time) ports.JobOutcome {
	return ports.JobOutcome{
		Status:      domain.JobCompleted,
		Attempts:    1,
		CompletedAt: &now,
	}
}

func retryOutcome(attempts int, next time.Time) ports.JobOutcome {
	return ports.JobOutcome{
		Status:        domain.JobRetry,
		Attempts:      attempts,
		NextAttemptAt: &next,
		LastError:     domain.ErrTagProviderException,
	}
}
