package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"dispatch-routing-service/internal/domain"
)

func newTestCache(t *testing.T) *RedisGeocodeCache {
	t.Helper()

	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisGeocodeCache(client)
}

func TestRedisGeocodeCacheRoundTrip(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	coords := domain.Coordinates{Lon: -111.926, Lat: 33.4255}
	if err := c.Put(ctx, "12 Oak St, Mesa, AZ", coords); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := c.Get(ctx, "12 Oak St, Mesa, AZ")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil {
		t.Fatalf("expected a hit")
	}
	if got.Lat != coords.Lat || got.Lon != coords.Lon {
		t.Fatalf("got %+v, want %+v", got, coords)
	}
}

func TestRedisGeocodeCacheMiss(t *testing.T) {
	c := newTestCache(t)

	got, err := c.Get(context.Background(), "nowhere at all")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Fatalf("expected a miss, got %+v", got)
	}
}

func TestRedisGeocodeCacheKeyNormalization(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	coords := domain.Coordinates{Lon: -1, Lat: 1}
	if err := c.Put(ctx, "12  Oak St,   Mesa", coords); err != nil {
		t.Fatalf("put: %v", err)
	}

	// Whitespace and case variants resolve to the same entry.
	got, err := c.Get(ctx, " 12 OAK st, Mesa ")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil || got.Lat != 1 {
		t.Fatalf("normalized lookup missed: %+v", got)
	}
}
