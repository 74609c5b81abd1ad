package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"dispatch-routing-service/internal/domain"
)

// Cached coordinates expire after this long; stale pins are re-resolved
// through the provider on the next attempt.
const defaultTTL = 30 * 24 * time.Hour

// RedisGeocodeCache is a Redis-backed cache mapping normalized address
// lines to coordinates, shared across worker instances.
type RedisGeocodeCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisGeocodeCache(client *redis.Client) *RedisGeocodeCache {
	return &RedisGeocodeCache{client: client, ttl: defaultTTL}
}

func cacheKey(addressLine string) string {
	return "geocode:" + strings.ToLower(strings.Join(strings.Fields(addressLine), " "))
}

// Get returns cached coordinates, or nil on a miss.
func (c *RedisGeocodeCache) Get(ctx context.Context, addressLine string) (*domain.Coordinates, error) {
	val, err := c.client.Get(ctx, cacheKey(addressLine)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("geocode cache get: %w", err)
	}

	parts := strings.SplitN(val, ",", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("geocode cache get: malformed entry %q", val)
	}

	lat, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return nil, fmt.Errorf("geocode cache get: parse lat: %w", err)
	}
	lon, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return nil, fmt.Errorf("geocode cache get: parse lon: %w", err)
	}

	return &domain.Coordinates{Lat: lat, Lon: lon}, nil
}

// Put stores coordinates for an address line.
func (c *RedisGeocodeCache) Put(ctx context.Context, addressLine string, coords domain.Coordinates) error {
	val := strconv.FormatFloat(coords.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(coords.Lon, 'f', -1, 64)
	if err := c.client.Set(ctx, cacheKey(addressLine), val, c.ttl).Err(); err != nil {
		return fmt.Errorf("geocode cache put: %w", err)
	}
	return nil
}
