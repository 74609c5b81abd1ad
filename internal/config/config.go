package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config is the resolved runtime configuration, read once at startup.
// DATABASE_URL and REDIS_URL are optional: without them the service runs on
// in-memory stores, which suits local development and tests.
type Config struct {
	Port string

	DatabaseURL string
	RedisURL    string
	SeedPath    string

	// ORSAPIKey enables the geocoding provider. DirectionsAPIKey falls
	// back to it when unset, since both live behind the same account.
	ORSAPIKey        string
	DirectionsAPIKey string

	DefaultTenant string

	// SweepSchedule is a cron expression for the periodic seed+process
	// pass; empty disables the scheduler.
	SweepSchedule     string
	SweepSeedLimit    int
	SweepProcessLimit int
}

// Get returns the environment value for key, or fallback when unset.
func Get(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("config: %s must be an integer: %w", key, err)
	}
	return n, nil
}

// Load resolves configuration from the environment.
func Load() (Config, error) {
	cfg := Config{
		Port:          Get("PORT", "8080"),
		DatabaseURL:   Get("DATABASE_URL", ""),
		RedisURL:      Get("REDIS_URL", ""),
		SeedPath:      Get("SEED_PATH", "data/seeds/stops.json"),
		ORSAPIKey:     Get("ORS_API_KEY", ""),
		DefaultTenant: Get("DEFAULT_TENANT", ""),
		SweepSchedule: Get("SWEEP_SCHEDULE", "@every 10m"),
	}
	cfg.DirectionsAPIKey = Get("DIRECTIONS_API_KEY", cfg.ORSAPIKey)

	var err error
	if cfg.SweepSeedLimit, err = getInt("SWEEP_SEED_LIMIT", 25); err != nil {
		return Config{}, err
	}
	if cfg.SweepProcessLimit, err = getInt("SWEEP_PROCESS_LIMIT", 25); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
