package ports

import (
	"context"
	"errors"
	"time"

	"dispatch-routing-service/internal/domain"
)

// ErrNotFound is returned by stores when the requested record does not exist.
var ErrNotFound = errors.New("not found")

// GeocodeUpdate is the narrow slice of a stop the geocoding pipeline may
// write. Coordinates is nil on failed attempts so the last-known-good pin
// is preserved.
type GeocodeUpdate struct {
	Coordinates *domain.Coordinates
	Status      domain.GeocodeStatus
	Provider    string
	GeocodedAt  time.Time
}

// StopFilter scopes route-suggestion and dispatch-board reads.
type StopFilter struct {
	TenantID    string
	ServiceDate string // YYYY-MM-DD
	Priority    domain.DispatchPriority
	CleanerID   string
	Assigned    *bool
}

// Port: boundary for reading stops and writing geocode results back.
// Everything else on a stop belongs to the booking subsystem.
type StopStore interface {
	// ListStops returns a date-scoped, filtered set of stops for routing
	// and the dispatch board.
	ListStops(ctx context.Context, f StopFilter) ([]*domain.ServiceStop, error)

	// ListRecentStops returns up to limit most-recent stops for a tenant,
	// bounding backfill scan cost on large datasets.
	ListRecentStops(ctx context.Context, tenantID string, limit int) ([]*domain.ServiceStop, error)

	// GetStopContext resolves a stop plus its customer/quote address
	// fallback sources in one read.
	GetStopContext(ctx context.Context, tenantID, stopID string) (domain.StopContext, error)

	// UpdateStopGeocode writes the geocode result columns for a stop.
	UpdateStopGeocode(ctx context.Context, tenantID, stopID string, upd GeocodeUpdate) error

	// SetManualSequence persists a dispatcher-chosen visiting order.
	SetManualSequence(ctx context.Context, tenantID, stopID string, seq int) error

	// ListStopSummaries returns assignment/checklist bookkeeping for the
	// dispatch board join.
	ListStopSummaries(ctx context.Context, tenantID, serviceDate string) (map[string]domain.StopSummary, error)
}
