package ports

import (
	"context"

	"dispatch-routing-service/internal/domain"
)

// Optional cache in front of the geocoding provider, keyed by normalized
// address line. A nil hit with a nil error is a miss.
type GeocodeCache interface {
	Get(ctx context.Context, addressLine string) (*domain.Coordinates, error)
	Put(ctx context.Context, addressLine string, coords domain.Coordinates) error
}
