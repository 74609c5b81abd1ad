package ports

import (
	"context"

	"dispatch-routing-service/internal/domain"
)

// Contract for resolving a free-text address line into coordinates.
//
// A nil result with a nil error means the provider ran but found no match.
// Errors are reserved for transport/parse failures; raw provider payload
// shapes never cross this boundary.
type Geocoder interface {
	Geocode(ctx context.Context, addressLine string) (*domain.Coordinates, error)
}
