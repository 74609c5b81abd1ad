package ports

import (
	"context"

	"dispatch-routing-service/internal/domain"
)

// RouteLeg is the road geometry and metrics for one directions request.
type RouteLeg struct {
	Geometry        []domain.Coordinates
	DistanceMeters  float64
	DurationSeconds float64
}

// Contract for retrieving road-route geometry through an ordered list of
// waypoints. Callers must keep requests within 26 points; the suggestion
// engine chunks longer sequences.
//
// A nil leg with a nil error means the provider could not route the points.
type DirectionsProvider interface {
	Route(ctx context.Context, points []domain.Coordinates) (*RouteLeg, error)
}
