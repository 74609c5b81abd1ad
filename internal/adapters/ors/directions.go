package ors

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"dispatch-routing-service/internal/domain"
	"dispatch-routing-service/internal/platform/obs"
	"dispatch-routing-service/internal/ports"
)

// ORS rejects directions requests beyond this many waypoints.
const maxWaypoints = 26

// Directions implements the DirectionsProvider port using the
// OpenRouteService directions endpoint (GeoJSON flavor).
type Directions struct {
	client  *Client
	profile string
}

func NewDirections(client *Client) *Directions {
	return &Directions{client: client, profile: "driving-car"}
}

type directionsRequest struct {
	Coordinates [][]float64 `json:"coordinates"`
}

type directionsResponse struct {
	Features []struct {
		Geometry struct {
			Coordinates [][]float64 `json:"coordinates"`
		} `json:"geometry"`
		Properties struct {
			Summary struct {
				Distance float64 `json:"distance"`
				Duration float64 `json:"duration"`
			} `json:"summary"`
		} `json:"properties"`
	} `json:"features"`
}

// Route fetches road geometry through the ordered waypoints. A nil leg with
// a nil error means the provider could not route the points.
func (d *Directions) Route(ctx context.Context, points []domain.Coordinates) (_ *ports.RouteLeg, err error) {
	defer obs.Time(ctx, "ors.Route")(&err)

	if len(points) < 2 {
		return nil, errors.New("route requires at least two points")
	}
	if len(points) > maxWaypoints {
		return nil, fmt.Errorf("route request exceeds %d waypoints: %d", maxWaypoints, len(points))
	}

	endpoint := fmt.Sprintf("%s/v2/directions/%s/geojson", d.client.baseURL, d.profile)

	locations := make([][]float64, 0, len(points))
	for _, p := range points {
		locations = append(locations, p.CoordsToList())
	}

	payload, err := json.Marshal(directionsRequest{Coordinates: locations})
	if err != nil {
		return nil, fmt.Errorf("marshal directions request: %w", err)
	}

	start := time.Now()
	resp, err := d.client.doWithRetry(ctx, func() (*http.Request, error) {
		return d.client.newRequest(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	})
	observeProvider("directions", start, err)
	if err != nil {
		// A 404 from ORS means no route exists between the points.
		var he *httpStatusError
		if errors.As(err, &he) && he.Code == http.StatusNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("directions request failed: %w", err)
	}
	defer resp.Body.Close()

	var decoded directionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode directions response: %w", err)
	}

	if len(decoded.Features) == 0 {
		return nil, nil
	}

	feature := decoded.Features[0]
	geometry := make([]domain.Coordinates, 0, len(feature.Geometry.Coordinates))
	for _, pair := range feature.Geometry.Coordinates {
		if len(pair) != 2 {
			return nil, errors.New("invalid coordinate pair in directions geometry")
		}
		geometry = append(geometry, domain.Coordinates{Lon: pair[0], Lat: pair[1]})
	}

	return &ports.RouteLeg{
		Geometry:        geometry,
		DistanceMeters:  feature.Properties.Summary.Distance,
		DurationSeconds: feature.Properties.Summary.Duration,
	}, nil
}
