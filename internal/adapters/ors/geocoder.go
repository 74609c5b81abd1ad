package ors

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"dispatch-routing-service/internal/domain"
	"dispatch-routing-service/internal/platform/metrics"
	"dispatch-routing-service/internal/platform/obs"
)

// ProviderName is recorded on stops geocoded through this adapter.
const ProviderName = "openrouteservice"

// Geocoder implements the Geocoder port using the OpenRouteService
// geocode/search endpoint.
type Geocoder struct {
	client *Client
}

func NewGeocoder(client *Client) *Geocoder {
	return &Geocoder{client: client}
}

type geocodeResponse struct {
	Features []struct {
		Geometry struct {
			Coordinates []float64 `json:"coordinates"`
		} `json:"geometry"`
	} `json:"features"`
}

// Geocode resolves an address line into coordinates. A nil result with a
// nil error means the provider found no match; errors are transport or
// payload failures only.
func (g *Geocoder) Geocode(ctx context.Context, addressLine string) (_ *domain.Coordinates, err error) {
	defer obs.Time(ctx, "ors.Geocode")(&err)

	endpoint := g.client.baseURL + "/geocode/search"
	norm := normalize(addressLine)

	start := time.Now()
	resp, err := g.client.doWithRetry(ctx, func() (*http.Request, error) {
		req, err := g.client.newRequest(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		q := req.URL.Query()
		q.Set("text", norm)
		q.Set("size", "1")
		req.URL.RawQuery = q.Encode()
		return req, nil
	})
	observeProvider("geocode", start, err)
	if err != nil {
		return nil, fmt.Errorf("geocode %q: %w", norm, err)
	}
	defer resp.Body.Close()

	var decoded geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode geocode response: %w", err)
	}

	if len(decoded.Features) == 0 {
		// Provider ran but found nothing: a result-level miss, not an error.
		return nil, nil
	}

	coords := decoded.Features[0].Geometry.Coordinates
	if len(coords) != 2 {
		return nil, fmt.Errorf("invalid coordinate format for %q", norm)
	}

	return &domain.Coordinates{Lon: coords[0], Lat: coords[1]}, nil
}

func observeProvider(endpoint string, start time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	metrics.ProviderRequests.WithLabelValues(endpoint, result).Observe(time.Since(start).Seconds())
}
