package dto

import "time"

type StopResponse struct {
	StopID         string `json:"stop_id"`
	Priority       string `json:"priority"`
	ServiceDate    string `json:"service_date"`
	WindowStart    string `json:"window_start,omitempty"`
	WindowEnd      string `json:"window_end,omitempty"`
	ManualSequence *int   `json:"manual_sequence,omitempty"`

	AddressLine string `json:"address_line,omitempty"`

	Lat             *float64   `json:"lat,omitempty"`
	Lon             *float64   `json:"lon,omitempty"`
	GeocodeStatus   string     `json:"geocode_status"`
	GeocodedAt      *time.Time `json:"geocoded_at,omitempty"`
	GeocodeProvider string     `json:"geocode_provider,omitempty"`
}

type ListStopsResponse struct {
	Stops []StopResponse `json:"stops"`
}

type SetSequenceRequest struct {
	TenantID string `json:"tenant_id"`
	StopID   string `json:"stop_id"`
	Sequence int    `json:"sequence"`
}
