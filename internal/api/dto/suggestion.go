package dto

type SuggestionResponse struct {
	OrderedStopIDs []string `json:"ordered_stop_ids"`
	SkippedStopIDs []string `json:"skipped_stop_ids"`
	UnmappedIDs    []string `json:"unmapped_ids"`

	// Geometry is a polyline of [lon, lat] pairs.
	Geometry [][]float64 `json:"geometry"`

	TotalDistanceMeters  *float64 `json:"total_distance_meters"`
	TotalDurationSeconds *float64 `json:"total_duration_seconds"`

	GeometryProvider   string `json:"geometry_provider"`
	ProviderConfigured bool   `json:"provider_configured"`
}
