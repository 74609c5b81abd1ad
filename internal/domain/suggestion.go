package domain

// Geometry provider tags reported on a RouteSuggestion.
const (
	GeometryProviderORS      = "openrouteservice"
	GeometryProviderFallback = "fallback"
)

// RouteSuggestion is the dispatcher-facing visiting order plus stitched road
// geometry for one day's stops. It is ephemeral planning data, recomputed on
// every request and never persisted.
type RouteSuggestion struct {
	OrderedStopIDs []string
	SkippedStopIDs []string // excluded by the stop-count cap, in input order
	UnmappedIDs    []string // stops without coordinates

	Geometry []Coordinates

	// Nil when geometry degraded to straight lines.
	TotalDistanceMeters  *float64
	TotalDurationSeconds *float64

	// GeometryProvider is GeometryProviderORS only when every directions
	// chunk succeeded; otherwise GeometryProviderFallback.
	GeometryProvider   string
	ProviderConfigured bool
}
