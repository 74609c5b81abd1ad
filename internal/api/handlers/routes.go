package handlers

import (
	"log"
	"net/http"
	"strconv"
	"strings"

	"dispatch-routing-service/internal/api/dto"
	"dispatch-routing-service/internal/domain"
	"dispatch-routing-service/internal/ports"
	"dispatch-routing-service/internal/services"
)

// RouteHandler serves route suggestions for a filtered stop set.
type RouteHandler struct {
	Engine        *services.RouteSuggestionEngine
	DefaultTenant string
}

// Suggest computes the suggested visiting order and geometry for a day's
// stops. Query parameters: tenant_id, date (required), priority, cleaner_id,
// assigned, max_stops.
func (h *RouteHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	q := r.URL.Query()

	tenant := strings.TrimSpace(q.Get("tenant_id"))
	if tenant == "" {
		tenant = strings.TrimSpace(h.DefaultTenant)
	}
	if tenant == "" {
		writeError(w, r, http.StatusBadRequest, "tenant_id is required")
		return
	}

	date := strings.TrimSpace(q.Get("date"))
	if date == "" {
		writeError(w, r, http.StatusBadRequest, "date is required")
		return
	}

	filter := ports.StopFilter{
		TenantID:    tenant,
		ServiceDate: date,
		Priority:    domain.DispatchPriority(strings.TrimSpace(q.Get("priority"))),
		CleanerID:   strings.TrimSpace(q.Get("cleaner_id")),
	}

	if raw := strings.TrimSpace(q.Get("assigned")); raw != "" {
		assigned, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "assigned must be a boolean")
			return
		}
		filter.Assigned = &assigned
	}

	maxStops := 0
	if raw := strings.TrimSpace(q.Get("max_stops")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, r, http.StatusBadRequest, "max_stops must be a positive integer")
			return
		}
		maxStops = n
	}

	suggestion, err := h.Engine.Suggest(r.Context(), services.SuggestRequest{
		Filter:   filter,
		MaxStops: maxStops,
	})
	if err != nil {
		log.Printf("route suggestion failed: tenant=%s date=%s err=%v", tenant, date, err)
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	geometry := make([][]float64, 0, len(suggestion.Geometry))
	for _, c := range suggestion.Geometry {
		geometry = append(geometry, c.CoordsToList())
	}

	writeJSON(w, r, http.StatusOK, dto.SuggestionResponse{
		OrderedStopIDs:       suggestion.OrderedStopIDs,
		SkippedStopIDs:       suggestion.SkippedStopIDs,
		UnmappedIDs:          suggestion.UnmappedIDs,
		Geometry:             geometry,
		TotalDistanceMeters:  suggestion.TotalDistanceMeters,
		TotalDurationSeconds: suggestion.TotalDurationSeconds,
		GeometryProvider:     suggestion.GeometryProvider,
		ProviderConfigured:   suggestion.ProviderConfigured,
	})
}
