package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"dispatch-routing-service/internal/api/dto"
	"dispatch-routing-service/internal/domain"
	"dispatch-routing-service/internal/ports"
)

// StopHandler exposes stop retrieval and the one dispatcher-owned write,
// the manual visiting sequence.
type StopHandler struct {
	Stops         ports.StopStore
	DefaultTenant string
}

func (h *StopHandler) List(w http.ResponseWriter, r *http.Request) {
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

	filter := ports.StopFilter{
		TenantID:    tenant,
		ServiceDate: strings.TrimSpace(q.Get("date")),
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

	stops, err := h.Stops.ListStops(r.Context(), filter)
	if err != nil {
		log.Printf("list stops failed: tenant=%s err=%v", tenant, err)
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	res := dto.ListStopsResponse{
		Stops: make([]dto.StopResponse, 0, len(stops)),
	}
	for _, s := range stops {
		res.Stops = append(res.Stops, stopResponse(s))
	}

	writeJSON(w, r, http.StatusOK, res)
}

// SetSequence persists a dispatcher-chosen visiting position for a stop.
// Manually sequenced stops win ties in the suggestion ordering.
func (h *StopHandler) SetSequence(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var req dto.SetSequenceRequest
	if !decodeBody(w, r, &req) {
		return
	}

	tenant := strings.TrimSpace(req.TenantID)
	if tenant == "" {
		tenant = strings.TrimSpace(h.DefaultTenant)
	}
	if tenant == "" {
		writeError(w, r, http.StatusBadRequest, "tenant_id is required")
		return
	}
	if strings.TrimSpace(req.StopID) == "" {
		writeError(w, r, http.StatusBadRequest, "stop_id is required")
		return
	}
	if req.Sequence < 0 {
		writeError(w, r, http.StatusBadRequest, "sequence must not be negative")
		return
	}

	if err := h.Stops.SetManualSequence(r.Context(), tenant, req.StopID, req.Sequence); err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "stop not found")
			return
		}
		log.Printf("set manual sequence failed: stop=%s err=%v", req.StopID, err)
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}
