package handlers

import (
	"log"
	"net/http"
	"strings"

	"dispatch-routing-service/internal/api/dto"
	"dispatch-routing-service/internal/domain"
	"dispatch-routing-service/internal/services"
)

// GeocodeHandler exposes the geocoding pipeline triggers: enqueue a single
// stop, seed the queue from a backfill scan, run a worker pass, or both.
type GeocodeHandler struct {
	Queue         *services.GeocodeQueue
	Worker        *services.GeocodeWorker
	Scanner       *services.BackfillScanner
	DefaultTenant string
}

func (h *GeocodeHandler) tenant(requested string) string {
	t := strings.TrimSpace(requested)
	if t == "" {
		t = strings.TrimSpace(h.DefaultTenant)
	}
	return t
}

// Enqueue queues a geocode job for one stop. Force bypasses the
// one-active-job guard by resetting the existing job.
func (h *GeocodeHandler) Enqueue(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var req dto.EnqueueRequest
	if !decodeBody(w, r, &req) {
		return
	}

	tenant := h.tenant(req.TenantID)
	if tenant == "" {
		writeError(w, r, http.StatusBadRequest, "tenant_id is required")
		return
	}
	if strings.TrimSpace(req.StopID) == "" {
		writeError(w, r, http.StatusBadRequest, "stop_id is required")
		return
	}

	reason := req.Reason
	if reason == "" {
		reason = "manual"
	}

	// Stop existence is validated by the worker at attempt time; a job for
	// an unknown stop fails with a stop_not_found tag.
	job, err := h.Queue.Enqueue(r.Context(), tenant, req.StopID, reason, req.Force)
	if err != nil {
		log.Printf("enqueue geocode failed: stop=%s err=%v", req.StopID, err)
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, r, http.StatusAccepted, jobResponse(job))
}

// Seed scans recent stops and enqueues those with missing or stale
// coordinates.
func (h *GeocodeHandler) Seed(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var req dto.SeedRequest
	if !decodeBody(w, r, &req) {
		return
	}

	tenant := h.tenant(req.TenantID)
	if tenant == "" {
		writeError(w, r, http.StatusBadRequest, "tenant_id is required")
		return
	}

	report, err := h.Scanner.Seed(r.Context(), tenant, req.Limit)
	if err != nil {
		log.Printf("seed geocode queue failed: tenant=%s err=%v", tenant, err)
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, r, http.StatusOK, report)
}

// Process claims and executes due geocode jobs.
func (h *GeocodeHandler) Process(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var req dto.ProcessRequest
	if !decodeBody(w, r, &req) {
		return
	}

	tenant := h.tenant(req.TenantID)
	if tenant == "" {
		writeError(w, r, http.StatusBadRequest, "tenant_id is required")
		return
	}

	report, err := h.Worker.ProcessDue(r.Context(), tenant, req.Limit)
	if err != nil {
		log.Printf("process geocode jobs failed: tenant=%s err=%v", tenant, err)
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, r, http.StatusOK, report)
}

// Sweep runs a seed pass followed by a worker pass in one call.
func (h *GeocodeHandler) Sweep(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var req dto.SweepRequest
	if !decodeBody(w, r, &req) {
		return
	}

	tenant := h.tenant(req.TenantID)
	if tenant == "" {
		writeError(w, r, http.StatusBadRequest, "tenant_id is required")
		return
	}

	report, err := h.Scanner.Sweep(r.Context(), tenant, req.SeedLimit, req.ProcessLimit)
	if err != nil {
		log.Printf("geocode sweep failed: tenant=%s err=%v", tenant, err)
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, r, http.StatusOK, report)
}

func jobResponse(job *domain.GeocodeJob) dto.JobResponse {
	return dto.JobResponse{
		JobID:         job.ID,
		StopID:        job.StopID,
		Status:        string(job.Status),
		Attempts:      job.Attempts,
		NextAttemptAt: job.NextAttemptAt,
		LastError:     job.LastError,
		Reason:        job.Reason,
		CompletedAt:   job.CompletedAt,
	}
}
