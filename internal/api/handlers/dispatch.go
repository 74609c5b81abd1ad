package handlers

import (
	"log"
	"net/http"
	"strings"

	"dispatch-routing-service/internal/api/dto"
	"dispatch-routing-service/internal/services"
)

// DispatchHandler serves the dispatch board read model.
type DispatchHandler struct {
	Assembler     *services.DispatchViewAssembler
	DefaultTenant string
}

// Board returns a day's stops joined with assignment and checklist
// summaries. Query parameters: tenant_id, date (required).
func (h *DispatchHandler) Board(w http.ResponseWriter, r *http.Request) {
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

	board, err := h.Assembler.Assemble(r.Context(), tenant, date)
	if err != nil {
		log.Printf("assemble dispatch board failed: tenant=%s date=%s err=%v", tenant, date, err)
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	res := dto.DispatchBoardResponse{
		Rows:            make([]dto.DispatchRowResponse, 0, len(board.Rows)),
		Total:           board.Total,
		Assigned:        board.Assigned,
		Unassigned:      board.Unassigned,
		MissingLocation: board.MissingLocation,
	}
	for _, row := range board.Rows {
		res.Rows = append(res.Rows, dto.DispatchRowResponse{
			Stop:             stopResponse(row.Stop),
			AssignedCleaners: row.Summary.AssignedCleaners,
			CleanerIDs:       row.Summary.CleanerIDs,
			AssignmentStatus: row.Summary.AssignmentStatus,
			Badges:           row.Badges,
		})
	}

	writeJSON(w, r, http.StatusOK, res)
}
