package services

import (
	"context"
	"fmt"
	"sort"

	"dispatch-routing-service/internal/domain"
	"dispatch-routing-service/internal/ports"
)

// DispatchViewAssembler joins a day's stops with assignment and checklist
// summaries into the dispatcher-facing board. It is a thin read model: no
// queueing or retry logic, nothing persisted.
type DispatchViewAssembler struct {
	Stops ports.StopStore
}

// Assemble builds the board for one tenant and service date.
func (a *DispatchViewAssembler) Assemble(ctx context.Context, tenantID, serviceDate string) (*domain.DispatchBoard, error) {
	stops, err := a.Stops.ListStops(ctx, ports.StopFilter{TenantID: tenantID, ServiceDate: serviceDate})
	if err != nil {
		return nil, fmt.Errorf("assemble dispatch board: list stops: %w", err)
	}

	summaries, err := a.Stops.ListStopSummaries(ctx, tenantID, serviceDate)
	if err != nil {
		return nil, fmt.Errorf("assemble dispatch board: list summaries: %w", err)
	}

	board := &domain.DispatchBoard{Rows: make([]domain.DispatchRow, 0, len(stops))}
	for _, stop := range stops {
		summary := summaries[stop.ID]
		summary.StopID = stop.ID

		row := domain.DispatchRow{
			Stop:    stop,
			Summary: summary,
			Badges:  badgesFor(stop, summary),
		}
		board.Rows = append(board.Rows, row)

		board.Total++
		if summary.AssignedCleaners > 0 {
			board.Assigned++
		} else {
			board.Unassigned++
		}
		if !stop.HasCoordinates() {
			board.MissingLocation++
		}
	}

	// Priority descending, then window ascending, then manual sequence,
	// then creation time.
	sort.SliceStable(board.Rows, func(i, j int) bool {
		return tieLess(board.Rows[i].Stop, board.Rows[j].Stop)
	})

	return board, nil
}

func badgesFor(stop *domain.ServiceStop, summary domain.StopSummary) []string {
	badges := make([]string, 0, 4)

	if summary.AssignedCleaners > 0 {
		badges = append(badges, domain.BadgeAssigned)
	} else {
		badges = append(badges, domain.BadgeUnassigned)
	}

	if stop.HasCoordinates() {
		badges = append(badges, domain.BadgeMapped)
	} else {
		badges = append(badges, domain.BadgeNeedsLocation)
	}

	if summary.ChecklistItems > 0 && summary.ChecklistCompleted < summary.ChecklistItems {
		badges = append(badges, domain.BadgeChecklistBlocked)
	}

	if stop.Priority != domain.PriorityNormal && stop.Priority != "" {
		badges = append(badges, domain.BadgePriority)
	}

	return badges
}
