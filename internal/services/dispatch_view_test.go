package services

import (
	"context"
	"testing"
	"time"

	"dispatch-routing-service/internal/adapters/repositories"
	"dispatch-routing-service/internal/domain"
)

func boardStop(id string, priority domain.DispatchPriority, mapped bool) *domain.ServiceStop {
	s := &domain.ServiceStop{
		ID:          id,
		TenantID:    "t1",
		Priority:    priority,
		ServiceDate: "2026-09-01",
		CreatedAt:   time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
	if mapped {
		s.Coordinates = &domain.Coordinates{Lon: -112, Lat: 33.4}
		s.GeocodeStatus = domain.Geocoded
	}
	return s
}

func TestAssembleBoardTotalsAndBadges(t *testing.T) {
	mem := repositories.NewMemory()

	mem.PutStop(boardStop("assigned-mapped", domain.PriorityNormal, true))
	mem.PutStop(boardStop("unassigned-unmapped", domain.PriorityUrgent, false))
	mem.PutStop(boardStop("blocked", domain.PriorityNormal, true))

	mem.PutSummary(domain.StopSummary{
		StopID:           "assigned-mapped",
		AssignedCleaners: 2,
		CleanerIDs:       []string{"c1", "c2"},
		AssignmentStatus: "confirmed",
	})
	mem.PutSummary(domain.StopSummary{
		StopID:             "blocked",
		AssignedCleaners:   1,
		CleanerIDs:         []string{"c1"},
		ChecklistItems:     5,
		ChecklistCompleted: 3,
	})

	assembler := &DispatchViewAssembler{Stops: mem}
	board, err := assembler.Assemble(context.Background(), "t1", "2026-09-01")
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}

	if board.Total != 3 || board.Assigned != 2 || board.Unassigned != 1 || board.MissingLocation != 1 {
		t.Fatalf("totals = %+v", board)
	}

	badges := map[string][]string{}
	for _, row := range board.Rows {
		badges[row.Stop.ID] = row.Badges
	}

	assertBadges(t, badges["assigned-mapped"], []string{domain.BadgeAssigned, domain.BadgeMapped})
	assertBadges(t, badges["unassigned-unmapped"], []string{domain.BadgeUnassigned, domain.BadgeNeedsLocation, domain.BadgePriority})
	assertBadges(t, badges["blocked"], []string{domain.BadgeAssigned, domain.BadgeMapped, domain.BadgeChecklistBlocked})

	// Urgent stop sorts first.
	if board.Rows[0].Stop.ID != "unassigned-unmapped" {
		t.Fatalf("first row = %s, want the urgent stop", board.Rows[0].Stop.ID)
	}
}

func assertBadges(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("badges = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("badges = %v, want %v", got, want)
		}
	}
}

func TestAssembleBoardEmptyDay(t *testing.T) {
	mem := repositories.NewMemory()

	assembler := &DispatchViewAssembler{Stops: mem}
	board, err := assembler.Assemble(context.Background(), "t1", "2026-09-01")
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}

	if board.Total != 0 || len(board.Rows) != 0 {
		t.Fatalf("board = %+v, want empty", board)
	}
}
