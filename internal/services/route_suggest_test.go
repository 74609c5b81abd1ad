package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"dispatch-routing-service/internal/adapters/repositories"
	"dispatch-routing-service/internal/domain"
	"dispatch-routing-service/internal/ports"
)

func routeStop(id string, priority domain.DispatchPriority, lon, lat float64) *domain.ServiceStop {
	return &domain.ServiceStop{
		ID:            id,
		TenantID:      "t1",
		Priority:      priority,
		ServiceDate:   "2026-09-01",
		Coordinates:   &domain.Coordinates{Lon: lon, Lat: lat},
		GeocodeStatus: domain.Geocoded,
		CreatedAt:     time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
}

func suggestFilter() ports.StopFilter {
	return ports.StopFilter{TenantID: "t1", ServiceDate: "2026-09-01"}
}

func TestSuggestPriorityBeforeProximity(t *testing.T) {
	mem := repositories.NewMemory()

	// B and D are urgent but far; A and C are normal and close together.
	mem.PutStop(routeStop("A", domain.PriorityNormal, -112.00, 33.40))
	mem.PutStop(routeStop("B", domain.PriorityUrgent, -112.20, 33.60))
	mem.PutStop(routeStop("C", domain.PriorityNormal, -112.01, 33.41))
	mem.PutStop(routeStop("D", domain.PriorityUrgent, -112.21, 33.61))

	engine := &RouteSuggestionEngine{Stops: mem}
	suggestion, err := engine.Suggest(context.Background(), SuggestRequest{Filter: suggestFilter()})
	if err != nil {
		t.Fatalf("suggest: %v", err)
	}

	order := suggestion.OrderedStopIDs
	if len(order) != 4 {
		t.Fatalf("ordered %v, want all four stops", order)
	}

	// Every urgent stop precedes every normal stop regardless of distance.
	pos := map[string]int{}
	for i, id := range order {
		pos[id] = i
	}
	if pos["B"] > pos["A"] || pos["B"] > pos["C"] || pos["D"] > pos["A"] || pos["D"] > pos["C"] {
		t.Fatalf("urgent stops not first: %v", order)
	}
}

func TestSuggestUrgentWindowsBeforeNormalWindows(t *testing.T) {
	mem := repositories.NewMemory()

	a := routeStop("A", domain.PriorityUrgent, -112.00, 33.40)
	a.WindowStart = "09:00"
	b := routeStop("B", domain.PriorityNormal, -112.00, 33.40)
	b.WindowStart = "08:00"
	c := routeStop("C", domain.PriorityUrgent, -112.30, 33.70)
	c.WindowStart = "10:00"
	d := routeStop("D", domain.PriorityNormal, -112.00, 33.40)
	d.WindowStart = "07:00"

	mem.PutStop(a)
	mem.PutStop(b)
	mem.PutStop(c)
	mem.PutStop(d)

	engine := &RouteSuggestionEngine{Stops: mem}
	suggestion, err := engine.Suggest(context.Background(), SuggestRequest{Filter: suggestFilter()})
	if err != nil {
		t.Fatalf("suggest: %v", err)
	}

	pos := map[string]int{}
	for i, id := range suggestion.OrderedStopIDs {
		pos[id] = i
	}

	// Urgent stops precede normal ones even though the normal windows
	// open earlier in the day.
	for _, urgent := range []string{"A", "C"} {
		for _, normal := range []string{"B", "D"} {
			if pos[urgent] > pos[normal] {
				t.Fatalf("order = %v, want %s before %s", suggestion.OrderedStopIDs, urgent, normal)
			}
		}
	}
}

func TestSuggestGreedyNoWorseThanReverseOrder(t *testing.T) {
	mem := repositories.NewMemory()

	coords := []domain.Coordinates{
		{Lon: -112.00, Lat: 33.40},
		{Lon: -111.80, Lat: 33.55},
		{Lon: -111.95, Lat: 33.42},
		{Lon: -111.85, Lat: 33.50},
	}
	for i, c := range coords {
		mem.PutStop(routeStop(fmt.Sprintf("s%d", i), domain.PriorityNormal, c.Lon, c.Lat))
	}

	engine := &RouteSuggestionEngine{Stops: mem}
	suggestion, err := engine.Suggest(context.Background(), SuggestRequest{Filter: suggestFilter()})
	if err != nil {
		t.Fatalf("suggest: %v", err)
	}

	byID := map[string]domain.Coordinates{}
	for i, c := range coords {
		byID[fmt.Sprintf("s%d", i)] = c
	}

	pathLength := func(ids []string) float64 {
		total := 0.0
		for i := 1; i < len(ids); i++ {
			total += domain.HaversineMeters(byID[ids[i-1]], byID[ids[i]])
		}
		return total
	}

	reverse := make([]string, 0, len(coords))
	for i := len(coords) - 1; i >= 0; i-- {
		reverse = append(reverse, fmt.Sprintf("s%d", i))
	}

	if got, bound := pathLength(suggestion.OrderedStopIDs), pathLength(reverse); got > bound {
		t.Fatalf("greedy path %.0fm longer than reverse-order path %.0fm", got, bound)
	}
}

func TestSuggestGreedyNearestNeighbor(t *testing.T) {
	mem := repositories.NewMemory()

	// Three stops on a line west to east. Deterministic seed picks A
	// (earliest created/id), then the walk must take B before C.
	mem.PutStop(routeStop("A", domain.PriorityNormal, -112.00, 33.40))
	mem.PutStop(routeStop("B", domain.PriorityNormal, -111.90, 33.40))
	mem.PutStop(routeStop("C", domain.PriorityNormal, -111.80, 33.40))

	engine := &RouteSuggestionEngine{Stops: mem}
	suggestion, err := engine.Suggest(context.Background(), SuggestRequest{Filter: suggestFilter()})
	if err != nil {
		t.Fatalf("suggest: %v", err)
	}

	want := []string{"A", "B", "C"}
	for i, id := range want {
		if suggestion.OrderedStopIDs[i] != id {
			t.Fatalf("order = %v, want %v", suggestion.OrderedStopIDs, want)
		}
	}
}

func TestSuggestDeterministic(t *testing.T) {
	mem := repositories.NewMemory()
	for i := 0; i < 8; i++ {
		mem.PutStop(routeStop(fmt.Sprintf("s%d", i), domain.PriorityNormal, -112.0+float64(i)*0.01, 33.4))
	}

	engine := &RouteSuggestionEngine{Stops: mem}

	var first []string
	for run := 0; run < 3; run++ {
		suggestion, err := engine.Suggest(context.Background(), SuggestRequest{Filter: suggestFilter()})
		if err != nil {
			t.Fatalf("suggest: %v", err)
		}
		if run == 0 {
			first = suggestion.OrderedStopIDs
			continue
		}
		for i := range first {
			if suggestion.OrderedStopIDs[i] != first[i] {
				t.Fatalf("run %d order %v differs from %v", run, suggestion.OrderedStopIDs, first)
			}
		}
	}
}

func TestSuggestUnmappedAndCap(t *testing.T) {
	mem := repositories.NewMemory()

	mem.PutStop(routeStop("A", domain.PriorityNormal, -112.00, 33.40))
	mem.PutStop(routeStop("B", domain.PriorityNormal, -112.01, 33.41))
	mem.PutStop(routeStop("C", domain.PriorityNormal, -112.02, 33.42))
	mem.PutStop(&domain.ServiceStop{
		ID: "X", TenantID: "t1", ServiceDate: "2026-09-01",
		Priority: domain.PriorityUrgent, CreatedAt: time.Now().UTC(),
	})

	engine := &RouteSuggestionEngine{Stops: mem}
	suggestion, err := engine.Suggest(context.Background(), SuggestRequest{
		Filter:   suggestFilter(),
		MaxStops: 2,
	})
	if err != nil {
		t.Fatalf("suggest: %v", err)
	}

	if len(suggestion.OrderedStopIDs) != 2 {
		t.Fatalf("ordered %v, want 2 stops", suggestion.OrderedStopIDs)
	}
	if len(suggestion.SkippedStopIDs) != 1 {
		t.Fatalf("skipped %v, want 1", suggestion.SkippedStopIDs)
	}
	if len(suggestion.UnmappedIDs) != 1 || suggestion.UnmappedIDs[0] != "X" {
		t.Fatalf("unmapped %v, want [X]", suggestion.UnmappedIDs)
	}
}

func TestSuggestFallbackWithoutProvider(t *testing.T) {
	mem := repositories.NewMemory()
	mem.PutStop(routeStop("A", domain.PriorityNormal, -112.00, 33.40))
	mem.PutStop(routeStop("B", domain.PriorityNormal, -112.01, 33.41))

	engine := &RouteSuggestionEngine{Stops: mem}
	suggestion, err := engine.Suggest(context.Background(), SuggestRequest{Filter: suggestFilter()})
	if err != nil {
		t.Fatalf("suggest: %v", err)
	}

	if suggestion.ProviderConfigured {
		t.Fatalf("provider reported configured with nil Directions")
	}
	if suggestion.GeometryProvider != domain.GeometryProviderFallback {
		t.Fatalf("provider tag = %q, want fallback", suggestion.GeometryProvider)
	}
	if len(suggestion.Geometry) != 2 {
		t.Fatalf("geometry = %d points, want raw ordered coordinates", len(suggestion.Geometry))
	}
	if suggestion.TotalDistanceMeters != nil || suggestion.TotalDurationSeconds != nil {
		t.Fatalf("totals should be unknown on fallback geometry")
	}
}

func TestSuggestChunksWithBoundaryRepetition(t *testing.T) {
	mem := repositories.NewMemory()
	for i := 0; i < 30; i++ {
		mem.PutStop(routeStop(fmt.Sprintf("s%02d", i), domain.PriorityNormal, -112.0+float64(i)*0.01, 33.4))
	}

	directions := &fakeDirections{}
	engine := &RouteSuggestionEngine{Stops: mem, Directions: directions}

	suggestion, err := engine.Suggest(context.Background(), SuggestRequest{Filter: suggestFilter()})
	if err != nil {
		t.Fatalf("suggest: %v", err)
	}

	// 30 points split as [0:25] and [24:30].
	if len(directions.chunks) != 2 {
		t.Fatalf("provider calls = %d, want 2", len(directions.chunks))
	}
	if len(directions.chunks[0]) != 25 || len(directions.chunks[1]) != 6 {
		t.Fatalf("chunk sizes = %d/%d, want 25/6", len(directions.chunks[0]), len(directions.chunks[1]))
	}

	last := directions.chunks[0][24]
	first := directions.chunks[1][0]
	if last != first {
		t.Fatalf("chunk boundary not repeated: %v vs %v", last, first)
	}

	// The duplicated boundary point appears once in stitched geometry.
	if len(suggestion.Geometry) != 30 {
		t.Fatalf("geometry = %d points, want 30", len(suggestion.Geometry))
	}

	if suggestion.GeometryProvider != domain.GeometryProviderORS {
		t.Fatalf("provider tag = %q, want provider geometry", suggestion.GeometryProvider)
	}
	if suggestion.TotalDistanceMeters == nil || *suggestion.TotalDistanceMeters != 25*100+6*100 {
		t.Fatalf("total distance = %v, want sum of chunk totals", suggestion.TotalDistanceMeters)
	}
}

func TestSuggestDegradesOnChunkFailure(t *testing.T) {
	mem := repositories.NewMemory()
	for i := 0; i < 5; i++ {
		mem.PutStop(routeStop(fmt.Sprintf("s%d", i), domain.PriorityNormal, -112.0+float64(i)*0.01, 33.4))
	}

	directions := &fakeDirections{err: errors.New("upstream 502")}
	engine := &RouteSuggestionEngine{Stops: mem, Directions: directions}

	suggestion, err := engine.Suggest(context.Background(), SuggestRequest{Filter: suggestFilter()})
	if err != nil {
		t.Fatalf("suggest: %v", err)
	}

	if suggestion.GeometryProvider != domain.GeometryProviderFallback {
		t.Fatalf("provider tag = %q, want fallback after chunk failure", suggestion.GeometryProvider)
	}
	if !suggestion.ProviderConfigured {
		t.Fatalf("provider configured flag lost")
	}
	if suggestion.TotalDistanceMeters != nil {
		t.Fatalf("degraded suggestion should not report totals")
	}
	// Straight-line geometry still covers the ordered stops.
	if len(suggestion.Geometry) != 5 {
		t.Fatalf("geometry = %d points, want 5", len(suggestion.Geometry))
	}
}

func TestSuggestSingleStop(t *testing.T) {
	mem := repositories.NewMemory()
	mem.PutStop(routeStop("A", domain.PriorityNormal, -112.00, 33.40))

	directions := &fakeDirections{}
	engine := &RouteSuggestionEngine{Stops: mem, Directions: directions}

	suggestion, err := engine.Suggest(context.Background(), SuggestRequest{Filter: suggestFilter()})
	if err != nil {
		t.Fatalf("suggest: %v", err)
	}

	if len(directions.chunks) != 0 {
		t.Fatalf("provider called for a single point")
	}
	if len(suggestion.Geometry) != 1 {
		t.Fatalf("geometry = %d points, want 1", len(suggestion.Geometry))
	}
	if suggestion.TotalDistanceMeters == nil || *suggestion.TotalDistanceMeters != 0 {
		t.Fatalf("single-stop totals should be zero")
	}
}

func TestSuggestWindowOrderingWithinPriority(t *testing.T) {
	mem := repositories.NewMemory()

	early := routeStop("early", domain.PriorityNormal, -111.80, 33.40)
	early.WindowStart = "08:00"
	late := routeStop("late", domain.PriorityNormal, -112.00, 33.40)
	late.WindowStart = "14:00"
	none := routeStop("none", domain.PriorityNormal, -111.90, 33.40)

	mem.PutStop(late)
	mem.PutStop(early)
	mem.PutStop(none)

	engine := &RouteSuggestionEngine{Stops: mem}
	suggestion, err := engine.Suggest(context.Background(), SuggestRequest{Filter: suggestFilter()})
	if err != nil {
		t.Fatalf("suggest: %v", err)
	}

	want := []string{"early", "late", "none"}
	for i, id := range want {
		if suggestion.OrderedStopIDs[i] != id {
			t.Fatalf("order = %v, want %v", suggestion.OrderedStopIDs, want)
		}
	}
}
