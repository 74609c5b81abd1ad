package services

import (
	"context"
	"fmt"
	"math"
	"slices"
	"sort"

	"dispatch-routing-service/internal/domain"
	"dispatch-routing-service/internal/platform/metrics"
	"dispatch-routing-service/internal/platform/obs"
	"dispatch-routing-service/internal/ports"
)

const (
	// DefaultMaxStops bounds a suggestion when the caller does not.
	DefaultMaxStops = 80
	// HardMaxStops is the absolute cap regardless of request.
	HardMaxStops = 150

	// Directions provider request-size limit: at most 25 points per chunk,
	// with the boundary coordinate repeated across chunks.
	maxChunkPoints = 25

	// Window buckets are two-hour slices of the day; stops without a
	// window sort after all numbered buckets.
	windowBucketMinutes = 120
	noWindowBucket      = math.MaxInt32
)

// SuggestRequest scopes one route-suggestion computation.
type SuggestRequest struct {
	Filter   ports.StopFilter
	MaxStops int
}

// RouteSuggestionEngine orders a day's mapped stops by business priority and
// time window, chains them with a greedy nearest-neighbor walk, and stitches
// road geometry from the directions provider.
//
// The computation is stateless and re-derived on every call; it never
// mutates stored stop data. The design prioritizes determinism and
// simplicity over optimality (no VRP solving).
type RouteSuggestionEngine struct {
	Stops ports.StopStore

	// Directions is nil when no provider credential is configured; the
	// engine then degrades to straight-line geometry.
	Directions ports.DirectionsProvider
}

type bucketKey struct {
	priority int
	window   int
}

// Suggest computes the visiting order and route geometry for the filtered
// stop set. Partial data never fails the request: uncapped or unmapped
// stops are reported via the skipped/unmapped lists.
func (e *RouteSuggestionEngine) Suggest(ctx context.Context, req SuggestRequest) (_ *domain.RouteSuggestion, err error) {
	defer obs.Time(ctx, "route.Suggest")(&err)

	stops, err := e.Stops.ListStops(ctx, req.Filter)
	if err != nil {
		return nil, fmt.Errorf("suggest route: list stops: %w", err)
	}

	maxStops := req.MaxStops
	if maxStops <= 0 {
		maxStops = DefaultMaxStops
	}
	if maxStops > HardMaxStops {
		maxStops = HardMaxStops
	}

	suggestion := &domain.RouteSuggestion{
		OrderedStopIDs:     []string{},
		SkippedStopIDs:     []string{},
		UnmappedIDs:        []string{},
		Geometry:           []domain.Coordinates{},
		ProviderConfigured: e.Directions != nil,
	}

	// Partition in input order: unmapped stops are reported, mapped stops
	// beyond the cap are skipped.
	candidates := make([]*domain.ServiceStop, 0, len(stops))
	for _, s := range stops {
		if !s.HasCoordinates() {
			suggestion.UnmappedIDs = append(suggestion.UnmappedIDs, s.ID)
			continue
		}
		if len(candidates) >= maxStops {
			suggestion.SkippedStopIDs = append(suggestion.SkippedStopIDs, s.ID)
			continue
		}
		candidates = append(candidates, s)
	}

	ordered := chainStops(candidates)
	for _, s := range ordered {
		suggestion.OrderedStopIDs = append(suggestion.OrderedStopIDs, s.ID)
	}

	if err := e.buildGeometry(ctx, suggestion, ordered); err != nil {
		return nil, err
	}

	metrics.RouteSuggestions.WithLabelValues(suggestion.GeometryProvider).Inc()
	return suggestion, nil
}

// chainStops orders candidates bucket by bucket with a greedy
// nearest-neighbor walk. Buckets are (priority, two-hour window slice),
// ascending, windowless last; the walk carries its anchor point across
// bucket boundaries so consecutive buckets stay geographically coherent.
func chainStops(candidates []*domain.ServiceStop) []*domain.ServiceStop {
	buckets := make(map[bucketKey][]*domain.ServiceStop)
	for _, s := range candidates {
		key := bucketKey{priority: s.Priority.Bucket(), window: noWindowBucket}
		if start, ok := s.WindowStartMinutes(); ok {
			key.window = start / windowBucketMinutes
		}
		buckets[key] = append(buckets[key], s)
	}

	keys := make([]bucketKey, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b bucketKey) int {
		if a.priority != b.priority {
			return a.priority - b.priority
		}
		return a.window - b.window
	})

	ordered := make([]*domain.ServiceStop, 0, len(candidates))
	var anchor *domain.Coordinates

	for _, key := range keys {
		members := buckets[key]
		// Pre-sorting by the deterministic tie order makes every
		// nearest-pick below break distance ties identically.
		sort.SliceStable(members, func(i, j int) bool { return tieLess(members[i], members[j]) })

		for len(members) > 0 {
			pick := 0
			if anchor != nil {
				best := math.MaxFloat64
				for i, m := range members {
					d := domain.HaversineMeters(*anchor, *m.Coordinates)
					if d < best {
						best = d
						pick = i
					}
				}
			}

			next := members[pick]
			members = append(members[:pick], members[pick+1:]...)
			ordered = append(ordered, next)
			anchor = next.Coordinates
		}
	}

	return ordered
}

// tieLess is the deterministic ordering used to seed the walk and break
// distance ties: priority, window start (windowless last), manual sequence
// (unset last), creation time, id.
func tieLess(a, b *domain.ServiceStop) bool {
	if pa, pb := a.Priority.Bucket(), b.Priority.Bucket(); pa != pb {
		return pa < pb
	}

	wa, aok := a.WindowStartMinutes()
	wb, bok := b.WindowStartMinutes()
	if aok != bok {
		return aok
	}
	if aok && wa != wb {
		return wa < wb
	}

	switch {
	case a.ManualSequence != nil && b.ManualSequence != nil:
		if *a.ManualSequence != *b.ManualSequence {
			return *a.ManualSequence < *b.ManualSequence
		}
	case a.ManualSequence != nil:
		return true
	case b.ManualSequence != nil:
		return false
	}

	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

// buildGeometry fills the stitched coordinate sequence and totals.
func (e *RouteSuggestionEngine) buildGeometry(ctx context.Context, suggestion *domain.RouteSuggestion, ordered []*domain.ServiceStop) error {
	points := make([]domain.Coordinates, 0, len(ordered))
	for _, s := range ordered {
		points = append(points, *s.Coordinates)
	}

	if len(points) <= 1 {
		zero := 0.0
		suggestion.Geometry = points
		suggestion.TotalDistanceMeters = &zero
		suggestion.TotalDurationSeconds = &zero
		suggestion.GeometryProvider = domain.GeometryProviderFallback
		if e.Directions != nil {
			suggestion.GeometryProvider = domain.GeometryProviderORS
		}
		return nil
	}

	if e.Directions == nil {
		// No credential configured: raw ordered coordinates as a
		// straight-line path, metrics unknown.
		suggestion.Geometry = points
		suggestion.GeometryProvider = domain.GeometryProviderFallback
		return nil
	}

	var (
		geometry      []domain.Coordinates
		totalDistance float64
		totalDuration float64
		degraded      bool
	)

	// Chunks run strictly sequentially: provider size limits, and each
	// chunk's stitching depends on the previous chunk's final coordinate.
	for start := 0; start < len(points)-1; {
		end := start + maxChunkPoints
		if end > len(points) {
			end = len(points)
		}
		chunk := points[start:end]

		leg, err := e.Directions.Route(ctx, chunk)
		if err != nil || leg == nil {
			// Degrade this segment to a straight line rather than
			// failing the whole suggestion.
			degraded = true
			geometry = appendStitched(geometry, chunk)
		} else {
			geometry = appendStitched(geometry, leg.Geometry)
			totalDistance += leg.DistanceMeters
			totalDuration += leg.DurationSeconds
		}

		// The next chunk repeats this chunk's final coordinate as its
		// first point to preserve path continuity.
		start = end - 1
	}

	suggestion.Geometry = geometry
	if degraded {
		suggestion.GeometryProvider = domain.GeometryProviderFallback
		return nil
	}

	suggestion.GeometryProvider = domain.GeometryProviderORS
	suggestion.TotalDistanceMeters = &totalDistance
	suggestion.TotalDurationSeconds = &totalDuration
	return nil
}

// appendStitched joins chunk geometry, dropping a duplicated boundary
// coordinate between consecutive chunks.
func appendStitched(geometry, chunk []domain.Coordinates) []domain.Coordinates {
	if len(geometry) > 0 && len(chunk) > 0 && geometry[len(geometry)-1] == chunk[0] {
		chunk = chunk[1:]
	}
	return append(geometry, chunk...)
}
