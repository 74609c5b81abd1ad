package domain

import (
	"math"
	"testing"
)

func TestHaversineMeters(t *testing.T) {
	phoenix := Coordinates{Lon: -112.0740, Lat: 33.4484}
	tucson := Coordinates{Lon: -110.9747, Lat: 32.2226}

	d := HaversineMeters(phoenix, tucson)

	// Great-circle distance is about 172 km.
	if math.Abs(d-172000) > 5000 {
		t.Fatalf("distance = %.0fm, want about 172km", d)
	}

	if HaversineMeters(phoenix, phoenix) != 0 {
		t.Fatalf("distance to self should be zero")
	}

	if HaversineMeters(phoenix, tucson) != HaversineMeters(tucson, phoenix) {
		t.Fatalf("distance should be symmetric")
	}
}

func TestCoordsToList(t *testing.T) {
	c := Coordinates{Lon: -112.07, Lat: 33.45}
	got := c.CoordsToList()
	if got[0] != -112.07 || got[1] != 33.45 {
		t.Fatalf("got %v, want [lon lat]", got)
	}
}

func TestWindowStartMinutes(t *testing.T) {
	cases := []struct {
		clock string
		want  int
		ok    bool
	}{
		{"08:00", 480, true},
		{"00:00", 0, true},
		{"23:59", 1439, true},
		{" 14:30 ", 870, true},
		{"", 0, false},
		{"25:00", 0, false},
		{"8am", 0, false},
	}

	for _, tc := range cases {
		s := &ServiceStop{WindowStart: tc.clock}
		got, ok := s.WindowStartMinutes()
		if ok != tc.ok || got != tc.want {
			t.Fatalf("WindowStartMinutes(%q) = %d,%v, want %d,%v", tc.clock, got, ok, tc.want, tc.ok)
		}
	}
}

func TestPriorityBucket(t *testing.T) {
	order := []DispatchPriority{PriorityUrgent, PriorityHigh, PriorityNormal, PriorityLow}
	for i := 1; i < len(order); i++ {
		if order[i-1].Bucket() >= order[i].Bucket() {
			t.Fatalf("%s should rank before %s", order[i-1], order[i])
		}
	}

	if DispatchPriority("mystery").Bucket() != PriorityNormal.Bucket() {
		t.Fatalf("unknown priority should rank with normal")
	}
}
