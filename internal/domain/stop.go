package domain

import (
	"strconv"
	"strings"
	"time"
)

// DispatchPriority orders stops by business urgency.
type DispatchPriority string

const (
	PriorityLow    DispatchPriority = "low"
	PriorityNormal DispatchPriority = "normal"
	PriorityHigh   DispatchPriority = "high"
	PriorityUrgent DispatchPriority = "urgent"
)

// Bucket ranks urgent=0 .. low=3 so ascending sort puts urgent first.
// Unknown values sort with normal.
func (p DispatchPriority) Bucket() int {
	switch p {
	case PriorityUrgent:
		return 0
	case PriorityHigh:
		return 1
	case PriorityLow:
		return 3
	default:
		return 2
	}
}

// GeocodeStatus tracks the outcome of the most recent geocoding attempt
// for a stop.
type GeocodeStatus string

const (
	GeocodePending        GeocodeStatus = "pending"
	GeocodeMissingAddress GeocodeStatus = "missing_address"
	Geocoded              GeocodeStatus = "geocoded"
	GeocodeFailed         GeocodeStatus = "failed"
)

// AddressFields is one layer of the address fallback chain. Any field may
// be blank; blank fields fall through to the next source.
type AddressFields struct {
	Street     string
	Line2      string
	City       string
	State      string
	PostalCode string
}

// IsEmpty reports whether no field carries a value.
func (a AddressFields) IsEmpty() bool {
	return strings.TrimSpace(a.Street) == "" &&
		strings.TrimSpace(a.Line2) == "" &&
		strings.TrimSpace(a.City) == "" &&
		strings.TrimSpace(a.State) == "" &&
		strings.TrimSpace(a.PostalCode) == ""
}

// ServiceStop is a single service visit requiring geocoding and inclusion
// in a dispatch route. Address fields are stop-level overrides; the booking
// subsystem owns everything except the geocode result columns and the
// manual dispatch sequence.
type ServiceStop struct {
	ID          string
	TenantID    string
	Priority    DispatchPriority
	ServiceDate string // YYYY-MM-DD

	// Optional requested service window, "HH:MM" local time.
	WindowStart string
	WindowEnd   string

	// Dispatcher-entered ordering; nil when the suggestion engine decides.
	ManualSequence *int

	CreatedAt time.Time

	Address    AddressFields
	CustomerID string
	QuoteID    string

	Coordinates     *Coordinates
	GeocodeStatus   GeocodeStatus
	GeocodedAt      *time.Time
	GeocodeProvider string
}

// HasCoordinates reports whether the stop carries a usable pin.
func (s *ServiceStop) HasCoordinates() bool { return s.Coordinates != nil }

// WindowStartMinutes parses the window start as minutes after midnight.
// The second return is false when no window is set or it fails to parse.
func (s *ServiceStop) WindowStartMinutes() (int, bool) {
	return parseClockMinutes(s.WindowStart)
}

func parseClockMinutes(clock string) (int, bool) {
	clock = strings.TrimSpace(clock)
	if clock == "" {
		return 0, false
	}

	parts := strings.SplitN(clock, ":", 2)
	if len(parts) != 2 {
		return 0, false
	}

	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, false
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, false
	}

	return h*60 + m, true
}

// CustomerProfile is an external collaborator record consulted only as an
// address fallback source.
type CustomerProfile struct {
	ID      string
	Address AddressFields
}

// QuoteRecord is an external collaborator record consulted only as an
// address fallback source.
type QuoteRecord struct {
	ID      string
	Address AddressFields
}

// StopContext bundles a stop with its fallback address sources for one read.
type StopContext struct {
	Stop     *ServiceStop
	Customer *CustomerProfile
	Quote    *QuoteRecord
}
