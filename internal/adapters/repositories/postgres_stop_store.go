package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"dispatch-routing-service/internal/domain"
	"dispatch-routing-service/internal/platform/obs"
	"dispatch-routing-service/internal/ports"
)

// Postgres-backed implementation of the StopStore port.
//
// The booking subsystem owns stop rows; this store only reads them and
// writes the geocode result columns and the manual dispatch sequence.
type PostgresStopStore struct {
	DB *sql.DB
}

func NewPostgresStopStore(db *sql.DB) *PostgresStopStore {
	return &PostgresStopStore{DB: db}
}

const stopColumns = `
	id::text, tenant_id, priority, to_char(service_date, 'YYYY-MM-DD'),
	COALESCE(window_start, ''), COALESCE(window_end, ''), manual_sequence,
	created_at,
	COALESCE(street, ''), COALESCE(line2, ''), COALESCE(city, ''),
	COALESCE(state, ''), COALESCE(postal_code, ''),
	COALESCE(customer_id, ''), COALESCE(quote_id, ''),
	lat, lon, geocode_status, geocoded_at, COALESCE(geocode_provider, '')`

func scanStop(scan func(...any) error) (*domain.ServiceStop, error) {
	var (
		s          domain.ServiceStop
		seq        sql.NullInt64
		lat, lon   sql.NullFloat64
		geocodedAt sql.NullTime
	)

	err := scan(
		&s.ID, &s.TenantID, &s.Priority, &s.ServiceDate,
		&s.WindowStart, &s.WindowEnd, &seq,
		&s.CreatedAt,
		&s.Address.Street, &s.Address.Line2, &s.Address.City,
		&s.Address.State, &s.Address.PostalCode,
		&s.CustomerID, &s.QuoteID,
		&lat, &lon, &s.GeocodeStatus, &geocodedAt, &s.GeocodeProvider,
	)
	if err != nil {
		return nil, err
	}

	if seq.Valid {
		n := int(seq.Int64)
		s.ManualSequence = &n
	}
	if lat.Valid && lon.Valid {
		s.Coordinates = &domain.Coordinates{Lat: lat.Float64, Lon: lon.Float64}
	}
	if geocodedAt.Valid {
		t := geocodedAt.Time
		s.GeocodedAt = &t
	}
	return &s, nil
}

func (p *PostgresStopStore) ListStops(ctx context.Context, f ports.StopFilter) (_ []*domain.ServiceStop, err error) {
	defer obs.Time(ctx, "stops.ListStops")(&err)

	where := []string{"s.tenant_id = $1"}
	args := []any{f.TenantID}

	if f.ServiceDate != "" {
		args = append(args, f.ServiceDate)
		where = append(where, "s.service_date = $"+strconv.Itoa(len(args)))
	}
	if f.Priority != "" {
		args = append(args, string(f.Priority))
		where = append(where, "s.priority = $"+strconv.Itoa(len(args)))
	}
	if f.CleanerID != "" {
		args = append(args, f.CleanerID)
		where = append(where, "EXISTS (SELECT 1 FROM stop_assignments a WHERE a.stop_id = s.id AND a.cleaner_id = $"+strconv.Itoa(len(args))+")")
	}
	if f.Assigned != nil {
		clause := "EXISTS (SELECT 1 FROM stop_assignments a WHERE a.stop_id = s.id)"
		if !*f.Assigned {
			clause = "NOT " + clause
		}
		where = append(where, clause)
	}

	q := `SELECT ` + stopColumns + `
	FROM service_stops s
	WHERE ` + strings.Join(where, " AND ") + `
	ORDER BY s.created_at, s.id;`

	rows, err := p.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list stops: query service_stops: %w", err)
	}
	defer rows.Close()

	return collectStops(rows)
}

func (p *PostgresStopStore) ListRecentStops(ctx context.Context, tenantID string, limit int) (_ []*domain.ServiceStop, err error) {
	defer obs.Time(ctx, "stops.ListRecentStops")(&err)

	q := `SELECT ` + stopColumns + `
	FROM service_stops s
	WHERE s.tenant_id = $1
	ORDER BY s.created_at DESC, s.id
	LIMIT $2;`

	rows, err := p.DB.QueryContext(ctx, q, tenantID, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent stops: query service_stops: %w", err)
	}
	defer rows.Close()

	return collectStops(rows)
}

func collectStops(rows *sql.Rows) ([]*domain.ServiceStop, error) {
	stops := make([]*domain.ServiceStop, 0, 64)
	for rows.Next() {
		s, err := scanStop(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan stop row: %w", err)
		}
		stops = append(stops, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("stop row iteration: %w", err)
	}
	return stops, nil
}

func (p *PostgresStopStore) GetStopContext(ctx context.Context, tenantID, stopID string) (domain.StopContext, error) {
	q := `SELECT ` + stopColumns + `
	FROM service_stops s
	WHERE s.tenant_id = $1 AND s.id = $2;`

	row := p.DB.QueryRowContext(ctx, q, tenantID, stopID)
	stop, err := scanStop(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.StopContext{}, ports.ErrNotFound
	}
	if err != nil {
		return domain.StopContext{}, fmt.Errorf("get stop context: scan stop %q: %w", stopID, err)
	}

	out := domain.StopContext{Stop: stop}

	if stop.CustomerID != "" {
		c := domain.CustomerProfile{ID: stop.CustomerID}
		err := p.DB.QueryRowContext(ctx, `
		SELECT COALESCE(street,''), COALESCE(line2,''), COALESCE(city,''), COALESCE(state,''), COALESCE(postal_code,'')
		FROM customer_profiles WHERE id = $1;`, stop.CustomerID).
			Scan(&c.Address.Street, &c.Address.Line2, &c.Address.City, &c.Address.State, &c.Address.PostalCode)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return domain.StopContext{}, fmt.Errorf("get stop context: load customer %q: %w", stop.CustomerID, err)
		}
		if err == nil {
			out.Customer = &c
		}
	}

	if stop.QuoteID != "" {
		qr := domain.QuoteRecord{ID: stop.QuoteID}
		err := p.DB.QueryRowContext(ctx, `
		SELECT COALESCE(street,''), COALESCE(line2,''), COALESCE(city,''), COALESCE(state,''), COALESCE(postal_code,'')
		FROM quote_records WHERE id = $1;`, stop.QuoteID).
			Scan(&qr.Address.Street, &qr.Address.Line2, &qr.Address.City, &qr.Address.State, &qr.Address.PostalCode)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return domain.StopContext{}, fmt.Errorf("get stop context: load quote %q: %w", stop.QuoteID, err)
		}
		if err == nil {
			out.Quote = &qr
		}
	}

	return out, nil
}

func (p *PostgresStopStore) UpdateStopGeocode(ctx context.Context, tenantID, stopID string, upd ports.GeocodeUpdate) error {
	var res sql.Result
	var err error

	// Failed attempts only touch status and timestamp; the last-known-good
	// pin stays in place.
	if upd.Coordinates != nil {
		res, err = p.DB.ExecContext(ctx, `
		UPDATE service_stops
		SET lat = $3, lon = $4, geocode_status = $5, geocode_provider = $6, geocoded_at = $7
		WHERE tenant_id = $1 AND id = $2;`,
			tenantID, stopID, upd.Coordinates.Lat, upd.Coordinates.Lon,
			string(upd.Status), upd.Provider, upd.GeocodedAt)
	} else {
		res, err = p.DB.ExecContext(ctx, `
		UPDATE service_stops
		SET geocode_status = $3, geocoded_at = $4
		WHERE tenant_id = $1 AND id = $2;`,
			tenantID, stopID, string(upd.Status), upd.GeocodedAt)
	}
	if err != nil {
		return fmt.Errorf("update stop geocode: stop %q: %w", stopID, err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ports.ErrNotFound
	}
	return nil
}

func (p *PostgresStopStore) SetManualSequence(ctx context.Context, tenantID, stopID string, seq int) error {
	res, err := p.DB.ExecContext(ctx, `
	UPDATE service_stops SET manual_sequence = $3 WHERE tenant_id = $1 AND id = $2;`,
		tenantID, stopID, seq)
	if err != nil {
		return fmt.Errorf("set manual sequence: stop %q: %w", stopID, err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ports.ErrNotFound
	}
	return nil
}

func (p *PostgresStopStore) ListStopSummaries(ctx context.Context, tenantID, serviceDate string) (map[string]domain.StopSummary, error) {
	out := map[string]domain.StopSummary{}

	rows, err := p.DB.QueryContext(ctx, `
	SELECT a.stop_id::text, a.cleaner_id, COALESCE(a.status, '')
	FROM stop_assignments a
	JOIN service_stops s ON s.id = a.stop_id
	WHERE s.tenant_id = $1 AND s.service_date = $2;`, tenantID, serviceDate)
	if err != nil {
		return nil, fmt.Errorf("list stop summaries: query assignments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var stopID, cleanerID, status string
		if err := rows.Scan(&stopID, &cleanerID, &status); err != nil {
			return nil, fmt.Errorf("list stop summaries: scan assignment: %w", err)
		}
		summary := out[stopID]
		summary.StopID = stopID
		summary.AssignedCleaners++
		summary.CleanerIDs = append(summary.CleanerIDs, cleanerID)
		summary.AssignmentStatus = status
		out[stopID] = summary
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list stop summaries: assignment iteration: %w", err)
	}

	checkRows, err := p.DB.QueryContext(ctx, `
	SELECT c.stop_id::text, c.items, c.completed
	FROM stop_checklists c
	JOIN service_stops s ON s.id = c.stop_id
	WHERE s.tenant_id = $1 AND s.service_date = $2;`, tenantID, serviceDate)
	if err != nil {
		return nil, fmt.Errorf("list stop summaries: query checklists: %w", err)
	}
	defer checkRows.Close()

	for checkRows.Next() {
		var stopID string
		var items, completed int
		if err := checkRows.Scan(&stopID, &items, &completed); err != nil {
			return nil, fmt.Errorf("list stop summaries: scan checklist: %w", err)
		}
		summary := out[stopID]
		summary.StopID = stopID
		summary.ChecklistItems = items
		summary.ChecklistCompleted = completed
		out[stopID] = summary
	}
	if err := checkRows.Err(); err != nil {
		return nil, fmt.Errorf("list stop summaries: checklist iteration: %w", err)
	}

	return out, nil
}
