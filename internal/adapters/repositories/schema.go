package repositories

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Initialize the Postgres schema.
func InitSchema(db *sql.DB) error {
	if db == nil {
		return errors.New("init schema: DB is nil")
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	createStopsQuery := `
	CREATE TABLE IF NOT EXISTS service_stops (
		id UUID PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		priority TEXT NOT NULL DEFAULT 'normal',
		service_date DATE NOT NULL,
		window_start TEXT,
		window_end TEXT,
		manual_sequence INT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		street TEXT,
		line2 TEXT,
		city TEXT,
		state TEXT,
		postal_code TEXT,
		customer_id TEXT,
		quote_id TEXT,
		lat DOUBLE PRECISION,
		lon DOUBLE PRECISION,
		geocode_status TEXT NOT NULL DEFAULT 'pending',
		geocoded_at TIMESTAMPTZ,
		geocode_provider TEXT
	);
	`

	createJobsQuery := `
	CREATE TABLE IF NOT EXISTS geocode_jobs (
		id UUID PRIMARY KEY,
		stop_id UUID NOT NULL,
		tenant_id TEXT NOT NULL,
		status TEXT NOT NULL,
		attempts INT NOT NULL DEFAULT 0,
		next_attempt_at TIMESTAMPTZ NOT NULL,
		address_line TEXT,
		address_hash TEXT,
		last_error TEXT,
		reason TEXT,
		locked_at TIMESTAMPTZ,
		completed_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	`

	createCustomersQuery := `
	CREATE TABLE IF NOT EXISTS customer_profiles (
		id TEXT PRIMARY KEY,
		street TEXT, line2 TEXT, city TEXT, state TEXT, postal_code TEXT
	);
	`

	createQuotesQuery := `
	CREATE TABLE IF NOT EXISTS quote_records (
		id TEXT PRIMARY KEY,
		street TEXT, line2 TEXT, city TEXT, state TEXT, postal_code TEXT
	);
	`

	createAssignmentsQuery := `
	CREATE TABLE IF NOT EXISTS stop_assignments (
		stop_id UUID NOT NULL,
		cleaner_id TEXT NOT NULL,
		status TEXT,
		PRIMARY KEY (stop_id, cleaner_id)
	);
	`

	createChecklistsQuery := `
	CREATE TABLE IF NOT EXISTS stop_checklists (
		stop_id UUID PRIMARY KEY,
		items INT NOT NULL DEFAULT 0,
		completed INT NOT NULL DEFAULT 0
	);
	`

	statements := []string{
		createStopsQuery,
		createJobsQuery,
		createCustomersQuery,
		createQuotesQuery,
		createAssignmentsQuery,
		createChecklistsQuery,
		`CREATE INDEX IF NOT EXISTS idx_stops_tenant_date
		ON service_stops (tenant_id, service_date);`,
		`CREATE INDEX IF NOT EXISTS idx_stops_tenant_recent
		ON service_stops (tenant_id, created_at DESC);`,
		// The partial unique index backs the one-active-job-per-stop
		// invariant at the storage layer; enqueue enforces it in
		// application code too.
		`CREATE UNIQUE INDEX IF NOT EXISTS uniq_active_job_per_stop
		ON geocode_jobs (stop_id) WHERE status IN ('queued', 'retry', 'processing');`,
		`CREATE INDEX IF NOT EXISTS idx_jobs_due
		ON geocode_jobs (tenant_id, status, next_attempt_at);`,
	}

	for i, stmt := range statements {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}

	return nil
}

type StopSeed struct {
	ID          string `json:"id"`
	TenantID    string `json:"tenant_id"`
	Priority    string `json:"priority"`
	ServiceDate string `json:"service_date"`
	WindowStart string `json:"window_start"`
	WindowEnd   string `json:"window_end"`
	Street      string `json:"street"`
	Line2       string `json:"line2"`
	City        string `json:"city"`
	State       string `json:"state"`
	PostalCode  string `json:"postal_code"`
	CustomerID  string `json:"customer_id"`
	QuoteID     string `json:"quote_id"`
}

// Populate the database with stop data from a JSON file for local runs.
func SeedFromJSON(db *sql.DB, jsonPath string) error {
	bytes, err := os.ReadFile(jsonPath)
	if err != nil {
		return fmt.Errorf("seed stops: read %q: %w", jsonPath, err)
	}

	var data []StopSeed
	if err := json.Unmarshal(bytes, &data); err != nil {
		return fmt.Errorf("seed stops: parse json: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("seed stops: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `
	INSERT INTO service_stops (
		id, tenant_id, priority, service_date, window_start, window_end,
		street, line2, city, state, postal_code, customer_id, quote_id, created_at
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	ON CONFLICT (id) DO NOTHING;
	`
	stmt, err := tx.Prepare(query)
	if err != nil {
		return fmt.Errorf("seed stops: prepare insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for i, s := range data {
		if s.ID == "" {
			s.ID = uuid.New().String()
		}
		if strings.TrimSpace(s.TenantID) == "" {
			return fmt.Errorf("seed stops: item at index %d: tenant_id cannot be empty", i+1)
		}
		if s.Priority == "" {
			s.Priority = "normal"
		}

		_, err := stmt.Exec(
			s.ID, s.TenantID, s.Priority, s.ServiceDate,
			nullIfEmpty(s.WindowStart), nullIfEmpty(s.WindowEnd),
			nullIfEmpty(s.Street), nullIfEmpty(s.Line2), nullIfEmpty(s.City),
			nullIfEmpty(s.State), nullIfEmpty(s.PostalCode),
			nullIfEmpty(s.CustomerID), nullIfEmpty(s.QuoteID), now,
		)
		if err != nil {
			return fmt.Errorf("seed stops: insert stop id=%s: %w", s.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed stops: commit tx: %w", err)
	}

	return nil
}

func nullIfEmpty(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}
