package repositories

import (
	"database/sql"
	"errors"
	"fmt"
)

// Initialize the schema on a Postgres database. This is the dialect variant
// applied by the dbtool when DATABASE_URL points at an external store; the
// table set mirrors InitSchema.
func InitSchemaPostgres(db *sql.DB) error {
	if db == nil {
		return errors.New("init schema: DB is nil")
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	createDepotsQuery := `
	CREATE TABLE IF NOT EXISTS depots (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		lat DOUBLE PRECISION NOT NULL,
		lon DOUBLE PRECISION NOT NULL,
		open_min INTEGER NOT NULL DEFAULT 0,
		close_min INTEGER NOT NULL DEFAULT 1439
	);
	`

	createVehiclesQuery := `
	CREATE TABLE IF NOT EXISTS vehicles (
		id BIGSERIAL PRIMARY KEY,
		license_plate TEXT NOT NULL UNIQUE,
		driver_name TEXT NOT NULL DEFAULT '',
		capacity_weight_kg DOUBLE PRECISION NOT NULL,
		capacity_volume_m3 DOUBLE PRECISION NOT NULL,
		insulation TEXT NOT NULL DEFAULT 'STANDARD',
		door_type TEXT NOT NULL DEFAULT 'ROLL',
		has_curtain BOOLEAN NOT NULL DEFAULT FALSE,
		cooling_rate_per_min DOUBLE PRECISION NOT NULL DEFAULT 0,
		min_temp_c DOUBLE PRECISION NOT NULL DEFAULT -25,
		status TEXT NOT NULL DEFAULT 'AVAILABLE'
	);
	`

	createShipmentsQuery := `
	CREATE TABLE IF NOT EXISTS shipments (
		id BIGSERIAL PRIMARY KEY,
		customer_name TEXT NOT NULL,
		address TEXT NOT NULL DEFAULT '',
		lat DOUBLE PRECISION NOT NULL,
		lon DOUBLE PRECISION NOT NULL,
		weight_kg DOUBLE PRECISION NOT NULL,
		volume_m3 DOUBLE PRECISION NOT NULL,
		window1_start_min INTEGER NOT NULL,
		window1_end_min INTEGER NOT NULL,
		window2_start_min INTEGER,
		window2_end_min INTEGER,
		service_minutes INTEGER NOT NULL DEFAULT 10,
		temp_ceiling_c DOUBLE PRECISION NOT NULL,
		temp_floor_c DOUBLE PRECISION,
		sla_tier TEXT NOT NULL DEFAULT 'STANDARD',
		priority INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'PENDING',
		plan_date TEXT NOT NULL DEFAULT ''
	);
	`

	createJobsQuery := `
	CREATE TABLE IF NOT EXISTS jobs (
		id TEXT PRIMARY KEY,
		plan_date TEXT NOT NULL,
		state TEXT NOT NULL DEFAULT 'PENDING',
		progress INTEGER NOT NULL DEFAULT 0,
		depot_lat DOUBLE PRECISION NOT NULL,
		depot_lon DOUBLE PRECISION NOT NULL,
		departure_min INTEGER NOT NULL,
		ambient_temp_c DOUBLE PRECISION NOT NULL,
		initial_cargo_temp_c DOUBLE PRECISION NOT NULL,
		time_limit_seconds INTEGER NOT NULL,
		strategy TEXT NOT NULL,
		vehicle_count INTEGER NOT NULL DEFAULT 0,
		shipment_count INTEGER NOT NULL DEFAULT 0,
		created_at BIGINT NOT NULL,
		started_at BIGINT,
		finished_at BIGINT,
		error_kind TEXT NOT NULL DEFAULT '',
		error_message TEXT NOT NULL DEFAULT '',
		summary_json TEXT,
		violations_json TEXT
	);
	`

	createRoutesQuery := `
	CREATE TABLE IF NOT EXISTS routes (
		id BIGSERIAL PRIMARY KEY,
		job_id TEXT NOT NULL REFERENCES jobs(id),
		vehicle_id BIGINT NOT NULL,
		license_plate TEXT NOT NULL,
		driver_name TEXT NOT NULL DEFAULT '',
		route_code TEXT NOT NULL UNIQUE,
		plan_date TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'PLANNED',
		total_distance_m BIGINT NOT NULL,
		total_duration_min INTEGER NOT NULL,
		stop_count INTEGER NOT NULL,
		initial_temp_c DOUBLE PRECISION NOT NULL,
		final_temp_c DOUBLE PRECISION NOT NULL,
		max_temp_c DOUBLE PRECISION NOT NULL,
		is_feasible BOOLEAN NOT NULL DEFAULT TRUE,
		version INTEGER NOT NULL DEFAULT 1
	);
	`

	createStopsQuery := `
	CREATE TABLE IF NOT EXISTS stops (
		id BIGSERIAL PRIMARY KEY,
		route_id BIGINT NOT NULL REFERENCES routes(id) ON DELETE CASCADE,
		seq INTEGER NOT NULL,
		shipment_id BIGINT NOT NULL,
		customer_name TEXT NOT NULL,
		address TEXT NOT NULL DEFAULT '',
		lat DOUBLE PRECISION NOT NULL,
		lon DOUBLE PRECISION NOT NULL,
		arrival_min INTEGER NOT NULL,
		departure_min INTEGER NOT NULL,
		wait_min INTEGER NOT NULL DEFAULT 0,
		window_index INTEGER NOT NULL DEFAULT 0,
		distance_from_prev_m BIGINT NOT NULL,
		travel_min_from_prev INTEGER NOT NULL,
		service_min INTEGER NOT NULL,
		transit_rise_c DOUBLE PRECISION NOT NULL,
		service_rise_c DOUBLE PRECISION NOT NULL,
		cooling_applied_c DOUBLE PRECISION NOT NULL,
		arrival_temp_c DOUBLE PRECISION NOT NULL,
		departure_temp_c DOUBLE PRECISION NOT NULL,
		temp_ceiling_c DOUBLE PRECISION NOT NULL,
		is_feasible BOOLEAN NOT NULL DEFAULT TRUE,
		UNIQUE (route_id, seq)
	);
	`

	createLaborLogsQuery := `
	CREATE TABLE IF NOT EXISTS labor_logs (
		id BIGSERIAL PRIMARY KEY,
		vehicle_id BIGINT NOT NULL,
		plan_date TEXT NOT NULL,
		job_id TEXT NOT NULL,
		minutes INTEGER NOT NULL,
		UNIQUE (vehicle_id, plan_date, job_id)
	);
	`

	statements := []string{
		createDepotsQuery,
		createVehiclesQuery,
		createShipmentsQuery,
		createJobsQuery,
		createRoutesQuery,
		createStopsQuery,
		createLaborLogsQuery,
		`CREATE INDEX IF NOT EXISTS idx_jobs_state_date ON jobs(state, plan_date);`,
		`CREATE INDEX IF NOT EXISTS idx_routes_plan_date ON routes(plan_date);`,
		`CREATE INDEX IF NOT EXISTS idx_routes_job ON routes(job_id);`,
		`CREATE INDEX IF NOT EXISTS idx_stops_route ON stops(route_id);`,
		`CREATE INDEX IF NOT EXISTS idx_labor_vehicle_date ON labor_logs(vehicle_id, plan_date);`,
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
