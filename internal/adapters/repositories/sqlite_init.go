package repositories

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"coldchain-dispatch-service/internal/domain"
)

// Initialize the SQLite database schema.
func InitSchema(db *sql.DB) error {
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
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		lat REAL NOT NULL,
		lon REAL NOT NULL,
		open_min INTEGER NOT NULL DEFAULT 0,
		close_min INTEGER NOT NULL DEFAULT 1439
	);
	`

	createVehiclesQuery := `
	CREATE TABLE IF NOT EXISTS vehicles (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		license_plate TEXT NOT NULL UNIQUE,
		driver_name TEXT NOT NULL DEFAULT '',
		capacity_weight_kg REAL NOT NULL,
		capacity_volume_m3 REAL NOT NULL,
		insulation TEXT NOT NULL DEFAULT 'STANDARD',
		door_type TEXT NOT NULL DEFAULT 'ROLL',
		has_curtain INTEGER NOT NULL DEFAULT 0,
		cooling_rate_per_min REAL NOT NULL DEFAULT 0,
		min_temp_c REAL NOT NULL DEFAULT -25,
		status TEXT NOT NULL DEFAULT 'AVAILABLE'
	);
	`

	createShipmentsQuery := `
	CREATE TABLE IF NOT EXISTS shipments (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		customer_name TEXT NOT NULL,
		address TEXT NOT NULL DEFAULT '',
		lat REAL NOT NULL,
		lon REAL NOT NULL,
		weight_kg REAL NOT NULL,
		volume_m3 REAL NOT NULL,
		window1_start_min INTEGER NOT NULL,
		window1_end_min INTEGER NOT NULL,
		window2_start_min INTEGER,
		window2_end_min INTEGER,
		service_minutes INTEGER NOT NULL DEFAULT 10,
		temp_ceiling_c REAL NOT NULL,
		temp_floor_c REAL,
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
		depot_lat REAL NOT NULL,
		depot_lon REAL NOT NULL,
		departure_min INTEGER NOT NULL,
		ambient_temp_c REAL NOT NULL,
		initial_cargo_temp_c REAL NOT NULL,
		time_limit_seconds INTEGER NOT NULL,
		strategy TEXT NOT NULL,
		vehicle_count INTEGER NOT NULL DEFAULT 0,
		shipment_count INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL,
		started_at INTEGER,
		finished_at INTEGER,
		error_kind TEXT NOT NULL DEFAULT '',
		error_message TEXT NOT NULL DEFAULT '',
		summary_json TEXT,
		violations_json TEXT
	);
	`

	createRoutesQuery := `
	CREATE TABLE IF NOT EXISTS routes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		job_id TEXT NOT NULL REFERENCES jobs(id),
		vehicle_id INTEGER NOT NULL,
		license_plate TEXT NOT NULL,
		driver_name TEXT NOT NULL DEFAULT '',
		route_code TEXT NOT NULL UNIQUE,
		plan_date TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'PLANNED',
		total_distance_m INTEGER NOT NULL,
		total_duration_min INTEGER NOT NULL,
		stop_count INTEGER NOT NULL,
		initial_temp_c REAL NOT NULL,
		final_temp_c REAL NOT NULL,
		max_temp_c REAL NOT NULL,
		is_feasible INTEGER NOT NULL DEFAULT 1,
		version INTEGER NOT NULL DEFAULT 1
	);
	`

	createStopsQuery := `
	CREATE TABLE IF NOT EXISTS stops (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		route_id INTEGER NOT NULL REFERENCES routes(id) ON DELETE CASCADE,
		seq INTEGER NOT NULL,
		shipment_id INTEGER NOT NULL,
		customer_name TEXT NOT NULL,
		address TEXT NOT NULL DEFAULT '',
		lat REAL NOT NULL,
		lon REAL NOT NULL,
		arrival_min INTEGER NOT NULL,
		departure_min INTEGER NOT NULL,
		wait_min INTEGER NOT NULL DEFAULT 0,
		window_index INTEGER NOT NULL DEFAULT 0,
		distance_from_prev_m INTEGER NOT NULL,
		travel_min_from_prev INTEGER NOT NULL,
		service_min INTEGER NOT NULL,
		transit_rise_c REAL NOT NULL,
		service_rise_c REAL NOT NULL,
		cooling_applied_c REAL NOT NULL,
		arrival_temp_c REAL NOT NULL,
		departure_temp_c REAL NOT NULL,
		temp_ceiling_c REAL NOT NULL,
		is_feasible INTEGER NOT NULL DEFAULT 1,
		UNIQUE (route_id, seq)
	);
	`

	createLaborLogsQuery := `
	CREATE TABLE IF NOT EXISTS labor_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		vehicle_id INTEGER NOT NULL,
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

type DepotSeed struct {
	Name     string  `json:"name"`
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	OpenMin  int     `json:"open_min"`
	CloseMin int     `json:"close_min"`
}

type VehicleSeed struct {
	LicensePlate      string  `json:"license_plate"`
	DriverName        string  `json:"driver_name"`
	CapacityWeightKg  float64 `json:"capacity_weight_kg"`
	CapacityVolumeM3  float64 `json:"capacity_volume_m3"`
	Insulation        string  `json:"insulation"`
	DoorType          string  `json:"door_type"`
	HasCurtain        bool    `json:"has_curtain"`
	CoolingRatePerMin float64 `json:"cooling_rate_per_min"`
	MinTempC          float64 `json:"min_temp_c"`
}

type ShipmentSeed struct {
	CustomerName   string   `json:"customer_name"`
	Address        string   `json:"address"`
	Lat            float64  `json:"lat"`
	Lon            float64  `json:"lon"`
	WeightKg       float64  `json:"weight_kg"`
	VolumeM3       float64  `json:"volume_m3"`
	Window1Start   int      `json:"window1_start_min"`
	Window1End     int      `json:"window1_end_min"`
	Window2Start   *int     `json:"window2_start_min"`
	Window2End     *int     `json:"window2_end_min"`
	ServiceMinutes int      `json:"service_minutes"`
	TempCeilingC   float64  `json:"temp_ceiling_c"`
	TempFloorC     *float64 `json:"temp_floor_c"`
	SLATier        string   `json:"sla_tier"`
	Priority       int      `json:"priority"`
	PlanDate       string   `json:"plan_date"`
}

type Seed struct {
	Depot     *DepotSeed     `json:"depot"`
	Vehicles  []VehicleSeed  `json:"vehicles"`
	Shipments []ShipmentSeed `json:"shipments"`
}

// Populate the database with depot, fleet and shipment data from a JSON
// file. The depot and vehicles are replaced by identity; shipments are
// appended, so re-seeding the same file duplicates them.
func SeedFromJSON(db *sql.DB, jsonPath string) error {
	bytes, err := os.ReadFile(jsonPath)
	if err != nil {
		return fmt.Errorf("seed: read %q: %w", jsonPath, err)
	}

	var seed Seed
	if err := json.Unmarshal(bytes, &seed); err != nil {
		return fmt.Errorf("seed: parse json: %w", err)
	}

	for i, v := range seed.Vehicles {
		if strings.TrimSpace(v.LicensePlate) == "" {
			return fmt.Errorf("seed: vehicle #%d: license plate cannot be empty", i+1)
		}
		if v.CapacityWeightKg <= 0 || v.CapacityVolumeM3 <= 0 {
			return fmt.Errorf("seed: vehicle #%d: capacities must be positive", i+1)
		}
		if v.CoolingRatePerMin > 0 {
			return fmt.Errorf("seed: vehicle #%d: cooling rate must be zero or negative", i+1)
		}
	}
	for i, s := range seed.Shipments {
		if strings.TrimSpace(s.CustomerName) == "" {
			return fmt.Errorf("seed: shipment #%d: customer name cannot be empty", i+1)
		}
		if s.Lat < -90 || s.Lat > 90 || s.Lon < -180 || s.Lon > 180 {
			return fmt.Errorf("seed: shipment #%d: coordinates out of range", i+1)
		}
		if s.Window1Start >= s.Window1End {
			return fmt.Errorf("seed: shipment #%d: window start must precede end", i+1)
		}
		if (s.Window2Start == nil) != (s.Window2End == nil) {
			return fmt.Errorf("seed: shipment #%d: second window needs both bounds", i+1)
		}
		if s.Window2Start != nil && *s.Window2Start >= *s.Window2End {
			return fmt.Errorf("seed: shipment #%d: second window start must precede end", i+1)
		}
		if s.Priority < 0 || s.Priority > 100 {
			return fmt.Errorf("seed: shipment #%d: priority must be within 0..100", i+1)
		}
		if s.SLATier != "" && s.SLATier != string(domain.SLAStrict) && s.SLATier != string(domain.SLAStandard) {
			return fmt.Errorf("seed: shipment #%d: unknown sla tier %q", i+1, s.SLATier)
		}
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("seed: begin tx: %w", err)
	}
	defer tx.Rollback()

	if seed.Depot != nil {
		query := `
		INSERT OR REPLACE INTO depots (id, name, lat, lon, open_min, close_min)
		VALUES (1, ?, ?, ?, ?, ?);
		`
		closeMin := seed.Depot.CloseMin
		if closeMin <= 0 {
			closeMin = 1439
		}
		if _, err := tx.Exec(query, seed.Depot.Name, seed.Depot.Lat, seed.Depot.Lon, seed.Depot.OpenMin, closeMin); err != nil {
			return fmt.Errorf("seed: insert depot: %w", err)
		}
	}

	vehicleQuery := `
	INSERT OR REPLACE INTO vehicles (
		license_plate,
		driver_name,
		capacity_weight_kg,
		capacity_volume_m3,
		insulation,
		door_type,
		has_curtain,
		cooling_rate_per_min,
		min_temp_c,
		status
	)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 'AVAILABLE');
	`
	vehicleStmt, err := tx.Prepare(vehicleQuery)
	if err != nil {
		return fmt.Errorf("seed: prepare vehicle insert: %w", err)
	}
	defer vehicleStmt.Close()

	for _, v := range seed.Vehicles {
		insulation := v.Insulation
		if insulation == "" {
			insulation = string(domain.InsulationStandard)
		}
		door := v.DoorType
		if door == "" {
			door = string(domain.DoorRoll)
		}
		if _, err := vehicleStmt.Exec(
			v.LicensePlate, v.DriverName, v.CapacityWeightKg, v.CapacityVolumeM3,
			insulation, door, v.HasCurtain, v.CoolingRatePerMin, v.MinTempC,
		); err != nil {
			return fmt.Errorf("seed: insert vehicle %s: %w", v.LicensePlate, err)
		}
	}

	shipmentQuery := `
	INSERT INTO shipments (
		customer_name,
		address,
		lat,
		lon,
		weight_kg,
		volume_m3,
		window1_start_min,
		window1_end_min,
		window2_start_min,
		window2_end_min,
		service_minutes,
		temp_ceiling_c,
		temp_floor_c,
		sla_tier,
		priority,
		status,
		plan_date
	)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 'PENDING', ?);
	`
	shipmentStmt, err := tx.Prepare(shipmentQuery)
	if err != nil {
		return fmt.Errorf("seed: prepare shipment insert: %w", err)
	}
	defer shipmentStmt.Close()

	for _, s := range seed.Shipments {
		sla := s.SLATier
		if sla == "" {
			sla = string(domain.SLAStandard)
		}
		service := s.ServiceMinutes
		if service <= 0 {
			service = 10
		}
		if _, err := shipmentStmt.Exec(
			s.CustomerName, s.Address, s.Lat, s.Lon, s.WeightKg, s.VolumeM3,
			s.Window1Start, s.Window1End, s.Window2Start, s.Window2End,
			service, s.TempCeilingC, s.TempFloorC, sla, s.Priority, s.PlanDate,
		); err != nil {
			return fmt.Errorf("seed: insert shipment for %s: %w", s.CustomerName, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed: commit tx: %w", err)
	}

	return nil
}
