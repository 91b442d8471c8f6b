package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"coldchain-dispatch-service/internal/domain"
	"coldchain-dispatch-service/internal/ports"
)

type SqlitePlanRepository struct{ DB *sql.DB }

func NewSqlitePlanRepository(db *sql.DB) *SqlitePlanRepository {
	return &SqlitePlanRepository{DB: db}
}

// SavePlan persists a completed solve in one transaction. The job row is
// flipped RUNNING -> COMPLETED first under a state guard, so a job that was
// cancelled or failed in the meantime writes nothing and reports a conflict.
func (r *SqlitePlanRepository) SavePlan(ctx context.Context, plan *ports.PlanWrite) error {
	if r.DB == nil {
		return errors.New("save plan: DB is nil")
	}
	if plan == nil || plan.JobID == "" {
		return errors.New("save plan: missing job id")
	}

	summaryBytes, err := json.Marshal(plan.Summary)
	if err != nil {
		return fmt.Errorf("save plan: marshal summary: %w", err)
	}
	violationsJSON := sql.NullString{}
	if !plan.Violations.Empty() {
		b, err := json.Marshal(plan.Violations)
		if err != nil {
			return fmt.Errorf("save plan: marshal violations: %w", err)
		}
		violationsJSON = sql.NullString{String: string(b), Valid: true}
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save plan: begin tx: %w", err)
	}
	defer tx.Rollback()

	jobQuery := `
	UPDATE jobs
	SET state = 'COMPLETED', progress = 100, finished_at = ?,
	    summary_json = ?, violations_json = ?, error_kind = '', error_message = ''
	WHERE id = ? AND state = 'RUNNING';
	`
	res, err := tx.ExecContext(ctx, jobQuery, plan.FinishedAt.Unix(), string(summaryBytes), violationsJSON, plan.JobID)
	if err != nil {
		return fmt.Errorf("save plan: complete job: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("save plan: rows affected: %w", err)
	}
	if n == 0 {
		return domain.Ef(domain.KindConflict, "job %s is no longer running", plan.JobID)
	}

	routeQuery := `
	INSERT INTO routes (
		job_id, vehicle_id, license_plate, driver_name, route_code, plan_date, status,
		total_distance_m, total_duration_min, stop_count,
		initial_temp_c, final_temp_c, max_temp_c, is_feasible, version
	)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
	`
	routeStmt, err := tx.PrepareContext(ctx, routeQuery)
	if err != nil {
		return fmt.Errorf("save plan: prepare route insert: %w", err)
	}
	defer routeStmt.Close()

	stopQuery := `
	INSERT INTO stops (
		route_id, seq, shipment_id, customer_name, address, lat, lon,
		arrival_min, departure_min, wait_min, window_index,
		distance_from_prev_m, travel_min_from_prev, service_min,
		transit_rise_c, service_rise_c, cooling_applied_c,
		arrival_temp_c, departure_temp_c, temp_ceiling_c, is_feasible
	)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
	`
	stopStmt, err := tx.PrepareContext(ctx, stopQuery)
	if err != nil {
		return fmt.Errorf("save plan: prepare stop insert: %w", err)
	}
	defer stopStmt.Close()

	assignStmt, err := tx.PrepareContext(ctx, `UPDATE shipments SET status = 'ASSIGNED' WHERE id = ?;`)
	if err != nil {
		return fmt.Errorf("save plan: prepare shipment update: %w", err)
	}
	defer assignStmt.Close()

	for _, rt := range plan.Routes {
		status := rt.Status
		if status == "" {
			status = domain.RoutePlanned
		}
		version := rt.Version
		if version <= 0 {
			version = 1
		}
		res, err := routeStmt.ExecContext(ctx,
			plan.JobID, rt.VehicleID, rt.LicensePlate, rt.DriverName, rt.RouteCode, rt.PlanDate, string(status),
			rt.TotalDistanceM, rt.TotalDurationMin, rt.StopCount,
			rt.InitialTempC, rt.FinalTempC, rt.MaxTempC, rt.Feasible, version,
		)
		if err != nil {
			return fmt.Errorf("save plan: insert route %s: %w", rt.RouteCode, err)
		}
		routeID, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("save plan: route id for %s: %w", rt.RouteCode, err)
		}
		rt.ID = routeID

		for i := range rt.Stops {
			st := &rt.Stops[i]
			st.RouteID = routeID
			if _, err := stopStmt.ExecContext(ctx,
				routeID, st.Sequence, st.ShipmentID, st.CustomerName, st.Address, st.Coord.Lat, st.Coord.Lon,
				st.ArrivalMin, st.DepartureMin, st.WaitMin, st.WindowIndex,
				st.DistanceFromPrevM, st.TravelMinFromPrev, st.ServiceMin,
				st.TransitRiseC, st.ServiceRiseC, st.CoolingAppliedC,
				st.ArrivalTempC, st.DepartureTempC, st.TempCeilingC, st.Feasible,
			); err != nil {
				return fmt.Errorf("save plan: insert stop %d of %s: %w", st.Sequence, rt.RouteCode, err)
			}
			if _, err := assignStmt.ExecContext(ctx, st.ShipmentID); err != nil {
				return fmt.Errorf("save plan: assign shipment %d: %w", st.ShipmentID, err)
			}
		}
	}

	if len(plan.LaborMinutes) > 0 {
		laborQuery := `
		INSERT OR REPLACE INTO labor_logs (vehicle_id, plan_date, job_id, minutes)
		VALUES (?, ?, ?, ?);
		`
		laborStmt, err := tx.PrepareContext(ctx, laborQuery)
		if err != nil {
			return fmt.Errorf("save plan: prepare labor insert: %w", err)
		}
		defer laborStmt.Close()

		planDate := ""
		if len(plan.Routes) > 0 {
			planDate = plan.Routes[0].PlanDate
		}
		for vehicleID, minutes := range plan.LaborMinutes {
			if minutes <= 0 {
				continue
			}
			if _, err := laborStmt.ExecContext(ctx, vehicleID, planDate, plan.JobID, minutes); err != nil {
				return fmt.Errorf("save plan: insert labor log for vehicle %d: %w", vehicleID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save plan: commit tx: %w", err)
	}

	return nil
}
