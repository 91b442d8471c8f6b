package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"coldchain-dispatch-service/internal/domain"
	"coldchain-dispatch-service/internal/ports"
)

type SqliteRouteRepository struct{ DB *sql.DB }

func NewSqliteRouteRepository(db *sql.DB) *SqliteRouteRepository {
	return &SqliteRouteRepository{DB: db}
}

const routeColumns = `id, job_id, vehicle_id, license_plate, driver_name, route_code, plan_date, status,
	       total_distance_m, total_duration_min, stop_count,
	       initial_temp_c, final_temp_c, max_temp_c, is_feasible, version`

func (r *SqliteRouteRepository) List(ctx context.Context, f ports.RouteFilter) ([]*domain.Route, error) {
	if r.DB == nil {
		return nil, errors.New("list routes: DB is nil")
	}

	query := `SELECT ` + routeColumns + ` FROM routes WHERE 1 = 1`
	var args []any
	if f.PlanDate != "" {
		query += ` AND plan_date = ?`
		args = append(args, f.PlanDate)
	}
	if f.JobID != "" {
		query += ` AND job_id = ?`
		args = append(args, f.JobID)
	}
	query += ` ORDER BY id;`

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list routes: query: %w", err)
	}
	defer rows.Close()

	var routes []*domain.Route
	for rows.Next() {
		rt, err := scanRoute(rows)
		if err != nil {
			return nil, fmt.Errorf("list routes: %w", err)
		}
		routes = append(routes, rt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list routes: iterate rows: %w", err)
	}

	return routes, nil
}

func (r *SqliteRouteRepository) Get(ctx context.Context, id int64) (*domain.Route, error) {
	if r.DB == nil {
		return nil, errors.New("get route: DB is nil")
	}

	query := `SELECT ` + routeColumns + ` FROM routes WHERE id = ?;`

	rt, err := scanRoute(r.DB.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.Ef(domain.KindNotFound, "route %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get route: %w", err)
	}

	if rt.Stops, err = r.loadStops(ctx, id); err != nil {
		return nil, fmt.Errorf("get route: %w", err)
	}

	return rt, nil
}

func (r *SqliteRouteRepository) ListWithStops(ctx context.Context, f ports.RouteFilter) ([]*domain.Route, error) {
	routes, err := r.List(ctx, f)
	if err != nil {
		return nil, err
	}

	for _, rt := range routes {
		if rt.Stops, err = r.loadStops(ctx, rt.ID); err != nil {
			return nil, fmt.Errorf("list routes with stops: %w", err)
		}
	}

	return routes, nil
}

// UpdateStatus applies an optimistic-locking status write: stale versions and
// concurrent writers surface as conflicts, invalid lifecycle moves as
// validation errors.
func (r *SqliteRouteRepository) UpdateStatus(ctx context.Context, id int64, status domain.RouteStatus, version int) error {
	if r.DB == nil {
		return errors.New("update route status: DB is nil")
	}

	var current domain.RouteStatus
	var storedVersion int
	err := r.DB.QueryRowContext(ctx, `SELECT status, version FROM routes WHERE id = ?;`, id).Scan(&current, &storedVersion)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Ef(domain.KindNotFound, "route %d not found", id)
	}
	if err != nil {
		return fmt.Errorf("update route status: query: %w", err)
	}

	if storedVersion != version {
		return domain.Ef(domain.KindConflict, "route %d is at version %d, not %d; reload and retry", id, storedVersion, version)
	}
	if !current.CanTransitionTo(status) {
		return domain.Ef(domain.KindValidation, "route %d cannot move from %s to %s", id, current, status)
	}

	res, err := r.DB.ExecContext(ctx,
		`UPDATE routes SET status = ?, version = version + 1 WHERE id = ? AND version = ?;`,
		string(status), id, version,
	)
	if err != nil {
		return fmt.Errorf("update route status: update: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update route status: rows affected: %w", err)
	}
	if n == 0 {
		return domain.Ef(domain.KindConflict, "route %d was modified concurrently; reload and retry", id)
	}

	return nil
}

func (r *SqliteRouteRepository) loadStops(ctx context.Context, routeID int64) ([]domain.Stop, error) {
	query := `
	SELECT id, route_id, seq, shipment_id, customer_name, address, lat, lon,
	       arrival_min, departure_min, wait_min, window_index,
	       distance_from_prev_m, travel_min_from_prev, service_min,
	       transit_rise_c, service_rise_c, cooling_applied_c,
	       arrival_temp_c, departure_temp_c, temp_ceiling_c, is_feasible
	FROM stops
	WHERE route_id = ?
	ORDER BY seq;
	`

	rows, err := r.DB.QueryContext(ctx, query, routeID)
	if err != nil {
		return nil, fmt.Errorf("load stops: query: %w", err)
	}
	defer rows.Close()

	var stops []domain.Stop
	for rows.Next() {
		var st domain.Stop
		if err := rows.Scan(
			&st.ID, &st.RouteID, &st.Sequence, &st.ShipmentID, &st.CustomerName, &st.Address,
			&st.Coord.Lat, &st.Coord.Lon,
			&st.ArrivalMin, &st.DepartureMin, &st.WaitMin, &st.WindowIndex,
			&st.DistanceFromPrevM, &st.TravelMinFromPrev, &st.ServiceMin,
			&st.TransitRiseC, &st.ServiceRiseC, &st.CoolingAppliedC,
			&st.ArrivalTempC, &st.DepartureTempC, &st.TempCeilingC, &st.Feasible,
		); err != nil {
			return nil, fmt.Errorf("load stops: scan row: %w", err)
		}
		stops = append(stops, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load stops: iterate rows: %w", err)
	}

	return stops, nil
}

func scanRoute(s interface{ Scan(dest ...any) error }) (*domain.Route, error) {
	var rt domain.Route
	err := s.Scan(
		&rt.ID, &rt.JobID, &rt.VehicleID, &rt.LicensePlate, &rt.DriverName,
		&rt.RouteCode, &rt.PlanDate, &rt.Status,
		&rt.TotalDistanceM, &rt.TotalDurationMin, &rt.StopCount,
		&rt.InitialTempC, &rt.FinalTempC, &rt.MaxTempC, &rt.Feasible, &rt.Version,
	)
	if err != nil {
		return nil, err
	}
	return &rt, nil
}
