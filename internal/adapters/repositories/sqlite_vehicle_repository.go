package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"coldchain-dispatch-service/internal/domain"
)

type SqliteVehicleRepository struct{ DB *sql.DB }

func NewSqliteVehicleRepository(db *sql.DB) *SqliteVehicleRepository {
	return &SqliteVehicleRepository{DB: db}
}

func (r *SqliteVehicleRepository) ListAvailable(ctx context.Context) ([]domain.Vehicle, error) {
	if r.DB == nil {
		return nil, errors.New("list available vehicles: DB is nil")
	}

	query := `
	SELECT id, license_plate, driver_name, capacity_weight_kg, capacity_volume_m3,
	       insulation, door_type, has_curtain, cooling_rate_per_min, min_temp_c, status
	FROM vehicles
	WHERE status = 'AVAILABLE'
	ORDER BY id;
	`

	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list available vehicles: query: %w", err)
	}
	defer rows.Close()

	var vehicles []domain.Vehicle
	for rows.Next() {
		var v domain.Vehicle
		if err := rows.Scan(
			&v.ID, &v.LicensePlate, &v.DriverName, &v.CapacityWeightKg, &v.CapacityVolumeM3,
			&v.Insulation, &v.Door, &v.HasCurtain, &v.CoolingRatePerMin, &v.MinTempC, &v.Status,
		); err != nil {
			return nil, fmt.Errorf("list available vehicles: scan row: %w", err)
		}
		vehicles = append(vehicles, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list available vehicles: iterate rows: %w", err)
	}

	return vehicles, nil
}
