package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"coldchain-dispatch-service/internal/domain"
)

type SqliteShipmentRepository struct{ DB *sql.DB }

func NewSqliteShipmentRepository(db *sql.DB) *SqliteShipmentRepository {
	return &SqliteShipmentRepository{DB: db}
}

func (r *SqliteShipmentRepository) ListPending(ctx context.Context, planDate string) ([]domain.Shipment, error) {
	if r.DB == nil {
		return nil, errors.New("list pending shipments: DB is nil")
	}

	query := `
	SELECT id, customer_name, address, lat, lon, weight_kg, volume_m3,
	       window1_start_min, window1_end_min, window2_start_min, window2_end_min,
	       service_minutes, temp_ceiling_c, temp_floor_c, sla_tier, priority, status, plan_date
	FROM shipments
	WHERE status = 'PENDING'`
	var args []any
	if planDate != "" {
		// Undated shipments belong to every plan date.
		query += ` AND (plan_date = ? OR plan_date = '')`
		args = append(args, planDate)
	}
	query += ` ORDER BY id;`

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list pending shipments: query: %w", err)
	}
	defer rows.Close()

	var shipments []domain.Shipment
	for rows.Next() {
		var s domain.Shipment
		var w1Start, w1End int
		var w2Start, w2End sql.NullInt64
		var floor sql.NullFloat64
		if err := rows.Scan(
			&s.ID, &s.CustomerName, &s.Address, &s.Coord.Lat, &s.Coord.Lon,
			&s.WeightKg, &s.VolumeM3,
			&w1Start, &w1End, &w2Start, &w2End,
			&s.ServiceMinutes, &s.TempCeilingC, &floor, &s.SLA, &s.Priority, &s.Status, &s.PlanDate,
		); err != nil {
			return nil, fmt.Errorf("list pending shipments: scan row: %w", err)
		}
		s.Windows = []domain.TimeWindow{{StartMin: w1Start, EndMin: w1End}}
		if w2Start.Valid && w2End.Valid {
			s.Windows = append(s.Windows, domain.TimeWindow{StartMin: int(w2Start.Int64), EndMin: int(w2End.Int64)})
		}
		if floor.Valid {
			f := floor.Float64
			s.TempFloorC = &f
		}
		shipments = append(shipments, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list pending shipments: iterate rows: %w", err)
	}

	return shipments, nil
}
