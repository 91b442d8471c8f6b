package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

type SqliteLaborRepository struct{ DB *sql.DB }

func NewSqliteLaborRepository(db *sql.DB) *SqliteLaborRepository {
	return &SqliteLaborRepository{DB: db}
}

// Usage sums planned duty minutes for the vehicle on the plan date and over
// the trailing seven days ending on it.
func (r *SqliteLaborRepository) Usage(ctx context.Context, vehicleID int64, planDate string) (int, int, error) {
	if r.DB == nil {
		return 0, 0, errors.New("labor usage: DB is nil")
	}

	dayQuery := `
	SELECT COALESCE(SUM(minutes), 0)
	FROM labor_logs
	WHERE vehicle_id = ? AND plan_date = ?;
	`
	var dayMin int
	if err := r.DB.QueryRowContext(ctx, dayQuery, vehicleID, planDate).Scan(&dayMin); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, 0, fmt.Errorf("labor usage: day sum: %w", err)
	}

	weekQuery := `
	SELECT COALESCE(SUM(minutes), 0)
	FROM labor_logs
	WHERE vehicle_id = ? AND plan_date BETWEEN date(?, '-6 days') AND ?;
	`
	var weekMin int
	if err := r.DB.QueryRowContext(ctx, weekQuery, vehicleID, planDate, planDate).Scan(&weekMin); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, 0, fmt.Errorf("labor usage: week sum: %w", err)
	}

	return dayMin, weekMin, nil
}
