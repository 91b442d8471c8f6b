package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"coldchain-dispatch-service/internal/domain"
)

type SqliteDepotRepository struct{ DB *sql.DB }

func NewSqliteDepotRepository(db *sql.DB) *SqliteDepotRepository {
	return &SqliteDepotRepository{DB: db}
}

func (r *SqliteDepotRepository) Get(ctx context.Context, id int64) (*domain.Depot, error) {
	if r.DB == nil {
		return nil, errors.New("get depot: DB is nil")
	}

	query := `
	SELECT id, name, lat, lon, open_min, close_min
	FROM depots
	WHERE id = ?;
	`

	var d domain.Depot
	err := r.DB.QueryRowContext(ctx, query, id).Scan(
		&d.ID, &d.Name, &d.Coord.Lat, &d.Coord.Lon, &d.OpenMin, &d.CloseMin,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.Ef(domain.KindNotFound, "depot %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get depot: query: %w", err)
	}

	return &d, nil
}

func (r *SqliteDepotRepository) Default(ctx context.Context) (*domain.Depot, error) {
	if r.DB == nil {
		return nil, errors.New("default depot: DB is nil")
	}

	query := `
	SELECT id, name, lat, lon, open_min, close_min
	FROM depots
	ORDER BY id
	LIMIT 1;
	`

	var d domain.Depot
	err := r.DB.QueryRowContext(ctx, query).Scan(
		&d.ID, &d.Name, &d.Coord.Lat, &d.Coord.Lon, &d.OpenMin, &d.CloseMin,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.E(domain.KindNotFound, "no depot configured")
	}
	if err != nil {
		return nil, fmt.Errorf("default depot: query: %w", err)
	}

	return &d, nil
}
