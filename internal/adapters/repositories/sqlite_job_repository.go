package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"coldchain-dispatch-service/internal/domain"
	"coldchain-dispatch-service/internal/ports"
)

type SqliteJobRepository struct{ DB *sql.DB }

func NewSqliteJobRepository(db *sql.DB) *SqliteJobRepository {
	return &SqliteJobRepository{DB: db}
}

const jobColumns = `id, plan_date, state, progress, depot_lat, depot_lon, departure_min,
	       ambient_temp_c, initial_cargo_temp_c, time_limit_seconds, strategy,
	       vehicle_count, shipment_count, created_at, started_at, finished_at,
	       error_kind, error_message, summary_json, violations_json`

func (r *SqliteJobRepository) Create(ctx context.Context, job *domain.Job) error {
	if r.DB == nil {
		return errors.New("create job: DB is nil")
	}
	if job.ID == "" {
		return errors.New("create job: id cannot be empty")
	}
	if job.State == "" {
		job.State = domain.JobPending
	}

	query := `
	INSERT INTO jobs (
		id, plan_date, state, progress, depot_lat, depot_lon, departure_min,
		ambient_temp_c, initial_cargo_temp_c, time_limit_seconds, strategy,
		vehicle_count, shipment_count, created_at
	)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
	`

	_, err := r.DB.ExecContext(ctx, query,
		job.ID, job.PlanDate, string(job.State), job.Progress,
		job.DepotLat, job.DepotLon, job.DepartureMin,
		job.AmbientTempC, job.InitialCargoTemp, job.TimeLimitSeconds, string(job.Strategy),
		job.VehicleCount, job.ShipmentCount, job.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("create job: insert: %w", err)
	}

	return nil
}

func (r *SqliteJobRepository) Get(ctx context.Context, id string) (*domain.Job, error) {
	if r.DB == nil {
		return nil, errors.New("get job: DB is nil")
	}

	query := `SELECT ` + jobColumns + ` FROM jobs WHERE id = ?;`

	job, err := scanJob(r.DB.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.Ef(domain.KindNotFound, "job %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}

	routeQuery := `SELECT id FROM routes WHERE job_id = ? ORDER BY id;`
	rows, err := r.DB.QueryContext(ctx, routeQuery, id)
	if err != nil {
		return nil, fmt.Errorf("get job: query routes: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var routeID int64
		if err := rows.Scan(&routeID); err != nil {
			return nil, fmt.Errorf("get job: scan route id: %w", err)
		}
		job.RouteIDs = append(job.RouteIDs, routeID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get job: iterate route ids: %w", err)
	}

	return job, nil
}

func (r *SqliteJobRepository) List(ctx context.Context, f ports.JobFilter) ([]*domain.Job, error) {
	if r.DB == nil {
		return nil, errors.New("list jobs: DB is nil")
	}

	query := `SELECT ` + jobColumns + ` FROM jobs WHERE 1 = 1`
	var args []any
	if f.PlanDate != "" {
		query += ` AND plan_date = ?`
		args = append(args, f.PlanDate)
	}
	if f.State != "" {
		query += ` AND state = ?`
		args = append(args, string(f.State))
	}
	query += ` ORDER BY created_at DESC, id DESC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}
	query += `;`

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: query: %w", err)
	}
	defer rows.Close()

	var jobs []*domain.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("list jobs: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list jobs: iterate rows: %w", err)
	}

	return jobs, nil
}

func (r *SqliteJobRepository) MarkRunning(ctx context.Context, id string, startedAt time.Time) (bool, error) {
	if r.DB == nil {
		return false, errors.New("mark job running: DB is nil")
	}

	query := `
	UPDATE jobs
	SET state = 'RUNNING', started_at = ?
	WHERE id = ? AND state = 'PENDING';
	`

	res, err := r.DB.ExecContext(ctx, query, startedAt.Unix(), id)
	if err != nil {
		return false, fmt.Errorf("mark job running: update: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark job running: rows affected: %w", err)
	}

	return n > 0, nil
}

func (r *SqliteJobRepository) UpdateProgress(ctx context.Context, id string, progress int) error {
	if r.DB == nil {
		return errors.New("update job progress: DB is nil")
	}

	// Stale samples and writes against settled jobs fall through silently.
	query := `
	UPDATE jobs
	SET progress = ?
	WHERE id = ? AND state = 'RUNNING' AND progress < ?;
	`

	if _, err := r.DB.ExecContext(ctx, query, progress, id, progress); err != nil {
		return fmt.Errorf("update job progress: update: %w", err)
	}

	return nil
}

func (r *SqliteJobRepository) MarkFailed(ctx context.Context, id string, kind domain.ErrorKind, message string, violations *domain.ViolationsReport) (bool, error) {
	if r.DB == nil {
		return false, errors.New("mark job failed: DB is nil")
	}

	violationsJSON := sql.NullString{}
	if !violations.Empty() {
		b, err := json.Marshal(violations)
		if err != nil {
			return false, fmt.Errorf("mark job failed: marshal violations: %w", err)
		}
		violationsJSON = sql.NullString{String: string(b), Valid: true}
	}

	query := `
	UPDATE jobs
	SET state = 'FAILED', error_kind = ?, error_message = ?, finished_at = ?, violations_json = ?
	WHERE id = ? AND state IN ('PENDING', 'RUNNING');
	`

	res, err := r.DB.ExecContext(ctx, query, string(kind), message, time.Now().Unix(), violationsJSON, id)
	if err != nil {
		return false, fmt.Errorf("mark job failed: update: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark job failed: rows affected: %w", err)
	}

	return n > 0, nil
}

// scanJob reads one job row from either a *sql.Row or *sql.Rows.
func scanJob(s interface{ Scan(dest ...any) error }) (*domain.Job, error) {
	var (
		job                 domain.Job
		createdAt           int64
		startedAt, finished sql.NullInt64
		summary, violations sql.NullString
	)
	err := s.Scan(
		&job.ID, &job.PlanDate, &job.State, &job.Progress,
		&job.DepotLat, &job.DepotLon, &job.DepartureMin,
		&job.AmbientTempC, &job.InitialCargoTemp, &job.TimeLimitSeconds, &job.Strategy,
		&job.VehicleCount, &job.ShipmentCount,
		&createdAt, &startedAt, &finished,
		&job.ErrorKind, &job.ErrorMessage, &summary, &violations,
	)
	if err != nil {
		return nil, err
	}

	job.CreatedAt = time.Unix(createdAt, 0).UTC()
	if startedAt.Valid {
		t := time.Unix(startedAt.Int64, 0).UTC()
		job.StartedAt = &t
	}
	if finished.Valid {
		t := time.Unix(finished.Int64, 0).UTC()
		job.FinishedAt = &t
	}
	if summary.Valid {
		var ps domain.PlanSummary
		if err := json.Unmarshal([]byte(summary.String), &ps); err != nil {
			return nil, fmt.Errorf("decode summary: %w", err)
		}
		job.Summary = &ps
	}
	if violations.Valid {
		var vr domain.ViolationsReport
		if err := json.Unmarshal([]byte(violations.String), &vr); err != nil {
			return nil, fmt.Errorf("decode violations: %w", err)
		}
		job.Violations = &vr
	}

	return &job, nil
}
