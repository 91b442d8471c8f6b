package ports

import (
	"context"
	"time"

	"coldchain-dispatch-service/internal/domain"
)

// JobFilter narrows job listings.
type JobFilter struct {
	PlanDate string
	State    domain.JobState
	Limit    int
}

// Port: persistent optimization-job records and their guarded writes.
//
// State changes go through compare-and-set style updates so the monotone
// lifecycle and progress guarantees hold under concurrent writers.
type JobRepository interface {
	Create(ctx context.Context, job *domain.Job) error
	Get(ctx context.Context, id string) (*domain.Job, error)
	List(ctx context.Context, f JobFilter) ([]*domain.Job, error)

	// MarkRunning transitions PENDING -> RUNNING. Returns false when the job
	// was not PENDING (duplicate delivery, cancelled while queued).
	MarkRunning(ctx context.Context, id string, startedAt time.Time) (bool, error)

	// UpdateProgress writes a progress sample. Values lower than the stored
	// progress, or writes against non-RUNNING jobs, are silently dropped.
	UpdateProgress(ctx context.Context, id string, progress int) error

	// MarkFailed transitions any non-terminal state to FAILED with an error
	// kind and message; violations may carry diagnostics for the report
	// endpoint. Returns false when the job was already terminal.
	MarkFailed(ctx context.Context, id string, kind domain.ErrorKind, message string, violations *domain.ViolationsReport) (bool, error)
}
