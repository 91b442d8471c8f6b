package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"coldchain-dispatch-service/internal/domain"
	"coldchain-dispatch-service/internal/ports"
)

// StaleJobSweeper fails RUNNING jobs whose worker died before writing a
// terminal state, so crashed processes do not leave jobs running forever.
type StaleJobSweeper struct {
	jobs  ports.JobRepository
	grace time.Duration
	log   *zap.Logger
	now   func() time.Time
}

func NewStaleJobSweeper(jobs ports.JobRepository, graceSeconds int, log *zap.Logger) *StaleJobSweeper {
	if graceSeconds <= 0 {
		graceSeconds = 30
	}
	return &StaleJobSweeper{
		jobs:  jobs,
		grace: time.Duration(graceSeconds) * time.Second,
		log:   log,
		now:   time.Now,
	}
}

func (s *StaleJobSweeper) Schedule() string { return "*/5 * * * *" }

func (s *StaleJobSweeper) Ready(now time.Time) bool { return true }

// Execute sweeps jobs stuck in RUNNING well past their own deadline. A live
// runner marks its job terminal within one grace period of the limit; twice
// that margin means the worker is gone.
func (s *StaleJobSweeper) Execute() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	running, err := s.jobs.List(ctx, ports.JobFilter{State: domain.JobRunning})
	if err != nil {
		s.log.Error("stale sweep: list running jobs", zap.Error(err))
		return
	}

	now := s.now()
	for _, job := range running {
		if job.StartedAt == nil {
			continue
		}
		deadline := job.StartedAt.Add(time.Duration(job.TimeLimitSeconds)*time.Second + 2*s.grace)
		if now.Before(deadline) {
			continue
		}

		ok, err := s.jobs.MarkFailed(ctx, job.ID, domain.KindInternal,
			"worker did not report a result before the deadline", nil)
		if err != nil {
			s.log.Error("stale sweep: mark failed", zap.String("job_id", job.ID), zap.Error(err))
			continue
		}
		if ok {
			s.log.Warn("swept stale job",
				zap.String("job_id", job.ID),
				zap.Time("started_at", *job.StartedAt))
		}
	}
}
