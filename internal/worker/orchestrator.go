package worker

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// CronWorker is a periodic maintenance task driven by the orchestrator.
type CronWorker interface {
	Schedule() string
	Ready(now time.Time) bool
	Execute()
}

// Orchestrator schedules cron workers alongside the solver pool.
type Orchestrator struct {
	workers []CronWorker
	log     *zap.Logger
}

func NewOrchestrator(workers []CronWorker, log *zap.Logger) *Orchestrator {
	return &Orchestrator{workers: workers, log: log}
}

// Start registers every worker with a cron scheduler and starts it. The
// returned cron is stopped by the caller on shutdown.
func (o *Orchestrator) Start(ctx context.Context) (*cron.Cron, error) {
	c := cron.New()

	for _, w := range o.workers {
		worker := w
		_, err := c.AddFunc(worker.Schedule(), func() {
			if worker.Ready(time.Now()) {
				go worker.Execute()
			}
		})
		if err != nil {
			o.log.Error("failed to schedule worker",
				zap.String("schedule", worker.Schedule()), zap.Error(err))
			return nil, err
		}
	}

	c.Start()
	return c, nil
}
