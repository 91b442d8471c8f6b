package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"coldchain-dispatch-service/internal/ports"
)

// Pool runs a fixed set of workers, each looping dequeue-then-run until the
// context is cancelled. The solver is CPU-bound, so the pool size bounds
// concurrent solves independently of the HTTP layer.
type Pool struct {
	queue  ports.TaskQueue
	runner *Runner
	size   int
	log    *zap.Logger

	wg sync.WaitGroup
}

func NewPool(queue ports.TaskQueue, runner *Runner, size int, log *zap.Logger) *Pool {
	if size <= 0 {
		size = 1
	}
	return &Pool{queue: queue, runner: runner, size: size, log: log}
}

// Start launches the workers. It returns immediately; Wait blocks until all
// workers have drained after ctx is cancelled.
func (p *Pool) Start(ctx context.Context) {
	p.log.Info("starting solver workers", zap.Int("count", p.size))
	for i := 0; i < p.size; i++ {
		p.wg.Add(1)
		go p.work(ctx, i)
	}
}

func (p *Pool) Wait() {
	p.wg.Wait()
}

func (p *Pool) work(ctx context.Context, id int) {
	defer p.wg.Done()
	log := p.log.With(zap.Int("worker", id))

	for {
		jobID, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Info("worker stopping")
				return
			}
			log.Warn("dequeue failed", zap.Error(err))
			select {
			case <-ctx.Done():
				log.Info("worker stopping")
				return
			case <-time.After(time.Second):
			}
			continue
		}

		if err := p.runner.Run(ctx, jobID); err != nil {
			log.Error("job run failed", zap.String("job_id", jobID), zap.Error(err))
		}
	}
}
