package ports

import "context"

// Port: the hand-off between the request path and the solver workers.
type TaskQueue interface {
	// Enqueue hands a job id to the workers. Non-blocking.
	Enqueue(ctx context.Context, jobID string) error

	// Dequeue blocks until a job id is available or ctx is done, in which
	// case it returns ctx's error.
	Dequeue(ctx context.Context) (string, error)
}

// Optional extension of TaskQueue that reports the number of waiting tasks.
type QueueDepth interface {
	TaskQueue
	Depth(ctx context.Context) (int64, error)
}
