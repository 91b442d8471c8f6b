// Package worker runs optimization jobs pulled from the task queue and the
// periodic maintenance behind them.
package worker

import (
	"context"
	"sync"
)

// Cancels tracks the cancel function of every in-flight job so the API can
// abort a solve mid-run.
type Cancels struct {
	mu sync.Mutex
	m  map[string]context.CancelCauseFunc
}

func NewCancels() *Cancels {
	return &Cancels{m: make(map[string]context.CancelCauseFunc)}
}

// Register records a run's cancel function under its job id.
func (c *Cancels) Register(jobID string, fn context.CancelCauseFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[jobID] = fn
}

// Release drops a run's entry once it settles.
func (c *Cancels) Release(jobID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.m, jobID)
}

// Cancel aborts a running job with the given cause. Returns false when no
// run is registered under the id, which callers treat as "not running here".
func (c *Cancels) Cancel(jobID string, cause error) bool {
	c.mu.Lock()
	fn, ok := c.m[jobID]
	c.mu.Unlock()
	if ok {
		fn(cause)
	}
	return ok
}
