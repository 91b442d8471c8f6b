// Package queue provides the task-queue adapters behind ports.TaskQueue.
package queue

import (
	"context"

	"coldchain-dispatch-service/internal/domain"
)

// Memory is the in-process queue used when no Redis address is configured.
// Queued ids do not survive a restart; the stale-job sweeper covers the
// crash window.
type Memory struct {
	ch chan string
}

func NewMemory(capacity int) *Memory {
	if capacity <= 0 {
		capacity = 256
	}
	return &Memory{ch: make(chan string, capacity)}
}

func (m *Memory) Enqueue(ctx context.Context, jobID string) error {
	select {
	case m.ch <- jobID:
		return nil
	default:
		return domain.E(domain.KindInternal, "task queue full")
	}
}

func (m *Memory) Dequeue(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case id := <-m.ch:
		return id, nil
	}
}

// Depth implements the optional ports.QueueDepth extension.
func (m *Memory) Depth(ctx context.Context) (int64, error) {
	return int64(len(m.ch)), nil
}
