package queue

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"coldchain-dispatch-service/internal/ports"
)

func TestMemoryQueueOrder(t *testing.T) {
	q := NewMemory(4)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		if err := q.Enqueue(ctx, id); err != nil {
			t.Fatalf("enqueue %s: %v", id, err)
		}
	}
	if depth, _ := q.Depth(ctx); depth != 3 {
		t.Fatalf("depth: want 3, got %d", depth)
	}
	for _, want := range []string{"a", "b", "c"} {
		got, err := q.Dequeue(ctx)
		if err != nil {
			t.Fatalf("dequeue: %v", err)
		}
		if got != want {
			t.Fatalf("dequeue order: want %s, got %s", want, got)
		}
	}
}

func TestMemoryQueueFull(t *testing.T) {
	q := NewMemory(1)
	ctx := context.Background()
	if err := q.Enqueue(ctx, "a"); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := q.Enqueue(ctx, "b"); err == nil {
		t.Fatal("a full queue must reject instead of blocking the request path")
	}
}

func TestMemoryQueueDequeueHonorsContext(t *testing.T) {
	q := NewMemory(1)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		_, err := q.Dequeue(ctx)
		done <- err
	}()
	cancel()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("want context error")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("dequeue did not return after cancel")
	}
}

func redisQueue(t *testing.T) *Redis {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedis(client, "test:jobs")
}

func TestRedisQueueOrder(t *testing.T) {
	q := redisQueue(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		if err := q.Enqueue(ctx, id); err != nil {
			t.Fatalf("enqueue %s: %v", id, err)
		}
	}
	if depth, err := q.Depth(ctx); err != nil || depth != 3 {
		t.Fatalf("depth: want 3, got %d (%v)", depth, err)
	}
	for _, want := range []string{"a", "b", "c"} {
		got, err := q.Dequeue(ctx)
		if err != nil {
			t.Fatalf("dequeue: %v", err)
		}
		if got != want {
			t.Fatalf("dequeue order: want %s, got %s", want, got)
		}
	}
}

func TestRedisQueueDequeueHonorsContext(t *testing.T) {
	q := redisQueue(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := q.Dequeue(ctx); err == nil {
		t.Fatal("want context error from a cancelled dequeue")
	}
}

func TestQueuesSatisfyDepthExtension(t *testing.T) {
	var q ports.TaskQueue = NewMemory(1)
	if _, ok := q.(ports.QueueDepth); !ok {
		t.Fatal("memory queue should report depth")
	}
	q = redisQueue(t)
	if _, ok := q.(ports.QueueDepth); !ok {
		t.Fatal("redis queue should report depth")
	}
}
