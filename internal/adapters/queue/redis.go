package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultKey = "coldchain:jobs"

// Redis is the shared task queue: producers LPUSH job ids, workers block on
// BRPOP, so multiple processes can share one backlog.
type Redis struct {
	client *redis.Client
	key    string
}

func NewRedis(client *redis.Client, key string) *Redis {
	if key == "" {
		key = defaultKey
	}
	return &Redis{client: client, key: key}
}

func (q *Redis) Enqueue(ctx context.Context, jobID string) error {
	if err := q.client.LPush(ctx, q.key, jobID).Err(); err != nil {
		return fmt.Errorf("enqueue %s: %w", jobID, err)
	}
	return nil
}

// Dequeue polls with a short blocking pop so context cancellation is
// honored within a second even against servers that never time out.
func (q *Redis) Dequeue(ctx context.Context) (string, error) {
	for {
		res, err := q.client.BRPop(ctx, time.Second, q.key).Result()
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			if errors.Is(err, redis.Nil) {
				continue
			}
			return "", fmt.Errorf("dequeue: %w", err)
		}
		// BRPOP answers [key, value].
		return res[1], nil
	}
}

// Depth implements the optional ports.QueueDepth extension.
func (q *Redis) Depth(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.key).Result()
}
