package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const statsQueueKey = "stats:jobs"

// statsJob is the wire form of a queued statistics run.
type statsJob struct {
	QuizID     string    `json:"quizId"`
	EnqueuedAt time.Time `json:"enqueuedAt"`
}

// Queue is the Redis-backed statistics job queue: producers LPUSH onto a
// list, workers BRPOP from it. At-least-once, fire-and-forget; a job lost to
// a crashed worker is re-produced by the next completion on that quiz.
type Queue struct {
	client *redis.Client
	clock  func() time.Time
}

func NewQueue(client *redis.Client) *Queue {
	return &Queue{client: client, clock: time.Now}
}

func (q *Queue) EnqueueStatistics(ctx context.Context, quizID string) error {
	payload, err := json.Marshal(statsJob{QuizID: quizID, EnqueuedAt: q.clock().UTC()})
	if err != nil {
		return fmt.Errorf("marshal stats job: %w", err)
	}
	if err := q.client.LPush(ctx, statsQueueKey, payload).Err(); err != nil {
		return fmt.Errorf("enqueue stats job: %w", err)
	}
	return nil
}

// DequeueStatistics blocks on the queue in short intervals so the worker can
// notice context cancellation between polls.
func (q *Queue) DequeueStatistics(ctx context.Context) (string, error) {
	for {
		res, err := q.client.BRPop(ctx, 5*time.Second, statsQueueKey).Result()
		if errors.Is(err, redis.Nil) {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			continue
		}
		if err != nil {
			return "", fmt.Errorf("dequeue stats job: %w", err)
		}
		// BRPOP returns [key, value].
		var job statsJob
		if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
			return "", fmt.Errorf("unmarshal stats job: %w", err)
		}
		return job.QuizID, nil
	}
}
