package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"quiz-attempt-service/internal/domain"
)

// SnapshotStore caches the latest statistics snapshot per quiz as JSON.
// Snapshots are derived data; TTL expiry just forces a recomputation.
type SnapshotStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSnapshotStore(client *redis.Client, ttl time.Duration) *SnapshotStore {
	return &SnapshotStore{client: client, ttl: ttl}
}

func (s *SnapshotStore) SaveStatistics(ctx context.Context, stats domain.QuizStatistics) error {
	payload, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("marshal statistics: %w", err)
	}
	if err := s.client.Set(ctx, s.key(stats.QuizID), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("save statistics: %w", err)
	}
	return nil
}

func (s *SnapshotStore) GetStatistics(ctx context.Context, quizID string) (domain.QuizStatistics, bool, error) {
	payload, err := s.client.Get(ctx, s.key(quizID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.QuizStatistics{}, false, nil
	}
	if err != nil {
		return domain.QuizStatistics{}, false, fmt.Errorf("get statistics: %w", err)
	}
	var stats domain.QuizStatistics
	if err := json.Unmarshal(payload, &stats); err != nil {
		return domain.QuizStatistics{}, false, fmt.Errorf("unmarshal statistics: %w", err)
	}
	return stats, true, nil
}

func (s *SnapshotStore) key(quizID string) string {
	return "stats:quiz:" + quizID
}
