package memory

import (
	"context"
	"errors"
	"sync"

	"quiz-attempt-service/internal/domain"
)

// ErrQueueFull is returned when a best-effort enqueue finds no buffer space.
var ErrQueueFull = errors.New("statistics queue full")

// Queue is a channel-backed statistics job queue for single-process setups.
// Enqueue never blocks the completing request; a full buffer drops the job
// with an error the caller logs and swallows.
type Queue struct {
	jobs chan string
}

func NewQueue(buffer int) *Queue {
	if buffer <= 0 {
		buffer = 64
	}
	return &Queue{jobs: make(chan string, buffer)}
}

func (q *Queue) EnqueueStatistics(_ context.Context, quizID string) error {
	select {
	case q.jobs <- quizID:
		return nil
	default:
		return ErrQueueFull
	}
}

// DequeueStatistics blocks until a job arrives or the context ends.
func (q *Queue) DequeueStatistics(ctx context.Context) (string, error) {
	select {
	case quizID := <-q.jobs:
		return quizID, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// SnapshotStore keeps the latest statistics snapshot per quiz in memory.
type SnapshotStore struct {
	mu    sync.RWMutex
	store map[string]domain.QuizStatistics
}

func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{store: make(map[string]domain.QuizStatistics)}
}

func (s *SnapshotStore) SaveStatistics(_ context.Context, stats domain.QuizStatistics) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store[stats.QuizID] = stats
	return nil
}

func (s *SnapshotStore) GetStatistics(_ context.Context, quizID string) (domain.QuizStatistics, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats, ok := s.store[quizID]
	return stats, ok, nil
}
