package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
)

func testClient(t *testing.T) *goredis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestQueueRoundTrip(t *testing.T) {
	queue := NewQueue(testClient(t))
	ctx := context.Background()

	if err := queue.EnqueueStatistics(ctx, "quiz-1"); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := queue.EnqueueStatistics(ctx, "quiz-2"); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	first, err := queue.DequeueStatistics(ctx)
	if err != nil {
		t.Fatalf("dequeue: %v", err)
	}
	second, err := queue.DequeueStatistics(ctx)
	if err != nil {
		t.Fatalf("dequeue: %v", err)
	}
	if first != "quiz-1" || second != "quiz-2" {
		t.Fatalf("expected FIFO order, got %q then %q", first, second)
	}
}

func TestDequeueDeliversLaterEnqueue(t *testing.T) {
	queue := NewQueue(testClient(t))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	go func() {
		time.Sleep(50 * time.Millisecond)
		_ = queue.EnqueueStatistics(context.Background(), "quiz-9")
	}()

	quizID, err := queue.DequeueStatistics(ctx)
	if err != nil {
		t.Fatalf("dequeue: %v", err)
	}
	if quizID != "quiz-9" {
		t.Fatalf("expected quiz-9, got %q", quizID)
	}
}
