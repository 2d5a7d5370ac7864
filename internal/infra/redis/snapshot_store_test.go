package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"quiz-attempt-service/internal/domain"
)

func TestSnapshotStoreRoundTrip(t *testing.T) {
	store := NewSnapshotStore(testClient(t), time.Hour)
	ctx := context.Background()

	if _, ok, err := store.GetStatistics(ctx, "quiz-1"); err != nil || ok {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}

	stats := domain.QuizStatistics{
		QuizID:         "quiz-1",
		TotalAttempts:  4,
		AverageScore:   2.25,
		CompletionRate: 80,
		GeneratedAt:    time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC),
	}
	if err := store.SaveStatistics(ctx, stats); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, ok, err := store.GetStatistics(ctx, "quiz-1")
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if got.TotalAttempts != 4 || got.AverageScore != 2.25 || !got.GeneratedAt.Equal(stats.GeneratedAt) {
		t.Fatalf("unexpected snapshot %+v", got)
	}
}

func TestSnapshotStoreTTLExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := NewSnapshotStore(client, time.Minute)
	ctx := context.Background()

	if err := store.SaveStatistics(ctx, domain.QuizStatistics{QuizID: "quiz-1", TotalAttempts: 1}); err != nil {
		t.Fatalf("save: %v", err)
	}

	mr.FastForward(2 * time.Minute)

	if _, ok, err := store.GetStatistics(ctx, "quiz-1"); err != nil || ok {
		t.Fatalf("expected expired snapshot to miss, got ok=%v err=%v", ok, err)
	}
}
