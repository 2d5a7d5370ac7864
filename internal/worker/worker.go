package worker

import (
	"context"
	"log/slog"
	"time"

	"quiz-attempt-service/internal/app"
)

// JobSource hands out queued statistics jobs, one quiz ID at a time.
type JobSource interface {
	DequeueStatistics(ctx context.Context) (quizID string, err error)
}

// StatsWorker drains the statistics queue: each job triggers a full
// recomputation of the quiz's aggregate statistics and a feed broadcast.
// Job failures are logged and isolated per quiz; the loop keeps running.
type StatsWorker struct {
	jobs  JobSource
	stats *app.StatsService
	feed  *Feed
	log   *slog.Logger
}

func NewStatsWorker(jobs JobSource, stats *app.StatsService, feed *Feed, log *slog.Logger) *StatsWorker {
	return &StatsWorker{jobs: jobs, stats: stats, feed: feed, log: log}
}

// Run blocks until the context ends.
func (w *StatsWorker) Run(ctx context.Context) error {
	w.log.Info("statistics worker started")
	for {
		quizID, err := w.jobs.DequeueStatistics(ctx)
		if err != nil {
			if ctx.Err() != nil {
				w.log.Info("statistics worker stopping")
				return ctx.Err()
			}
			w.log.Error("dequeue failed", "err", err)
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
				return ctx.Err()
			}
			continue
		}

		stats, err := w.stats.Generate(ctx, quizID)
		if err != nil {
			w.log.Error("statistics job failed", "quiz", quizID, "err", err)
			continue
		}
		if w.feed != nil {
			w.feed.Publish(stats)
		}
	}
}
