package app

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"quiz-attempt-service/internal/domain"
)

// StatsStore persists the latest statistics snapshot per quiz so reads don't
// recompute on every request.
type StatsStore interface {
	SaveStatistics(ctx context.Context, stats domain.QuizStatistics) error
	GetStatistics(ctx context.Context, quizID string) (domain.QuizStatistics, bool, error)
}

// StatsService computes aggregate quiz metrics. It is a read-then-compute
// layer over the attempt store, carrying no state between invocations, so runs
// are idempotent and safe to repeat.
type StatsService struct {
	catalog  CatalogRepository
	attempts AttemptRepository
	store    StatsStore
	log      *slog.Logger
	now      func() time.Time
}

func NewStatsService(catalog CatalogRepository, attempts AttemptRepository, store StatsStore, log *slog.Logger) *StatsService {
	return &StatsService{
		catalog:  catalog,
		attempts: attempts,
		store:    store,
		log:      log,
		now:      time.Now,
	}
}

// WithClock is test-only for deterministic timestamps.
func (s *StatsService) WithClock(now func() time.Time) *StatsService {
	s.now = now
	return s
}

// Generate recomputes the statistics snapshot for a quiz across all of its
// attempts. A quiz with no attempts yields a zero record without error.
func (s *StatsService) Generate(ctx context.Context, quizID string) (domain.QuizStatistics, error) {
	attempts, err := s.attempts.AttemptsByQuiz(ctx, quizID)
	if err != nil {
		return domain.QuizStatistics{}, err
	}

	stats := domain.QuizStatistics{
		QuizID:      quizID,
		GeneratedAt: s.now().UTC(),
	}

	started := len(attempts)
	totalScore := 0
	for _, a := range attempts {
		if !a.Completed() {
			continue
		}
		stats.TotalAttempts++
		totalScore += a.Score
	}
	if stats.TotalAttempts > 0 {
		stats.AverageScore = float64(totalScore) / float64(stats.TotalAttempts)
		stats.CompletionRate = float64(stats.TotalAttempts) / float64(started) * 100
	}

	s.log.Debug("statistics generated",
		"quiz", quizID,
		"totalAttempts", stats.TotalAttempts,
		"averageScore", stats.AverageScore,
		"completionRate", stats.CompletionRate,
	)
	if err := s.store.SaveStatistics(ctx, stats); err != nil {
		// The snapshot is a cache; the computed value is still good.
		s.log.Error("saving statistics snapshot failed", "quiz", quizID, "err", err)
	}
	return stats, nil
}

// Snapshot returns the stored statistics for a quiz, generating them on the
// spot when no snapshot exists yet.
func (s *StatsService) Snapshot(ctx context.Context, quizID string) (domain.QuizStatistics, error) {
	stats, ok, err := s.store.GetStatistics(ctx, quizID)
	if err == nil && ok {
		return stats, nil
	}
	if err != nil {
		s.log.Warn("reading statistics snapshot failed, recomputing", "quiz", quizID, "err", err)
	}
	return s.Generate(ctx, quizID)
}

// CompletionTimeDistribution buckets completed attempts by how long they took.
func (s *StatsService) CompletionTimeDistribution(ctx context.Context) ([]domain.CompletionBucket, error) {
	completed, err := s.attempts.CompletedAttempts(ctx)
	if err != nil {
		return nil, err
	}

	buckets := []domain.CompletionBucket{
		{Label: "Under 5 min"},
		{Label: "5-10 min"},
		{Label: "10-15 min"},
		{Label: "15-30 min"},
		{Label: "Over 30 min"},
	}
	for _, a := range completed {
		minutes := a.CompletedAt.Sub(a.StartedAt).Minutes()
		switch {
		case minutes < 5:
			buckets[0].Count++
		case minutes < 10:
			buckets[1].Count++
		case minutes < 15:
			buckets[2].Count++
		case minutes < 30:
			buckets[3].Count++
		default:
			buckets[4].Count++
		}
	}
	return buckets, nil
}

// TopPerformers ranks users by their average score percentage across completed
// attempts. Attempts at zero-question quizzes are skipped to avoid dividing by
// the question count.
func (s *StatsService) TopPerformers(ctx context.Context, limit int) ([]domain.PerformerSummary, error) {
	completed, err := s.attempts.CompletedAttempts(ctx)
	if err != nil {
		return nil, err
	}

	questionCounts := make(map[string]int)
	type tally struct {
		totalPercent float64
		count        int
	}
	byUser := make(map[string]*tally)

	for _, a := range completed {
		count, ok := questionCounts[a.QuizID]
		if !ok {
			quiz, err := s.catalog.GetQuiz(ctx, a.QuizID)
			if err != nil {
				// A deleted quiz leaves orphan attempts out of the ranking.
				questionCounts[a.QuizID] = 0
				continue
			}
			count = len(quiz.Questions)
			questionCounts[a.QuizID] = count
		}
		if count == 0 {
			continue
		}
		t, ok := byUser[a.UserID]
		if !ok {
			t = &tally{}
			byUser[a.UserID] = t
		}
		t.totalPercent += float64(a.Score) / float64(count) * 100
		t.count++
	}

	performers := make([]domain.PerformerSummary, 0, len(byUser))
	for userID, t := range byUser {
		performers = append(performers, domain.PerformerSummary{
			UserID:         userID,
			AveragePercent: t.totalPercent / float64(t.count),
			CompletedCount: t.count,
		})
	}
	sort.Slice(performers, func(i, j int) bool {
		if performers[i].AveragePercent != performers[j].AveragePercent {
			return performers[i].AveragePercent > performers[j].AveragePercent
		}
		return performers[i].UserID < performers[j].UserID
	})
	if limit > 0 && len(performers) > limit {
		performers = performers[:limit]
	}
	return performers, nil
}

// ActivityOverTime counts attempts started per day for the trailing window,
// zero-filling days with no activity.
func (s *StatsService) ActivityOverTime(ctx context.Context, days int) ([]domain.DailyActivity, error) {
	if days <= 0 {
		days = 30
	}
	end := s.now().UTC()
	since := end.AddDate(0, 0, -days)

	attempts, err := s.attempts.AttemptsSince(ctx, since)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	for _, a := range attempts {
		counts[a.StartedAt.UTC().Format("2006-01-02")]++
	}

	activity := make([]domain.DailyActivity, 0, days+1)
	for day := since; !day.After(end); day = day.AddDate(0, 0, 1) {
		key := day.Format("2006-01-02")
		activity = append(activity, domain.DailyActivity{Date: key, Attempts: counts[key]})
	}
	return activity, nil
}
