package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"quiz-attempt-service/internal/domain"
)

// CatalogRepository loads quiz content (from cache/backing store).
type CatalogRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
	GetQuestion(ctx context.Context, questionID string) (domain.Question, error)
	GetOption(ctx context.Context, optionID string) (domain.Option, error)
	ListQuizzes(ctx context.Context, liveOnly bool) ([]domain.Quiz, error)
}

// AttemptRepository abstracts how attempts and answers are stored.
type AttemptRepository interface {
	CreateAttempt(ctx context.Context, attempt domain.Attempt) error
	GetAttempt(ctx context.Context, attemptID string) (domain.Attempt, error)
	UpsertAnswer(ctx context.Context, answer domain.Answer) error
	AnswersByAttempt(ctx context.Context, attemptID string) ([]domain.Answer, error)
	// FinalizeAttempt stores score and completion time for an in-progress
	// attempt and clears its pending flag. When the attempt was already
	// completed it reports alreadyDone=true and returns the stored row
	// untouched, so two racing completions settle on one score.
	FinalizeAttempt(ctx context.Context, attemptID string, score int, completedAt time.Time) (attempt domain.Attempt, alreadyDone bool, err error)
	AttemptsByQuiz(ctx context.Context, quizID string) ([]domain.Attempt, error)
	CompletedAttempts(ctx context.Context) ([]domain.Attempt, error)
	AttemptsSince(ctx context.Context, since time.Time) ([]domain.Attempt, error)
}

// TaskQueue schedules background statistics aggregation. Enqueue is
// best-effort fire-and-forget from the caller's point of view.
type TaskQueue interface {
	EnqueueStatistics(ctx context.Context, quizID string) error
}

// AttemptService owns the attempt lifecycle: start, answer, complete, result.
type AttemptService struct {
	catalog  CatalogRepository
	attempts AttemptRepository
	queue    TaskQueue
	log      *slog.Logger
	now      func() time.Time
	newID    func() string
}

func NewAttemptService(catalog CatalogRepository, attempts AttemptRepository, queue TaskQueue, log *slog.Logger) *AttemptService {
	return &AttemptService{
		catalog:  catalog,
		attempts: attempts,
		queue:    queue,
		log:      log,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// WithClock is test-only for deterministic timestamps.
func (s *AttemptService) WithClock(now func() time.Time) *AttemptService {
	s.now = now
	return s
}

// Start creates a new in-progress attempt for the user. A quiz with zero
// questions is startable; completing it yields score zero. Multiple attempts
// per (user, quiz) are allowed, each start creates a fresh row.
func (s *AttemptService) Start(ctx context.Context, userID, quizID string) (domain.Attempt, error) {
	if _, err := s.catalog.GetQuiz(ctx, quizID); err != nil {
		return domain.Attempt{}, err
	}

	attempt := domain.Attempt{
		ID:                s.newID(),
		UserID:            userID,
		QuizID:            quizID,
		Score:             0,
		StartedAt:         s.now().UTC(),
		PendingCompletion: true,
	}
	if err := s.attempts.CreateAttempt(ctx, attempt); err != nil {
		return domain.Attempt{}, err
	}
	s.log.Debug("attempt started", "attempt", attempt.ID, "quiz", quizID, "user", userID)
	return attempt, nil
}

// RecordAnswer stores the user's chosen option for a question, overwriting any
// earlier choice for the same question. Answers are rejected once the attempt
// is completed, including when this very access tripped the time limit.
func (s *AttemptService) RecordAnswer(ctx context.Context, attemptID, questionID, optionID string) error {
	attempt, _, err := s.loadAttempt(ctx, attemptID)
	if err != nil {
		return err
	}
	if attempt.Completed() {
		return domain.ErrAttemptCompleted
	}

	question, err := s.catalog.GetQuestion(ctx, questionID)
	if err != nil {
		return err
	}
	option, err := s.catalog.GetOption(ctx, optionID)
	if err != nil {
		return err
	}
	if question.QuizID != attempt.QuizID {
		return domain.ErrQuestionNotInQuiz
	}
	if option.QuestionID != question.ID {
		return domain.ErrOptionNotInQuestion
	}

	return s.attempts.UpsertAnswer(ctx, domain.Answer{
		AttemptID:  attempt.ID,
		QuestionID: question.ID,
		OptionID:   option.ID,
	})
}

// Complete finalizes the attempt: scores the recorded answers, stamps the
// completion time, and schedules statistics aggregation. Calling it on an
// already-completed attempt returns the stored result unchanged and does not
// enqueue a second job.
func (s *AttemptService) Complete(ctx context.Context, attemptID string) (domain.Attempt, error) {
	attempt, err := s.attempts.GetAttempt(ctx, attemptID)
	if err != nil {
		return domain.Attempt{}, err
	}
	if attempt.Completed() {
		return attempt, nil
	}
	return s.finalize(ctx, attempt)
}

// Result returns the user-facing view of an attempt: questions, the user's
// answers so far, and the correct answers. Processing is true while the score
// has not settled yet.
func (s *AttemptService) Result(ctx context.Context, attemptID string) (domain.AttemptResult, error) {
	attempt, quiz, err := s.loadAttempt(ctx, attemptID)
	if err != nil {
		return domain.AttemptResult{}, err
	}

	answers, err := s.attempts.AnswersByAttempt(ctx, attempt.ID)
	if err != nil {
		return domain.AttemptResult{}, err
	}

	return domain.AttemptResult{
		Attempt:        attempt,
		Questions:      quiz.Questions,
		UserAnswers:    answerMap(answers),
		CorrectAnswers: CorrectOptions(quiz),
		TotalQuestions: len(quiz.Questions),
		Processing:     attempt.PendingCompletion && !attempt.Completed(),
	}, nil
}

// loadAttempt fetches the attempt and its quiz, auto-completing the attempt
// first when its time limit has expired. The check is pull-based: an attempt
// nobody reads again stays in progress forever.
func (s *AttemptService) loadAttempt(ctx context.Context, attemptID string) (domain.Attempt, domain.Quiz, error) {
	attempt, err := s.attempts.GetAttempt(ctx, attemptID)
	if err != nil {
		return domain.Attempt{}, domain.Quiz{}, err
	}
	quiz, err := s.catalog.GetQuiz(ctx, attempt.QuizID)
	if err != nil {
		return domain.Attempt{}, domain.Quiz{}, err
	}

	if !attempt.Completed() {
		if deadline, ok := quiz.Deadline(attempt.StartedAt); ok && s.now().UTC().After(deadline) {
			s.log.Info("time limit exceeded, auto-submitting attempt", "attempt", attempt.ID, "quiz", quiz.ID)
			attempt, err = s.finalize(ctx, attempt)
			if err != nil {
				return domain.Attempt{}, domain.Quiz{}, err
			}
		}
	}
	return attempt, quiz, nil
}

func (s *AttemptService) finalize(ctx context.Context, attempt domain.Attempt) (domain.Attempt, error) {
	quiz, err := s.catalog.GetQuiz(ctx, attempt.QuizID)
	if err != nil {
		return domain.Attempt{}, err
	}
	answers, err := s.attempts.AnswersByAttempt(ctx, attempt.ID)
	if err != nil {
		return domain.Attempt{}, err
	}

	score := ScoreAttempt(CorrectOptions(quiz), answerMap(answers))

	finalized, alreadyDone, err := s.attempts.FinalizeAttempt(ctx, attempt.ID, score, s.now().UTC())
	if err != nil {
		return domain.Attempt{}, err
	}
	if alreadyDone {
		return finalized, nil
	}

	// The attempt's own completion stands even when scheduling fails.
	if err := s.queue.EnqueueStatistics(ctx, attempt.QuizID); err != nil {
		s.log.Error("statistics enqueue failed", "quiz", attempt.QuizID, "err", err)
	}

	s.log.Info("attempt completed", "attempt", attempt.ID, "quiz", attempt.QuizID, "score", score)
	return finalized, nil
}
