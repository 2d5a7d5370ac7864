package memory

import (
	"context"
	"sync"
	"time"

	"quiz-attempt-service/internal/domain"
)

// AttemptStore is an in-memory implementation of app.AttemptRepository.
// Writes to the same attempt serialize on the store mutex, so two racing
// answer upserts settle last-writer-wins without corrupting the answer set.
type AttemptStore struct {
	mu       sync.RWMutex
	attempts map[string]domain.Attempt
	answers  map[string]map[string]string // attemptID -> questionID -> optionID
}

func NewAttemptStore() *AttemptStore {
	return &AttemptStore{
		attempts: make(map[string]domain.Attempt),
		answers:  make(map[string]map[string]string),
	}
}

func (s *AttemptStore) CreateAttempt(_ context.Context, attempt domain.Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts[attempt.ID] = attempt
	return nil
}

func (s *AttemptStore) GetAttempt(_ context.Context, attemptID string) (domain.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	attempt, ok := s.attempts[attemptID]
	if !ok {
		return domain.Attempt{}, domain.ErrAttemptNotFound
	}
	return attempt, nil
}

func (s *AttemptStore) UpsertAnswer(_ context.Context, answer domain.Answer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.attempts[answer.AttemptID]; !ok {
		return domain.ErrAttemptNotFound
	}
	chosen, ok := s.answers[answer.AttemptID]
	if !ok {
		chosen = make(map[string]string)
		s.answers[answer.AttemptID] = chosen
	}
	chosen[answer.QuestionID] = answer.OptionID
	return nil
}

func (s *AttemptStore) AnswersByAttempt(_ context.Context, attemptID string) ([]domain.Answer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.attempts[attemptID]; !ok {
		return nil, domain.ErrAttemptNotFound
	}
	chosen := s.answers[attemptID]
	answers := make([]domain.Answer, 0, len(chosen))
	for questionID, optionID := range chosen {
		answers = append(answers, domain.Answer{
			AttemptID:  attemptID,
			QuestionID: questionID,
			OptionID:   optionID,
		})
	}
	return answers, nil
}

func (s *AttemptStore) FinalizeAttempt(_ context.Context, attemptID string, score int, completedAt time.Time) (domain.Attempt, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	attempt, ok := s.attempts[attemptID]
	if !ok {
		return domain.Attempt{}, false, domain.ErrAttemptNotFound
	}
	if attempt.Completed() {
		return attempt, true, nil
	}
	attempt.Score = score
	attempt.CompletedAt = &completedAt
	attempt.PendingCompletion = false
	s.attempts[attemptID] = attempt
	return attempt, false, nil
}

func (s *AttemptStore) AttemptsByQuiz(_ context.Context, quizID string) ([]domain.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var attempts []domain.Attempt
	for _, attempt := range s.attempts {
		if attempt.QuizID == quizID {
			attempts = append(attempts, attempt)
		}
	}
	return attempts, nil
}

func (s *AttemptStore) CompletedAttempts(_ context.Context) ([]domain.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var attempts []domain.Attempt
	for _, attempt := range s.attempts {
		if attempt.Completed() {
			attempts = append(attempts, attempt)
		}
	}
	return attempts, nil
}

func (s *AttemptStore) AttemptsSince(_ context.Context, since time.Time) ([]domain.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var attempts []domain.Attempt
	for _, attempt := range s.attempts {
		if !attempt.StartedAt.Before(since) {
			attempts = append(attempts, attempt)
		}
	}
	return attempts, nil
}
