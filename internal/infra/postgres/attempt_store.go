package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quiz-attempt-service/internal/domain"
)

// AttemptStore persists attempts and answers in Postgres. The answers table's
// (attempt_id, question_id) primary key makes answer upserts naturally
// last-writer-wins under concurrency, and the completed_at guard in
// FinalizeAttempt makes completion settle exactly once.
type AttemptStore struct {
	pool *pgxpool.Pool
}

func NewAttemptStore(pool *pgxpool.Pool) *AttemptStore {
	return &AttemptStore{pool: pool}
}

func (s *AttemptStore) CreateAttempt(ctx context.Context, attempt domain.Attempt) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO attempts (id, user_id, quiz_id, score, started_at, completed_at, pending_completion)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		attempt.ID, attempt.UserID, attempt.QuizID, attempt.Score,
		attempt.StartedAt, attempt.CompletedAt, attempt.PendingCompletion,
	)
	if err != nil {
		return fmt.Errorf("create attempt: %w", err)
	}
	return nil
}

func (s *AttemptStore) GetAttempt(ctx context.Context, attemptID string) (domain.Attempt, error) {
	attempt, err := s.scanAttempt(s.pool.QueryRow(ctx,
		`SELECT id, user_id, quiz_id, score, started_at, completed_at, pending_completion
		 FROM attempts WHERE id=$1`,
		attemptID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Attempt{}, domain.ErrAttemptNotFound
	}
	if err != nil {
		return domain.Attempt{}, fmt.Errorf("get attempt: %w", err)
	}
	return attempt, nil
}

func (s *AttemptStore) UpsertAnswer(ctx context.Context, answer domain.Answer) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO answers (attempt_id, question_id, option_id)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (attempt_id, question_id) DO UPDATE SET option_id=EXCLUDED.option_id`,
		answer.AttemptID, answer.QuestionID, answer.OptionID,
	)
	if err != nil {
		return fmt.Errorf("upsert answer: %w", err)
	}
	return nil
}

func (s *AttemptStore) AnswersByAttempt(ctx context.Context, attemptID string) ([]domain.Answer, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT attempt_id, question_id, option_id FROM answers WHERE attempt_id=$1`,
		attemptID,
	)
	if err != nil {
		return nil, fmt.Errorf("load answers: %w", err)
	}
	defer rows.Close()

	var answers []domain.Answer
	for rows.Next() {
		var a domain.Answer
		if err := rows.Scan(&a.AttemptID, &a.QuestionID, &a.OptionID); err != nil {
			return nil, fmt.Errorf("scan answer: %w", err)
		}
		answers = append(answers, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load answers: %w", err)
	}
	return answers, nil
}

func (s *AttemptStore) FinalizeAttempt(ctx context.Context, attemptID string, score int, completedAt time.Time) (domain.Attempt, bool, error) {
	attempt, err := s.scanAttempt(s.pool.QueryRow(ctx,
		`UPDATE attempts SET score=$2, completed_at=$3, pending_completion=FALSE
		 WHERE id=$1 AND completed_at IS NULL
		 RETURNING id, user_id, quiz_id, score, started_at, completed_at, pending_completion`,
		attemptID, score, completedAt,
	))
	if err == nil {
		return attempt, false, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.Attempt{}, false, fmt.Errorf("finalize attempt: %w", err)
	}

	// No row updated: either a concurrent finalize won, or the ID is bogus.
	attempt, err = s.GetAttempt(ctx, attemptID)
	if err != nil {
		return domain.Attempt{}, false, err
	}
	return attempt, true, nil
}

func (s *AttemptStore) AttemptsByQuiz(ctx context.Context, quizID string) ([]domain.Attempt, error) {
	return s.queryAttempts(ctx,
		`SELECT id, user_id, quiz_id, score, started_at, completed_at, pending_completion
		 FROM attempts WHERE quiz_id=$1`, quizID)
}

func (s *AttemptStore) CompletedAttempts(ctx context.Context) ([]domain.Attempt, error) {
	return s.queryAttempts(ctx,
		`SELECT id, user_id, quiz_id, score, started_at, completed_at, pending_completion
		 FROM attempts WHERE completed_at IS NOT NULL`)
}

func (s *AttemptStore) AttemptsSince(ctx context.Context, since time.Time) ([]domain.Attempt, error) {
	return s.queryAttempts(ctx,
		`SELECT id, user_id, quiz_id, score, started_at, completed_at, pending_completion
		 FROM attempts WHERE started_at >= $1`, since)
}

func (s *AttemptStore) queryAttempts(ctx context.Context, query string, args ...interface{}) ([]domain.Attempt, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	defer rows.Close()

	var attempts []domain.Attempt
	for rows.Next() {
		attempt, err := s.scanAttempt(rows)
		if err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		attempts = append(attempts, attempt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	return attempts, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (s *AttemptStore) scanAttempt(row rowScanner) (domain.Attempt, error) {
	var attempt domain.Attempt
	err := row.Scan(
		&attempt.ID, &attempt.UserID, &attempt.QuizID, &attempt.Score,
		&attempt.StartedAt, &attempt.CompletedAt, &attempt.PendingCompletion,
	)
	return attempt, err
}
