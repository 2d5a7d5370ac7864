package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quiz-attempt-service/internal/domain"
)

// CatalogStore loads and writes quiz content in Postgres. It satisfies
// memory.CatalogLoader so the cached catalog repository can sit in front of it,
// and importer.CatalogWriter for the import command.
type CatalogStore struct {
	pool *pgxpool.Pool
}

func NewCatalogStore(pool *pgxpool.Pool) *CatalogStore {
	return &CatalogStore{pool: pool}
}

func (s *CatalogStore) LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	var quiz domain.Quiz
	err := s.pool.QueryRow(ctx,
		`SELECT id, title, description, is_live, time_limit_minutes FROM quizzes WHERE id=$1`,
		quizID,
	).Scan(&quiz.ID, &quiz.Title, &quiz.Description, &quiz.IsLive, &quiz.TimeLimitMinutes)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load quiz: %w", err)
	}

	questions, err := s.loadQuestions(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}
	quiz.Questions = questions
	return quiz, nil
}

func (s *CatalogStore) loadQuestions(ctx context.Context, quizID string) ([]domain.Question, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, quiz_id, text FROM questions WHERE quiz_id=$1 ORDER BY created_at, id`,
		quizID,
	)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	var questions []domain.Question
	index := make(map[string]int)
	for rows.Next() {
		var q domain.Question
		if err := rows.Scan(&q.ID, &q.QuizID, &q.Text); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		index[q.ID] = len(questions)
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	if len(questions) == 0 {
		return nil, nil
	}

	optRows, err := s.pool.Query(ctx,
		`SELECT o.id, o.question_id, o.text, o.is_correct
		 FROM options o JOIN questions q ON q.id = o.question_id
		 WHERE q.quiz_id=$1 ORDER BY o.created_at, o.id`,
		quizID,
	)
	if err != nil {
		return nil, fmt.Errorf("load options: %w", err)
	}
	defer optRows.Close()

	for optRows.Next() {
		var o domain.Option
		if err := optRows.Scan(&o.ID, &o.QuestionID, &o.Text, &o.Correct); err != nil {
			return nil, fmt.Errorf("scan option: %w", err)
		}
		if i, ok := index[o.QuestionID]; ok {
			questions[i].Options = append(questions[i].Options, o)
		}
	}
	if err := optRows.Err(); err != nil {
		return nil, fmt.Errorf("load options: %w", err)
	}
	return questions, nil
}

func (s *CatalogStore) LoadQuestion(ctx context.Context, questionID string) (domain.Question, error) {
	var q domain.Question
	err := s.pool.QueryRow(ctx,
		`SELECT id, quiz_id, text FROM questions WHERE id=$1`,
		questionID,
	).Scan(&q.ID, &q.QuizID, &q.Text)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	if err != nil {
		return domain.Question{}, fmt.Errorf("load question: %w", err)
	}
	return q, nil
}

func (s *CatalogStore) LoadOption(ctx context.Context, optionID string) (domain.Option, error) {
	var o domain.Option
	err := s.pool.QueryRow(ctx,
		`SELECT id, question_id, text, is_correct FROM options WHERE id=$1`,
		optionID,
	).Scan(&o.ID, &o.QuestionID, &o.Text, &o.Correct)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Option{}, domain.ErrOptionNotFound
	}
	if err != nil {
		return domain.Option{}, fmt.Errorf("load option: %w", err)
	}
	return o, nil
}

func (s *CatalogStore) ListQuizzes(ctx context.Context) ([]domain.Quiz, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, title, description, is_live, time_limit_minutes FROM quizzes ORDER BY title`,
	)
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	defer rows.Close()

	var quizzes []domain.Quiz
	for rows.Next() {
		var quiz domain.Quiz
		if err := rows.Scan(&quiz.ID, &quiz.Title, &quiz.Description, &quiz.IsLive, &quiz.TimeLimitMinutes); err != nil {
			return nil, fmt.Errorf("scan quiz: %w", err)
		}
		quizzes = append(quizzes, quiz)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}

	for i := range quizzes {
		questions, err := s.loadQuestions(ctx, quizzes[i].ID)
		if err != nil {
			return nil, err
		}
		quizzes[i].Questions = questions
	}
	return quizzes, nil
}

// SaveQuiz writes an imported quiz and its question tree in one transaction,
// replacing any existing quiz with the same ID.
func (s *CatalogStore) SaveQuiz(ctx context.Context, quiz domain.Quiz) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin save quiz: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO quizzes (id, title, description, is_live, time_limit_minutes)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO UPDATE SET
		   title=EXCLUDED.title, description=EXCLUDED.description,
		   is_live=EXCLUDED.is_live, time_limit_minutes=EXCLUDED.time_limit_minutes`,
		quiz.ID, quiz.Title, quiz.Description, quiz.IsLive, quiz.TimeLimitMinutes,
	)
	if err != nil {
		return fmt.Errorf("save quiz: %w", err)
	}

	// Replacing the question tree keeps the import idempotent.
	if _, err := tx.Exec(ctx, `DELETE FROM questions WHERE quiz_id=$1`, quiz.ID); err != nil {
		return fmt.Errorf("clear questions: %w", err)
	}
	for _, q := range quiz.Questions {
		if _, err := tx.Exec(ctx,
			`INSERT INTO questions (id, quiz_id, text) VALUES ($1, $2, $3)`,
			q.ID, quiz.ID, q.Text,
		); err != nil {
			return fmt.Errorf("save question: %w", err)
		}
		for _, o := range q.Options {
			if _, err := tx.Exec(ctx,
				`INSERT INTO options (id, question_id, text, is_correct) VALUES ($1, $2, $3, $4)`,
				o.ID, q.ID, o.Text, o.Correct,
			); err != nil {
				return fmt.Errorf("save option: %w", err)
			}
		}
	}
	return tx.Commit(ctx)
}
