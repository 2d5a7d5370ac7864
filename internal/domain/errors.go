package domain

import "errors"

var (
	// ErrQuizNotFound indicates the quiz does not exist in the catalog.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrAttemptNotFound indicates the attempt ID does not resolve.
	ErrAttemptNotFound = errors.New("attempt not found")
	// ErrQuestionNotFound indicates a submitted question ID is invalid.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrOptionNotFound indicates a submitted option ID is invalid.
	ErrOptionNotFound = errors.New("option not found")
	// ErrQuestionNotInQuiz rejects answers for a question outside the attempt's quiz.
	ErrQuestionNotInQuiz = errors.New("question does not belong to the attempt's quiz")
	// ErrOptionNotInQuestion rejects options that belong to a different question.
	ErrOptionNotInQuestion = errors.New("option does not belong to the question")
	// ErrAttemptCompleted rejects answer writes after an attempt is finalized.
	ErrAttemptCompleted = errors.New("attempt already completed")
)
