package domain

import "time"

// Option represents a possible answer for a question.
type Option struct {
	ID         string `json:"id"`
	QuestionID string `json:"questionId"`
	Text       string `json:"text"`
	Correct    bool   `json:"correct"`
}

// Question models an MCQ question. A well-formed question has exactly one
// correct option, but zero-correct questions are tolerated (nobody scores them).
type Question struct {
	ID      string   `json:"id"`
	QuizID  string   `json:"quizId"`
	Text    string   `json:"text"`
	Options []Option `json:"options"`
}

// Quiz is a set of questions plus publishing metadata. IsLive gates visibility
// to non-admin listings; TimeLimitMinutes of zero means unlimited.
type Quiz struct {
	ID               string     `json:"id"`
	Title            string     `json:"title"`
	Description      string     `json:"description,omitempty"`
	IsLive           bool       `json:"isLive"`
	TimeLimitMinutes int        `json:"timeLimitMinutes,omitempty"`
	Questions        []Question `json:"questions"`
}

// Deadline returns the instant an attempt started at startedAt must be
// submitted by, and whether a time limit applies at all.
func (q Quiz) Deadline(startedAt time.Time) (time.Time, bool) {
	if q.TimeLimitMinutes <= 0 {
		return time.Time{}, false
	}
	return startedAt.Add(time.Duration(q.TimeLimitMinutes) * time.Minute), true
}

// Attempt is one user's instance of taking one quiz. Score is a raw
// correct-answer count, finalized exactly once by completion. A nil
// CompletedAt means the attempt is still in progress.
type Attempt struct {
	ID                string     `json:"id"`
	UserID            string     `json:"userId"`
	QuizID            string     `json:"quizId"`
	Score             int        `json:"score"`
	StartedAt         time.Time  `json:"startedAt"`
	CompletedAt       *time.Time `json:"completedAt,omitempty"`
	PendingCompletion bool       `json:"pendingCompletion"`
}

// Completed reports whether the attempt has been finalized.
func (a Attempt) Completed() bool {
	return a.CompletedAt != nil
}

// Answer records the option a user chose for one question within one attempt.
// At most one answer exists per (attempt, question); resubmission overwrites.
type Answer struct {
	AttemptID  string `json:"attemptId"`
	QuestionID string `json:"questionId"`
	OptionID   string `json:"optionId"`
}

// AttemptResult is the view returned to a user after (or during) an attempt.
type AttemptResult struct {
	Attempt        Attempt           `json:"attempt"`
	Questions      []Question        `json:"questions"`
	UserAnswers    map[string]string `json:"userAnswers"`
	CorrectAnswers map[string]string `json:"correctAnswers"`
	TotalQuestions int               `json:"totalQuestions"`
	Processing     bool              `json:"processing"`
}

// QuizStatistics is the aggregate snapshot produced by the background
// statistics job. TotalAttempts counts completed attempts only; CompletionRate
// is completed over started, as a percentage.
type QuizStatistics struct {
	QuizID         string    `json:"quizId"`
	TotalAttempts  int       `json:"totalAttempts"`
	AverageScore   float64   `json:"averageScore"`
	CompletionRate float64   `json:"completionRate"`
	GeneratedAt    time.Time `json:"generatedAt"`
}

// CompletionBucket is one bar of the time-to-complete histogram.
type CompletionBucket struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// PerformerSummary ranks a user by average score percentage across their
// completed attempts.
type PerformerSummary struct {
	UserID         string  `json:"userId"`
	AveragePercent float64 `json:"averagePercent"`
	CompletedCount int     `json:"completedCount"`
}

// DailyActivity counts attempts started on one calendar day (UTC).
type DailyActivity struct {
	Date     string `json:"date"`
	Attempts int    `json:"attempts"`
}
