package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"quiz-attempt-service/internal/app"
	"quiz-attempt-service/internal/domain"
)

// API wires the attempt and statistics use cases into a JSON HTTP surface.
type API struct {
	attempts *app.AttemptService
	stats    *app.StatsService
	catalog  app.CatalogRepository
	log      *slog.Logger
}

func NewAPI(attempts *app.AttemptService, stats *app.StatsService, catalog app.CatalogRepository, log *slog.Logger) *API {
	return &API{attempts: attempts, stats: stats, catalog: catalog, log: log}
}

// Register mounts all routes on the mux.
func (a *API) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /quizzes", a.listQuizzes)
	mux.HandleFunc("GET /quizzes/{id}", a.getQuiz)
	mux.HandleFunc("GET /quizzes/{id}/statistics", a.getStatistics)
	mux.HandleFunc("POST /quizzes/{id}/attempts", a.startAttempt)
	mux.HandleFunc("PUT /attempts/{id}/answers", a.recordAnswer)
	mux.HandleFunc("POST /attempts/{id}/complete", a.completeAttempt)
	mux.HandleFunc("GET /attempts/{id}/result", a.getResult)
	mux.HandleFunc("GET /analytics/completion-times", a.completionTimes)
	mux.HandleFunc("GET /analytics/top-performers", a.topPerformers)
	mux.HandleFunc("GET /analytics/activity", a.activity)
}

type quizSummary struct {
	ID               string `json:"id"`
	Title            string `json:"title"`
	Description      string `json:"description,omitempty"`
	IsLive           bool   `json:"isLive"`
	TimeLimitMinutes int    `json:"timeLimitMinutes,omitempty"`
	QuestionCount    int    `json:"questionCount"`
}

func (a *API) listQuizzes(w http.ResponseWriter, r *http.Request) {
	liveOnly := r.URL.Query().Get("all") == ""
	quizzes, err := a.catalog.ListQuizzes(r.Context(), liveOnly)
	if err != nil {
		a.writeError(w, err)
		return
	}
	summaries := make([]quizSummary, 0, len(quizzes))
	for _, quiz := range quizzes {
		summaries = append(summaries, quizSummary{
			ID:               quiz.ID,
			Title:            quiz.Title,
			Description:      quiz.Description,
			IsLive:           quiz.IsLive,
			TimeLimitMinutes: quiz.TimeLimitMinutes,
			QuestionCount:    len(quiz.Questions),
		})
	}
	a.writeJSON(w, http.StatusOK, summaries)
}

func (a *API) getQuiz(w http.ResponseWriter, r *http.Request) {
	quiz, err := a.catalog.GetQuiz(r.Context(), r.PathValue("id"))
	if err != nil {
		a.writeError(w, err)
		return
	}
	// Takers must not see correctness flags.
	a.writeJSON(w, http.StatusOK, sanitizeQuiz(quiz))
}

// sanitizeQuiz strips the correct flags before a quiz is handed to a taker.
func sanitizeQuiz(quiz domain.Quiz) domain.Quiz {
	questions := make([]domain.Question, len(quiz.Questions))
	for i, q := range quiz.Questions {
		options := make([]domain.Option, len(q.Options))
		for j, o := range q.Options {
			o.Correct = false
			options[j] = o
		}
		q.Options = options
		questions[i] = q
	}
	quiz.Questions = questions
	return quiz
}

type startAttemptRequest struct {
	UserID string `json:"userId"`
}

func (a *API) startAttempt(w http.ResponseWriter, r *http.Request) {
	var req startAttemptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		http.Error(w, "missing userId", http.StatusBadRequest)
		return
	}
	attempt, err := a.attempts.Start(r.Context(), req.UserID, r.PathValue("id"))
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusCreated, attempt)
}

type recordAnswerRequest struct {
	QuestionID string `json:"questionId"`
	OptionID   string `json:"optionId"`
}

func (a *API) recordAnswer(w http.ResponseWriter, r *http.Request) {
	var req recordAnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.QuestionID == "" || req.OptionID == "" {
		http.Error(w, "missing questionId or optionId", http.StatusBadRequest)
		return
	}
	if err := a.attempts.RecordAnswer(r.Context(), r.PathValue("id"), req.QuestionID, req.OptionID); err != nil {
		a.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) completeAttempt(w http.ResponseWriter, r *http.Request) {
	attempt, err := a.attempts.Complete(r.Context(), r.PathValue("id"))
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, attempt)
}

func (a *API) getResult(w http.ResponseWriter, r *http.Request) {
	result, err := a.attempts.Result(r.Context(), r.PathValue("id"))
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, result)
}

func (a *API) getStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := a.stats.Snapshot(r.Context(), r.PathValue("id"))
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, stats)
}

func (a *API) completionTimes(w http.ResponseWriter, r *http.Request) {
	buckets, err := a.stats.CompletionTimeDistribution(r.Context())
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, buckets)
}

func (a *API) topPerformers(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	performers, err := a.stats.TopPerformers(r.Context(), limit)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, performers)
}

func (a *API) activity(w http.ResponseWriter, r *http.Request) {
	days := 30
	if raw := r.URL.Query().Get("days"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			days = parsed
		}
	}
	activity, err := a.stats.ActivityOverTime(r.Context(), days)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, activity)
}

type errorResponse struct {
	Error string `json:"error"`
}

func (a *API) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrQuizNotFound),
		errors.Is(err, domain.ErrAttemptNotFound),
		errors.Is(err, domain.ErrQuestionNotFound),
		errors.Is(err, domain.ErrOptionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrAttemptCompleted):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrQuestionNotInQuiz),
		errors.Is(err, domain.ErrOptionNotInQuestion):
		status = http.StatusUnprocessableEntity
	}
	if status == http.StatusInternalServerError {
		a.log.Error("request failed", "err", err)
	}
	a.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (a *API) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.log.Error("encoding response failed", "err", err)
	}
}
