package http_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"quiz-attempt-service/internal/app"
	"quiz-attempt-service/internal/domain"
	"quiz-attempt-service/internal/infra/memory"
	transport "quiz-attempt-service/internal/transport/http"
	"quiz-attempt-service/internal/worker"
)

func fixtureQuiz() domain.Quiz {
	quiz := domain.Quiz{ID: "quiz-1", Title: "Capitals", IsLive: true}
	for _, qid := range []string{"q1", "q2"} {
		question := domain.Question{ID: qid, QuizID: quiz.ID, Text: "prompt " + qid}
		for i, suffix := range []string{"o1", "o2", "o3"} {
			question.Options = append(question.Options, domain.Option{
				ID:         qid + "-" + suffix,
				QuestionID: qid,
				Text:       suffix,
				Correct:    i == 0,
			})
		}
		quiz.Questions = append(quiz.Questions, question)
	}
	return quiz
}

type apiFixture struct {
	server *httptest.Server
	feed   *worker.Feed
	stats  *app.StatsService
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	catalog := memory.NewCatalogRepository(memory.NewStaticCatalog(fixtureQuiz()), time.Minute)
	attemptStore := memory.NewAttemptStore()
	queue := memory.NewQueue(16)
	feed := worker.NewFeed()

	attempts := app.NewAttemptService(catalog, attemptStore, queue, log)
	stats := app.NewStatsService(catalog, attemptStore, memory.NewSnapshotStore(), log)

	mux := http.NewServeMux()
	transport.NewAPI(attempts, stats, catalog, log).Register(mux)
	wsHandler := transport.NewStatsFeedHandler(stats, feed, log)
	mux.HandleFunc("GET /ws/statistics", wsHandler.ServeWS)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return &apiFixture{server: server, feed: feed, stats: stats}
}

func (f *apiFixture) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequest(method, f.server.URL+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := f.server.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func TestAttemptFlow(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.do(t, http.MethodPost, "/quizzes/quiz-1/attempts", map[string]string{"userId": "u1"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("start: expected 201, got %d", resp.StatusCode)
	}
	attempt := decode[domain.Attempt](t, resp)
	if attempt.ID == "" || attempt.QuizID != "quiz-1" || attempt.Completed() {
		t.Fatalf("unexpected attempt %+v", attempt)
	}

	answers := fmt.Sprintf("/attempts/%s/answers", attempt.ID)
	resp = f.do(t, http.MethodPut, answers, map[string]string{"questionId": "q1", "optionId": "q1-o1"})
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("answer: expected 204, got %d", resp.StatusCode)
	}
	resp.Body.Close()
	resp = f.do(t, http.MethodPut, answers, map[string]string{"questionId": "q2", "optionId": "q2-o3"})
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("answer: expected 204, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = f.do(t, http.MethodPost, "/attempts/"+attempt.ID+"/complete", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("complete: expected 200, got %d", resp.StatusCode)
	}
	completed := decode[domain.Attempt](t, resp)
	if completed.Score != 1 || !completed.Completed() {
		t.Fatalf("expected completed attempt with score 1, got %+v", completed)
	}

	// Completing again is idempotent.
	resp = f.do(t, http.MethodPost, "/attempts/"+attempt.ID+"/complete", nil)
	again := decode[domain.Attempt](t, resp)
	if resp.StatusCode != http.StatusOK || again.Score != completed.Score {
		t.Fatalf("second complete: expected identical result, got %d %+v", resp.StatusCode, again)
	}

	resp = f.do(t, http.MethodGet, "/attempts/"+attempt.ID+"/result", nil)
	result := decode[domain.AttemptResult](t, resp)
	if result.TotalQuestions != 2 || result.UserAnswers["q1"] != "q1-o1" {
		t.Fatalf("unexpected result %+v", result)
	}
	if result.CorrectAnswers["q1"] != "q1-o1" || result.CorrectAnswers["q2"] != "q2-o1" {
		t.Fatalf("unexpected correct answer map %+v", result.CorrectAnswers)
	}
}

func TestQuizEndpointsHideAnswers(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.do(t, http.MethodGet, "/quizzes", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", resp.StatusCode)
	}
	summaries := decode[[]map[string]any](t, resp)
	if len(summaries) != 1 || summaries[0]["questionCount"].(float64) != 2 {
		t.Fatalf("unexpected summaries %v", summaries)
	}

	resp = f.do(t, http.MethodGet, "/quizzes/quiz-1", nil)
	quiz := decode[domain.Quiz](t, resp)
	for _, question := range quiz.Questions {
		for _, option := range question.Options {
			if option.Correct {
				t.Fatalf("correct flag leaked for option %s", option.ID)
			}
		}
	}
}

func TestErrorStatusCodes(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.do(t, http.MethodPost, "/quizzes/missing/attempts", map[string]string{"userId": "u1"})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown quiz: expected 404, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = f.do(t, http.MethodPost, "/quizzes/quiz-1/attempts", map[string]string{})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("missing userId: expected 400, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	start := f.do(t, http.MethodPost, "/quizzes/quiz-1/attempts", map[string]string{"userId": "u1"})
	attempt := decode[domain.Attempt](t, start)

	resp = f.do(t, http.MethodPut, "/attempts/"+attempt.ID+"/answers", map[string]string{"questionId": "q1", "optionId": "q2-o1"})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("foreign option: expected 422, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	if resp = f.do(t, http.MethodPost, "/attempts/"+attempt.ID+"/complete", nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("complete: expected 200, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = f.do(t, http.MethodPut, "/attempts/"+attempt.ID+"/answers", map[string]string{"questionId": "q1", "optionId": "q1-o1"})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("answer after completion: expected 409, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = f.do(t, http.MethodGet, "/attempts/missing/result", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown attempt: expected 404, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestStatisticsAndAnalyticsEndpoints(t *testing.T) {
	f := newAPIFixture(t)

	start := f.do(t, http.MethodPost, "/quizzes/quiz-1/attempts", map[string]string{"userId": "u1"})
	attempt := decode[domain.Attempt](t, start)
	f.do(t, http.MethodPut, "/attempts/"+attempt.ID+"/answers", map[string]string{"questionId": "q1", "optionId": "q1-o1"}).Body.Close()
	f.do(t, http.MethodPost, "/attempts/"+attempt.ID+"/complete", nil).Body.Close()

	resp := f.do(t, http.MethodGet, "/quizzes/quiz-1/statistics", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("statistics: expected 200, got %d", resp.StatusCode)
	}
	stats := decode[domain.QuizStatistics](t, resp)
	if stats.TotalAttempts != 1 || stats.CompletionRate != 100 {
		t.Fatalf("unexpected statistics %+v", stats)
	}

	resp = f.do(t, http.MethodGet, "/analytics/completion-times", nil)
	buckets := decode[[]domain.CompletionBucket](t, resp)
	if len(buckets) != 5 {
		t.Fatalf("expected 5 buckets, got %d", len(buckets))
	}

	resp = f.do(t, http.MethodGet, "/analytics/top-performers?limit=5", nil)
	performers := decode[[]domain.PerformerSummary](t, resp)
	if len(performers) != 1 || performers[0].UserID != "u1" {
		t.Fatalf("unexpected performers %+v", performers)
	}

	resp = f.do(t, http.MethodGet, "/analytics/activity?days=7", nil)
	activity := decode[[]domain.DailyActivity](t, resp)
	if len(activity) != 8 {
		t.Fatalf("expected 8 days of activity, got %d", len(activity))
	}
}
