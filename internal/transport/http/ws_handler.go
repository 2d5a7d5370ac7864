package http

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"quiz-attempt-service/internal/app"
	"quiz-attempt-service/internal/domain"
	"quiz-attempt-service/internal/worker"
)

// StatsFeedHandler streams statistics snapshots for one quiz over a
// websocket: the current snapshot on connect, then a fresh one every time the
// background aggregator finishes a run.
type StatsFeedHandler struct {
	stats    *app.StatsService
	feed     *worker.Feed
	log      *slog.Logger
	upgrader websocket.Upgrader
}

func NewStatsFeedHandler(stats *app.StatsService, feed *worker.Feed, log *slog.Logger) *StatsFeedHandler {
	return &StatsFeedHandler{
		stats: stats,
		feed:  feed,
		log:   log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type feedMessage struct {
	Type    string                `json:"type"`
	Payload domain.QuizStatistics `json:"payload"`
}

func (h *StatsFeedHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	quizID := r.URL.Query().Get("quizId")
	if quizID == "" {
		http.Error(w, "missing quizId", http.StatusBadRequest)
		return
	}

	initial, err := h.stats.Snapshot(r.Context(), quizID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	updates, cancel := h.feed.Subscribe(quizID)
	defer cancel()

	if err := conn.WriteJSON(feedMessage{Type: "statistics", Payload: initial}); err != nil {
		return
	}

	// Reader goroutine only notices the peer going away; the feed is one-way.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case stats, ok := <-updates:
			if !ok {
				return
			}
			if err := conn.WriteJSON(feedMessage{Type: "statistics", Payload: stats}); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
