package worker

import (
	"sync"

	"quiz-attempt-service/internal/domain"
)

// Feed fans out fresh statistics snapshots to subscribers of a quiz. Slow
// consumers never block publishing; a stale snapshot in the buffer is replaced
// by the newer one.
type Feed struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan domain.QuizStatistics]struct{}
}

func NewFeed() *Feed {
	return &Feed{subscribers: make(map[string]map[chan domain.QuizStatistics]struct{})}
}

// Subscribe returns a channel receiving snapshots for the quiz. The caller
// must invoke the returned cancel function to avoid leaks.
func (f *Feed) Subscribe(quizID string) (<-chan domain.QuizStatistics, func()) {
	ch := make(chan domain.QuizStatistics, 4)

	f.mu.Lock()
	subs, ok := f.subscribers[quizID]
	if !ok {
		subs = make(map[chan domain.QuizStatistics]struct{})
		f.subscribers[quizID] = subs
	}
	subs[ch] = struct{}{}
	f.mu.Unlock()

	cancel := func() {
		f.mu.Lock()
		if subs, ok := f.subscribers[quizID]; ok {
			if _, ok := subs[ch]; ok {
				delete(subs, ch)
				close(ch)
			}
			if len(subs) == 0 {
				delete(f.subscribers, quizID)
			}
		}
		f.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers a snapshot to every subscriber of its quiz.
func (f *Feed) Publish(stats domain.QuizStatistics) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for ch := range f.subscribers[stats.QuizID] {
		select {
		case ch <- stats:
		default:
			// Drop the stale buffered snapshot so the newest one lands.
			select {
			case <-ch:
			default:
			}
			ch <- stats
		}
	}
}
