package memory

import (
	"context"
	"math/rand"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"quiz-attempt-service/internal/domain"
)

// CatalogLoader fetches quiz content from a backing store (e.g., Postgres).
type CatalogLoader interface {
	LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
	LoadQuestion(ctx context.Context, questionID string) (domain.Question, error)
	LoadOption(ctx context.Context, optionID string) (domain.Option, error)
	ListQuizzes(ctx context.Context) ([]domain.Quiz, error)
}

// CatalogRepository caches quizzes with TTL to avoid repeated store hits.
// The catalog is read-mostly from the attempt path, so a slightly stale quiz
// is acceptable; scoring tolerates it by contract.
type CatalogRepository struct {
	loader CatalogLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedQuiz
}

type cachedQuiz struct {
	quiz      domain.Quiz
	expiresAt time.Time
}

func NewCatalogRepository(loader CatalogLoader, ttl time.Duration) *CatalogRepository {
	return &CatalogRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedQuiz),
	}
}

func (r *CatalogRepository) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	now := r.clock()

	r.mu.RLock()
	if entry, ok := r.cache[quizID]; ok && entry.expiresAt.After(now) {
		r.mu.RUnlock()
		return entry.quiz, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do(quizID, func() (interface{}, error) {
		now := r.clock()
		r.mu.RLock()
		if entry, ok := r.cache[quizID]; ok && entry.expiresAt.After(now) {
			r.mu.RUnlock()
			return entry.quiz, nil
		}
		r.mu.RUnlock()

		quiz, err := r.loader.LoadQuiz(ctx, quizID)
		if err != nil {
			return domain.Quiz{}, err
		}

		r.mu.Lock()
		r.cache[quizID] = cachedQuiz{
			quiz:      quiz,
			expiresAt: now.Add(r.ttlWithJitter()),
		}
		r.mu.Unlock()
		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return result.(domain.Quiz), nil
}

// GetQuestion and GetOption go straight to the loader: they are only hit on
// answer writes, which are far rarer than quiz reads.
func (r *CatalogRepository) GetQuestion(ctx context.Context, questionID string) (domain.Question, error) {
	return r.loader.LoadQuestion(ctx, questionID)
}

func (r *CatalogRepository) GetOption(ctx context.Context, optionID string) (domain.Option, error) {
	return r.loader.LoadOption(ctx, optionID)
}

func (r *CatalogRepository) ListQuizzes(ctx context.Context, liveOnly bool) ([]domain.Quiz, error) {
	quizzes, err := r.loader.ListQuizzes(ctx)
	if err != nil {
		return nil, err
	}
	if !liveOnly {
		return quizzes, nil
	}
	live := make([]domain.Quiz, 0, len(quizzes))
	for _, quiz := range quizzes {
		if quiz.IsLive {
			live = append(live, quiz)
		}
	}
	return live, nil
}

func (r *CatalogRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticCatalog is an in-memory catalog backed by maps, useful for tests,
// demos, and the no-Postgres fallback. It doubles as the import target when
// the service runs without a database.
type StaticCatalog struct {
	mu      sync.RWMutex
	quizzes map[string]domain.Quiz
}

func NewStaticCatalog(quizzes ...domain.Quiz) *StaticCatalog {
	c := &StaticCatalog{quizzes: make(map[string]domain.Quiz, len(quizzes))}
	for _, quiz := range quizzes {
		c.quizzes[quiz.ID] = quiz
	}
	return c
}

func (c *StaticCatalog) LoadQuiz(_ context.Context, quizID string) (domain.Quiz, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if quiz, ok := c.quizzes[quizID]; ok {
		return quiz, nil
	}
	return domain.Quiz{}, domain.ErrQuizNotFound
}

func (c *StaticCatalog) LoadQuestion(_ context.Context, questionID string) (domain.Question, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, quiz := range c.quizzes {
		for _, q := range quiz.Questions {
			if q.ID == questionID {
				return q, nil
			}
		}
	}
	return domain.Question{}, domain.ErrQuestionNotFound
}

func (c *StaticCatalog) LoadOption(_ context.Context, optionID string) (domain.Option, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, quiz := range c.quizzes {
		for _, q := range quiz.Questions {
			for _, opt := range q.Options {
				if opt.ID == optionID {
					return opt, nil
				}
			}
		}
	}
	return domain.Option{}, domain.ErrOptionNotFound
}

func (c *StaticCatalog) ListQuizzes(_ context.Context) ([]domain.Quiz, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	quizzes := make([]domain.Quiz, 0, len(c.quizzes))
	for _, quiz := range c.quizzes {
		quizzes = append(quizzes, quiz)
	}
	sort.Slice(quizzes, func(i, j int) bool { return quizzes[i].Title < quizzes[j].Title })
	return quizzes, nil
}

// SaveQuiz stores an imported quiz, replacing any quiz with the same ID.
func (c *StaticCatalog) SaveQuiz(_ context.Context, quiz domain.Quiz) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.quizzes[quiz.ID] = quiz
	return nil
}
