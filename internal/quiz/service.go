package quiz

import (
	"math/rand"
	"sync"

	"github.com/schoolquiz/quizd/internal/domain"
)

type Config struct {
	// Pool is the full normalized question set.
	Pool []domain.Question
	// Quotas maps category to the number of questions per session.
	Quotas map[string]int
	// Order is the selection policy for new sessions.
	Order OrderPolicy
	// Rand drives random selection. Required.
	Rand *rand.Rand
}

// Service creates quiz sessions from a fixed pool and configuration.
type Service struct {
	pool   []domain.Question
	quotas map[string]int
	order  OrderPolicy

	// mu guards rng: rand.Rand is not safe for concurrent use and
	// sessions for different users may start at the same time.
	mu  sync.Mutex
	rng *rand.Rand
}

func NewService(c Config) *Service {
	return &Service{
		pool:   c.Pool,
		quotas: c.Quotas,
		order:  c.Order,
		rng:    c.Rand,
	}
}

// NewSession selects a question list per config and returns a fresh
// tracker over it. Restart is the same call: the previous tracker is
// discarded and selection runs again.
func (s *Service) NewSession() (*Tracker, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	questions, err := Select(s.pool, s.quotas, s.order, s.rng)
	if err != nil {
		return nil, err
	}

	return NewTracker(questions), nil
}
