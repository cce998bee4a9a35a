// Package leaderboard serves the top high scores, optionally mirrored
// into a redis sorted set.
package leaderboard

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/redis/go-redis/v9"

	"github.com/schoolquiz/quizd/internal/account"
	"github.com/schoolquiz/quizd/internal/domain"
	"github.com/schoolquiz/quizd/internal/event"
)

const defaultSize = 10

type Config struct {
	EventBus *event.Bus
	Accounts *account.Service

	// Redis enables the sorted-set mirror. Nil serves straight from the
	// account store.
	Redis  redis.UniversalClient
	Prefix string

	// Size is the number of rows served, default 10.
	Size int
}

type Service struct {
	eb       *event.Bus
	accounts *account.Service
	redis    redis.UniversalClient
	prefix   string
	size     int
}

func NewService(c Config) *Service {
	s := &Service{
		eb:       c.EventBus,
		accounts: c.Accounts,
		redis:    c.Redis,
		prefix:   c.Prefix,
		size:     c.Size,
	}
	if s.size <= 0 {
		s.size = defaultSize
	}

	if s.redis != nil && s.eb != nil {
		s.eb.Subscribe(domain.EventNameHighScoreUpdated, func(ctx context.Context, e event.Event) error {
			return s.mirror(ctx, e.(domain.EventHighScoreUpdated).Account)
		})
	}

	return s
}

// GetLeaderboard returns the top rows, high score descending, ties in
// registration order.
func (s *Service) GetLeaderboard(ctx context.Context) (*domain.Leaderboard, error) {
	if s.redis != nil {
		return s.fromRedis(ctx)
	}
	return s.fromStore(ctx)
}

// Warm rebuilds the redis mirror from the account store. Called once at
// startup so the sorted set survives redis restarts. No-op without redis.
func (s *Service) Warm(ctx context.Context) error {
	if s.redis == nil {
		return nil
	}

	accounts, err := s.accounts.List(ctx)
	if err != nil {
		return fmt.Errorf("leaderboard: warm: %w", err)
	}

	for _, a := range accounts {
		if err := s.mirror(ctx, a); err != nil {
			return err
		}
	}
	return nil
}

// mirror writes one account into the sorted set. The member score packs
// the registration sequence into the fraction so redis resolves ties in
// registration order instead of lexically.
func (s *Service) mirror(ctx context.Context, a domain.Account) error {
	if err := s.redis.ZAdd(ctx, s.key(), redis.Z{
		Score:  packScore(a.HighScore, a.Seq),
		Member: a.Username,
	}).Err(); err != nil {
		return fmt.Errorf("leaderboard: mirror %s: %w", a.Username, err)
	}
	return nil
}

func (s *Service) fromRedis(ctx context.Context) (*domain.Leaderboard, error) {
	res, err := s.redis.ZRevRangeWithScores(ctx, s.key(), 0, int64(s.size)-1).Result()
	if err != nil {
		return nil, fmt.Errorf("leaderboard: range: %w", err)
	}

	entries := make([]domain.LeaderboardEntry, 0, len(res))
	for _, z := range res {
		entries = append(entries, domain.LeaderboardEntry{
			Username:  z.Member.(string),
			HighScore: unpackScore(z.Score),
		})
	}

	return &domain.Leaderboard{Entries: entries}, nil
}

func (s *Service) fromStore(ctx context.Context) (*domain.Leaderboard, error) {
	accounts, err := s.accounts.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("leaderboard: list accounts: %w", err)
	}

	// List is in registration order; a stable sort keeps that order
	// within equal scores.
	sortByScoreDesc(accounts)

	n := min(s.size, len(accounts))
	entries := make([]domain.LeaderboardEntry, 0, n)
	for _, a := range accounts[:n] {
		entries = append(entries, domain.LeaderboardEntry{
			Username:  a.Username,
			HighScore: a.HighScore,
		})
	}

	return &domain.Leaderboard{Entries: entries}, nil
}

func (s *Service) key() string {
	return fmt.Sprintf("%s:leaderboard", s.prefix)
}

// packScore keeps the integer high score in the whole part and a small
// penalty for later registrations in the fraction, so ZREVRANGE yields
// score-descending, registration-ascending order.
func packScore(highScore int, seq int64) float64 {
	return float64(highScore) - float64(seq)*1e-9
}

func unpackScore(score float64) int {
	return int(math.Round(score))
}

func sortByScoreDesc(accounts []domain.Account) {
	sort.SliceStable(accounts, func(i, j int) bool {
		return accounts[i].HighScore > accounts[j].HighScore
	})
}
