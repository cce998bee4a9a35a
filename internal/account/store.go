// Package account manages registered users, their password hashes and
// their persisted high scores.
package account

import (
	"context"

	"github.com/schoolquiz/quizd/internal/domain"
)

// Store persists accounts. Implementations must keep UpdateHighScore
// monotonic: a stored high score never decreases, even when two
// interaction contexts flush concurrently.
type Store interface {
	// Get returns the account, or a not-found error.
	Get(ctx context.Context, username string) (domain.Account, error)
	// Create inserts a new account, or an already-exists error.
	Create(ctx context.Context, a domain.Account) (domain.Account, error)
	// UpdateHighScore raises the account's high score to score if it is
	// greater than the stored value. updated is false when the stored
	// value was already at least score.
	UpdateHighScore(ctx context.Context, username string, score int) (a domain.Account, updated bool, err error)
	// List returns every account in creation order.
	List(ctx context.Context) ([]domain.Account, error)
}
