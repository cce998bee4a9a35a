package account

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/schoolquiz/quizd/internal/domain"
	"github.com/schoolquiz/quizd/internal/errors"
	"github.com/schoolquiz/quizd/internal/event"
)

type Config struct {
	Store    Store
	EventBus *event.Bus
}

// Service implements registration, login checks and high-score updates
// on top of a Store.
type Service struct {
	store Store
	eb    *event.Bus
}

func NewService(c Config) *Service {
	return &Service{
		store: c.Store,
		eb:    c.EventBus,
	}
}

type RegisterRequest struct {
	Username string
	Password string
	// Repeat must equal Password. The registration form asks twice.
	Repeat string
}

// Register creates a new account with a zero high score.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (domain.Account, error) {
	username := strings.TrimSpace(req.Username)

	switch {
	case username == "":
		return domain.Account{}, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("username is required"),
		)
	case req.Password == "":
		return domain.Account{}, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("password is required"),
		)
	case req.Password != req.Repeat:
		return domain.Account{}, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("passwords do not match"),
		)
	}

	return s.store.Create(ctx, domain.Account{
		Username:     username,
		PasswordHash: hashPassword(req.Password),
	})
}

type AuthenticateRequest struct {
	Username string
	Password string
}

// Authenticate verifies a login. The error is the same whether the
// username is unknown or the password is wrong.
func (s *Service) Authenticate(ctx context.Context, req AuthenticateRequest) (domain.Account, error) {
	badCredentials := func() error {
		return errors.New(errors.CodeUnauthenticated,
			errors.WithMessagef("invalid username or password"),
		)
	}

	a, err := s.store.Get(ctx, req.Username)
	if errors.Is(err, errors.CodeNotFound) {
		return domain.Account{}, badCredentials()
	}
	if err != nil {
		return domain.Account{}, err
	}

	if a.PasswordHash != hashPassword(req.Password) {
		return domain.Account{}, badCredentials()
	}
	return a, nil
}

// RecordScore persists score as the user's high score when it beats the
// stored one, and reports whether it did. A new record is published on
// the event bus.
func (s *Service) RecordScore(ctx context.Context, username string, score int) (newRecord bool, err error) {
	a, updated, err := s.store.UpdateHighScore(ctx, username, score)
	if err != nil {
		return false, err
	}

	if updated && s.eb != nil {
		s.eb.Publish(ctx, domain.EventHighScoreUpdated{Account: a})
	}
	return updated, nil
}

// List returns every account in registration order.
func (s *Service) List(ctx context.Context) ([]domain.Account, error) {
	return s.store.List(ctx)
}

// hashPassword is an unsalted sha256 hex digest. It matches the hashes
// already present in existing users files.
func hashPassword(pw string) string {
	sum := sha256.Sum256([]byte(pw))
	return hex.EncodeToString(sum[:])
}
