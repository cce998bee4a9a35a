package account

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/schoolquiz/quizd/internal/domain"
	"github.com/schoolquiz/quizd/internal/errors"
)

// PGStore persists accounts in postgres. The high-score update is a
// conditional UPDATE, so concurrent flushes from different interaction
// contexts cannot lower a stored score.
//
// Expected schema:
//
//	CREATE TABLE accounts (
//	    seq           BIGSERIAL PRIMARY KEY,
//	    username      TEXT NOT NULL UNIQUE,
//	    password_hash TEXT NOT NULL,
//	    high_score    INT  NOT NULL DEFAULT 0
//	);
type PGStore struct {
	db *pgxpool.Pool
}

func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Get(ctx context.Context, username string) (domain.Account, error) {
	const stmt = `SELECT username, password_hash, high_score, seq FROM accounts WHERE username = $1;`

	a, err := s.scanOne(ctx, stmt, username)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return domain.Account{}, errors.New(errors.CodeNotFound,
			errors.WithMessagef("account not found: %s", username),
		)
	}
	if err != nil {
		return domain.Account{}, fmt.Errorf("account: get %s: %w", username, err)
	}
	return a, nil
}

func (s *PGStore) Create(ctx context.Context, a domain.Account) (domain.Account, error) {
	const stmt = `
INSERT INTO accounts (username, password_hash, high_score)
VALUES ($1, $2, $3)
RETURNING username, password_hash, high_score, seq;`

	created, err := s.scanOne(ctx, stmt, a.Username, a.PasswordHash, a.HighScore)

	var pgErr *pgconn.PgError
	const codeUniqueViolation = "23505"
	if stderrors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation {
		return domain.Account{}, errors.New(errors.CodeAlreadyExists,
			errors.WithMessagef("username already taken: %s", a.Username),
			errors.WithCause(err),
		)
	}
	if err != nil {
		return domain.Account{}, fmt.Errorf("account: create %s: %w", a.Username, err)
	}
	return created, nil
}

func (s *PGStore) UpdateHighScore(ctx context.Context, username string, score int) (domain.Account, bool, error) {
	const stmt = `
UPDATE accounts SET high_score = $2
WHERE username = $1 AND high_score < $2;`

	tag, err := s.db.Exec(ctx, stmt, username, score)
	if err != nil {
		return domain.Account{}, false, fmt.Errorf("account: update high score for %s: %w", username, err)
	}

	a, err := s.Get(ctx, username)
	if err != nil {
		return domain.Account{}, false, err
	}
	return a, tag.RowsAffected() > 0, nil
}

func (s *PGStore) List(ctx context.Context) ([]domain.Account, error) {
	const stmt = `SELECT username, password_hash, high_score, seq FROM accounts ORDER BY seq;`

	rows, err := s.db.Query(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("account: list: %w", err)
	}

	accounts, err := pgx.CollectRows(rows, scanAccount)
	if err != nil {
		return nil, fmt.Errorf("account: list: %w", err)
	}
	return accounts, nil
}

func (s *PGStore) scanOne(ctx context.Context, stmt string, args ...any) (domain.Account, error) {
	rows, err := s.db.Query(ctx, stmt, args...)
	if err != nil {
		return domain.Account{}, err
	}
	return pgx.CollectOneRow(rows, scanAccount)
}

func scanAccount(r pgx.CollectableRow) (domain.Account, error) {
	var a domain.Account
	if err := r.Scan(&a.Username, &a.PasswordHash, &a.HighScore, &a.Seq); err != nil {
		return domain.Account{}, err
	}
	return a, nil
}
