package account_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schoolquiz/quizd/internal/account"
	"github.com/schoolquiz/quizd/internal/domain"
	"github.com/schoolquiz/quizd/internal/errors"
)

func openStore(t *testing.T, path string) *account.FileStore {
	t.Helper()

	s, err := account.OpenFileStore(path)
	require.NoError(t, err)
	return s
}

func TestFileStore_CreateGet(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, filepath.Join(t.TempDir(), "users.json"))

	created, err := s.Create(ctx, domain.Account{Username: "anna", PasswordHash: "h1"})
	require.NoError(t, err)
	assert.Equal(t, int64(0), created.Seq)

	got, err := s.Get(ctx, "anna")
	require.NoError(t, err)
	assert.Equal(t, "h1", got.PasswordHash)
	assert.Equal(t, 0, got.HighScore)

	_, err = s.Get(ctx, "bob")
	assert.True(t, errors.Is(err, errors.CodeNotFound))

	_, err = s.Create(ctx, domain.Account{Username: "anna", PasswordHash: "h2"})
	assert.True(t, errors.Is(err, errors.CodeAlreadyExists))
}

func TestFileStore_ReloadKeepsOrder(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "users.json")

	s := openStore(t, path)
	for _, u := range []string{"first", "second", "third"} {
		_, err := s.Create(ctx, domain.Account{Username: u, PasswordHash: "h"})
		require.NoError(t, err)
	}

	// A fresh open must see the same accounts in creation order.
	reloaded := openStore(t, path)
	accounts, err := reloaded.List(ctx)
	require.NoError(t, err)

	require.Len(t, accounts, 3)
	assert.Equal(t, "first", accounts[0].Username)
	assert.Equal(t, "second", accounts[1].Username)
	assert.Equal(t, "third", accounts[2].Username)
	assert.Equal(t, int64(1), accounts[1].Seq)
}

func TestFileStore_SeqFollowsCreationOrder(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "users.json")

	s := openStore(t, path)
	for i := 0; i < 20; i++ {
		created, err := s.Create(ctx, domain.Account{
			Username:     fmt.Sprintf("user-%02d", i),
			PasswordHash: "h",
		})
		require.NoError(t, err)
		assert.Equal(t, int64(i), created.Seq)
	}

	for _, s := range []*account.FileStore{s, openStore(t, path)} {
		accounts, err := s.List(ctx)
		require.NoError(t, err)
		require.Len(t, accounts, 20)
		for i, a := range accounts {
			assert.Equal(t, int64(i), a.Seq)
			assert.Equal(t, fmt.Sprintf("user-%02d", i), a.Username)
		}
	}
}

func TestFileStore_ReadsHistoricalFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
  "anna": {"pw": "abc", "highscore": 4},
  "bob": {"pw": "def", "highscore": 2}
}`), 0o644))

	s := openStore(t, path)

	got, err := s.Get(context.Background(), "anna")
	require.NoError(t, err)
	assert.Equal(t, "abc", got.PasswordHash)
	assert.Equal(t, 4, got.HighScore)
}

func TestFileStore_UpdateHighScore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "users.json")
	s := openStore(t, path)

	_, err := s.Create(ctx, domain.Account{Username: "anna", PasswordHash: "h"})
	require.NoError(t, err)

	a, updated, err := s.UpdateHighScore(ctx, "anna", 3)
	require.NoError(t, err)
	assert.True(t, updated)
	assert.Equal(t, 3, a.HighScore)

	// Lower or equal scores never overwrite.
	a, updated, err = s.UpdateHighScore(ctx, "anna", 2)
	require.NoError(t, err)
	assert.False(t, updated)
	assert.Equal(t, 3, a.HighScore)

	a, updated, err = s.UpdateHighScore(ctx, "anna", 3)
	require.NoError(t, err)
	assert.False(t, updated)

	// The new score survives a reload, so the write really flushed.
	reloaded := openStore(t, path)
	got, err := reloaded.Get(ctx, "anna")
	require.NoError(t, err)
	assert.Equal(t, 3, got.HighScore)

	_, _, err = s.UpdateHighScore(ctx, "ghost", 1)
	assert.True(t, errors.Is(err, errors.CodeNotFound))
}

func TestFileStore_MissingFileIsEmpty(t *testing.T) {
	s := openStore(t, filepath.Join(t.TempDir(), "users.json"))

	accounts, err := s.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, accounts)
}
