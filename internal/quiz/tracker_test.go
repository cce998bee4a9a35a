package quiz_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schoolquiz/quizd/internal/domain"
	"github.com/schoolquiz/quizd/internal/errors"
	"github.com/schoolquiz/quizd/internal/quiz"
)

func fillIn(text, answer string) domain.Question {
	return domain.Question{Text: text, Answer: answer, Kind: domain.FillIn}
}

func TestTracker_FullRun(t *testing.T) {
	tr := quiz.NewTracker([]domain.Question{
		fillIn("q1", "one"),
		fillIn("q2", "two"),
		fillIn("q3", "three"),
	})

	q, ok := tr.Current()
	require.True(t, ok)
	assert.Equal(t, "q1", q.Text)

	res, err := tr.Submit("one")
	require.NoError(t, err)
	assert.True(t, res.Correct)
	assert.Equal(t, 1, res.Score)
	assert.False(t, res.Completed)

	res, err = tr.Submit("wrong")
	require.NoError(t, err)
	assert.False(t, res.Correct)
	assert.Equal(t, "two", res.Answer, "wrong submission should surface the canonical answer")
	assert.Equal(t, 1, res.Score)

	res, err = tr.Submit("three")
	require.NoError(t, err)
	assert.True(t, res.Completed)

	assert.True(t, tr.Completed())
	assert.Equal(t, 2, tr.Score())
	assert.Equal(t, 3, tr.Total())
}

func TestTracker_SubmitAfterCompletionRejected(t *testing.T) {
	tr := quiz.NewTracker([]domain.Question{fillIn("q1", "one")})

	_, err := tr.Submit("one")
	require.NoError(t, err)
	require.True(t, tr.Completed())

	_, err = tr.Submit("one")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.CodeFailedPrecondition))

	// No state change from the rejected submission.
	assert.Equal(t, 1, tr.Score())
	assert.Equal(t, 1, tr.Position())
}

func TestTracker_EmptyListIsImmediatelyCompleted(t *testing.T) {
	tr := quiz.NewTracker(nil)

	assert.True(t, tr.Completed())
	_, ok := tr.Current()
	assert.False(t, ok)
}

func TestTracker_MultipleChoiceGradedVerbatim(t *testing.T) {
	tr := quiz.NewTracker([]domain.Question{{
		Text:    "capital?",
		Answer:  "Paris",
		Kind:    domain.MultipleChoice,
		Options: []string{"London", "Paris"},
	}})

	res, err := tr.Submit("paris")
	require.NoError(t, err)
	assert.False(t, res.Correct, "multiple choice compares the option verbatim")
}

func TestService_NewSessionRestartsFresh(t *testing.T) {
	pool := []domain.Question{
		fillIn("q1", "one"),
		fillIn("q2", "two"),
	}
	for i := range pool {
		pool[i].Category = "Math"
	}

	s := quiz.NewService(quiz.Config{
		Pool:   pool,
		Quotas: map[string]int{"Math": 2},
		Order:  quiz.OrderSchedule,
		Rand:   nil,
	})

	tr, err := s.NewSession()
	require.NoError(t, err)

	_, err = tr.Submit("one")
	require.NoError(t, err)

	// Restart discards progress entirely.
	fresh, err := s.NewSession()
	require.NoError(t, err)
	assert.Equal(t, 0, fresh.Position())
	assert.Equal(t, 0, fresh.Score())
	assert.Equal(t, 2, fresh.Total())
}
