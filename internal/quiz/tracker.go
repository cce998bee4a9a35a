package quiz

import (
	"github.com/schoolquiz/quizd/internal/domain"
	"github.com/schoolquiz/quizd/internal/errors"
	"github.com/schoolquiz/quizd/internal/grading"
)

// Tracker advances through a fixed question list, counting correct
// answers. It has two states: active while questions remain, completed
// once every question has been answered. A completed tracker rejects
// further submissions; restarting means building a new tracker from a
// freshly selected list.
type Tracker struct {
	questions []domain.Question
	position  int
	score     int
}

func NewTracker(questions []domain.Question) *Tracker {
	return &Tracker{questions: questions}
}

// Current returns the question waiting for an answer. ok is false once
// the tracker is completed.
func (t *Tracker) Current() (q domain.Question, ok bool) {
	if t.Completed() {
		return domain.Question{}, false
	}
	return t.questions[t.position], true
}

// SubmitResult reports the outcome of one submission.
type SubmitResult struct {
	Correct bool
	// Answer is the canonical answer of the question just graded,
	// shown to the user when the submission was wrong.
	Answer    string
	Position  int
	Score     int
	Completed bool
}

// Submit grades answer against the current question and advances.
func (t *Tracker) Submit(answer string) (SubmitResult, error) {
	q, ok := t.Current()
	if !ok {
		return SubmitResult{}, errors.New(errors.CodeFailedPrecondition,
			errors.WithMessagef("quiz already completed"),
		)
	}

	correct := grading.IsCorrect(answer, q.Answer, q.Kind)
	if correct {
		t.score++
	}
	t.position++

	return SubmitResult{
		Correct:   correct,
		Answer:    q.Answer,
		Position:  t.position,
		Score:     t.score,
		Completed: t.Completed(),
	}, nil
}

func (t *Tracker) Completed() bool {
	return t.position >= len(t.questions)
}

func (t *Tracker) Position() int { return t.position }
func (t *Tracker) Score() int    { return t.score }
func (t *Tracker) Total() int    { return len(t.questions) }
