package domain

import (
	"github.com/schoolquiz/quizd/internal/schedule"
)

// QuestionKind tells how a question is answered.
type QuestionKind string

const (
	// MultipleChoice questions present a fixed option list.
	MultipleChoice QuestionKind = "multiple_choice"
	// FillIn questions take free text.
	FillIn QuestionKind = "fill_in"
)

// Question is one normalized quiz question.
type Question struct {
	Text     string
	Answer   string
	Kind     QuestionKind
	Category string

	// Key orders the question within a schedule-ordered session.
	Key schedule.Key
	// ScheduleLabel keeps the raw schedule text for display.
	ScheduleLabel string

	// Options holds the answer plus distractors, shuffled once at
	// normalization time. Empty for FillIn questions.
	Options []string

	// Attachment is a media path for the question, empty when absent.
	Attachment string
}

// Account is one registered user.
type Account struct {
	Username     string
	PasswordHash string
	HighScore    int

	// Seq is the creation order of the account within the store.
	// Leaderboard ties are broken by ascending Seq.
	Seq int64
}

// Leaderboard lists the best scores, descending, ties in registration order.
type Leaderboard struct {
	Entries []LeaderboardEntry
}

type LeaderboardEntry struct {
	Username  string
	HighScore int
}
