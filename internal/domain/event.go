package domain

const (
	EventNameHighScoreUpdated = "highscore.updated"
	EventNameSessionCompleted = "session.completed"
)

// EventHighScoreUpdated is published after an account's high score is
// persisted with a new value.
type EventHighScoreUpdated struct {
	Account Account
}

func (EventHighScoreUpdated) Name() string { return EventNameHighScoreUpdated }

// EventSessionCompleted is published once per finished quiz run, after
// its score has been flushed to the account.
type EventSessionCompleted struct {
	Username string
	Score    int
	Total    int
}

func (EventSessionCompleted) Name() string { return EventNameSessionCompleted }
