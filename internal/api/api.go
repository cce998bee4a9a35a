// Package api exposes the quiz operations over HTTP JSON. Each logged-in
// browser gets a token-keyed interaction holding its quiz session; the
// core services stay free of ambient state.
package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/schoolquiz/quizd/internal/account"
	"github.com/schoolquiz/quizd/internal/domain"
	"github.com/schoolquiz/quizd/internal/errors"
	"github.com/schoolquiz/quizd/internal/event"
	"github.com/schoolquiz/quizd/internal/leaderboard"
	"github.com/schoolquiz/quizd/internal/quiz"
)

const tokenHeader = "X-Session-Token"

type Config struct {
	Accounts    *account.Service
	Quiz        *quiz.Service
	Leaderboard *leaderboard.Service
	EventBus    *event.Bus
}

type API struct {
	accounts *account.Service
	quiz     *quiz.Service
	lb       *leaderboard.Service
	eb       *event.Bus

	mu           sync.Mutex
	interactions map[string]*interaction
}

// interaction is the server-side state of one logged-in browser: who it
// is and where it stands in its quiz. Each interaction progresses
// strictly synchronously; its own mutex enforces that even if the
// browser fires overlapping requests.
type interaction struct {
	mu       sync.Mutex
	username string
	tracker  *quiz.Tracker
	recorded bool // high score flushed for the current completed run
	record   bool // the completed run set a new record
}

func New(c Config) *API {
	return &API{
		accounts:     c.Accounts,
		quiz:         c.Quiz,
		lb:           c.Leaderboard,
		eb:           c.EventBus,
		interactions: make(map[string]*interaction),
	}
}

// Register mounts all quiz routes on r.
func (a *API) Register(r gin.IRouter) {
	v1 := r.Group("/v1")
	v1.POST("/register", a.handleRegister)
	v1.POST("/login", a.handleLogin)
	v1.POST("/logout", a.handleLogout)
	v1.GET("/leaderboard", a.handleLeaderboard)
	v1.GET("/quiz", a.handleCurrentQuestion)
	v1.POST("/quiz/answer", a.handleSubmitAnswer)
	v1.POST("/quiz/restart", a.handleRestart)
}

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Repeat   string `json:"repeat"`
}

func (a *API) handleRegister(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, errors.New(errors.CodeInvalidArgument, errors.WithCause(err)))
		return
	}

	acc, err := a.accounts.Register(c.Request.Context(), account.RegisterRequest{
		Username: req.Username,
		Password: req.Password,
		Repeat:   req.Repeat,
	})
	if err != nil {
		abort(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"username": acc.Username})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token    string `json:"token"`
	Username string `json:"username"`
}

// handleLogin authenticates and opens a new interaction with a fresh
// quiz session. A quota configuration error is not fatal for login: the
// interaction starts without a session and the quiz endpoints keep
// reporting the error.
func (a *API) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, errors.New(errors.CodeInvalidArgument, errors.WithCause(err)))
		return
	}

	acc, err := a.accounts.Authenticate(c.Request.Context(), account.AuthenticateRequest{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		abort(c, err)
		return
	}

	token, err := uuid.NewV7()
	if err != nil {
		abort(c, fmt.Errorf("generate session token: %w", err))
		return
	}

	it := &interaction{username: acc.Username}
	if tr, err := a.quiz.NewSession(); err != nil {
		slog.WarnContext(c.Request.Context(), "api: start session at login failed",
			"username", acc.Username,
			"error", err,
		)
	} else {
		it.tracker = tr
	}

	a.mu.Lock()
	a.interactions[token.String()] = it
	a.mu.Unlock()

	c.JSON(http.StatusOK, loginResponse{
		Token:    token.String(),
		Username: acc.Username,
	})
}

func (a *API) handleLogout(c *gin.Context) {
	token := c.GetHeader(tokenHeader)

	a.mu.Lock()
	delete(a.interactions, token)
	a.mu.Unlock()

	c.Status(http.StatusNoContent)
}

// questionView is the rendering contract for the current question.
type questionView struct {
	Text          string   `json:"text"`
	Kind          string   `json:"kind"`
	Category      string   `json:"category"`
	ScheduleLabel string   `json:"schedule,omitempty"`
	Options       []string `json:"options,omitempty"`
	Attachment    string   `json:"attachment,omitempty"`
	Position      int      `json:"position"`
	Total         int      `json:"total"`
}

// summaryView is the rendering contract for a finished session.
type summaryView struct {
	Score     int  `json:"score"`
	Total     int  `json:"total"`
	NewRecord bool `json:"new_record"`
}

func (a *API) handleCurrentQuestion(c *gin.Context) {
	it, err := a.interactionFor(c)
	if err != nil {
		abort(c, err)
		return
	}

	it.mu.Lock()
	defer it.mu.Unlock()

	if it.tracker == nil {
		if _, err := a.startSession(it); err != nil {
			abort(c, err)
			return
		}
	}

	if it.tracker.Completed() {
		if err := a.recordIfNeeded(c, it); err != nil {
			abort(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"completed": true,
			"summary": summaryView{
				Score:     it.tracker.Score(),
				Total:     it.tracker.Total(),
				NewRecord: it.record,
			},
		})
		return
	}

	q, _ := it.tracker.Current()
	c.JSON(http.StatusOK, gin.H{
		"completed": false,
		"question": questionView{
			Text:          q.Text,
			Kind:          string(q.Kind),
			Category:      q.Category,
			ScheduleLabel: q.ScheduleLabel,
			Options:       q.Options,
			Attachment:    q.Attachment,
			Position:      it.tracker.Position(),
			Total:         it.tracker.Total(),
		},
	})
}

type submitRequest struct {
	Answer string `json:"answer"`
}

type submitResponse struct {
	Correct   bool         `json:"correct"`
	Answer    string       `json:"answer"`
	Score     int          `json:"score"`
	Position  int          `json:"position"`
	Completed bool         `json:"completed"`
	Summary   *summaryView `json:"summary,omitempty"`
}

func (a *API) handleSubmitAnswer(c *gin.Context) {
	it, err := a.interactionFor(c)
	if err != nil {
		abort(c, err)
		return
	}

	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, errors.New(errors.CodeInvalidArgument, errors.WithCause(err)))
		return
	}

	it.mu.Lock()
	defer it.mu.Unlock()

	if it.tracker == nil {
		if _, err := a.startSession(it); err != nil {
			abort(c, err)
			return
		}
	}

	res, err := it.tracker.Submit(req.Answer)
	if err != nil {
		abort(c, err)
		return
	}

	resp := submitResponse{
		Correct:   res.Correct,
		Answer:    res.Answer,
		Score:     res.Score,
		Position:  res.Position,
		Completed: res.Completed,
	}

	if res.Completed {
		if err := a.recordIfNeeded(c, it); err != nil {
			abort(c, err)
			return
		}
		resp.Summary = &summaryView{
			Score:     it.tracker.Score(),
			Total:     it.tracker.Total(),
			NewRecord: it.record,
		}
	}

	c.JSON(http.StatusOK, resp)
}

func (a *API) handleRestart(c *gin.Context) {
	it, err := a.interactionFor(c)
	if err != nil {
		abort(c, err)
		return
	}

	it.mu.Lock()
	defer it.mu.Unlock()

	if _, err := a.startSession(it); err != nil {
		abort(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (a *API) handleLeaderboard(c *gin.Context) {
	l, err := a.lb.GetLeaderboard(c.Request.Context())
	if err != nil {
		abort(c, err)
		return
	}

	type row struct {
		Username  string `json:"username"`
		HighScore int    `json:"high_score"`
	}

	rows := make([]row, 0, len(l.Entries))
	for _, e := range l.Entries {
		rows = append(rows, row{Username: e.Username, HighScore: e.HighScore})
	}

	c.JSON(http.StatusOK, gin.H{"entries": rows})
}

// startSession re-runs selection and swaps in a fresh tracker. Callers
// hold the interaction mutex.
func (a *API) startSession(it *interaction) (*quiz.Tracker, error) {
	tr, err := a.quiz.NewSession()
	if err != nil {
		return nil, err
	}

	it.tracker = tr
	it.recorded = false
	it.record = false
	return tr, nil
}

// recordIfNeeded flushes the completed run's score into the account high
// score exactly once. Callers hold the interaction mutex.
func (a *API) recordIfNeeded(c *gin.Context, it *interaction) error {
	if it.recorded {
		return nil
	}

	newRecord, err := a.accounts.RecordScore(c.Request.Context(), it.username, it.tracker.Score())
	if err != nil {
		return err
	}

	it.recorded = true
	it.record = newRecord

	if a.eb != nil {
		a.eb.Publish(c.Request.Context(), domain.EventSessionCompleted{
			Username: it.username,
			Score:    it.tracker.Score(),
			Total:    it.tracker.Total(),
		})
	}
	return nil
}

func (a *API) interactionFor(c *gin.Context) (*interaction, error) {
	token := c.GetHeader(tokenHeader)
	if token == "" {
		return nil, errors.New(errors.CodeUnauthenticated,
			errors.WithMessagef("missing session token"),
		)
	}

	a.mu.Lock()
	it, ok := a.interactions[token]
	a.mu.Unlock()

	if !ok {
		return nil, errors.New(errors.CodeUnauthenticated,
			errors.WithMessagef("invalid session token"),
		)
	}
	return it, nil
}

func abort(c *gin.Context, err error) {
	e := errors.Convert(err)
	c.AbortWithStatusJSON(e.HTTPStatusCode(), e)
}
