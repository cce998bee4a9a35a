package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"time"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/schoolquiz/quizd/internal/account"
	"github.com/schoolquiz/quizd/internal/api"
	"github.com/schoolquiz/quizd/internal/domain"
	apperrors "github.com/schoolquiz/quizd/internal/errors"
	"github.com/schoolquiz/quizd/internal/event"
	"github.com/schoolquiz/quizd/internal/ingest"
	"github.com/schoolquiz/quizd/internal/leaderboard"
	"github.com/schoolquiz/quizd/internal/quiz"
	"github.com/schoolquiz/quizd/internal/telemetry"
)

type Config struct {
	HTTP struct {
		Port int32
	}

	Questions struct {
		// Format is "xlsx" or "json".
		Format string
		Path   string
		// AssetsDir, when set, validates attachment references against
		// files under this directory.
		AssetsDir string
		// Headers overrides the sheet column headers; empty fields keep
		// the Dutch defaults.
		Headers ingest.Headers
	}

	Quiz struct {
		// Order is "random" or "schedule".
		Order string
		// Quotas maps category to questions per session.
		Quotas map[string]int
		// Seed fixes the selection randomness, 0 seeds from the clock.
		Seed int64
	}

	Users struct {
		// Backend is "file" or "postgres".
		Backend string
		File    string

		Postgres struct {
			Addr string
			User string
			Pass string
			Name string
		}
	}

	Redis struct {
		Leaderboard struct {
			Addrs  []string
			Pass   string
			Prefix string
		}
	}

	Leaderboard struct {
		Size int
	}
}

type Server struct {
	c Config

	eb *event.Bus

	infra struct {
		redis redis.UniversalClient
		pg    *pgxpool.Pool
		store account.Store
	}

	service struct {
		accounts    *account.Service
		quiz        *quiz.Service
		leaderboard *leaderboard.Service
	}

	http *http.Server
}

func Init(c Config) (*Server, error) {
	s := &Server{c: c}

	s.eb = event.NewBus()

	if err := s.initInfra(); err != nil {
		return nil, fmt.Errorf("server: init infra: %w", err)
	}

	if err := s.initService(); err != nil {
		return nil, fmt.Errorf("server: init service: %w", err)
	}

	s.initAPI()
	return s, nil
}

func (s *Server) initInfra() error {
	if err := s.initRedis(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}

	if err := s.initStore(); err != nil {
		return fmt.Errorf("account store: %w", err)
	}

	return nil
}

func (s *Server) initRedis() error {
	addrs := s.c.Redis.Leaderboard.Addrs
	if len(addrs) == 0 {
		// No redis configured: the leaderboard serves from the account
		// store directly.
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	r := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    addrs,
		Password: s.c.Redis.Leaderboard.Pass,
	})

	if err := telemetry.MonitorRedis(r); err != nil {
		return err
	}

	if err := r.Ping(ctx).Err(); err != nil {
		return err
	}

	s.infra.redis = r
	return nil
}

func (s *Server) initStore() error {
	switch s.c.Users.Backend {
	case "", "file":
		st, err := account.OpenFileStore(s.c.Users.File)
		if err != nil {
			return err
		}
		s.infra.store = st
		return nil

	case "postgres":
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		p := s.c.Users.Postgres
		cc, err := pgxpool.ParseConfig(fmt.Sprintf("postgres://%s:%s@%s/%s", p.User, p.Pass, p.Addr, p.Name))
		if err != nil {
			return err
		}

		db, err := pgxpool.NewWithConfig(ctx, cc)
		if err != nil {
			return err
		}

		if err := db.Ping(ctx); err != nil {
			return err
		}

		s.infra.pg = db
		s.infra.store = account.NewPGStore(db)
		return nil

	default:
		return fmt.Errorf("unknown backend %q", s.c.Users.Backend)
	}
}

func (s *Server) initService() error {
	pool, err := s.loadPool()
	if err != nil {
		return err
	}

	seed := s.c.Quiz.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	s.service.accounts = account.NewService(account.Config{
		Store:    s.infra.store,
		EventBus: s.eb,
	})

	s.service.quiz = quiz.NewService(quiz.Config{
		Pool:   pool,
		Quotas: s.c.Quiz.Quotas,
		Order:  quiz.OrderPolicy(s.c.Quiz.Order),
		Rand:   rand.New(rand.NewSource(seed)),
	})

	s.service.leaderboard = leaderboard.NewService(leaderboard.Config{
		EventBus: s.eb,
		Accounts: s.service.accounts,
		Redis:    s.infra.redis,
		Prefix:   s.c.Redis.Leaderboard.Prefix,
		Size:     s.c.Leaderboard.Size,
	})

	s.eb.Subscribe(domain.EventNameSessionCompleted, func(ctx context.Context, e event.Event) error {
		ev := e.(domain.EventSessionCompleted)
		slog.InfoContext(ctx, "quiz: session completed",
			"username", ev.Username,
			"score", ev.Score,
			"total", ev.Total,
		)
		return nil
	})

	return nil
}

// loadPool ingests the question source. A missing source is logged and
// leaves the pool empty so login and the leaderboard stay usable.
func (s *Server) loadPool() ([]domain.Question, error) {
	nc := ingest.Config{
		Rand: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	if dir := s.c.Questions.AssetsDir; dir != "" {
		nc.AttachmentValid = ingest.DirChecker(dir)
	}

	pool, err := ingest.Load(s.c.Questions.Format, s.c.Questions.Path, s.c.Questions.Headers, ingest.NewNormalizer(nc))
	if apperrors.Is(err, apperrors.CodeNotFound) {
		slog.Warn("server: question source missing, quiz disabled", "path", s.c.Questions.Path)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	slog.Info(fmt.Sprintf("server: loaded %d questions from %s", len(pool), s.c.Questions.Path))
	return pool, nil
}

func (s *Server) initAPI() {
	e := gin.New()
	e.GET("/metrics", gin.WrapH(promhttp.Handler()))
	pprof.Register(e, "/debug/pprof")
	e.Use(gin.Recovery())

	a := api.New(api.Config{
		Accounts:    s.service.accounts,
		Quiz:        s.service.quiz,
		Leaderboard: s.service.leaderboard,
		EventBus:    s.eb,
	})
	a.Register(e)

	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.c.HTTP.Port),
		Handler:           e,
		ReadHeaderTimeout: 60 * time.Second,
	}
}

func (s *Server) Start() {
	ctx := context.TODO()

	var eg errgroup.Group
	eg.Go(func() error {
		return s.service.leaderboard.Warm(ctx)
	})

	eg.Go(func() error {
		slog.InfoContext(ctx, fmt.Sprintf("server: HTTP listening on port %d", s.c.HTTP.Port))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if err := eg.Wait(); err != nil {
		slog.ErrorContext(ctx, "server: shutdown with error", "error", err)
	}
}

func (s *Server) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.http.Shutdown(ctx); err != nil {
		slog.ErrorContext(ctx, "server: shutdown HTTP failed", "error", err)
	}

	s.eb.Stop()

	if s.infra.pg != nil {
		s.infra.pg.Close()
	}
	if s.infra.redis != nil {
		if err := s.infra.redis.Close(); err != nil {
			slog.ErrorContext(ctx, "server: close redis failed", "error", err)
		}
	}

	slog.InfoContext(ctx, "server: shutdown completed")
}
