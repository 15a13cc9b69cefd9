package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Shyamsaitejamandibi/votii/internal/config"
	"github.com/Shyamsaitejamandibi/votii/internal/domain"
	apperrors "github.com/Shyamsaitejamandibi/votii/internal/errors"
	"github.com/Shyamsaitejamandibi/votii/internal/rooms"
	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// snapshotLimit is how many words seed a new viewer and back the cloud
// endpoint. Clients merge into a 100-word cloud, the top 50 is enough to
// reconstruct the visible state.
const snapshotLimit = 50

// redisPinger is the minimal interface for Redis health checks.
type redisPinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	echo           *echo.Echo
	config         *config.Config
	store          domain.WordStore
	broker         domain.Broker
	mux            *rooms.Multiplexer
	snapshots      *snapshotCache
	commentLimiter *topicRateLimiter
	redisPing      redisPinger
	clock          clockwork.Clock
	logger         *slog.Logger
	startTime      time.Time
}

func New(cfg *config.Config, store domain.WordStore, broker domain.Broker, mux *rooms.Multiplexer, redisPing redisPinger, clock clockwork.Clock, logger *slog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(apperrors.Middleware())

	srv := &Server{
		echo:           e,
		config:         cfg,
		store:          store,
		broker:         broker,
		mux:            mux,
		snapshots:      newSnapshotCache(store, clock, cfg.SnapshotCacheTTL),
		commentLimiter: newTopicRateLimiter(cfg.CommentRate, cfg.CommentBurst),
		redisPing:      redisPing,
		clock:          clock,
		logger:         logger,
		startTime:      clock.Now(),
	}

	srv.registerRoutes()
	return srv
}

func (s *Server) Start() error {
	s.logger.Info("starting server", slog.String("port", s.config.Port))
	return s.echo.Start(fmt.Sprintf(":%s", s.config.Port))
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
