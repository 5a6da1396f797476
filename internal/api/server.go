// Package api exposes a read-only HTTP surface over the running agent:
// health/status, open positions, learning parameters, and per-stage
// performance stats. It issues no trading commands — the pipeline is
// driven entirely by the supervisor, never by an API call.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/ajitpratap0/tradingagent/internal/agentcore"
	"github.com/ajitpratap0/tradingagent/internal/executor"
	"github.com/ajitpratap0/tradingagent/internal/observer"
	"github.com/ajitpratap0/tradingagent/internal/persistence"
)

var startTime = time.Now()

// Config is everything the Server needs to answer a request; any field may
// be nil/zero: a nil Store reports the database as "not_configured", a nil
// stats or learning source answers {"configured": false}, and a nil
// Positions store lists no positions (404 for a single mint).
type Config struct {
	Host      string
	Port      int
	Store     *persistence.Store
	Positions *agentcore.PositionStore
	Learning  *agentcore.LearningStore
	Executor  *executor.Executor
	Observer  *observer.Observer
	// Paused, if set, reports whether the supervising agent is currently
	// refusing to plan; nil means pause state is not exposed.
	Paused func() bool
}

// Server is the read-only stats/state HTTP surface.
type Server struct {
	router    *gin.Engine
	store     *persistence.Store
	positions *agentcore.PositionStore
	learning  *agentcore.LearningStore
	executor  *executor.Executor
	observer  *observer.Observer
	paused    func() bool
	addr      string
	server    *http.Server
}

// NewServer builds a Server and registers its routes.
func NewServer(cfg Config) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(loggerMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	s := &Server{
		router:    router,
		store:     cfg.Store,
		positions: cfg.Positions,
		learning:  cfg.Learning,
		executor:  cfg.Executor,
		observer:  cfg.Observer,
		paused:    cfg.Paused,
		addr:      fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
	}
	s.setupRoutes()
	return s
}

// Start runs the HTTP server until it is stopped or fails to bind.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Info().Str("addr", s.addr).Msg("starting api server")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("start api server: %w", err)
	}
	return nil
}

// Stop gracefully shuts the HTTP server down.
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	log.Info().Msg("stopping api server")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("stop api server: %w", err)
	}
	return nil
}

func loggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		log.Info().
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("api request")
	}
}
