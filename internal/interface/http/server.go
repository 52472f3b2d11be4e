// Package http serves the read-only scoreboard API and the health probe.
package http

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dailydraw/streak-bot/internal/application/query"
	"github.com/dailydraw/streak-bot/internal/interface/http/handlers"
	"github.com/dailydraw/streak-bot/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// SERVER CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Config contains HTTP server configuration.
type Config struct {
	// Host - address to bind (default: "0.0.0.0").
	Host string

	// Port - port to listen on (default: 8080).
	Port int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// APIKeys guard /api/v1 when non-empty. /healthz stays open.
	APIKeys []string
}

// DefaultConfig returns default server configuration.
func DefaultConfig() Config {
	return Config{
		Host:            "0.0.0.0",
		Port:            8080,
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    15 * time.Second,
		IdleTimeout:     60 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

// Address returns host:port.
func (c Config) Address() string {
	return net.JoinHostPort(c.Host, fmt.Sprint(c.Port))
}

// Dependencies contains the handlers behind the routes.
type Dependencies struct {
	GetScore      *query.GetScoreHandler
	GetScoreboard *query.GetScoreboardHandler
	Health        *handlers.HealthChecker
	Logger        *logger.Logger
}

// ══════════════════════════════════════════════════════════════════════════════
// SERVER
// ══════════════════════════════════════════════════════════════════════════════

// Server is the HTTP server.
type Server struct {
	config     Config
	engine     *gin.Engine
	httpServer *http.Server
	log        *logger.Logger
}

// NewServer builds the router and the underlying http.Server.
func NewServer(config Config, deps Dependencies) *Server {
	if deps.Logger == nil {
		deps.Logger = logger.Nop()
	}

	engine := NewRouter(config, deps)
	return &Server{
		config: config,
		engine: engine,
		httpServer: &http.Server{
			Addr:              config.Address(),
			Handler:           engine,
			ReadTimeout:       config.ReadTimeout,
			ReadHeaderTimeout: config.ReadTimeout,
			WriteTimeout:      config.WriteTimeout,
			IdleTimeout:       config.IdleTimeout,
		},
		log: deps.Logger.With(logger.Component("http")),
	}
}

// NewRouter wires the routes onto a fresh gin engine.
func NewRouter(config Config, deps Dependencies) *gin.Engine {
	if deps.Logger == nil {
		deps.Logger = logger.Nop()
	}
	if deps.Health == nil {
		deps.Health = handlers.NewHealthChecker("", 0)
	}

	r := gin.New()
	r.Use(
		handlers.RequestContext(deps.Logger.With(logger.Component("http"))),
		handlers.Recovery(),
		handlers.RequestLogger(),
	)

	r.GET("/healthz", deps.Health.Healthz)

	scores := handlers.NewScoreHandler(deps.GetScore, deps.GetScoreboard)
	api := r.Group("/api/v1")
	if len(config.APIKeys) > 0 {
		api.Use(apiKeyAuth(config.APIKeys))
	}
	api.GET("/guilds/:guild/scoreboard", scores.GetScoreboard)
	api.GET("/guilds/:guild/users/:user/score", scores.GetScore)

	return r
}

// Handler exposes the router, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("starting HTTP server", logger.String("address", s.config.Address()))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	timeout := s.config.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.log.Info("shutting down HTTP server")
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return <-errCh
}

// apiKeyAuth accepts the key in X-API-Key or as a Bearer token.
func apiKeyAuth(keys []string) gin.HandlerFunc {
	valid := make([][]byte, 0, len(keys))
	for _, k := range keys {
		if k != "" {
			valid = append(valid, []byte(k))
		}
	}
	return func(c *gin.Context) {
		key := c.GetHeader("X-API-Key")
		if key == "" {
			key = strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		}
		for _, v := range valid {
			if subtle.ConstantTimeCompare([]byte(key), v) == 1 {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, handlers.ErrorResponse{Error: "invalid api key"})
	}
}
