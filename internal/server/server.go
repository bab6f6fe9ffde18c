// Package server exposes comment analysis over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ppiankov/commentpulse/internal/model"
	"github.com/ppiankov/commentpulse/internal/pipeline"
	"github.com/ppiankov/commentpulse/internal/telemetry"
	"github.com/ppiankov/commentpulse/internal/worker"
)

// Analyzer is the part of the pipeline the handlers need.
type Analyzer interface {
	AnalyzeComments(ctx context.Context, req pipeline.Request) (*model.Analysis, error)
	Lookup(videoID string) (*model.Analysis, bool)
	Forget(videoID string) error
	BackendStatus(ctx context.Context) pipeline.BackendStatus
}

// Server is the HTTP API with lifecycle management.
type Server struct {
	router   *gin.Engine
	server   *http.Server
	analyzer Analyzer
	logger   *slog.Logger
	started  time.Time
	shutdown time.Duration
}

// New builds the router and the http.Server. gatherer backs /metrics and
// may be nil to disable the endpoint.
func New(cfg model.ServerConfig, analyzer Analyzer, gatherer prometheus.Gatherer, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(recoveryMiddleware(logger))
	router.Use(loggerMiddleware(logger))

	s := &Server{
		router:   router,
		analyzer: analyzer,
		logger:   logger,
		started:  time.Now(),
		shutdown: cfg.ShutdownTimeout,
	}

	router.GET("/health", s.health)
	router.HEAD("/health", s.headHealth)
	router.GET("/health/backend", s.backendHealth)
	if gatherer != nil {
		router.GET("/metrics", gin.WrapH(telemetry.Handler(gatherer)))
	}

	v1 := router.Group("/api/v1")
	if cfg.RequestsPerSecond > 0 {
		v1.Use(rateLimitMiddleware(worker.NewLimiter(cfg.RequestsPerSecond, cfg.BurstSize), logger))
	}
	v1.POST("/analyze", s.analyze)
	v1.GET("/analyses/:videoId", s.getAnalysis)
	v1.DELETE("/analyses/:videoId", s.deleteAnalysis)

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("[Server] Listening",
			slog.String("addr", s.server.Addr),
			slog.Duration("read_timeout", s.server.ReadTimeout),
			slog.Duration("write_timeout", s.server.WriteTimeout))
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	timeout := s.shutdown
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	s.logger.Info("[Server] Shutting down", slog.Duration("timeout", timeout))
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
