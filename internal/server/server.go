// Package server sets up the HTTP server with all routes.
package server

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fraudlens/fraudlens/internal/backend"
	"github.com/fraudlens/fraudlens/internal/config"
	"github.com/fraudlens/fraudlens/internal/logging"
	"github.com/fraudlens/fraudlens/internal/metrics"
	"github.com/fraudlens/fraudlens/internal/model"
	"github.com/fraudlens/fraudlens/internal/ratelimit"
	"github.com/fraudlens/fraudlens/internal/realtime"
	"github.com/fraudlens/fraudlens/internal/security"
	"github.com/fraudlens/fraudlens/internal/validation"
	"github.com/fraudlens/fraudlens/internal/view"
	"github.com/fraudlens/fraudlens/internal/workflow"
)

// Backend is everything the server needs from the fraud API client.
// *backend.Client satisfies it; tests inject fakes.
type Backend interface {
	Health(ctx context.Context) (*backend.HealthStatus, error)
	ListUsers(ctx context.Context) ([]model.UserProfile, error)
	ListTransactions(ctx context.Context, limit int) ([]model.Transaction, error)
	Stats(ctx context.Context) (*model.Stats, error)
	AuditLog(ctx context.Context, limit int) ([]model.AuditLogEntry, error)
	GenerateTransaction(ctx context.Context, userID string, isAnomaly bool) (*model.Transaction, error)
	ScoreTransaction(ctx context.Context, tx *model.Transaction, profile *model.UserProfile) (*model.MLScoreResult, error)
	CalculateRisk(ctx context.Context, tx *model.Transaction, profile *model.UserProfile, score *model.MLScoreResult) (*model.RiskResult, error)
	ExplainDecision(ctx context.Context, tx *model.Transaction, components map[string]model.RiskComponent, decision model.Decision) (*model.Explanation, error)
}

// Server wraps the HTTP server and dependencies.
type Server struct {
	cfg          *config.Config
	api          Backend
	controller   *view.Controller
	runner       *workflow.Runner
	hub          *realtime.Hub
	debouncer    *view.Debouncer
	rateLimiter  *ratelimit.Limiter
	router       *gin.Engine
	httpSrv      *http.Server
	logger       *slog.Logger
	cancelRunCtx context.CancelFunc // cancels background goroutines started in Run

	ready   atomic.Bool
	healthy atomic.Bool
}

// Option configures the server.
type Option func(*Server)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithBackend sets a custom backend client (for testing).
func WithBackend(b Backend) Option {
	return func(s *Server) {
		s.api = b
	}
}

// New creates a new server instance.
func New(cfg *config.Config, opts ...Option) (*Server, error) {
	s := &Server{
		cfg:    cfg,
		logger: logging.New(cfg.LogLevel, "json"),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.api == nil {
		s.api = backend.New(backend.Options{
			BaseURL:        cfg.BackendURL,
			Timeout:        cfg.BackendTimeout,
			RequestsPerSec: cfg.BackendRPS,
			Logger:         s.logger,
		})
	}

	s.hub = realtime.NewHub(s.logger)
	s.controller = view.NewController(s.api, cfg.FetchLimit, s.hub, s.logger)
	s.runner = workflow.NewRunner(s.api, s.hub, s.logger)
	s.debouncer = view.NewDebouncer(cfg.SearchDebounce)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	s.router = gin.New()
	s.setupMiddleware()
	s.setupRoutes()

	s.healthy.Store(true)

	return s, nil
}

// -----------------------------------------------------------------------------
// Middleware
// -----------------------------------------------------------------------------

func (s *Server) setupMiddleware() {
	// Recovery with logging
	s.router.Use(gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logging.L(c.Request.Context()).Error("panic recovered",
			"error", recovered,
			"path", c.Request.URL.Path,
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "An unexpected error occurred",
		})
	}))

	s.router.Use(security.HeadersMiddleware())
	s.router.Use(security.CORSMiddleware([]string{"*"}))
	s.router.Use(validation.RequestSizeMiddleware(validation.MaxRequestSize))

	s.rateLimiter = ratelimit.New(ratelimit.DefaultConfig())
	s.router.Use(s.rateLimiter.Middleware())

	s.router.Use(metrics.Middleware())
	s.router.Use(s.requestIDMiddleware())
	s.router.Use(s.loggingMiddleware())
}

func (s *Server) requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = generateRequestID()
		}

		ctx := logging.WithRequestID(c.Request.Context(), requestID)
		ctx = logging.WithLogger(ctx, s.logger)
		c.Request = c.Request.WithContext(ctx)

		c.Header("X-Request-ID", requestID)

		c.Next()
	}
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		logger := logging.L(c.Request.Context())

		switch {
		case status >= 500:
			logger.Error("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
				"client_ip", c.ClientIP(),
			)
		case status >= 400:
			logger.Warn("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
			)
		default:
			logger.Info("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
			)
		}
	}
}

// -----------------------------------------------------------------------------
// Routes
// -----------------------------------------------------------------------------

func (s *Server) setupRoutes() {
	// Health & metrics
	s.router.GET("/health", s.healthHandler)
	s.router.GET("/health/live", s.livenessHandler)
	s.router.GET("/health/ready", s.readinessHandler)
	s.router.GET("/metrics", metrics.Handler())

	// Pages
	s.router.GET("/", s.dashboardPageHandler)
	s.router.GET("/audit", s.auditPageHandler)
	s.router.GET("/generate", s.generatePageHandler)

	// CSV exports of the currently filtered view
	s.router.GET("/export/transactions.csv", s.exportTransactionsHandler)
	s.router.GET("/export/audit.csv", s.exportAuditHandler)

	// Workflow
	s.router.POST("/workflow/run", s.workflowRunHandler)

	// WebSocket for real-time stage/refresh events
	s.router.GET("/ws", func(c *gin.Context) {
		s.hub.HandleWebSocket(c.Writer, c.Request)
	})

	// Manual refresh trigger (debounced)
	s.router.POST("/refresh", s.refreshHandler)
}

// -----------------------------------------------------------------------------
// Lifecycle
// -----------------------------------------------------------------------------

// Run starts the HTTP server with graceful shutdown.
func (s *Server) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	s.cancelRunCtx = cancel

	s.httpSrv = &http.Server{
		Addr:              ":" + s.cfg.Port,
		Handler:           s.router,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errChan := make(chan error, 1)

	go func() {
		s.logger.Info("starting server",
			"port", s.cfg.Port,
			"backend", s.cfg.BackendURL,
		)
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	go s.hub.Run(runCtx)

	// Warm the snapshot once the backend answers; pages render empty-but-alive
	// until then.
	go func() {
		if wr, ok := s.api.(interface {
			WaitReady(ctx context.Context, maxWait time.Duration) error
		}); ok {
			if err := wr.WaitReady(runCtx, 30*time.Second); err != nil {
				s.logger.Warn("backend not reachable at startup", "error", err)
			}
		}
		if err := s.controller.Refresh(runCtx); err != nil {
			s.logger.Warn("initial refresh failed", "error", err)
		}
		s.ready.Store(true)
		s.logger.Info("server ready")
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		s.logger.Info("shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		s.logger.Info("context cancelled")
	}

	return s.Shutdown()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	s.ready.Store(false)
	s.logger.Info("starting graceful shutdown")

	if s.cancelRunCtx != nil {
		s.cancelRunCtx()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if s.httpSrv != nil {
		if err := s.httpSrv.Shutdown(ctx); err != nil {
			s.logger.Error("shutdown error", "error", err)
			return err
		}
	}

	if s.debouncer != nil {
		s.debouncer.Stop()
	}

	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
		s.logger.Info("rate limiter stopped")
	}

	s.logger.Info("server stopped")
	return nil
}

// Router returns the gin router for testing.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Controller returns the view controller for testing.
func (s *Server) Controller() *view.Controller {
	return s.controller
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func generateRequestID() string {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(bytes)
}
