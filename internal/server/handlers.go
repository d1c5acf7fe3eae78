package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fraudlens/fraudlens/internal/backend"
	"github.com/fraudlens/fraudlens/internal/export"
	"github.com/fraudlens/fraudlens/internal/filter"
	"github.com/fraudlens/fraudlens/internal/logging"
	"github.com/fraudlens/fraudlens/internal/validation"
	"github.com/fraudlens/fraudlens/internal/view"
	"github.com/fraudlens/fraudlens/internal/workflow"
)

// criteriaFromQuery maps the page/export query params onto filter criteria.
func criteriaFromQuery(c *gin.Context) filter.Criteria {
	return filter.Criteria{
		UserID: c.Query("user"),
		Kind:   c.Query("kind"),
		Range:  filter.Range(c.Query("range")),
		Search: validation.SanitizeSearch(c.Query("q"), 128),
	}
}

func queryState(c *gin.Context) view.QueryState {
	return view.QueryState{
		UserID: c.Query("user"),
		Kind:   c.Query("kind"),
		Range:  c.Query("range"),
		Search: c.Query("q"),
	}
}

func userOptions(snap view.Snapshot) []view.UserOption {
	opts := make([]view.UserOption, 0, len(snap.Users))
	for _, u := range snap.Users {
		opts = append(opts, view.UserOption{ID: u.UserID, Name: u.Name})
	}
	return opts
}

// -----------------------------------------------------------------------------
// Pages
// -----------------------------------------------------------------------------

func (s *Server) dashboardPageHandler(c *gin.Context) {
	snap := s.controller.Current()
	txs := filter.Transactions(snap.Transactions, criteriaFromQuery(c))
	now := time.Now()

	refreshed := "never"
	if !snap.RefreshedAt.IsZero() {
		refreshed = snap.RefreshedAt.Format("15:04:05")
	}

	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(http.StatusOK)
	err := view.RenderDashboard(c.Writer, view.DashboardData{
		Cards:       view.BuildStatsCards(snap.Stats),
		Rows:        view.BuildTransactionRows(txs, now),
		Users:       userOptions(snap),
		Query:       queryState(c),
		RefreshedAt: refreshed,
		LastError:   snap.LastError,
	})
	if err != nil {
		logging.L(c.Request.Context()).Error("dashboard render failed", "error", err)
	}
}

func (s *Server) auditPageHandler(c *gin.Context) {
	snap := s.controller.Current()
	entries := filter.AuditEntries(snap.AuditEntries, criteriaFromQuery(c))

	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(http.StatusOK)
	err := view.RenderAudit(c.Writer, view.AuditData{
		Rows:      view.BuildAuditRows(entries, time.Now()),
		Users:     userOptions(snap),
		Query:     queryState(c),
		LastError: snap.LastError,
	})
	if err != nil {
		logging.L(c.Request.Context()).Error("audit render failed", "error", err)
	}
}

func (s *Server) generatePageHandler(c *gin.Context) {
	snap := s.controller.Current()

	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(http.StatusOK)
	err := view.RenderGenerate(c.Writer, view.GenerateData{
		Users: userOptions(snap),
	})
	if err != nil {
		logging.L(c.Request.Context()).Error("generate render failed", "error", err)
	}
}

// -----------------------------------------------------------------------------
// CSV exports
// -----------------------------------------------------------------------------

func (s *Server) exportTransactionsHandler(c *gin.Context) {
	txs := s.controller.Transactions(criteriaFromQuery(c))

	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition",
		fmt.Sprintf(`attachment; filename=%q`, export.Filename("transactions", time.Now())))
	c.Status(http.StatusOK)

	if err := export.Transactions(c.Writer, txs); err != nil {
		logging.L(c.Request.Context()).Error("transaction export failed", "error", err)
	}
}

func (s *Server) exportAuditHandler(c *gin.Context) {
	entries := s.controller.AuditEntries(criteriaFromQuery(c))

	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition",
		fmt.Sprintf(`attachment; filename=%q`, export.Filename("audit", time.Now())))
	c.Status(http.StatusOK)

	if err := export.AuditEntries(c.Writer, entries); err != nil {
		logging.L(c.Request.Context()).Error("audit export failed", "error", err)
	}
}

// -----------------------------------------------------------------------------
// Workflow
// -----------------------------------------------------------------------------

type workflowRunRequest struct {
	UserID    string `json:"user_id" binding:"required"`
	IsAnomaly bool   `json:"is_anomaly"`
}

func (s *Server) workflowRunHandler(c *gin.Context) {
	var req workflowRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "user_id is required",
		})
		return
	}
	if !validation.IsValidUserID(req.UserID) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_user_id",
			"message": "user_id contains invalid characters",
		})
		return
	}

	result, err := s.runner.Run(c.Request.Context(), req.UserID, req.IsAnomaly)
	if err != nil {
		switch {
		case errors.Is(err, workflow.ErrUnknownUser):
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "unknown_user",
				"message": "No such demo user: " + req.UserID,
			})
		case errors.Is(err, context.Canceled):
			// superseded by a newer run
			c.JSON(http.StatusConflict, gin.H{
				"error":   "superseded",
				"message": "A newer run replaced this one",
				"result":  result,
			})
		default:
			logging.L(c.Request.Context()).Error("workflow run failed", "error", err)
			c.JSON(http.StatusBadGateway, gin.H{
				"error":   "backend_error",
				"message": err.Error(),
			})
		}
		return
	}

	// Collections changed on the backend; refresh once the burst settles.
	s.debouncer.Trigger(func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.BackendTimeout)
		defer cancel()
		_ = s.controller.Refresh(ctx)
	})

	c.JSON(http.StatusOK, result)
}

func (s *Server) refreshHandler(c *gin.Context) {
	s.debouncer.Trigger(func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.BackendTimeout)
		defer cancel()
		_ = s.controller.Refresh(ctx)
	})
	c.JSON(http.StatusAccepted, gin.H{"status": "scheduled"})
}

// -----------------------------------------------------------------------------
// Health
// -----------------------------------------------------------------------------

// HealthResponse for health check endpoints.
type HealthResponse struct {
	Status    string            `json:"status"`
	Version   string            `json:"version"`
	Checks    map[string]string `json:"checks,omitempty"`
	Timestamp string            `json:"timestamp"`
}

func (s *Server) healthHandler(c *gin.Context) {
	checks := make(map[string]string)

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if _, err := s.api.Health(ctx); err != nil {
		var apiErr *backend.APIError
		if errors.As(err, &apiErr) {
			checks["backend"] = fmt.Sprintf("unhealthy (%d)", apiErr.StatusCode)
		} else {
			checks["backend"] = "unreachable"
		}
	} else {
		checks["backend"] = "healthy"
	}

	status := "healthy"
	httpStatus := http.StatusOK
	for _, v := range checks {
		if v != "healthy" {
			status = "degraded"
			httpStatus = http.StatusServiceUnavailable
			break
		}
	}

	c.JSON(httpStatus, HealthResponse{
		Status:    status,
		Version:   "0.1.0",
		Checks:    checks,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) livenessHandler(c *gin.Context) {
	if !s.healthy.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

func (s *Server) readinessHandler(c *gin.Context) {
	if !s.ready.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
