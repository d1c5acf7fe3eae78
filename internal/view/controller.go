// Package view owns the dashboard's working data: the last snapshot fetched
// from the backend, the row builders that shape it for templates, and the
// templates themselves. A refresh replaces the snapshot wholesale; there is
// no merging and no local persistence.
package view

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/fraudlens/fraudlens/internal/filter"
	"github.com/fraudlens/fraudlens/internal/logging"
	"github.com/fraudlens/fraudlens/internal/metrics"
	"github.com/fraudlens/fraudlens/internal/model"
)

// Source is the slice of the backend client the controller reads from.
type Source interface {
	ListUsers(ctx context.Context) ([]model.UserProfile, error)
	ListTransactions(ctx context.Context, limit int) ([]model.Transaction, error)
	Stats(ctx context.Context) (*model.Stats, error)
	AuditLog(ctx context.Context, limit int) ([]model.AuditLogEntry, error)
}

// RefreshNotifier is told when a refresh lands. The realtime hub
// implements it.
type RefreshNotifier interface {
	NotifyRefresh(counts map[string]int)
}

// Snapshot is one consistent read of the controller's collections.
type Snapshot struct {
	Users        []model.UserProfile
	Transactions []model.Transaction
	AuditEntries []model.AuditLogEntry
	Stats        model.Stats
	RefreshedAt  time.Time
	LastError    string
}

// Controller holds the current snapshot and refreshes it on demand.
// A refresh that fails leaves the previous snapshot untouched, so the
// pages keep rendering the data they had.
type Controller struct {
	source     Source
	notifier   RefreshNotifier
	fetchLimit int
	logger     *slog.Logger

	mu         sync.RWMutex
	snap       Snapshot
	cancelPrev context.CancelFunc
}

// NewController builds a controller. notifier may be nil.
func NewController(source Source, fetchLimit int, notifier RefreshNotifier, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		source:     source,
		notifier:   notifier,
		fetchLimit: fetchLimit,
		logger:     logging.Component(logger, "view"),
	}
}

// Refresh fetches users, transactions, stats, and the audit log, then
// swaps the snapshot in one step. Starting a refresh cancels one still
// in flight, so a stale fetch can never overwrite a newer one.
func (c *Controller) Refresh(ctx context.Context) error {
	c.mu.Lock()
	if c.cancelPrev != nil {
		c.cancelPrev()
	}
	ctx, cancel := context.WithCancel(ctx)
	c.cancelPrev = cancel
	c.mu.Unlock()
	defer cancel()

	start := time.Now()

	users, err := c.source.ListUsers(ctx)
	if err != nil {
		return c.refreshFailed(err)
	}
	txs, err := c.source.ListTransactions(ctx, c.fetchLimit)
	if err != nil {
		return c.refreshFailed(err)
	}
	stats, err := c.source.Stats(ctx)
	if err != nil {
		return c.refreshFailed(err)
	}
	entries, err := c.source.AuditLog(ctx, c.fetchLimit)
	if err != nil {
		return c.refreshFailed(err)
	}

	c.mu.Lock()
	// A newer refresh cancels its predecessor under this same mutex, so
	// checking here guarantees a superseded fetch never lands its
	// snapshot over the newer one even when every call already returned.
	if ctx.Err() != nil {
		c.mu.Unlock()
		c.logger.Debug("refresh superseded, discarding fetched snapshot")
		return ctx.Err()
	}
	c.snap = Snapshot{
		Users:        users,
		Transactions: txs,
		AuditEntries: entries,
		Stats:        *stats,
		RefreshedAt:  time.Now(),
	}
	c.mu.Unlock()

	metrics.ViewRefreshesTotal.WithLabelValues("ok").Inc()
	c.logger.Debug("snapshot refreshed",
		"transactions", len(txs),
		"audit_entries", len(entries),
		"duration", time.Since(start))

	if c.notifier != nil {
		c.notifier.NotifyRefresh(map[string]int{
			"transactions":  len(txs),
			"audit_entries": len(entries),
			"total":         stats.Total,
			"anomalous":     stats.Anomalous,
		})
	}
	return nil
}

func (c *Controller) refreshFailed(err error) error {
	metrics.ViewRefreshesTotal.WithLabelValues("error").Inc()
	c.logger.Warn("refresh failed, keeping previous snapshot", "error", err)
	c.mu.Lock()
	c.snap.LastError = err.Error()
	c.mu.Unlock()
	return err
}

// Current returns the snapshot as of the last successful refresh.
func (c *Controller) Current() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap
}

// Transactions applies crit to the snapshot's transaction collection.
func (c *Controller) Transactions(crit filter.Criteria) []model.Transaction {
	return filter.Transactions(c.Current().Transactions, crit)
}

// AuditEntries applies crit to the snapshot's audit-log collection.
func (c *Controller) AuditEntries(crit filter.Criteria) []model.AuditLogEntry {
	return filter.AuditEntries(c.Current().AuditEntries, crit)
}
