package view

import (
	"bytes"
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fraudlens/fraudlens/internal/filter"
	"github.com/fraudlens/fraudlens/internal/model"
)

type fakeSource struct {
	failTransactions bool
	auditHook        func() // runs before AuditLog returns

	users   []model.UserProfile
	txs     []model.Transaction
	stats   model.Stats
	entries []model.AuditLogEntry
}

func (f *fakeSource) ListUsers(ctx context.Context) ([]model.UserProfile, error) {
	return f.users, nil
}

func (f *fakeSource) ListTransactions(ctx context.Context, limit int) ([]model.Transaction, error) {
	if f.failTransactions {
		return nil, errors.New("backend down")
	}
	return f.txs, nil
}

func (f *fakeSource) Stats(ctx context.Context) (*model.Stats, error) {
	s := f.stats
	return &s, nil
}

func (f *fakeSource) AuditLog(ctx context.Context, limit int) ([]model.AuditLogEntry, error) {
	if f.auditHook != nil {
		f.auditHook()
	}
	return f.entries, nil
}

func seededSource() *fakeSource {
	return &fakeSource{
		users: []model.UserProfile{{UserID: "user_001", Name: "Alice"}},
		txs: []model.Transaction{
			{TransactionID: "txn_001", UserID: "user_001", Amount: 450, Timestamp: time.Now()},
			{TransactionID: "txn_002", UserID: "user_001", Amount: 12.5, IsAnomalyLabel: true, Timestamp: time.Now()},
		},
		stats: model.Stats{Total: 2, Normal: 1, Anomalous: 1},
		entries: []model.AuditLogEntry{
			{TransactionID: "txn_001", UserID: "user_001", Decision: model.DecisionApprove, RiskScore: 0.1},
		},
	}
}

func TestRefreshReplacesSnapshot(t *testing.T) {
	src := seededSource()
	c := NewController(src, 50, nil, nil)

	require.NoError(t, c.Refresh(context.Background()))
	snap := c.Current()
	assert.Len(t, snap.Transactions, 2)
	assert.Equal(t, 2, snap.Stats.Total)
	assert.False(t, snap.RefreshedAt.IsZero())

	// a second refresh replaces, not appends
	src.txs = src.txs[:1]
	require.NoError(t, c.Refresh(context.Background()))
	assert.Len(t, c.Current().Transactions, 1)
}

func TestRefreshFailureKeepsPreviousData(t *testing.T) {
	src := seededSource()
	c := NewController(src, 50, nil, nil)
	require.NoError(t, c.Refresh(context.Background()))

	src.failTransactions = true
	err := c.Refresh(context.Background())
	require.Error(t, err)

	snap := c.Current()
	assert.Len(t, snap.Transactions, 2, "previous collections survive a failed refresh")
	assert.Equal(t, "backend down", snap.LastError)
}

func TestSupersededRefreshNeverLands(t *testing.T) {
	src := seededSource()
	c := NewController(src, 50, nil, nil)
	require.NoError(t, c.Refresh(context.Background()))

	// every fetch succeeds, but the refresh is superseded after the last
	// call has already returned; its snapshot must be discarded
	ctx, cancel := context.WithCancel(context.Background())
	src.auditHook = func() { cancel() }
	src.txs = src.txs[:1]

	err := c.Refresh(ctx)
	require.ErrorIs(t, err, context.Canceled)

	snap := c.Current()
	assert.Len(t, snap.Transactions, 2, "stale fetch must not overwrite the current snapshot")
	assert.Empty(t, snap.LastError)
}

func TestControllerFiltering(t *testing.T) {
	c := NewController(seededSource(), 50, nil, nil)
	require.NoError(t, c.Refresh(context.Background()))

	anomalous := c.Transactions(filter.Criteria{Kind: filter.KindAnomalous})
	require.Len(t, anomalous, 1)
	assert.Equal(t, "txn_002", anomalous[0].TransactionID)

	all := c.Transactions(filter.Criteria{})
	assert.Len(t, all, 2)
}

func TestBuildTransactionRows(t *testing.T) {
	now := time.Date(2026, 8, 28, 15, 30, 0, 0, time.UTC)
	rows := BuildTransactionRows([]model.Transaction{
		{
			TransactionID:  "txn_000000012345",
			UserID:         "user_001",
			Amount:         450,
			Merchant:       "Amazon",
			Timestamp:      now.Add(-5 * time.Minute),
			IsAnomalyLabel: true,
		},
	}, now)

	require.Len(t, rows, 1)
	assert.Equal(t, "$450.00", rows[0].Amount)
	assert.Equal(t, "ANOMALOUS", rows[0].Badge)
	assert.Equal(t, "anomalous", rows[0].BadgeClass)
	assert.Equal(t, "txn_00000001…", rows[0].ShortID)
	assert.Equal(t, "5m ago", rows[0].When)
}

func TestBuildAuditRowsSortsComponents(t *testing.T) {
	now := time.Now()
	rows := BuildAuditRows([]model.AuditLogEntry{
		{
			TransactionID: "txn_001",
			Decision:      model.DecisionReview,
			RiskScore:     0.74,
			RiskComponents: map[string]model.RiskComponent{
				"trust":    {Value: 0.2, Weight: 0.2, Contribution: 0.04},
				"ml_score": {Value: 0.8, Weight: 0.5, Contribution: 0.40},
			},
		},
	}, now)

	require.Len(t, rows, 1)
	require.Len(t, rows[0].Components, 2)
	assert.Equal(t, "ml_score", rows[0].Components[0].Name, "largest contribution first")
	assert.Equal(t, "74.0%", rows[0].RiskScore)
	assert.Equal(t, "review", rows[0].DecisionClass)
	assert.Equal(t, "Pending", rows[0].Explanation)
}

func TestRenderDashboardZeroStats(t *testing.T) {
	var buf bytes.Buffer
	err := RenderDashboard(&buf, DashboardData{
		Cards: BuildStatsCards(model.Stats{}),
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `<div class="card-value">0</div>`)
	assert.Contains(t, out, "No transactions match")
}

func TestRenderDashboardRows(t *testing.T) {
	var buf bytes.Buffer
	err := RenderDashboard(&buf, DashboardData{
		Cards: StatsCards{Total: 1, Normal: 0, Anomalous: 1},
		Rows: []TransactionRow{{
			ShortID: "txn_001", Amount: "$450.00",
			Badge: "ANOMALOUS", BadgeClass: "anomalous",
		}},
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "$450.00")
	assert.Contains(t, out, `<span class="badge anomalous">ANOMALOUS</span>`)
}

func TestRenderAuditAndGenerate(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderAudit(&buf, AuditData{
		Rows: []AuditRow{{ShortID: "txn_001", Decision: "APPROVE", DecisionClass: "approve"}},
	}))
	assert.Contains(t, buf.String(), "APPROVE")

	buf.Reset()
	require.NoError(t, RenderGenerate(&buf, GenerateData{
		Users: []UserOption{{ID: "user_001", Name: "Alice"}},
	}))
	assert.Contains(t, buf.String(), "Alice")
}

func TestDebouncerCoalesces(t *testing.T) {
	d := NewDebouncer(50 * time.Millisecond)
	defer d.Stop()

	var calls atomic.Int32
	for i := 0; i < 5; i++ {
		d.Trigger(func() { calls.Add(1) })
		time.Sleep(5 * time.Millisecond)
	}

	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load(), "burst collapses to one call")

	d.Trigger(func() { calls.Add(1) })
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(2), calls.Load())
}
