package filter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fraudlens/fraudlens/internal/model"
)

// Fixed clock: Friday 2026-08-28 15:30 local time.
var testNow = time.Date(2026, 8, 28, 15, 30, 0, 0, time.Local)

func fixedNow() time.Time { return testNow }

func sampleTransactions() []model.Transaction {
	return []model.Transaction{
		{TransactionID: "TXN_A1", UserID: "alice", IsAnomalyLabel: false, Timestamp: testNow.Add(-1 * time.Hour)},
		{TransactionID: "txn_b2", UserID: "bob", IsAnomalyLabel: true, Timestamp: testNow.Add(-20 * time.Hour)},
		{TransactionID: "txn_c3", UserID: "alice", IsAnomalyLabel: true, Timestamp: testNow.Add(-3 * 24 * time.Hour)},
		{TransactionID: "txn_d4", UserID: "charlie", IsAnomalyLabel: false, Timestamp: testNow.Add(-10 * 24 * time.Hour)},
		{TransactionID: "txn_e5", UserID: "bob", IsAnomalyLabel: false, Timestamp: testNow.Add(-40 * 24 * time.Hour)},
	}
}

func idsOf(txs []model.Transaction) []string {
	ids := make([]string, len(txs))
	for i, tx := range txs {
		ids[i] = tx.TransactionID
	}
	return ids
}

func TestTransactions_EmptyCriteriaReturnsInput(t *testing.T) {
	txs := sampleTransactions()
	got := Transactions(txs, Criteria{Now: fixedNow})
	assert.Equal(t, idsOf(txs), idsOf(got))

	// RangeAll is also a no-op
	got = Transactions(txs, Criteria{Range: RangeAll, Now: fixedNow})
	assert.Equal(t, idsOf(txs), idsOf(got))
}

func TestTransactions_SubsetPreservesOrder(t *testing.T) {
	txs := sampleTransactions()
	got := Transactions(txs, Criteria{UserID: "bob", Now: fixedNow})

	assert.Equal(t, []string{"txn_b2", "txn_e5"}, idsOf(got))

	// Every result must come from the input (subset property)
	seen := map[string]bool{}
	for _, tx := range txs {
		seen[tx.TransactionID] = true
	}
	for _, tx := range got {
		assert.True(t, seen[tx.TransactionID])
	}
}

func TestTransactions_KindFilter(t *testing.T) {
	txs := sampleTransactions()

	anomalous := Transactions(txs, Criteria{Kind: KindAnomalous, Now: fixedNow})
	assert.Equal(t, []string{"txn_b2", "txn_c3"}, idsOf(anomalous))

	normal := Transactions(txs, Criteria{Kind: KindNormal, Now: fixedNow})
	assert.Equal(t, []string{"TXN_A1", "txn_d4", "txn_e5"}, idsOf(normal))
}

func TestTransactions_RangeToday(t *testing.T) {
	txs := sampleTransactions()
	got := Transactions(txs, Criteria{Range: RangeToday, Now: fixedNow})

	// txn_b2 is 20h ago, i.e. before local midnight; only txn_a1 survives
	assert.Equal(t, []string{"TXN_A1"}, idsOf(got))
}

func TestTransactions_RangeWeek(t *testing.T) {
	txs := sampleTransactions()
	got := Transactions(txs, Criteria{Range: RangeWeek, Now: fixedNow})
	assert.Equal(t, []string{"TXN_A1", "txn_b2", "txn_c3"}, idsOf(got))
}

func TestTransactions_RangeMonth(t *testing.T) {
	txs := sampleTransactions()
	got := Transactions(txs, Criteria{Range: RangeMonth, Now: fixedNow})
	assert.Equal(t, []string{"TXN_A1", "txn_b2", "txn_c3", "txn_d4"}, idsOf(got))
}

func TestTransactions_WeekBoundary(t *testing.T) {
	justInside := model.Transaction{TransactionID: "in", Timestamp: testNow.Add(-7*24*time.Hour + time.Minute)}
	justOutside := model.Transaction{TransactionID: "out", Timestamp: testNow.Add(-7*24*time.Hour - time.Minute)}

	got := Transactions([]model.Transaction{justInside, justOutside}, Criteria{Range: RangeWeek, Now: fixedNow})
	assert.Equal(t, []string{"in"}, idsOf(got))
}

func TestTransactions_SearchCaseInsensitive(t *testing.T) {
	txs := sampleTransactions()

	got := Transactions(txs, Criteria{Search: "txn_a", Now: fixedNow})
	assert.Equal(t, []string{"TXN_A1"}, idsOf(got))

	// Matches user IDs too
	got = Transactions(txs, Criteria{Search: "ALICE", Now: fixedNow})
	assert.Equal(t, []string{"TXN_A1", "txn_c3"}, idsOf(got))
}

func TestTransactions_Conjunction(t *testing.T) {
	txs := sampleTransactions()
	got := Transactions(txs, Criteria{
		UserID: "alice",
		Kind:   KindAnomalous,
		Range:  RangeWeek,
		Now:    fixedNow,
	})
	assert.Equal(t, []string{"txn_c3"}, idsOf(got))
}

func sampleAudit() []model.AuditLogEntry {
	return []model.AuditLogEntry{
		{ID: 1, TransactionID: "txn_b2", UserID: "bob", Decision: model.DecisionDecline, RiskScore: 0.85, Timestamp: testNow.Add(-2 * time.Hour)},
		{ID: 2, TransactionID: "txn_c3", UserID: "alice", Decision: model.DecisionReview, RiskScore: 0.55, Timestamp: testNow.Add(-2 * 24 * time.Hour)},
		{ID: 3, TransactionID: "TXN_A1", UserID: "alice", Decision: model.DecisionApprove, RiskScore: 0.12, Timestamp: testNow.Add(-9 * 24 * time.Hour)},
	}
}

func TestAuditEntries_DecisionFilter(t *testing.T) {
	entries := sampleAudit()

	got := AuditEntries(entries, Criteria{Kind: "DECLINE", Now: fixedNow})
	require.Len(t, got, 1)
	assert.Equal(t, int64(1), got[0].ID)

	// Kind compare is case-insensitive on the criteria side
	got = AuditEntries(entries, Criteria{Kind: "manual review", Now: fixedNow})
	require.Len(t, got, 1)
	assert.Equal(t, int64(2), got[0].ID)
}

func TestAuditEntries_EmptyCriteria(t *testing.T) {
	entries := sampleAudit()
	got := AuditEntries(entries, Criteria{Now: fixedNow})
	assert.Len(t, got, len(entries))
}

func TestAuditEntries_WeekWindow(t *testing.T) {
	entries := sampleAudit()
	got := AuditEntries(entries, Criteria{Range: RangeWeek, Now: fixedNow})
	require.Len(t, got, 2)
	assert.Equal(t, int64(1), got[0].ID)
	assert.Equal(t, int64(2), got[1].ID)
}

func TestAuditEntries_SearchByTransaction(t *testing.T) {
	entries := sampleAudit()
	got := AuditEntries(entries, Criteria{Search: "txn_a1", Now: fixedNow})
	require.Len(t, got, 1)
	assert.Equal(t, int64(3), got[0].ID)
}
