// Package filter implements pure, order-preserving filtering over the
// in-memory collections fetched from the backend. Criteria compose by
// conjunction; an empty criterion is a no-op.
package filter

import (
	"strings"
	"time"

	"github.com/fraudlens/fraudlens/internal/model"
)

// Range is a date-range bucket. Today is the local-midnight cutoff;
// Week and Month are rolling 7x24h and 30x24h windows from now.
type Range string

const (
	RangeAll   Range = "all"
	RangeToday Range = "today"
	RangeWeek  Range = "week"
	RangeMonth Range = "month"
)

// Kinds for the transaction collection.
const (
	KindAnomalous = "anomalous"
	KindNormal    = "normal"
)

// Criteria selects a subset of a collection. Zero-value criteria select
// everything.
type Criteria struct {
	UserID string
	Kind   string // anomalous/normal for transactions, a decision for audit entries
	Range  Range
	Search string // case-insensitive match against transaction/user IDs

	// Now supplies the clock for range cutoffs; time.Now when nil.
	Now func() time.Time
}

func (c Criteria) isZero() bool {
	return c.UserID == "" && c.Kind == "" && (c.Range == "" || c.Range == RangeAll) && c.Search == ""
}

func (c Criteria) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// cutoff returns the earliest admissible timestamp, or the zero time
// when the range does not constrain.
func (c Criteria) cutoff() time.Time {
	now := c.now()
	switch c.Range {
	case RangeToday:
		y, m, d := now.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	case RangeWeek:
		return now.Add(-7 * 24 * time.Hour)
	case RangeMonth:
		return now.Add(-30 * 24 * time.Hour)
	default:
		return time.Time{}
	}
}

// Transactions returns the subset of txs matching c, preserving order.
// With zero criteria the input slice is returned unchanged.
func Transactions(txs []model.Transaction, c Criteria) []model.Transaction {
	if c.isZero() {
		return txs
	}
	cutoff := c.cutoff()
	search := strings.ToLower(c.Search)

	out := make([]model.Transaction, 0, len(txs))
	for _, tx := range txs {
		if c.UserID != "" && tx.UserID != c.UserID {
			continue
		}
		switch c.Kind {
		case KindAnomalous:
			if !tx.IsAnomalyLabel {
				continue
			}
		case KindNormal:
			if tx.IsAnomalyLabel {
				continue
			}
		}
		if !cutoff.IsZero() && tx.Timestamp.Before(cutoff) {
			continue
		}
		if search != "" && !matchesID(search, tx.TransactionID, tx.UserID) {
			continue
		}
		out = append(out, tx)
	}
	return out
}

// AuditEntries returns the subset of entries matching c, preserving order.
// Kind is compared against the entry's decision.
func AuditEntries(entries []model.AuditLogEntry, c Criteria) []model.AuditLogEntry {
	if c.isZero() {
		return entries
	}
	cutoff := c.cutoff()
	search := strings.ToLower(c.Search)
	kind := strings.ToUpper(c.Kind)

	out := make([]model.AuditLogEntry, 0, len(entries))
	for _, e := range entries {
		if c.UserID != "" && e.UserID != c.UserID {
			continue
		}
		if kind != "" && string(e.Decision) != kind {
			continue
		}
		if !cutoff.IsZero() && e.Timestamp.Before(cutoff) {
			continue
		}
		if search != "" && !matchesID(search, e.TransactionID, e.UserID) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func matchesID(search string, ids ...string) bool {
	for _, id := range ids {
		if strings.Contains(strings.ToLower(id), search) {
			return true
		}
	}
	return false
}
