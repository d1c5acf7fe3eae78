package view

import (
	"sort"
	"time"

	"github.com/fraudlens/fraudlens/internal/format"
	"github.com/fraudlens/fraudlens/internal/model"
)

// TransactionRow is one table row on the dashboard, fully formatted.
type TransactionRow struct {
	ShortID    string
	UserID     string
	UserName   string
	Amount     string
	Merchant   string
	Category   string
	Location   string
	When       string
	Badge      string
	BadgeClass string
}

// AuditComponentRow is one risk component inside an audit entry.
type AuditComponentRow struct {
	Name         string
	Value        string
	Weight       string
	Contribution string
}

// AuditRow is one audit-log table row.
type AuditRow struct {
	When          string
	ShortID       string
	UserID        string
	RiskScore     string
	Decision      string
	DecisionClass string
	Explanation   string
	Components    []AuditComponentRow
}

// StatsCards are the three headline numbers. Zero counts render "0".
type StatsCards struct {
	Total     int
	Normal    int
	Anomalous int
}

// BuildTransactionRows formats txs for display, preserving order.
func BuildTransactionRows(txs []model.Transaction, now time.Time) []TransactionRow {
	rows := make([]TransactionRow, 0, len(txs))
	for _, tx := range txs {
		badge := format.AnomalyBadge(tx.IsAnomalyLabel)
		badgeClass := "normal"
		if tx.IsAnomalyLabel {
			badgeClass = "anomalous"
		}
		rows = append(rows, TransactionRow{
			ShortID:    format.ShortID(tx.TransactionID),
			UserID:     tx.UserID,
			UserName:   tx.UserName,
			Amount:     format.Currency(tx.Amount),
			Merchant:   tx.Merchant,
			Category:   tx.MerchantCategory,
			Location:   tx.Location,
			When:       format.RelativeTime(tx.Timestamp, now),
			Badge:      badge,
			BadgeClass: badgeClass,
		})
	}
	return rows
}

// BuildAuditRows formats audit entries for display, preserving order.
// Risk components are sorted by contribution, largest first.
func BuildAuditRows(entries []model.AuditLogEntry, now time.Time) []AuditRow {
	rows := make([]AuditRow, 0, len(entries))
	for _, e := range entries {
		comps := make([]AuditComponentRow, 0, len(e.RiskComponents))
		names := make([]string, 0, len(e.RiskComponents))
		for name := range e.RiskComponents {
			names = append(names, name)
		}
		sort.Slice(names, func(i, j int) bool {
			a, b := e.RiskComponents[names[i]], e.RiskComponents[names[j]]
			if a.Contribution != b.Contribution {
				return a.Contribution > b.Contribution
			}
			return names[i] < names[j]
		})
		for _, name := range names {
			comp := e.RiskComponents[name]
			comps = append(comps, AuditComponentRow{
				Name:         name,
				Value:        format.Percent(comp.Value),
				Weight:       format.Percent(comp.Weight),
				Contribution: format.Percent(comp.Contribution),
			})
		}
		rows = append(rows, AuditRow{
			When:          format.RelativeTime(e.Timestamp, now),
			ShortID:       format.ShortID(e.TransactionID),
			UserID:        e.UserID,
			RiskScore:     format.Percent(e.RiskScore),
			Decision:      string(e.Decision),
			DecisionClass: format.DecisionClass(e.Decision),
			Explanation:   format.Explanation(e.Explanation),
			Components:    comps,
		})
	}
	return rows
}

// BuildStatsCards copies the counts straight through; the template is
// responsible for nothing beyond printing them.
func BuildStatsCards(s model.Stats) StatsCards {
	return StatsCards{Total: s.Total, Normal: s.Normal, Anomalous: s.Anomalous}
}
