// Package export serializes the currently filtered collections to CSV.
// Exports always reflect the rows the caller passes in, never a re-fetch.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/fraudlens/fraudlens/internal/format"
	"github.com/fraudlens/fraudlens/internal/metrics"
	"github.com/fraudlens/fraudlens/internal/model"
)

const timestampLayout = "2006-01-02 15:04:05"

// TransactionHeader is the fixed column order for transaction exports.
var TransactionHeader = []string{
	"transaction_id", "user_id", "amount", "merchant",
	"merchant_category", "location", "timestamp", "is_anomaly",
}

// AuditHeader is the fixed column order for audit-log exports.
var AuditHeader = []string{
	"timestamp", "transaction_id", "user_id",
	"risk_score", "decision", "explanation",
}

// Filename returns the datestamped download name for an entity,
// e.g. "transactions_2026-08-30.csv".
func Filename(entity string, now time.Time) string {
	return fmt.Sprintf("%s_%s.csv", entity, now.Format("2006-01-02"))
}

// Transactions writes txs as CSV. Column order is stable; quoting and
// escaping follow RFC 4180 via encoding/csv.
func Transactions(w io.Writer, txs []model.Transaction) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(TransactionHeader); err != nil {
		return fmt.Errorf("export: write header: %w", err)
	}
	for _, tx := range txs {
		row := []string{
			tx.TransactionID,
			tx.UserID,
			strconv.FormatFloat(tx.Amount, 'f', 2, 64),
			tx.Merchant,
			tx.MerchantCategory,
			tx.Location,
			tx.Timestamp.Format(timestampLayout),
			strconv.FormatBool(tx.IsAnomalyLabel),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("export: write row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("export: flush: %w", err)
	}
	metrics.CSVExportsTotal.WithLabelValues("transactions").Inc()
	return nil
}

// AuditEntries writes audit-log entries as CSV. Entries without an
// explanation export the literal "Pending", matching the on-screen table.
func AuditEntries(w io.Writer, entries []model.AuditLogEntry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(AuditHeader); err != nil {
		return fmt.Errorf("export: write header: %w", err)
	}
	for _, e := range entries {
		row := []string{
			e.Timestamp.Format(timestampLayout),
			e.TransactionID,
			e.UserID,
			strconv.FormatFloat(e.RiskScore, 'f', 3, 64),
			string(e.Decision),
			format.Explanation(e.Explanation),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("export: write row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("export: flush: %w", err)
	}
	metrics.CSVExportsTotal.WithLabelValues("audit").Inc()
	return nil
}
