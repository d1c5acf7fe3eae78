// Package format holds the pure presentation helpers shared by pages and
// templates: currency, percentages, identifier truncation, relative time.
package format

import (
	"fmt"
	"strings"
	"time"

	"github.com/fraudlens/fraudlens/internal/model"
)

// MaxIDChars is the display cap for transaction identifiers.
const MaxIDChars = 12

// Currency renders a dollar amount with two decimals, e.g. "$450.00".
func Currency(amount float64) string {
	return fmt.Sprintf("$%.2f", amount)
}

// Percent renders a 0..1 fraction as a percentage with one decimal,
// e.g. 0.825 -> "82.5%".
func Percent(fraction float64) string {
	return fmt.Sprintf("%.1f%%", fraction*100)
}

// Signed renders a SHAP contribution with an explicit sign, three decimals.
func Signed(v float64) string {
	return fmt.Sprintf("%+.3f", v)
}

// Truncate caps s at max runes, appending an ellipsis when shortened.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "…"
}

// ShortID truncates a transaction identifier for table cells.
func ShortID(id string) string {
	return Truncate(id, MaxIDChars)
}

// RelativeTime renders how long ago ts was, relative to now.
func RelativeTime(ts, now time.Time) string {
	diff := now.Sub(ts)
	switch {
	case diff < 5*time.Second:
		return "now"
	case diff < time.Minute:
		return fmt.Sprintf("%ds ago", int(diff.Seconds()))
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
	}
}

// AnomalyBadge returns the label shown next to a transaction.
func AnomalyBadge(isAnomaly bool) string {
	if isAnomaly {
		return "ANOMALOUS"
	}
	return "NORMAL"
}

// DecisionClass maps a decision to its CSS class suffix.
func DecisionClass(d model.Decision) string {
	switch d {
	case model.DecisionApprove:
		return "approve"
	case model.DecisionDecline:
		return "decline"
	case model.DecisionReview:
		return "review"
	default:
		return "unknown"
	}
}

// Explanation returns the display text for a possibly-absent explanation.
func Explanation(s string) string {
	if strings.TrimSpace(s) == "" {
		return "Pending"
	}
	return s
}
