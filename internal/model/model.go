// Package model defines the entities exchanged with the fraud-detection
// backend. All collections are owned transiently by the running process;
// each fetch replaces the previous snapshot wholesale.
package model

import (
	"errors"
	"time"
)

var ErrUnknownDecision = errors.New("model: unknown decision")

// Decision is the rule engine's verdict for a scored transaction.
type Decision string

const (
	DecisionApprove Decision = "APPROVE"
	DecisionDecline Decision = "DECLINE"
	DecisionReview  Decision = "MANUAL REVIEW"
)

// Valid reports whether d is one of the three known decisions.
func (d Decision) Valid() bool {
	switch d {
	case DecisionApprove, DecisionDecline, DecisionReview:
		return true
	}
	return false
}

// ParseDecision validates a decision string from the wire.
func ParseDecision(s string) (Decision, error) {
	d := Decision(s)
	if !d.Valid() {
		return "", ErrUnknownDecision
	}
	return d, nil
}

// Transaction is a synthetic card transaction produced by the backend
// generator. The client only reads and displays it.
type Transaction struct {
	ID               int64     `json:"id,omitempty"`
	TransactionID    string    `json:"transaction_id"`
	UserID           string    `json:"user_id"`
	UserName         string    `json:"user_name,omitempty"`
	Amount           float64   `json:"amount"`
	AmountRatio      float64   `json:"amount_ratio,omitempty"` // amount / user's average
	Merchant         string    `json:"merchant"`
	MerchantCategory string    `json:"merchant_category"`
	CategoryRisk     float64   `json:"category_risk,omitempty"`
	Location         string    `json:"location"`
	Timestamp        time.Time `json:"timestamp"`
	DeviceID         string    `json:"device_id,omitempty"`
	IPAddress        string    `json:"ip_address,omitempty"`
	IsAnomalyLabel   bool      `json:"is_anomaly_label"`
	AccountAgeDays   int       `json:"account_age_days,omitempty"`
	UserAvgAmount    float64   `json:"user_avg_transaction,omitempty"`
}

// UserProfile describes a demo customer's spending pattern.
type UserProfile struct {
	UserID              string   `json:"user_id"`
	Name                string   `json:"name"`
	AvgTransaction      float64  `json:"avg_transaction"`
	TrustScore          float64  `json:"trust_score"` // 0.0 to 1.0
	AccountAgeDays      int      `json:"account_age_days"`
	Location            string   `json:"location,omitempty"`
	PreferredCategories []string `json:"preferred_categories,omitempty"`
}

// MLScoreResult is the isolation-forest output for one transaction.
type MLScoreResult struct {
	AnomalyScore float64            `json:"anomaly_score"` // 0.0 to 1.0
	ShapFeatures map[string]float64 `json:"shap_features"` // signed per-feature contributions
	RawFeatures  map[string]float64 `json:"raw_features,omitempty"`
}

// RiskComponent is one factor's share of a combined risk score.
type RiskComponent struct {
	Value        float64 `json:"value"`
	Weight       float64 `json:"weight"`
	Contribution float64 `json:"contribution"`
}

// RiskResult is the rule engine's response to /calculate-risk.
type RiskResult struct {
	TransactionID  string                   `json:"transaction_id"`
	UserID         string                   `json:"user_id"`
	RiskScore      float64                  `json:"risk_score"` // 0.0 to 1.0
	Decision       Decision                 `json:"decision"`
	RiskComponents map[string]RiskComponent `json:"risk_components"`
	Timestamp      time.Time                `json:"timestamp"`
}

// AuditLogEntry records a past risk decision for compliance review.
// Explanation is empty until the LLM explainer has run; renderers show
// "Pending" in that case.
type AuditLogEntry struct {
	ID             int64                    `json:"id"`
	Timestamp      time.Time                `json:"timestamp"`
	UserID         string                   `json:"user_id"`
	TransactionID  string                   `json:"transaction_id"`
	RiskScore      float64                  `json:"risk_score"`
	Decision       Decision                 `json:"decision"`
	RiskComponents map[string]RiskComponent `json:"risk_components,omitempty"`
	Explanation    string                   `json:"explanation,omitempty"`
}

// Explanation is the LLM-generated narrative for a decision.
type Explanation struct {
	Explanation string    `json:"explanation"`
	Timestamp   time.Time `json:"timestamp"`
}

// Stats are the aggregate transaction counts shown on the dashboard.
type Stats struct {
	Total     int `json:"total"`
	Normal    int `json:"normal"`
	Anomalous int `json:"anomalous"`
}
