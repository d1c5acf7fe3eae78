// Package backend implements the typed HTTP client for the fraud-detection
// API. Every operation maps to one endpoint; a non-2xx response surfaces as
// an *APIError carrying the HTTP status and the server's error message.
//
// There is no per-request retry: a failed call is reported to the caller,
// which renders an inline error state and keeps the previous data.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"github.com/fraudlens/fraudlens/internal/logging"
	"github.com/fraudlens/fraudlens/internal/metrics"
	"github.com/fraudlens/fraudlens/internal/model"
	"github.com/fraudlens/fraudlens/internal/traces"
)

// ErrMalformedResponse indicates a 2xx response whose body was missing an
// expected field or was not valid JSON.
var ErrMalformedResponse = errors.New("backend: malformed response")

// APIError is a non-2xx response from the fraud API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend: %d %s: %s", e.StatusCode, http.StatusText(e.StatusCode), e.Message)
}

// Client talks to the fraud-detection backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// Options configures a Client.
type Options struct {
	BaseURL        string
	Timeout        time.Duration
	RequestsPerSec int
	Logger         *slog.Logger
}

// New creates a backend client with a rate-limited transport.
func New(opts Options) *Client {
	if opts.Timeout == 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.RequestsPerSec == 0 {
		opts.RequestsPerSec = 10
	}

	return &Client{
		baseURL: opts.BaseURL,
		httpClient: &http.Client{
			Timeout: opts.Timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(opts.RequestsPerSec), opts.RequestsPerSec),
		logger:  logging.Component(opts.Logger, "backend"),
	}
}

// HealthStatus is the /health response.
type HealthStatus struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// Health probes backend liveness.
func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	var out HealthStatus
	if err := c.get(ctx, "/health", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// WaitReady polls /health with exponential backoff until the backend
// responds or ctx is cancelled. Startup convenience only; individual
// requests are never retried.
func (c *Client) WaitReady(ctx context.Context, maxWait time.Duration) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 250 * time.Millisecond
	bo.MaxElapsedTime = maxWait

	return backoff.Retry(func() error {
		_, err := c.Health(ctx)
		if err != nil {
			c.logger.Debug("backend not ready", "error", err)
		}
		return err
	}, backoff.WithContext(bo, ctx))
}

// ListUsers fetches all demo user profiles.
func (c *Client) ListUsers(ctx context.Context) ([]model.UserProfile, error) {
	var out struct {
		Users []model.UserProfile `json:"users"`
	}
	if err := c.get(ctx, "/users", nil, &out); err != nil {
		return nil, err
	}
	if out.Users == nil {
		return nil, fmt.Errorf("%w: missing users array", ErrMalformedResponse)
	}
	return out.Users, nil
}

// ListTransactions fetches the most recent transactions, newest first.
func (c *Client) ListTransactions(ctx context.Context, limit int) ([]model.Transaction, error) {
	q := url.Values{"limit": {strconv.Itoa(limit)}}
	var out struct {
		Transactions []model.Transaction `json:"transactions"`
		Count        int                 `json:"count"`
	}
	if err := c.get(ctx, "/transactions", q, &out); err != nil {
		return nil, err
	}
	if out.Transactions == nil {
		return nil, fmt.Errorf("%w: missing transactions array", ErrMalformedResponse)
	}
	return out.Transactions, nil
}

// Stats fetches the aggregate transaction counts.
func (c *Client) Stats(ctx context.Context) (*model.Stats, error) {
	var out model.Stats
	if err := c.get(ctx, "/transactions/stats", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AuditLog fetches recent risk decisions, newest first.
func (c *Client) AuditLog(ctx context.Context, limit int) ([]model.AuditLogEntry, error) {
	q := url.Values{"limit": {strconv.Itoa(limit)}}
	var out struct {
		Entries []model.AuditLogEntry `json:"entries"`
		Count   int                   `json:"count"`
	}
	if err := c.get(ctx, "/audit-log", q, &out); err != nil {
		return nil, err
	}
	if out.Entries == nil {
		return nil, fmt.Errorf("%w: missing entries array", ErrMalformedResponse)
	}
	return out.Entries, nil
}

// GenerateTransaction asks the backend to synthesize a transaction for a user.
func (c *Client) GenerateTransaction(ctx context.Context, userID string, isAnomaly bool) (*model.Transaction, error) {
	body := map[string]any{
		"user_id":    userID,
		"is_anomaly": isAnomaly,
	}
	var out model.Transaction
	if err := c.post(ctx, "/generate-transaction", body, &out); err != nil {
		return nil, err
	}
	if out.TransactionID == "" {
		return nil, fmt.Errorf("%w: missing transaction_id", ErrMalformedResponse)
	}
	return &out, nil
}

// ScoreTransaction submits a transaction and profile for ML scoring.
func (c *Client) ScoreTransaction(ctx context.Context, tx *model.Transaction, profile *model.UserProfile) (*model.MLScoreResult, error) {
	body := map[string]any{
		"transaction":  tx,
		"user_profile": profile,
	}
	var out model.MLScoreResult
	if err := c.post(ctx, "/score-transaction", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CalculateRisk submits transaction + profile + ML score for rule-based
// risk calculation.
func (c *Client) CalculateRisk(ctx context.Context, tx *model.Transaction, profile *model.UserProfile, score *model.MLScoreResult) (*model.RiskResult, error) {
	body := map[string]any{
		"transaction":  tx,
		"user_profile": profile,
		"ml_score":     score,
	}
	var out model.RiskResult
	if err := c.post(ctx, "/calculate-risk", body, &out); err != nil {
		return nil, err
	}
	if !out.Decision.Valid() {
		return nil, fmt.Errorf("%w: decision %q", ErrMalformedResponse, out.Decision)
	}
	return &out, nil
}

// ExplainDecision requests a natural-language explanation for a decision.
func (c *Client) ExplainDecision(ctx context.Context, tx *model.Transaction, components map[string]model.RiskComponent, decision model.Decision) (*model.Explanation, error) {
	body := map[string]any{
		"transaction":     tx,
		"risk_components": components,
		"decision":        decision,
	}
	var out model.Explanation
	if err := c.post(ctx, "/explain-decision", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// -----------------------------------------------------------------------------
// Transport
// -----------------------------------------------------------------------------

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	return c.do(req, path, out)
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, path, out)
}

// do performs a single attempt: rate-limit wait, request, decode.
func (c *Client) do(req *http.Request, endpoint string, out any) error {
	ctx := req.Context()
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	ctx, span := traces.StartSpan(ctx, "backend.request", traces.Endpoint(endpoint))
	defer span.End()
	req = req.WithContext(ctx)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.ObserveBackend(endpoint, 0, time.Since(start).Seconds())
		c.logger.Warn("request failed", "endpoint", endpoint, "error", err)
		return fmt.Errorf("backend: %s: %w", endpoint, err)
	}
	defer resp.Body.Close()
	metrics.ObserveBackend(endpoint, resp.StatusCode, time.Since(start).Seconds())

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("backend: reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{
			StatusCode: resp.StatusCode,
			Message:    serverMessage(raw),
		}
		c.logger.Warn("request rejected",
			"endpoint", endpoint,
			"status", resp.StatusCode,
			"message", apiErr.Message,
		)
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedResponse, endpoint, err)
	}
	return nil
}

// serverMessage extracts the server-provided error message, falling back
// to a generic one when the body carries none.
func serverMessage(raw []byte) string {
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		if body.Error != "" {
			return body.Error
		}
		if body.Message != "" {
			return body.Message
		}
	}
	return "request failed"
}
