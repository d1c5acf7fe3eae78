// Package workflow drives the generate -> score -> risk -> explain pipeline
// against the fraud-detection backend. Stages run strictly in order; a failed
// stage marks every downstream stage skipped while earlier results stay
// visible on the run.
package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/fraudlens/fraudlens/internal/logging"
	"github.com/fraudlens/fraudlens/internal/metrics"
	"github.com/fraudlens/fraudlens/internal/model"
	"github.com/fraudlens/fraudlens/internal/traces"
)

// Stage names, in pipeline order.
const (
	StageGenerate = "generate"
	StageScore    = "score"
	StageRisk     = "risk"
	StageExplain  = "explain"
)

// Status of a single stage within a run.
type Status string

const (
	StatusRunning Status = "running"
	StatusOK      Status = "ok"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// ErrUnknownUser is returned when the requested user is not in the
// backend's demo roster.
var ErrUnknownUser = errors.New("workflow: unknown user")

// API is the slice of the backend client the runner needs.
type API interface {
	ListUsers(ctx context.Context) ([]model.UserProfile, error)
	GenerateTransaction(ctx context.Context, userID string, isAnomaly bool) (*model.Transaction, error)
	ScoreTransaction(ctx context.Context, tx *model.Transaction, profile *model.UserProfile) (*model.MLScoreResult, error)
	CalculateRisk(ctx context.Context, tx *model.Transaction, profile *model.UserProfile, score *model.MLScoreResult) (*model.RiskResult, error)
	ExplainDecision(ctx context.Context, tx *model.Transaction, components map[string]model.RiskComponent, decision model.Decision) (*model.Explanation, error)
}

// StageResult is the outcome of one pipeline stage.
type StageResult struct {
	Stage    string        `json:"stage"`
	Status   Status        `json:"status"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"-"`
	Millis   int64         `json:"duration_ms"`
}

// RunResult carries everything a run produced, including payloads from
// stages that completed before a later stage failed.
type RunResult struct {
	RunID       int64                `json:"run_id"`
	UserID      string               `json:"user_id"`
	IsAnomaly   bool                 `json:"is_anomaly"`
	Stages      []StageResult        `json:"stages"`
	Transaction *model.Transaction   `json:"transaction,omitempty"`
	Score       *model.MLScoreResult `json:"score,omitempty"`
	Risk        *model.RiskResult    `json:"risk,omitempty"`
	Explanation *model.Explanation   `json:"explanation,omitempty"`
	StartedAt   time.Time            `json:"started_at"`
	FinishedAt  time.Time            `json:"finished_at"`
	Cancelled   bool                 `json:"cancelled"`
}

// Failed reports whether any stage failed.
func (r *RunResult) Failed() bool {
	for _, s := range r.Stages {
		if s.Status == StatusFailed {
			return true
		}
	}
	return false
}

// Event is pushed to the notifier after every stage transition so
// connected clients can animate the pipeline live.
type Event struct {
	RunID  int64  `json:"run_id"`
	UserID string `json:"user_id"`
	Stage  string `json:"stage"`
	Status Status `json:"status"`
	Error  string `json:"error,omitempty"`
	// RiskScore is set once the risk stage has produced one; zero before.
	RiskScore float64 `json:"risk_score,omitempty"`
}

// Notifier receives stage events. The realtime hub implements it.
type Notifier interface {
	WorkflowEvent(ev Event)
}

// Runner executes demo workflows. At most one run is live at a time:
// starting a new run cancels the previous one, so a result reaching the
// caller always belongs to the most recent request.
type Runner struct {
	api      API
	notifier Notifier
	logger   *slog.Logger

	mu         sync.Mutex
	nextRunID  int64
	cancelPrev context.CancelFunc
}

// NewRunner builds a Runner. notifier may be nil.
func NewRunner(api API, notifier Notifier, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		api:      api,
		notifier: notifier,
		logger:   logging.Component(logger, "workflow"),
	}
}

// Run executes the full pipeline for one synthetic transaction. Starting a
// run cancels any run still in flight from an earlier call.
func (r *Runner) Run(ctx context.Context, userID string, isAnomaly bool) (*RunResult, error) {
	r.mu.Lock()
	if r.cancelPrev != nil {
		r.cancelPrev()
		metrics.WorkflowRunsCancelled.Inc()
	}
	ctx, cancel := context.WithCancel(ctx)
	r.cancelPrev = cancel
	r.nextRunID++
	runID := r.nextRunID
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		if r.nextRunID == runID {
			r.cancelPrev = nil
		}
		r.mu.Unlock()
		cancel()
	}()

	ctx, span := traces.StartSpan(ctx, "workflow.run", traces.UserID(userID))
	defer span.End()

	log := r.logger.With("run_id", runID, "user_id", userID, "is_anomaly", isAnomaly)
	log.Info("workflow started")

	result := &RunResult{
		RunID:     runID,
		UserID:    userID,
		IsAnomaly: isAnomaly,
		StartedAt: time.Now(),
	}

	profile, err := r.lookupProfile(ctx, userID)
	if err != nil {
		result.FinishedAt = time.Now()
		return result, err
	}

	failed := false
	for _, stage := range []string{StageGenerate, StageScore, StageRisk, StageExplain} {
		if failed {
			result.Stages = append(result.Stages, StageResult{Stage: stage, Status: StatusSkipped})
			metrics.WorkflowStagesTotal.WithLabelValues(stage, string(StatusSkipped)).Inc()
			r.notify(Event{RunID: runID, UserID: userID, Stage: stage, Status: StatusSkipped})
			continue
		}

		r.notify(Event{RunID: runID, UserID: userID, Stage: stage, Status: StatusRunning})
		start := time.Now()
		err := r.runStage(ctx, stage, profile, result)
		sr := StageResult{
			Stage:    stage,
			Status:   StatusOK,
			Duration: time.Since(start),
		}
		sr.Millis = sr.Duration.Milliseconds()
		if err != nil {
			if ctx.Err() != nil {
				result.Cancelled = true
				result.Stages = append(result.Stages, StageResult{Stage: stage, Status: StatusFailed, Error: "cancelled"})
				result.FinishedAt = time.Now()
				log.Info("workflow cancelled", "stage", stage)
				return result, ctx.Err()
			}
			sr.Status = StatusFailed
			sr.Error = err.Error()
			failed = true
			log.Error("stage failed", "stage", stage, "error", err)
		}
		result.Stages = append(result.Stages, sr)
		metrics.WorkflowStagesTotal.WithLabelValues(stage, string(sr.Status)).Inc()
		ev := Event{RunID: runID, UserID: userID, Stage: stage, Status: sr.Status, Error: sr.Error}
		if result.Risk != nil {
			ev.RiskScore = result.Risk.RiskScore
		}
		r.notify(ev)
	}

	result.FinishedAt = time.Now()

	// A newer run may have cancelled us after our last backend call
	// returned; its result, not ours, must win.
	if ctx.Err() != nil {
		result.Cancelled = true
		log.Info("workflow superseded after completion")
		return result, ctx.Err()
	}

	log.Info("workflow finished", "failed", result.Failed(),
		"duration", result.FinishedAt.Sub(result.StartedAt))
	return result, nil
}

func (r *Runner) runStage(ctx context.Context, stage string, profile *model.UserProfile, res *RunResult) error {
	ctx, span := traces.StartSpan(ctx, "workflow."+stage, traces.Stage(stage))
	defer span.End()

	switch stage {
	case StageGenerate:
		tx, err := r.api.GenerateTransaction(ctx, res.UserID, res.IsAnomaly)
		if err != nil {
			return err
		}
		span.SetAttributes(traces.TransactionID(tx.TransactionID))
		res.Transaction = tx
	case StageScore:
		score, err := r.api.ScoreTransaction(ctx, res.Transaction, profile)
		if err != nil {
			return err
		}
		res.Score = score
	case StageRisk:
		risk, err := r.api.CalculateRisk(ctx, res.Transaction, profile, res.Score)
		if err != nil {
			return err
		}
		span.SetAttributes(traces.RiskScore(risk.RiskScore), traces.DecisionAttr(string(risk.Decision)))
		res.Risk = risk
	case StageExplain:
		expl, err := r.api.ExplainDecision(ctx, res.Transaction, res.Risk.RiskComponents, res.Risk.Decision)
		if err != nil {
			return err
		}
		res.Explanation = expl
	}
	return nil
}

func (r *Runner) lookupProfile(ctx context.Context, userID string) (*model.UserProfile, error) {
	users, err := r.api.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	for i := range users {
		if users[i].UserID == userID {
			return &users[i], nil
		}
	}
	return nil, ErrUnknownUser
}

func (r *Runner) notify(ev Event) {
	if r.notifier != nil {
		r.notifier.WorkflowEvent(ev)
	}
}
