package organizer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/marco/mediaVault/internal/fsx"
	"github.com/marco/mediaVault/internal/media"
	"github.com/marco/mediaVault/internal/retry"
)

// Status is the outcome of executing one plan entry.
type Status string

const (
	StatusMoved     Status = "moved"
	StatusWouldMove Status = "would_move"
	StatusSkipped   Status = "skipped"
	StatusFailed    Status = "failed"
)

// Result records what happened to one file.
type Result struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
	Action      Action `json:"action"`
	Status      Status `json:"status"`
	Sidecar     bool   `json:"sidecar,omitempty"`
	Error       string `json:"error,omitempty"`
	Reason      string `json:"reason,omitempty"` // why a file was skipped
}

// ExecutionReport summarizes one execution of a plan.
type ExecutionReport struct {
	RunID   string   `json:"run_id"`
	DryRun  bool     `json:"dry_run"`
	Moved   int      `json:"moved"`
	Skipped int      `json:"skipped"`
	Failed  int      `json:"failed"`
	Results []Result `json:"results"`
}

func (r *ExecutionReport) record(res Result) {
	switch res.Status {
	case StatusMoved, StatusWouldMove:
		r.Moved++
	case StatusSkipped:
		r.Skipped++
	case StatusFailed:
		r.Failed++
	}
	r.Results = append(r.Results, res)
}

const (
	moveAttempts = 3
	moveBackoff  = 200 * time.Millisecond
)

// Executor carries out a plan, one file at a time.
type Executor struct {
	mover  *fsx.Mover
	dryRun bool
	logger *slog.Logger
}

// NewExecutor creates an executor. With dryRun set nothing is moved; the
// report shows what would have been.
func NewExecutor(mover *fsx.Mover, dryRun bool) *Executor {
	return &Executor{mover: mover, dryRun: dryRun, logger: slog.Default()}
}

// WithLogger sets the logger.
func (e *Executor) WithLogger(logger *slog.Logger) *Executor {
	if logger != nil {
		e.logger = logger
	}
	return e
}

// Execute runs plan. Sidecars move after their primary; a sidecar failure
// does not undo the primary. Per-file failures are collected and the
// returned error is a *media.PartialFailure. Cancellation takes effect
// between files and returns the context error with the report so far.
func (e *Executor) Execute(ctx context.Context, plan *Plan) (*ExecutionReport, error) {
	report := &ExecutionReport{RunID: plan.RunID, DryRun: e.dryRun, Results: []Result{}}

	for _, entry := range plan.Entries {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		res := e.apply(ctx, entry.Source, entry.Destination, entry.Action, entry.Replace, entry.Error)
		report.record(res)
		if res.Status != StatusMoved && res.Status != StatusWouldMove {
			for _, sc := range entry.Sidecars {
				report.record(Result{
					Source:      sc.Source,
					Destination: sc.Destination,
					Action:      sc.Action,
					Status:      StatusSkipped,
					Sidecar:     true,
					Reason:      fmt.Sprintf("primary %s %s", entry.Source, res.Status),
				})
			}
			continue
		}

		for _, sc := range entry.Sidecars {
			sres := e.apply(ctx, sc.Source, sc.Destination, sc.Action, sc.Replace, sc.Error)
			sres.Sidecar = true
			report.record(sres)
		}
	}

	if report.Failed > 0 {
		return report, &media.PartialFailure{Op: "organize", Failed: report.Failed, Total: len(report.Results)}
	}
	return report, nil
}

func (e *Executor) apply(ctx context.Context, src, dst string, action Action, replace bool, planErr string) Result {
	res := Result{Source: src, Destination: dst, Action: action}

	switch action {
	case ActionSkip:
		res.Status = StatusSkipped
		return res
	case ActionFailed:
		res.Status = StatusFailed
		res.Error = planErr
		e.logger.Warn("file not organized", "source", src, "error", planErr)
		return res
	}

	if e.dryRun {
		res.Status = StatusWouldMove
		e.logger.Info("would move file", "source", src, "destination", dst)
		return res
	}

	err := retry.Retry(ctx, func() error { return e.mover.Move(src, dst, replace) }, moveAttempts, moveBackoff)
	if err != nil {
		res.Status = StatusFailed
		res.Error = err.Error()
		e.logger.Error("failed to move file", "source", src, "destination", dst, "error", err)
		return res
	}

	res.Status = StatusMoved
	e.logger.Info("moved file", "source", src, "destination", dst)
	return res
}
