package reportgen

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"trailwatch/internal/metrics"
	"trailwatch/internal/scheduler"
	"trailwatch/internal/types"
)

// Runner drives the scheduler from a periodic tick: it generates the
// scheduled reports that are due and evaluates whether the risk picture has
// shifted enough to warrant a dynamic update.
type Runner struct {
	svc    *Service
	sched  *scheduler.Scheduler
	clock  types.Clock
	logger *slog.Logger
}

// NewRunner creates a Runner.
func NewRunner(svc *Service, sched *scheduler.Scheduler, clock types.Clock, logger *slog.Logger) *Runner {
	if clock == nil {
		clock = types.RealClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{svc: svc, sched: sched, clock: clock, logger: logger}
}

// Tick runs one scheduling pass. Errors in one report do not stop the others;
// the first error is returned after all work is attempted.
func (r *Runner) Tick(ctx context.Context) error {
	var firstErr error

	due, err := r.sched.DueScheduled(ctx)
	if err != nil {
		return err
	}
	for _, d := range due {
		r.logger.InfoContext(ctx, "scheduled report due", "report_type", string(d.ReportType), "reason", d.Reason)
		if _, err := r.svc.Generate(ctx, d.ReportType, d.Kind); err != nil {
			r.logger.ErrorContext(ctx, "scheduled report failed",
				"report_type", string(d.ReportType), "error", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if err := r.sched.MarkFired(ctx, d); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if err := r.evaluateDynamic(ctx); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// evaluateDynamic recomputes the current risk score and compares it to the
// last delivered report. A first run with no delivered report yet never
// triggers a dynamic update; the next scheduled report establishes the
// baseline.
func (r *Runner) evaluateDynamic(ctx context.Context) error {
	prev, err := r.svc.store.GetLatest(ctx)
	if err != nil {
		var appErr *types.AppError
		if errors.As(err, &appErr) && appErr.Code == types.ErrCodeNotFoundReport {
			return nil
		}
		return err
	}

	p, err := r.svc.Evaluate(ctx, types.ReportUpdate, r.clock.Now())
	if err != nil {
		return err
	}

	d, err := r.sched.EvaluateDynamic(ctx, prev.RiskScore, p.RiskScore)
	if err != nil || d == nil {
		return err
	}

	r.logger.InfoContext(ctx, "dynamic report triggered", "reason", d.Reason)
	if _, err := r.svc.finalize(ctx, p, d.Kind); err != nil {
		r.svc.recorder.RecordReport(ctx, d.ReportType, d.Kind, metrics.ResultFailure)
		return err
	}
	r.svc.recorder.RecordReport(ctx, d.ReportType, d.Kind, metrics.ResultSuccess)
	return r.sched.MarkFired(ctx, *d)
}

// Loop ticks at the given interval until ctx is cancelled.
func (r *Runner) Loop(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := r.Tick(ctx); err != nil {
				r.logger.ErrorContext(ctx, "scheduling tick failed", "error", err)
			}
		}
	}
}
