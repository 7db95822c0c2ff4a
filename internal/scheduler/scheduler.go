// Package scheduler decides when reports are generated: the two fixed daily
// reports (morning and evening), and dynamic update reports triggered by a
// significant change in the overall risk picture. The scheduler only decides;
// report generation and delivery live elsewhere.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"trailwatch/internal/types"
)

// Default daily report times, in the trek's local wall clock.
const (
	DefaultMorningAt = "04:30"
	DefaultEveningAt = "19:00"
)

// Decision is one report the scheduler wants generated now.
type Decision struct {
	ReportType types.ReportType
	Kind       types.TriggerKind
	Reason     string
}

// StateRepo persists scheduling state across runs. The scheduler is invoked
// from a cron-like loop and must not double-fire when a tick is late or
// repeated.
type StateRepo interface {
	// LastScheduled returns the time the given scheduled report last fired,
	// or the zero time when it never has.
	LastScheduled(ctx context.Context, rt types.ReportType) (time.Time, error)

	// LastDynamic returns the time of the most recent dynamic report and the
	// number of dynamic reports already sent on the given calendar day.
	LastDynamic(ctx context.Context, day time.Time) (time.Time, int, error)

	// RecordTrigger persists that a report of the given kind fired at t.
	RecordTrigger(ctx context.Context, rt types.ReportType, kind types.TriggerKind, t time.Time) error
}

// Config holds the scheduler's tunables.
type Config struct {
	// MorningAt and EveningAt are "HH:MM" wall-clock times.
	MorningAt string
	EveningAt string

	// Dynamic reports fire when the risk score moves at least DeltaThreshold
	// since the last delivered report, at most MaxPerDay times per day and
	// never within MinInterval of the previous dynamic report.
	DeltaThreshold float64
	MinInterval    time.Duration
	MaxPerDay      int
}

// DefaultConfig returns the standard scheduling policy.
func DefaultConfig() Config {
	return Config{
		MorningAt:      DefaultMorningAt,
		EveningAt:      DefaultEveningAt,
		DeltaThreshold: 0.3,
		MinInterval:    time.Hour,
		MaxPerDay:      3,
	}
}

// Scheduler evaluates the scheduling policy against persisted state.
type Scheduler struct {
	cfg    Config
	state  StateRepo
	clock  types.Clock
	logger *slog.Logger
}

// New creates a Scheduler. A nil clock uses real UTC time.
func New(cfg Config, state StateRepo, clock types.Clock, logger *slog.Logger) (*Scheduler, error) {
	if _, _, err := parseClock(cfg.MorningAt); err != nil {
		return nil, types.NewAppError(types.ErrCodeValidationInvalidDate,
			fmt.Sprintf("invalid morning time %q", cfg.MorningAt), err)
	}
	if _, _, err := parseClock(cfg.EveningAt); err != nil {
		return nil, types.NewAppError(types.ErrCodeValidationInvalidDate,
			fmt.Sprintf("invalid evening time %q", cfg.EveningAt), err)
	}
	if clock == nil {
		clock = types.RealClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{cfg: cfg, state: state, clock: clock, logger: logger}, nil
}

// DueScheduled returns the scheduled reports due right now: a morning or
// evening report whose daily slot has passed without the report having fired
// today. A late tick still fires the report once; a repeated tick fires
// nothing.
func (s *Scheduler) DueScheduled(ctx context.Context) ([]Decision, error) {
	now := s.clock.Now()

	var due []Decision
	for _, slot := range []struct {
		rt types.ReportType
		at string
	}{
		{types.ReportMorning, s.cfg.MorningAt},
		{types.ReportEvening, s.cfg.EveningAt},
	} {
		slotTime := todayAt(now, slot.at)
		if now.Before(slotTime) {
			continue
		}
		last, err := s.state.LastScheduled(ctx, slot.rt)
		if err != nil {
			return nil, err
		}
		if !last.Before(slotTime) {
			continue // already fired in this slot
		}
		due = append(due, Decision{
			ReportType: slot.rt,
			Kind:       types.TriggerScheduled,
			Reason:     fmt.Sprintf("daily %s slot %s", slot.rt, slot.at),
		})
	}
	return due, nil
}

// EvaluateDynamic decides whether a risk shift warrants an update report.
// prevScore is the risk score of the last delivered report, currScore that of
// a freshly computed one. The quota and spacing rules are checked against
// persisted state, so concurrent or repeated evaluations stay within policy.
func (s *Scheduler) EvaluateDynamic(ctx context.Context, prevScore, currScore float64) (*Decision, error) {
	delta := currScore - prevScore
	if delta < 0 {
		delta = -delta
	}
	if delta < s.cfg.DeltaThreshold {
		return nil, nil
	}

	now := s.clock.Now()
	lastAt, countToday, err := s.state.LastDynamic(ctx, now)
	if err != nil {
		return nil, err
	}
	if countToday >= s.cfg.MaxPerDay {
		s.logger.InfoContext(ctx, "dynamic report suppressed: daily quota reached",
			"count", countToday, "max", s.cfg.MaxPerDay)
		return nil, nil
	}
	if !lastAt.IsZero() && now.Sub(lastAt) < s.cfg.MinInterval {
		s.logger.InfoContext(ctx, "dynamic report suppressed: too soon",
			"since_last", now.Sub(lastAt).String(), "min_interval", s.cfg.MinInterval.String())
		return nil, nil
	}

	return &Decision{
		ReportType: types.ReportUpdate,
		Kind:       types.TriggerDynamic,
		Reason:     fmt.Sprintf("risk score moved %.2f -> %.2f", prevScore, currScore),
	}, nil
}

// MarkFired records a decision's execution. Call after the report was
// actually generated and dispatched.
func (s *Scheduler) MarkFired(ctx context.Context, d Decision) error {
	return s.state.RecordTrigger(ctx, d.ReportType, d.Kind, s.clock.Now())
}

// todayAt returns the "HH:MM" slot on now's calendar day, in now's location.
func todayAt(now time.Time, clock string) time.Time {
	h, m, _ := parseClock(clock)
	y, mo, d := now.Date()
	return time.Date(y, mo, d, h, m, 0, 0, now.Location())
}

func parseClock(s string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, 0, err
	}
	return t.Hour(), t.Minute(), nil
}
