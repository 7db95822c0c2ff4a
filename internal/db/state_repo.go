package db

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"trailwatch/internal/types"
)

// SchedulerStateRepository persists trigger history in the report_triggers
// table. It implements scheduler.StateRepo: the scheduler reads it to avoid
// double-firing slots and to enforce the dynamic-report quota.
type SchedulerStateRepository struct {
	db DBTX
}

// NewSchedulerStateRepository creates a SchedulerStateRepository backed by
// the given connection (pool or transaction).
func NewSchedulerStateRepository(db DBTX) *SchedulerStateRepository {
	return &SchedulerStateRepository{db: db}
}

// LastScheduled returns when the given scheduled report type last fired.
// A report type that never fired returns the zero time, not an error.
func (r *SchedulerStateRepository) LastScheduled(ctx context.Context, rt types.ReportType) (time.Time, error) {
	var t time.Time
	err := r.db.QueryRow(ctx,
		`SELECT fired_at FROM report_triggers
		 WHERE report_type = $1 AND trigger_kind = $2
		 ORDER BY fired_at DESC
		 LIMIT 1`,
		string(rt), string(types.TriggerScheduled),
	).Scan(&t)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, types.NewAppError(types.ErrCodeInternalDB, "failed to query last scheduled trigger", err)
	}
	return t, nil
}

// LastDynamic returns the most recent dynamic trigger time and the count of
// dynamic triggers on the given calendar day.
func (r *SchedulerStateRepository) LastDynamic(ctx context.Context, day time.Time) (time.Time, int, error) {
	var (
		last  *time.Time
		count int
	)
	err := r.db.QueryRow(ctx,
		`SELECT MAX(fired_at), COUNT(*) FILTER (WHERE fired_at::date = $1::date)
		 FROM report_triggers
		 WHERE trigger_kind = $2`,
		day, string(types.TriggerDynamic),
	).Scan(&last, &count)
	if err != nil {
		return time.Time{}, 0, types.NewAppError(types.ErrCodeInternalDB, "failed to query dynamic trigger state", err)
	}
	if last == nil {
		return time.Time{}, count, nil
	}
	return *last, count, nil
}

// RecordTrigger appends one trigger event.
func (r *SchedulerStateRepository) RecordTrigger(ctx context.Context, rt types.ReportType, kind types.TriggerKind, t time.Time) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO report_triggers (report_type, trigger_kind, fired_at)
		 VALUES ($1, $2, $3)`,
		string(rt), string(kind), t,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to record trigger", err)
	}
	return nil
}
