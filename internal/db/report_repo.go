package db

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"trailwatch/internal/types"
)

// ReportRepository provides data access for the reports table. Each row is
// one delivered report: rendered texts, the risk score used by the dynamic
// trigger, and the full structured result as JSONB.
type ReportRepository struct {
	db DBTX
}

// NewReportRepository creates a ReportRepository backed by the given
// connection (pool or transaction).
func NewReportRepository(db DBTX) *ReportRepository {
	return &ReportRepository{db: db}
}

// Create inserts a delivered report. When the ID is empty a prefixed UUID is
// generated; CreatedAt defaults to now.
func (r *ReportRepository) Create(ctx context.Context, rep *types.StoredReport) error {
	if rep.ID == "" {
		rep.ID = "rep_" + uuid.NewString()
	}
	if rep.CreatedAt.IsZero() {
		rep.CreatedAt = time.Now().UTC()
	}

	resultJSON, err := json.Marshal(rep.Result)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to serialize report result", err)
	}

	_, err = r.db.Exec(ctx,
		`INSERT INTO reports
		 (id, report_type, trigger_kind, stage_name, generated_for,
		  risk_score, compact, body, result, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		rep.ID,
		string(rep.ReportType),
		string(rep.Trigger),
		rep.StageName,
		rep.GeneratedFor,
		rep.RiskScore,
		rep.Compact,
		rep.Body,
		resultJSON,
		rep.CreatedAt,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to create report", err)
	}
	return nil
}

// GetLatest returns the most recently created report, or a not-found error
// when none exists yet. The dynamic trigger compares fresh results against
// this row's risk score.
func (r *ReportRepository) GetLatest(ctx context.Context) (*types.StoredReport, error) {
	row := r.db.QueryRow(ctx,
		`SELECT id, report_type, trigger_kind, stage_name, generated_for,
		        risk_score, compact, body, result, created_at
		 FROM reports
		 ORDER BY created_at DESC
		 LIMIT 1`)
	return scanReport(row)
}

// ListForDay returns all reports generated for the given calendar day, oldest
// first.
func (r *ReportRepository) ListForDay(ctx context.Context, day time.Time) ([]*types.StoredReport, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, report_type, trigger_kind, stage_name, generated_for,
		        risk_score, compact, body, result, created_at
		 FROM reports
		 WHERE generated_for::date = $1::date
		 ORDER BY created_at ASC`,
		day)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list reports", err)
	}
	defer rows.Close()

	var out []*types.StoredReport
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rep)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to iterate reports", err)
	}
	return out, nil
}

// scanReport reads one reports row from a pgx.Row or pgx.Rows.
func scanReport(row pgx.Row) (*types.StoredReport, error) {
	var (
		rep        types.StoredReport
		reportType string
		trigger    string
		resultJSON []byte
	)
	err := row.Scan(
		&rep.ID,
		&reportType,
		&trigger,
		&rep.StageName,
		&rep.GeneratedFor,
		&rep.RiskScore,
		&rep.Compact,
		&rep.Body,
		&resultJSON,
		&rep.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, types.NewAppError(types.ErrCodeNotFoundReport, "no reports stored yet", err)
	}
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan report", err)
	}
	rep.ReportType = types.ReportType(reportType)
	rep.Trigger = types.TriggerKind(trigger)
	if len(resultJSON) > 0 {
		if err := json.Unmarshal(resultJSON, &rep.Result); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to decode report result", err)
		}
	}
	return &rep, nil
}
