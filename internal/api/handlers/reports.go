// Package handlers contains the HTTP handler implementations for the
// TrailWatch API: report retrieval and preview, manual triggering, and route
// inspection.
package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"trailwatch/internal/core"
	"trailwatch/internal/reportgen"
	"trailwatch/internal/types"
)

// ReportService is the service contract for the reports handler. Defined
// locally to avoid tight coupling; *reportgen.Service satisfies it.
type ReportService interface {
	Evaluate(ctx context.Context, rt types.ReportType, ref time.Time) (*reportgen.Preview, error)
	Generate(ctx context.Context, rt types.ReportType, trigger types.TriggerKind) (*types.StoredReport, error)
}

// ReportReader is the persistence contract for the reports handler.
type ReportReader interface {
	GetLatest(ctx context.Context) (*types.StoredReport, error)
	ListForDay(ctx context.Context, day time.Time) ([]*types.StoredReport, error)
}

// ReportsHandler maps HTTP requests to report generation and retrieval.
type ReportsHandler struct {
	service ReportService
	store   ReportReader
	clock   types.Clock
	logger  *slog.Logger
}

// NewReportsHandler creates a ReportsHandler.
func NewReportsHandler(svc ReportService, store ReportReader, clock types.Clock, logger *slog.Logger) *ReportsHandler {
	if clock == nil {
		clock = types.RealClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ReportsHandler{service: svc, store: store, clock: clock, logger: logger}
}

// RegisterRoutes mounts the report endpoints under /v1.
func (h *ReportsHandler) RegisterRoutes(r chi.Router) {
	r.Route("/reports", func(r chi.Router) {
		r.Get("/latest", h.HandleGetLatest)
		r.Get("/", h.HandleListForDay)
		r.Get("/preview", h.HandlePreview)
		r.Post("/trigger", h.HandleTrigger)
	})
}

// HandleGetLatest handles GET /v1/reports/latest.
func (h *ReportsHandler) HandleGetLatest(w http.ResponseWriter, r *http.Request) {
	rep, err := h.store.GetLatest(r.Context())
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: rep})
}

// HandleListForDay handles GET /v1/reports?date=2026-07-14. A missing date
// defaults to today.
func (h *ReportsHandler) HandleListForDay(w http.ResponseWriter, r *http.Request) {
	day := h.clock.Now()
	if s := r.URL.Query().Get("date"); s != "" {
		parsed, err := time.ParseInLocation("2006-01-02", s, time.UTC)
		if err != nil {
			core.Error(w, r, types.NewAppError(
				types.ErrCodeValidationInvalidDate,
				"date must be formatted YYYY-MM-DD",
				err,
			))
			return
		}
		day = parsed
	}

	reps, err := h.store.ListForDay(r.Context(), day)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: reps})
}

// previewResponse is the wire shape of an evaluated-but-unpersisted report.
type previewResponse struct {
	Result      *types.ReportResult `json:"result"`
	RiskScore   float64             `json:"risk_score"`
	FireWarning string              `json:"fire_warning,omitempty"`
	Compact     string              `json:"compact"`
	Body        string              `json:"body"`
}

// HandlePreview handles GET /v1/reports/preview?type=morning. The report is
// fully evaluated but neither stored nor delivered.
func (h *ReportsHandler) HandlePreview(w http.ResponseWriter, r *http.Request) {
	rt, err := reportTypeParam(r)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	p, err := h.service.Evaluate(r.Context(), rt, h.clock.Now())
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: previewResponse{
		Result:      p.Result,
		RiskScore:   p.RiskScore,
		FireWarning: p.FireWarning,
		Compact:     p.Compact,
		Body:        p.Body,
	}})
}

// triggerRequest is the body of POST /v1/reports/trigger.
type triggerRequest struct {
	Type string `json:"type"`
}

// HandleTrigger handles POST /v1/reports/trigger: an operator-requested
// report, generated, stored and queued for delivery immediately.
func (h *ReportsHandler) HandleTrigger(w http.ResponseWriter, r *http.Request) {
	var req triggerRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}

	rt := types.ReportType(req.Type)
	if !rt.Valid() {
		core.Error(w, r, types.NewAppError(
			types.ErrCodeValidationReportType,
			"type must be one of morning, evening, update",
			nil,
		))
		return
	}

	rep, err := h.service.Generate(r.Context(), rt, types.TriggerManual)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "manual report triggered",
		"report_id", rep.ID, "report_type", string(rt))
	core.JSON(w, r, http.StatusCreated, core.APIResponse{Data: rep})
}

// reportTypeParam parses the ?type= query parameter.
func reportTypeParam(r *http.Request) (types.ReportType, error) {
	s := r.URL.Query().Get("type")
	if s == "" {
		return "", types.NewAppError(
			types.ErrCodeValidationMissingField,
			"type query parameter is required",
			nil,
		)
	}
	rt := types.ReportType(s)
	if !rt.Valid() {
		return "", types.NewAppError(
			types.ErrCodeValidationReportType,
			"type must be one of morning, evening, update",
			nil,
		)
	}
	return rt, nil
}
