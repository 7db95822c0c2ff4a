// Package reportgen orchestrates one report generation end to end: stage
// resolution, parallel forecast fetching, aggregation, risk scoring,
// formatting, persistence and delivery.
package reportgen

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"trailwatch/internal/aggregate"
	"trailwatch/internal/metrics"
	"trailwatch/internal/report"
	"trailwatch/internal/route"
	"trailwatch/internal/scheduler"
	"trailwatch/internal/types"
)

// fetchConcurrency bounds parallel provider calls per generation. A stage has
// on the order of 5-10 waypoints; four in flight keeps upstream rate limits
// comfortable.
const fetchConcurrency = 4

// ReportStore is the persistence surface the service depends on.
// *db.ReportRepository implements it.
type ReportStore interface {
	Create(ctx context.Context, rep *types.StoredReport) error
	GetLatest(ctx context.Context) (*types.StoredReport, error)
}

// DeliveryPublisher hands a stored report to the delivery queues.
// *queue.Publisher implements it.
type DeliveryPublisher interface {
	Publish(ctx context.Context, rep *types.StoredReport) error
}

// Service generates reports. It is stateless between calls and safe for
// concurrent use.
type Service struct {
	route      *route.Route
	provider   types.ForecastProvider
	fire       types.FireRiskLookup
	engine     *aggregate.Engine
	store      ReportStore
	publisher  DeliveryPublisher
	recorder   metrics.Recorder
	formatter  report.Formatter
	thresholds types.ThresholdConfig
	clock      types.Clock
	logger     *slog.Logger
}

// Config wires the service's collaborators. Store and Publisher may be nil
// for preview-only use (the HTTP preview endpoint and the CLI dry run).
type Config struct {
	Route      *route.Route
	Provider   types.ForecastProvider
	Fire       types.FireRiskLookup
	Store      ReportStore
	Publisher  DeliveryPublisher
	Recorder   metrics.Recorder
	Thresholds types.ThresholdConfig
	Clock      types.Clock
	Logger     *slog.Logger
}

// NewService creates a Service.
func NewService(cfg Config) *Service {
	if cfg.Clock == nil {
		cfg.Clock = types.RealClock{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Recorder == nil {
		cfg.Recorder = metrics.NopRecorder{}
	}
	return &Service{
		route:      cfg.Route,
		provider:   cfg.Provider,
		fire:       cfg.Fire,
		engine:     aggregate.NewEngine(cfg.Logger),
		store:      cfg.Store,
		publisher:  cfg.Publisher,
		recorder:   cfg.Recorder,
		thresholds: cfg.Thresholds,
		clock:      cfg.Clock,
		logger:     cfg.Logger,
	}
}

// Preview holds one evaluated-but-unpersisted report.
type Preview struct {
	Result      *types.ReportResult
	RiskScore   float64
	FireWarning string
	Compact     string
	Body        string
}

// Evaluate runs the full pipeline for the given report type at the given
// reference time without persisting or publishing anything.
func (s *Service) Evaluate(ctx context.Context, rt types.ReportType, ref time.Time) (*Preview, error) {
	sw, err := s.resolveStage(rt, ref)
	if err != nil {
		return nil, err
	}

	if err := s.fetchForecasts(ctx, sw); err != nil {
		return nil, err
	}

	res, err := s.engine.Run(*sw, rt, ref, s.thresholds)
	if err != nil {
		return nil, err
	}

	fireWarning := s.fireWarning(ctx, sw, res.GeneratedFor)

	p := &Preview{
		Result:      res,
		RiskScore:   scheduler.RiskScore(res),
		FireWarning: fireWarning,
		Compact:     s.formatter.FormatCompact(res, fireWarning),
		Body:        s.formatter.FormatBody(res, fireWarning),
	}
	return p, nil
}

// Generate evaluates, persists and publishes one report.
func (s *Service) Generate(ctx context.Context, rt types.ReportType, trigger types.TriggerKind) (*types.StoredReport, error) {
	start := s.clock.Now()

	p, err := s.Evaluate(ctx, rt, start)
	if err != nil {
		s.recorder.RecordReport(ctx, rt, trigger, metrics.ResultFailure)
		return nil, err
	}

	stored, err := s.finalize(ctx, p, trigger)
	if err != nil {
		s.recorder.RecordReport(ctx, rt, trigger, metrics.ResultFailure)
		return nil, err
	}

	s.recorder.RecordReport(ctx, rt, trigger, metrics.ResultSuccess)
	s.recorder.RecordLatency(ctx, rt, s.clock.Now().Sub(start))
	s.recorder.RecordExcludedSamples(ctx, excludedCount(p.Result))

	s.logger.InfoContext(ctx, "report generated",
		"report_id", stored.ID,
		"report_type", string(rt),
		"trigger", string(trigger),
		"stage", stored.StageName,
		"risk_score", stored.RiskScore,
	)
	return stored, nil
}

// finalize persists and publishes an evaluated report.
func (s *Service) finalize(ctx context.Context, p *Preview, trigger types.TriggerKind) (*types.StoredReport, error) {
	stored := &types.StoredReport{
		ReportType:   p.Result.ReportType,
		Trigger:      trigger,
		StageName:    p.Result.StageName,
		GeneratedFor: p.Result.GeneratedFor,
		RiskScore:    p.RiskScore,
		Compact:      p.Compact,
		Body:         p.Body,
		Result:       p.Result,
		CreatedAt:    s.clock.Now(),
	}

	if err := s.store.Create(ctx, stored); err != nil {
		return nil, err
	}
	if err := s.publisher.Publish(ctx, stored); err != nil {
		return nil, err
	}
	return stored, nil
}

// resolveStage maps a report type to the stage under evaluation and, for
// evening reports, the night anchor (the last waypoint of today's stage,
// where the hiker actually sleeps).
func (s *Service) resolveStage(rt types.ReportType, ref time.Time) (*types.StageWaypoints, error) {
	switch rt {
	case types.ReportEvening:
		tomorrow, err := s.route.StageAfter(ref, 1)
		if err != nil {
			return nil, err
		}
		sw := &types.StageWaypoints{
			StageName: tomorrow.Name,
			Primary:   cloneWaypoints(tomorrow.Waypoints),
		}
		if today, err := s.route.StageForDate(ref); err == nil {
			if anchor := today.LastWaypoint(); anchor != nil {
				a := *anchor
				sw.NightAnchor = &a
			}
		} else {
			// Final-day evening report: no stage tomorrow anchors tonight.
			s.logger.Warn("no stage for tonight, skipping night metric", "error", err)
		}
		return sw, nil
	default:
		today, err := s.route.StageForDate(ref)
		if err != nil {
			return nil, err
		}
		return &types.StageWaypoints{
			StageName: today.Name,
			Primary:   cloneWaypoints(today.Waypoints),
		}, nil
	}
}

// fetchForecasts populates Entries for every waypoint in sw, in parallel. A
// provider failure for one waypoint leaves it empty and the run continues:
// partial data degrades to quality notes, never to a failed report.
func (s *Service) fetchForecasts(ctx context.Context, sw *types.StageWaypoints) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchConcurrency)

	fetch := func(wp *types.Waypoint) {
		g.Go(func() error {
			entries, err := s.provider.FetchForecast(ctx, wp.Lat, wp.Lon)
			if err != nil {
				s.recorder.RecordProviderFailure(ctx, s.provider.Name())
				s.logger.WarnContext(ctx, "forecast fetch failed, continuing without waypoint data",
					"waypoint", wp.Label,
					"lat", wp.Lat,
					"lon", wp.Lon,
					"error", err,
				)
				return nil
			}
			wp.Entries = entries
			return nil
		})
	}

	for i := range sw.Primary {
		fetch(&sw.Primary[i])
	}
	if sw.NightAnchor != nil {
		fetch(sw.NightAnchor)
	}

	return g.Wait()
}

// fireWarning resolves the fire-risk bulletin for the stage's end point.
// Lookup failure degrades to no warning.
func (s *Service) fireWarning(ctx context.Context, sw *types.StageWaypoints, date time.Time) string {
	if s.fire == nil || len(sw.Primary) == 0 {
		return ""
	}
	end := sw.Primary[len(sw.Primary)-1]
	warning, err := s.fire.WarningFor(ctx, end.Lat, end.Lon, date)
	if err != nil {
		s.logger.WarnContext(ctx, "fire risk lookup failed", "error", err)
		return ""
	}
	return warning
}

func cloneWaypoints(wps []types.Waypoint) []types.Waypoint {
	out := make([]types.Waypoint, len(wps))
	copy(out, wps)
	return out
}

func excludedCount(res *types.ReportResult) int {
	n := 0
	for _, r := range res.Extrema {
		n += r.Excluded
	}
	if res.Night != nil {
		n += res.Night.Excluded
	}
	if res.Outlook != nil {
		n += res.Outlook.Excluded
	}
	return n
}
