package aggregate

import (
	"log/slog"
	"time"

	"trailwatch/internal/risk"
	"trailwatch/internal/types"
	"trailwatch/internal/window"
)

// Engine runs one complete aggregation: window selection, per-metric merge
// and extrema scan over the stage's waypoints, the night and outlook passes,
// and risk classification. It is stateless and safe for concurrent use.
type Engine struct {
	selector window.Selector
	logger   *slog.Logger
}

// NewEngine creates an engine with the standard window bounds.
func NewEngine(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{selector: window.NewSelector(), logger: logger}
}

// Run evaluates one report. The thresholds are validated up front; a
// malformed configuration fails the whole run before any series is built.
//
// Three passes are made over the forecast data:
//
//  1. Primary: all metrics over the stage's waypoints in the daytime window.
//  2. Night (evening reports only): the minimum temperature over the night
//     anchor waypoint alone, in the cross-midnight window.
//  3. Outlook: the thunderstorm probability over the stage's waypoints in the
//     forward-looking window.
//
// Missing data never fails a run: an empty series flows through as a no-data
// extrema result and a data-unavailable risk verdict.
func (e *Engine) Run(sw types.StageWaypoints, rt types.ReportType, ref time.Time, thresholds types.ThresholdConfig) (*types.ReportResult, error) {
	if err := thresholds.Validate(); err != nil {
		return nil, err
	}

	set := e.selector.Select(rt, ref)
	if set.LowConfidence {
		e.logger.Warn("unknown report type, using morning window rules",
			"report_type", string(rt), "stage", sw.StageName)
	}

	res := &types.ReportResult{
		ReportType:    rt,
		StageName:     sw.StageName,
		GeneratedFor:  set.Primary.Date,
		LowConfidence: set.LowConfidence,
		Extrema:       make(map[types.Metric]types.ExtremaResult, len(types.AllMetrics)),
		Windows:       map[string]types.TimeWindow{"primary": set.Primary, "outlook": set.ThunderstormOutlook},
	}

	primary, err := Aggregate(sw.Primary, set.Primary)
	if err != nil {
		return nil, err
	}
	for _, m := range types.AllMetrics {
		res.Extrema[m] = Find(primary[m], thresholds.For(m))
	}

	if set.Night != nil && sw.NightAnchor != nil {
		res.Windows["night"] = *set.Night
		nightSeries, err := Aggregate([]types.Waypoint{*sw.NightAnchor}, *set.Night)
		if err != nil {
			return nil, err
		}
		night := FindMin(nightSeries[types.MetricTemperature], thresholds.ColdTemperatureC)
		res.Night = &night
	}

	outlookSeries, err := Aggregate(sw.Primary, set.ThunderstormOutlook)
	if err != nil {
		return nil, err
	}
	outlook := Find(outlookSeries[types.MetricThunderstormProbability], thresholds.ThunderstormProbabilityPct)
	res.Outlook = &outlook

	res.Risks = risk.NewClassifier(thresholds).Classify(res.Extrema, res.Night)

	e.logger.Debug("aggregation complete",
		"report_type", string(rt),
		"stage", sw.StageName,
		"samples", res.Extrema[types.MetricTemperature].SampleCount,
		"risks", countRisks(res.Risks))

	return res, nil
}

func countRisks(risks []types.RiskResult) int {
	n := 0
	for _, r := range risks {
		if r.HasRisk {
			n++
		}
	}
	return n
}
