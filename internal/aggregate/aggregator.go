// Package aggregate implements the multi-point aggregation engine: merging
// per-waypoint forecast series into per-metric segment-level series, scanning
// them for global extrema and threshold-crossing times, and driving the risk
// classification for one report generation.
package aggregate

import (
	"sort"

	"trailwatch/internal/pointview"
	"trailwatch/internal/types"
)

// Aggregate merges the in-window entries of all waypoints into one
// time-ordered MetricSeries per metric. Duplicate timestamps from different
// waypoints are kept as distinct samples so the finder can attribute a value
// to the waypoint that reached it first. Waypoints contributing zero entries
// are skipped silently; a segment with no contributing waypoints yields
// zero-sample series, a valid "no data" state rather than an error.
//
// Implausible samples (provider glitches far outside physical ranges) are
// dropped during the merge and counted in the series' Excluded field.
func Aggregate(waypoints []types.Waypoint, w types.TimeWindow) (map[types.Metric]types.MetricSeries, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}

	out := make(map[types.Metric]types.MetricSeries, len(types.AllMetrics))
	for _, m := range types.AllMetrics {
		out[m] = types.MetricSeries{Metric: m}
	}

	for i := range waypoints {
		wp := &waypoints[i]
		entries, err := pointview.New(wp).EntriesIn(w)
		if err != nil {
			return nil, err
		}

		for _, e := range entries {
			for _, m := range types.AllMetrics {
				v := valueFor(m, e)
				if v == nil {
					continue // absent is not zero; absent samples never enter a series
				}
				series := out[m]
				if !plausible(m, *v) {
					series.Excluded++
					out[m] = series
					continue
				}
				series.Samples = append(series.Samples, types.Sample{
					Time:          e.Time,
					Value:         *v,
					WaypointIndex: wp.Index,
				})
				out[m] = series
			}
		}
	}

	// Chronological order per metric; the stable sort preserves waypoint
	// (positional) order among samples sharing a timestamp.
	for m, series := range out {
		sort.SliceStable(series.Samples, func(a, b int) bool {
			return series.Samples[a].Time.Before(series.Samples[b].Time)
		})
		out[m] = series
	}

	return out, nil
}

// valueFor extracts the metric's value from one entry, or nil when the
// provider did not report it.
func valueFor(m types.Metric, e types.ForecastEntry) *float64 {
	switch m {
	case types.MetricTemperature:
		return e.TemperatureC
	case types.MetricRainProbability:
		return e.RainProbabilityPct
	case types.MetricRainAmount:
		return e.PrecipitationMM
	case types.MetricWindSpeed:
		return e.WindSpeedKmh
	case types.MetricWindGust:
		return e.WindGustKmh
	case types.MetricThunderstormProbability:
		return e.ThunderstormProbabilityPct
	}
	return nil
}

// plausible checks a sample against sane physical ranges. Values outside are
// provider errors, not real conditions.
func plausible(m types.Metric, v float64) bool {
	switch m {
	case types.MetricTemperature:
		return v >= types.MinPlausibleTemperatureC && v <= types.MaxPlausibleTemperatureC
	case types.MetricRainProbability, types.MetricThunderstormProbability:
		return v >= 0 && v <= 100
	case types.MetricRainAmount:
		return v >= 0 && v <= types.MaxPlausibleRainMMPerH
	case types.MetricWindSpeed, types.MetricWindGust:
		return v >= 0 && v <= types.MaxPlausibleWindKmh
	}
	return true
}
