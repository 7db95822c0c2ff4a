package aggregate

import (
	"time"

	"trailwatch/internal/types"
)

// Find scans a time-ordered series for its global maximum and for the first
// time the threshold is reached. Samples sharing a timestamp are collapsed to
// their per-timestamp maximum first, so that a spike at any waypoint counts
// for that hour. Two laws hold:
//
//   - The maximum updates only on strictly greater values, so among equal
//     maxima the earliest timestamp wins.
//   - The threshold-crossing time is the first timestamp whose per-timestamp
//     maximum reaches the threshold. It is found by an independent scan: it
//     can differ from the maximum's timestamp, and exists whenever any sample
//     reaches the threshold even if a later, larger maximum follows.
//
// An empty series yields a no-data result (HasData false, nil times) which is
// distinct from a result whose values happen to be zero.
func Find(series types.MetricSeries, threshold float64) types.ExtremaResult {
	return scan(series, threshold, false)
}

// FindMin is the minimum-seeking counterpart of Find, used for the night
// minimum temperature: MaxValue/MaxTime/MaxWaypoint hold the governing
// minimum, and the threshold time is the first timestamp whose per-timestamp
// minimum drops to or below the threshold.
func FindMin(series types.MetricSeries, threshold float64) types.ExtremaResult {
	return scan(series, threshold, true)
}

func scan(series types.MetricSeries, threshold float64, seekMin bool) types.ExtremaResult {
	res := types.ExtremaResult{
		Metric:         series.Metric,
		MaxWaypoint:    -1,
		ThresholdValue: &threshold,
		SampleCount:    len(series.Samples),
		Excluded:       series.Excluded,
	}
	if len(series.Samples) == 0 {
		return res
	}

	better := func(a, b float64) bool { return a > b }
	crosses := func(v float64) bool { return v >= threshold }
	if seekMin {
		better = func(a, b float64) bool { return a < b }
		crosses = func(v float64) bool { return v <= threshold }
	}

	var (
		haveBest  bool
		bestValue float64
		bestTime  time.Time
		bestWp    int
	)

	// Walk groups of samples sharing a timestamp; the series is sorted, so
	// groups are contiguous.
	for i := 0; i < len(series.Samples); {
		j := i
		local := series.Samples[i].Value
		localWp := series.Samples[i].WaypointIndex
		for ; j < len(series.Samples) && series.Samples[j].Time.Equal(series.Samples[i].Time); j++ {
			if better(series.Samples[j].Value, local) {
				local = series.Samples[j].Value
				localWp = series.Samples[j].WaypointIndex
			}
		}

		if !haveBest || better(local, bestValue) {
			haveBest = true
			bestValue = local
			bestTime = series.Samples[i].Time
			bestWp = localWp
		}
		if res.ThresholdTime == nil && crosses(local) {
			t := series.Samples[i].Time
			res.ThresholdTime = &t
		}

		i = j
	}

	res.MaxValue = bestValue
	res.MaxTime = &bestTime
	res.MaxWaypoint = bestWp
	return res
}
