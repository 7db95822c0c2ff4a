// Package pointview provides a read-only accessor over one waypoint's
// ordered forecast entries, able to filter to an arbitrary time window and
// reduce the filtered slice to simple statistics.
package pointview

import (
	"strings"

	"trailwatch/internal/types"
)

// thunderKeywords are the categorical condition substrings counted as a
// thunderstorm occurrence. Providers report French or English labels
// depending on the endpoint.
var thunderKeywords = []string{"thunderstorm", "orage", "risque d'orages"}

// Statistics is the reduced view of a waypoint's entries inside one window.
// Pointer fields are nil when no entry carried the underlying value: an
// empty window is a valid "no data" state and must never surface as zero.
type Statistics struct {
	MinTempC                *float64
	MaxTempC                *float64
	AvgTempC                *float64
	TotalRainMM             *float64
	MaxRainRateMMPerH       *float64
	MaxWindSpeedKmh         *float64
	MaxWindGustKmh          *float64
	ThunderstormOccurrences int
	EntryCount              int
}

// View is a read-only accessor over one waypoint's time series. The entries
// are owned by the waypoint and never mutated through the view.
type View struct {
	wp *types.Waypoint
}

// New creates a view over the given waypoint.
func New(wp *types.Waypoint) *View {
	return &View{wp: wp}
}

// Waypoint returns the underlying waypoint.
func (v *View) Waypoint() *types.Waypoint { return v.wp }

// EntriesIn returns the waypoint's entries inside the window, in their
// original chronological order. Membership is evaluated in each entry's own
// timestamp, inclusive of the start hour and exclusive of the end hour. An
// empty result is valid; only a malformed window is an error.
func (v *View) EntriesIn(w types.TimeWindow) ([]types.ForecastEntry, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}

	var out []types.ForecastEntry
	for _, e := range v.wp.Entries {
		if w.Contains(e.Time) {
			out = append(out, e)
		}
	}
	return out, nil
}

// StatisticsIn reduces the in-window entries to per-metric statistics.
// Entries missing a given value simply do not contribute to that value's
// statistic; a window with no contributing entries leaves the statistic nil.
func (v *View) StatisticsIn(w types.TimeWindow) (Statistics, error) {
	entries, err := v.EntriesIn(w)
	if err != nil {
		return Statistics{}, err
	}

	var stats Statistics
	stats.EntryCount = len(entries)

	var tempSum float64
	var tempCount int

	for _, e := range entries {
		if e.TemperatureC != nil {
			t := *e.TemperatureC
			tempSum += t
			tempCount++
			if stats.MinTempC == nil || t < *stats.MinTempC {
				stats.MinTempC = ptr(t)
			}
			if stats.MaxTempC == nil || t > *stats.MaxTempC {
				stats.MaxTempC = ptr(t)
			}
		}
		if e.PrecipitationMM != nil {
			r := *e.PrecipitationMM
			if stats.TotalRainMM == nil {
				stats.TotalRainMM = ptr(0.0)
			}
			*stats.TotalRainMM += r
			if stats.MaxRainRateMMPerH == nil || r > *stats.MaxRainRateMMPerH {
				stats.MaxRainRateMMPerH = ptr(r)
			}
		}
		if e.WindSpeedKmh != nil {
			if stats.MaxWindSpeedKmh == nil || *e.WindSpeedKmh > *stats.MaxWindSpeedKmh {
				stats.MaxWindSpeedKmh = ptr(*e.WindSpeedKmh)
			}
		}
		if e.WindGustKmh != nil {
			if stats.MaxWindGustKmh == nil || *e.WindGustKmh > *stats.MaxWindGustKmh {
				stats.MaxWindGustKmh = ptr(*e.WindGustKmh)
			}
		}
		if isThunderstorm(e) {
			stats.ThunderstormOccurrences++
		}
	}

	if tempCount > 0 {
		stats.AvgTempC = ptr(tempSum / float64(tempCount))
	}

	return stats, nil
}

// isThunderstorm reports whether the entry's categorical condition indicates
// thunderstorm activity.
func isThunderstorm(e types.ForecastEntry) bool {
	cond := strings.ToLower(e.Condition)
	for _, kw := range thunderKeywords {
		if strings.Contains(cond, kw) {
			return true
		}
	}
	return false
}

func ptr(f float64) *float64 { return &f }
