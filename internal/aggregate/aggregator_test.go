package aggregate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trailwatch/internal/types"
)

func f(v float64) *float64 { return &v }

func entry(h int, mutate func(*types.ForecastEntry)) types.ForecastEntry {
	e := types.ForecastEntry{Time: at(h)}
	if mutate != nil {
		mutate(&e)
	}
	return e
}

func dayWindow() types.TimeWindow {
	return types.TimeWindow{
		Date:      time.Date(2026, 7, 14, 0, 0, 0, 0, time.UTC),
		StartHour: 5,
		EndHour:   17,
	}
}

func TestAggregateMergesChronologicallyAcrossWaypoints(t *testing.T) {
	waypoints := []types.Waypoint{
		{Index: 0, Entries: []types.ForecastEntry{
			entry(8, func(e *types.ForecastEntry) { e.TemperatureC = f(15) }),
			entry(12, func(e *types.ForecastEntry) { e.TemperatureC = f(24) }),
		}},
		{Index: 1, Entries: []types.ForecastEntry{
			entry(7, func(e *types.ForecastEntry) { e.TemperatureC = f(12) }),
			entry(12, func(e *types.ForecastEntry) { e.TemperatureC = f(26) }),
		}},
	}

	out, err := Aggregate(waypoints, dayWindow())
	require.NoError(t, err)

	sr := out[types.MetricTemperature]
	require.Len(t, sr.Samples, 4)
	assert.Equal(t, []int{7, 8, 12, 12}, hours(sr.Samples))
	// Duplicate timestamps stay distinct, in waypoint order.
	assert.Equal(t, 0, sr.Samples[2].WaypointIndex)
	assert.Equal(t, 1, sr.Samples[3].WaypointIndex)
	assert.Equal(t, 24.0, sr.Samples[2].Value)
	assert.Equal(t, 26.0, sr.Samples[3].Value)
}

func TestAggregateAbsentValuesNeverEnterSeries(t *testing.T) {
	waypoints := []types.Waypoint{
		{Index: 0, Entries: []types.ForecastEntry{
			entry(9, func(e *types.ForecastEntry) { e.TemperatureC = f(18) }),
			entry(10, nil), // no values at all
		}},
	}

	out, err := Aggregate(waypoints, dayWindow())
	require.NoError(t, err)

	assert.Len(t, out[types.MetricTemperature].Samples, 1)
	assert.True(t, out[types.MetricRainAmount].Empty())
	assert.True(t, out[types.MetricWindSpeed].Empty())
}

func TestAggregateExcludesImplausibleSamples(t *testing.T) {
	waypoints := []types.Waypoint{
		{Index: 0, Entries: []types.ForecastEntry{
			entry(9, func(e *types.ForecastEntry) {
				e.TemperatureC = f(999) // sensor glitch
				e.WindSpeedKmh = f(15)
			}),
			entry(10, func(e *types.ForecastEntry) {
				e.TemperatureC = f(21)
				e.RainProbabilityPct = f(140)
			}),
		}},
	}

	out, err := Aggregate(waypoints, dayWindow())
	require.NoError(t, err)

	temp := out[types.MetricTemperature]
	require.Len(t, temp.Samples, 1)
	assert.Equal(t, 21.0, temp.Samples[0].Value)
	assert.Equal(t, 1, temp.Excluded)

	prob := out[types.MetricRainProbability]
	assert.True(t, prob.Empty())
	assert.Equal(t, 1, prob.Excluded)

	assert.Len(t, out[types.MetricWindSpeed].Samples, 1)
}

func TestAggregateNoWaypointsYieldsEmptySeries(t *testing.T) {
	out, err := Aggregate(nil, dayWindow())
	require.NoError(t, err)

	for _, m := range types.AllMetrics {
		assert.True(t, out[m].Empty(), "metric %s", m)
	}
}

func TestAggregateRejectsMalformedWindow(t *testing.T) {
	_, err := Aggregate(nil, types.TimeWindow{StartHour: 30, EndHour: 5})
	require.Error(t, err)
	var appErr *types.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.ErrCodeValidationInvalidWindow, appErr.Code)
}

func hours(samples []types.Sample) []int {
	out := make([]int, len(samples))
	for i, s := range samples {
		out[i] = s.Time.Hour()
	}
	return out
}
