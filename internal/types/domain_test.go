package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func at(y int, m time.Month, d, h int) time.Time {
	return time.Date(y, m, d, h, 0, 0, 0, time.UTC)
}

func TestTimeWindowContains_SameDay(t *testing.T) {
	w := TimeWindow{Date: date(2026, 7, 14), StartHour: 5, EndHour: 17}

	tests := []struct {
		name string
		t    time.Time
		want bool
	}{
		{"start hour inclusive", at(2026, 7, 14, 5), true},
		{"mid window", at(2026, 7, 14, 12), true},
		{"end hour exclusive", at(2026, 7, 14, 17), false},
		{"before window", at(2026, 7, 14, 4), false},
		{"wrong day", at(2026, 7, 15, 12), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, w.Contains(tt.t))
		})
	}
}

func TestTimeWindowContains_CrossMidnight(t *testing.T) {
	// Night window: 22:00 on the 14th through 05:00 on the 15th.
	w := TimeWindow{Date: date(2026, 7, 14), StartHour: 22, EndHour: 5, CrossesMidnight: true}

	assert.True(t, w.Contains(at(2026, 7, 14, 22)))
	assert.True(t, w.Contains(at(2026, 7, 14, 23)))
	assert.True(t, w.Contains(at(2026, 7, 15, 0)))
	assert.True(t, w.Contains(at(2026, 7, 15, 4)))
	assert.False(t, w.Contains(at(2026, 7, 15, 5)), "end hour is exclusive")
	assert.False(t, w.Contains(at(2026, 7, 14, 21)))
	assert.False(t, w.Contains(at(2026, 7, 15, 12)))
	assert.False(t, w.Contains(at(2026, 7, 16, 2)), "only the immediately following day counts")
}

func TestTimeWindowContains_EmptyWindow(t *testing.T) {
	w := TimeWindow{Date: date(2026, 7, 14), StartHour: 17, EndHour: 17}
	assert.False(t, w.Contains(at(2026, 7, 14, 17)))
}

func TestTimeWindowValidate(t *testing.T) {
	valid := TimeWindow{Date: date(2026, 7, 14), StartHour: 5, EndHour: 17}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name string
		w    TimeWindow
	}{
		{"hour above 23", TimeWindow{Date: date(2026, 7, 14), StartHour: 5, EndHour: 24}},
		{"negative hour", TimeWindow{Date: date(2026, 7, 14), StartHour: -1, EndHour: 17}},
		{"end before start same-day", TimeWindow{Date: date(2026, 7, 14), StartHour: 17, EndHour: 5}},
		{"zero date", TimeWindow{StartHour: 5, EndHour: 17}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.w.Validate()
			require.Error(t, err)
			var appErr *AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, ErrCodeValidationInvalidWindow, appErr.Code)
		})
	}
}

func TestExtremaResultHasData(t *testing.T) {
	assert.False(t, ExtremaResult{}.HasData())
	assert.True(t, ExtremaResult{MaxValue: 0, SampleCount: 1}.HasData(),
		"a genuine zero observation is data")
}

func TestStageLastWaypoint(t *testing.T) {
	empty := Stage{Name: "Calenzana"}
	assert.Nil(t, empty.LastWaypoint())

	s := Stage{Name: "Vizzavona", Waypoints: []Waypoint{
		{Label: "start", Index: 0},
		{Label: "refuge", Index: 1},
		{Label: "end", Index: 2},
	}}
	last := s.LastWaypoint()
	require.NotNil(t, last)
	assert.Equal(t, "end", last.Label)
}

func TestThresholdConfigFor(t *testing.T) {
	cfg := ThresholdConfig{
		RainProbabilityPct:         25,
		RainAmountMM:               2,
		WindSpeedKmh:               20,
		WindGustKmh:                30,
		ThunderstormProbabilityPct: 20,
		HeatTemperatureC:           32,
		ColdTemperatureC:           5,
	}

	assert.Equal(t, 25.0, cfg.For(MetricRainProbability))
	assert.Equal(t, 2.0, cfg.For(MetricRainAmount))
	assert.Equal(t, 20.0, cfg.For(MetricWindSpeed))
	assert.Equal(t, 30.0, cfg.For(MetricWindGust))
	assert.Equal(t, 20.0, cfg.For(MetricThunderstormProbability))
	assert.Equal(t, 32.0, cfg.For(MetricTemperature))
}

func TestThresholdConfigValidate(t *testing.T) {
	valid := ThresholdConfig{
		RainProbabilityPct:         25,
		RainAmountMM:               2,
		WindSpeedKmh:               20,
		WindGustKmh:                30,
		ThunderstormProbabilityPct: 20,
		HeatTemperatureC:           32,
		ColdTemperatureC:           5,
	}
	require.NoError(t, valid.Validate())

	bad := valid
	bad.RainProbabilityPct = 140
	err := bad.Validate()
	require.Error(t, err)
	var appErr *AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, ErrCodeValidationThresholds, appErr.Code)
}

func TestReportTypeValid(t *testing.T) {
	assert.True(t, ReportMorning.Valid())
	assert.True(t, ReportEvening.Valid())
	assert.True(t, ReportUpdate.Valid())
	assert.False(t, ReportType("weekly").Valid())
}
