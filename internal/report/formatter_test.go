package report

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trailwatch/internal/types"
)

func tsAt(h int) *time.Time {
	t := time.Date(2026, 7, 14, h, 0, 0, 0, time.UTC)
	return &t
}

func extrema(m types.Metric, max float64, maxHour int, thresholdHour int) types.ExtremaResult {
	r := types.ExtremaResult{Metric: m, MaxValue: max, MaxTime: tsAt(maxHour), SampleCount: 12}
	if thresholdHour >= 0 {
		r.ThresholdTime = tsAt(thresholdHour)
	}
	return r
}

func noData(m types.Metric) types.ExtremaResult {
	return types.ExtremaResult{Metric: m, MaxWaypoint: -1}
}

func sampleResult() *types.ReportResult {
	night := extrema(types.MetricTemperature, 3.5, 4, 2)
	outlook := extrema(types.MetricThunderstormProbability, 55, 15, 14)
	return &types.ReportResult{
		ReportType:   types.ReportEvening,
		StageName:    "Carrozzu",
		GeneratedFor: time.Date(2026, 7, 15, 0, 0, 0, 0, time.UTC),
		Extrema: map[types.Metric]types.ExtremaResult{
			types.MetricTemperature:             extrema(types.MetricTemperature, 31.2, 14, -1),
			types.MetricRainProbability:         extrema(types.MetricRainProbability, 60, 12, 11),
			types.MetricRainAmount:              extrema(types.MetricRainAmount, 3.5, 13, 12),
			types.MetricWindSpeed:               extrema(types.MetricWindSpeed, 25, 15, 13),
			types.MetricWindGust:                extrema(types.MetricWindGust, 48, 15, 13),
			types.MetricThunderstormProbability: extrema(types.MetricThunderstormProbability, 30, 16, 15),
		},
		Night:   &night,
		Outlook: &outlook,
		Risks: []types.RiskResult{
			{Hazard: types.HazardRain, HasRisk: true, DataAvailable: true, Description: "rain 60% up to 3.5mm"},
			{Hazard: types.HazardWind, HasRisk: true, DataAvailable: true, Description: "wind 25km/h gusting 48km/h"},
			{Hazard: types.HazardHeat, DataAvailable: true},
		},
	}
}

func TestFormatCompact(t *testing.T) {
	line := Formatter{}.FormatCompact(sampleResult(), "")

	assert.LessOrEqual(t, utf8.RuneCountInString(line), MaxCompactLen)
	assert.True(t, strings.HasPrefix(line, "Carrozzu PM:"), "line %q", line)
	assert.Contains(t, line, "T31°C@14h")
	assert.Contains(t, line, "N4°C") // %.0f rounds 3.5 up
	assert.Contains(t, line, "R60%@11h/3.5mm")
	assert.Contains(t, line, "W25km/h@15h")
	assert.Contains(t, line, "S30%@15h")
	assert.Contains(t, line, "S+1:55%")
}

func TestFormatCompactNoDataRendersDashes(t *testing.T) {
	res := &types.ReportResult{
		ReportType: types.ReportMorning,
		StageName:  "Vide",
		Extrema: map[types.Metric]types.ExtremaResult{
			types.MetricTemperature:             noData(types.MetricTemperature),
			types.MetricRainProbability:         noData(types.MetricRainProbability),
			types.MetricRainAmount:              noData(types.MetricRainAmount),
			types.MetricWindSpeed:               noData(types.MetricWindSpeed),
			types.MetricWindGust:                noData(types.MetricWindGust),
			types.MetricThunderstormProbability: noData(types.MetricThunderstormProbability),
		},
	}

	line := Formatter{}.FormatCompact(res, "")

	assert.Contains(t, line, "T-")
	assert.Contains(t, line, "R-/-")
	assert.Contains(t, line, "W-")
	assert.Contains(t, line, "S+1:-")
	assert.NotContains(t, line, "0°C", "absent data must never render as zero")
}

func TestFormatCompactFireAndLowConfidenceMarkers(t *testing.T) {
	res := sampleResult()
	res.LowConfidence = true

	line := Formatter{}.FormatCompact(res, "fire risk: high")
	assert.Contains(t, line, "FIRE!")
	assert.Contains(t, line, "(unverified)")
	assert.LessOrEqual(t, utf8.RuneCountInString(line), MaxCompactLen)
}

func TestFormatCompactTruncatesAtTokenBoundary(t *testing.T) {
	res := sampleResult()
	res.StageName = strings.Repeat("Monte Cintu ", 12) // absurdly long stage name

	line := Formatter{}.FormatCompact(res, "")
	assert.LessOrEqual(t, utf8.RuneCountInString(line), MaxCompactLen)
	assert.False(t, strings.HasSuffix(line, " "), "no dangling separator")
}

func TestFormatBody(t *testing.T) {
	body := Formatter{}.FormatBody(sampleResult(), "fire risk: elevated")

	require.True(t, strings.HasPrefix(body, "Evening report for Carrozzu"))
	assert.Contains(t, body, "max 31.2°C at 14:00")
	assert.Contains(t, body, "threshold reached 11:00")
	assert.Contains(t, body, "min 3.5°C at 04:00")
	assert.Contains(t, body, "below threshold from 02:00")
	assert.Contains(t, body, "! rain: rain 60% up to 3.5mm")
	assert.Contains(t, body, "! wind: wind 25km/h gusting 48km/h")
	assert.Contains(t, body, "fire risk: elevated")
}

func TestFormatBodyNoRisks(t *testing.T) {
	res := sampleResult()
	res.Risks = []types.RiskResult{
		{Hazard: types.HazardRain, DataAvailable: true},
		{Hazard: types.HazardCold, QualityNotes: []string{"night temperature unavailable"}},
	}

	body := Formatter{}.FormatBody(res, "")
	assert.Contains(t, body, "none identified")
	assert.Contains(t, body, "~ night temperature unavailable")
}
