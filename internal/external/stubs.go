package external

import (
	"context"
	"log/slog"
	"time"

	"trailwatch/internal/types"
)

// Stub implementations let the application boot in local/test mode without
// real upstream credentials. They log all calls and return predictable,
// benign forecasts.

// StubForecastProvider implements types.ForecastProvider with a synthetic
// calm-weather forecast: 48 hourly entries starting at the current UTC hour.
type StubForecastProvider struct {
	logger *slog.Logger
	clock  types.Clock
}

// NewStubForecastProvider creates a StubForecastProvider.
func NewStubForecastProvider(logger *slog.Logger, clock types.Clock) *StubForecastProvider {
	if clock == nil {
		clock = types.RealClock{}
	}
	return &StubForecastProvider{logger: logger, clock: clock}
}

// Name identifies the stub in logs.
func (s *StubForecastProvider) Name() string { return "stub" }

// FetchForecast returns two days of mild, dry, calm hourly entries.
func (s *StubForecastProvider) FetchForecast(ctx context.Context, lat, lon float64) ([]types.ForecastEntry, error) {
	s.logger.InfoContext(ctx, "stub: FetchForecast called", "lat", lat, "lon", lon)

	start := s.clock.Now().Truncate(time.Hour)
	entries := make([]types.ForecastEntry, 0, 48)
	for h := 0; h < 48; h++ {
		ts := start.Add(time.Duration(h) * time.Hour)
		// A gentle diurnal curve peaking at 15:00.
		temp := 18.0 + 6.0*diurnal(ts.Hour())
		entries = append(entries, types.ForecastEntry{
			Time:               ts,
			TemperatureC:       &temp,
			PrecipitationMM:    f64(0),
			RainProbabilityPct: f64(5),
			WindSpeedKmh:       f64(8),
			WindGustKmh:        f64(14),
			Condition:          "Clear",
		})
	}
	return entries, nil
}

// diurnal maps an hour to [-1, 1], lowest at 03:00 and highest at 15:00.
func diurnal(hour int) float64 {
	shifted := (hour + 24 - 15) % 24
	if shifted > 12 {
		shifted = 24 - shifted
	}
	return 1 - float64(shifted)/6.0
}

// StubFireRiskLookup implements types.FireRiskLookup by reporting no warning.
type StubFireRiskLookup struct {
	logger *slog.Logger
}

// NewStubFireRiskLookup creates a StubFireRiskLookup.
func NewStubFireRiskLookup(logger *slog.Logger) *StubFireRiskLookup {
	return &StubFireRiskLookup{logger: logger}
}

func (s *StubFireRiskLookup) WarningFor(ctx context.Context, lat, lon float64, date time.Time) (string, error) {
	s.logger.InfoContext(ctx, "stub: WarningFor called",
		"lat", lat, "lon", lon, "date", date.Format("2006-01-02"))
	return "", nil
}

func f64(v float64) *float64 { return &v }

// Compile-time interface compliance checks.
var (
	_ types.ForecastProvider = (*StubForecastProvider)(nil)
	_ types.FireRiskLookup   = (*StubFireRiskLookup)(nil)
)
