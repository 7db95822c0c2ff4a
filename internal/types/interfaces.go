package types

import (
	"context"
	"time"
)

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using the real system time (always UTC).
type RealClock struct{}

// Now returns the current time in UTC.
func (RealClock) Now() time.Time { return time.Now().UTC() }

// ForecastProvider retrieves the ordered forecast time series for one
// waypoint. Implementations may fail or return partial data; the engine
// treats provider failure as zero entries, never as a crash.
type ForecastProvider interface {
	// Name identifies the provider in logs, archives and quality notes.
	Name() string

	FetchForecast(ctx context.Context, lat, lon float64) ([]ForecastEntry, error)
}

// FireRiskLookup resolves the fire-risk warning for a coordinate and date.
// An empty string means no warning. Consumed only by the report formatter;
// the aggregation engine exposes coordinates for this purpose but does not
// interpret zone results.
type FireRiskLookup interface {
	WarningFor(ctx context.Context, lat, lon float64, date time.Time) (string, error)
}
