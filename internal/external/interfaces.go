package external

import (
	"context"
	"log/slog"

	"trailwatch/internal/types"
)

// RawPayloadSink receives the unmodified response body of a successful
// forecast fetch, before any decoding. The archive layer implements it to
// keep an audit trail of what the provider actually said; a nil sink
// disables capture. Capture must not block the fetch path: implementations
// log failures instead of returning them.
type RawPayloadSink interface {
	Capture(ctx context.Context, provider string, lat, lon float64, payload []byte)
}

// FallbackProvider chains a primary and a secondary forecast provider: the
// secondary is consulted only when the primary returns an error. Partial but
// successful primary responses are never second-guessed.
type FallbackProvider struct {
	Primary   types.ForecastProvider
	Secondary types.ForecastProvider
	Logger    *slog.Logger
}

// Name reports the chain, e.g. "meteofrance+openmeteo".
func (f *FallbackProvider) Name() string {
	return f.Primary.Name() + "+" + f.Secondary.Name()
}

// FetchForecast tries the primary, then the secondary. When both fail, the
// secondary's error is returned; the primary's failure is logged.
func (f *FallbackProvider) FetchForecast(ctx context.Context, lat, lon float64) ([]types.ForecastEntry, error) {
	entries, err := f.Primary.FetchForecast(ctx, lat, lon)
	if err == nil {
		return entries, nil
	}
	logger := f.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.WarnContext(ctx, "primary forecast provider failed, falling back",
		"primary", f.Primary.Name(),
		"secondary", f.Secondary.Name(),
		"error", err,
	)
	return f.Secondary.FetchForecast(ctx, lat, lon)
}

// Compile-time interface compliance check.
var _ types.ForecastProvider = (*FallbackProvider)(nil)
