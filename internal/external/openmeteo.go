package external

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"trailwatch/internal/types"
)

// openMeteoAPIBase is the default Open-Meteo API base URL. Open-Meteo serves
// as the fallback provider when Météo-France is unavailable; it needs no API
// key.
const openMeteoAPIBase = "https://api.open-meteo.com"

// openMeteoHourlyParams is the fixed set of hourly variables requested.
const openMeteoHourlyParams = "temperature_2m,precipitation,precipitation_probability,windspeed_10m,windgusts_10m,weathercode,cape"

// OpenMeteoClientConfig holds the configuration for creating an
// OpenMeteoClient.
type OpenMeteoClientConfig struct {
	BaseURL string // Override for testing; defaults to openMeteoAPIBase
	Logger  *slog.Logger
	Sink    RawPayloadSink // optional; receives the raw response body
}

// openMeteoForecast is the wire shape of /v1/forecast: parallel arrays keyed
// under "hourly". Arrays may carry nulls for individual hours.
type openMeteoForecast struct {
	Hourly struct {
		Time                     []string   `json:"time"`
		Temperature2m            []*float64 `json:"temperature_2m"`
		Precipitation            []*float64 `json:"precipitation"`
		PrecipitationProbability []*float64 `json:"precipitation_probability"`
		WindSpeed10m             []*float64 `json:"windspeed_10m"`
		WindGusts10m             []*float64 `json:"windgusts_10m"`
		WeatherCode              []*int     `json:"weathercode"`
		CAPE                     []*float64 `json:"cape"`
	} `json:"hourly"`
}

// OpenMeteoClient implements types.ForecastProvider against the Open-Meteo
// forecast API through BaseClient.
type OpenMeteoClient struct {
	base    *BaseClient
	baseURL string
	logger  *slog.Logger
	sink    RawPayloadSink
}

// NewOpenMeteoClient creates an OpenMeteoClient.
func NewOpenMeteoClient(httpClient *http.Client, cfg OpenMeteoClientConfig) *OpenMeteoClient {
	base := NewBaseClient(
		httpClient,
		"openmeteo",
		DefaultRetryPolicy(),
		"TrailWatch/1.0",
	)
	return NewOpenMeteoClientWithBase(base, cfg)
}

// NewOpenMeteoClientWithBase creates an OpenMeteoClient with a pre-configured
// BaseClient, used by tests to disable retries.
func NewOpenMeteoClientWithBase(base *BaseClient, cfg OpenMeteoClientConfig) *OpenMeteoClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = openMeteoAPIBase
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &OpenMeteoClient{
		base:    base,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		logger:  logger,
		sink:    cfg.Sink,
	}
}

// Name identifies the provider in logs, archives and quality notes.
func (c *OpenMeteoClient) Name() string { return "openmeteo" }

// FetchForecast retrieves the hourly forecast for one coordinate. Open-Meteo
// has no explicit thunderstorm probability; thundery weather codes (95-99)
// set the condition string, which downstream keyword matching picks up, and
// CAPE is carried through for reference.
func (c *OpenMeteoClient) FetchForecast(ctx context.Context, lat, lon float64) ([]types.ForecastEntry, error) {
	q := url.Values{}
	q.Set("latitude", fmt.Sprintf("%.4f", lat))
	q.Set("longitude", fmt.Sprintf("%.4f", lon))
	q.Set("hourly", openMeteoHourlyParams)
	q.Set("timezone", "UTC")
	q.Set("forecast_days", "7")
	reqURL := fmt.Sprintf("%s/v1/forecast?%s", c.baseURL, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, types.NewAppError(
			types.ErrCodeInternalUnexpected,
			"failed to create Open-Meteo forecast request",
			err,
		)
	}

	c.logger.DebugContext(ctx, "fetching Open-Meteo forecast", "lat", lat, "lon", lon)

	resp, err := c.base.Do(req)
	if err != nil {
		return nil, c.wrapError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.logger.ErrorContext(ctx, "Open-Meteo API error",
			"status_code", resp.StatusCode,
			"response_body", string(bodyBytes),
		)
		return nil, types.NewAppError(
			types.ErrCodeUpstreamForecast,
			fmt.Sprintf("Open-Meteo returned %d", resp.StatusCode),
			fmt.Errorf("forecast request returned %d: %s", resp.StatusCode, string(bodyBytes)),
		)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, types.NewAppError(
			types.ErrCodeUpstreamForecast,
			"failed to read Open-Meteo response body",
			err,
		)
	}
	if c.sink != nil {
		c.sink.Capture(ctx, c.Name(), lat, lon, raw)
	}

	var payload openMeteoForecast
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, types.NewAppError(
			types.ErrCodeUpstreamForecast,
			"failed to decode Open-Meteo forecast",
			err,
		)
	}

	h := payload.Hourly
	entries := make([]types.ForecastEntry, 0, len(h.Time))
	for i, tstr := range h.Time {
		ts, err := time.Parse("2006-01-02T15:04", tstr)
		if err != nil {
			return nil, types.NewAppError(
				types.ErrCodeUpstreamForecast,
				fmt.Sprintf("Open-Meteo returned unparseable timestamp %q", tstr),
				err,
			)
		}
		e := types.ForecastEntry{
			Time:               ts.UTC(),
			TemperatureC:       at(h.Temperature2m, i),
			PrecipitationMM:    at(h.Precipitation, i),
			RainProbabilityPct: at(h.PrecipitationProbability, i),
			WindSpeedKmh:       at(h.WindSpeed10m, i),
			WindGustKmh:        at(h.WindGusts10m, i),
			CAPE:               at(h.CAPE, i),
		}
		if code := at(h.WeatherCode, i); code != nil {
			e.Condition = weatherCodeCondition(*code)
		}
		entries = append(entries, e)
	}

	c.logger.DebugContext(ctx, "Open-Meteo forecast fetched",
		"lat", lat, "lon", lon, "entries", len(entries))

	return entries, nil
}

func (c *OpenMeteoClient) wrapError(err error) error {
	var appErr *types.AppError
	if errors.As(err, &appErr) {
		return types.NewAppError(
			appErr.Code,
			fmt.Sprintf("Open-Meteo forecast: %s", appErr.Message),
			appErr.Err,
		)
	}
	return types.NewAppError(types.ErrCodeUpstreamForecast, "Open-Meteo forecast failed", err)
}

// at indexes a possibly shorter parallel array.
func at[T any](arr []*T, i int) *T {
	if i >= len(arr) {
		return nil
	}
	return arr[i]
}

// weatherCodeCondition maps WMO weather codes to the condition labels the
// thunderstorm keyword matcher understands. Only the codes the risk logic
// cares about get distinct labels.
func weatherCodeCondition(code int) string {
	switch {
	case code >= 95 && code <= 99:
		return "Thunderstorm"
	case code >= 80 && code <= 82:
		return "Rain showers"
	case code >= 61 && code <= 67:
		return "Rain"
	case code >= 71 && code <= 77:
		return "Snow"
	case code >= 45 && code <= 48:
		return "Fog"
	case code <= 3:
		return "Clear"
	default:
		return fmt.Sprintf("WMO %d", code)
	}
}

// Compile-time interface compliance check.
var _ types.ForecastProvider = (*OpenMeteoClient)(nil)
