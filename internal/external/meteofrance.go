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

// meteoFranceAPIBase is the default Météo-France forecast API base URL.
// Overridable in tests via MeteoFranceClientConfig.BaseURL.
const meteoFranceAPIBase = "https://webservice.meteofrance.com"

// MeteoFranceClientConfig holds the configuration for creating a
// MeteoFranceClient.
type MeteoFranceClientConfig struct {
	APIToken string
	BaseURL  string // Override for testing; defaults to meteoFranceAPIBase
	Logger   *slog.Logger
	Sink     RawPayloadSink // optional; receives the raw response body
}

// meteoFranceForecast is the wire shape of the /forecast endpoint. Hourly
// entries arrive as a list of objects; missing measurements are null and stay
// nil through decoding.
type meteoFranceForecast struct {
	Forecast []struct {
		Dt          int64 `json:"dt"`
		Temperature struct {
			Value *float64 `json:"value"`
		} `json:"T"`
		Weather struct {
			Desc string `json:"desc"`
		} `json:"weather"`
		Wind struct {
			Speed *float64 `json:"speed"`
			Gust  *float64 `json:"gust"`
		} `json:"wind"`
		Rain map[string]*float64 `json:"rain"` // keyed by accumulation period, "1h" used
	} `json:"forecast"`
	ProbabilityForecast []struct {
		Dt       int64    `json:"dt"`
		RainProb *float64 `json:"rain_3h"`
		StormProb *float64 `json:"storm_3h"`
	} `json:"probability_forecast"`
}

// MeteoFranceClient implements types.ForecastProvider against the
// Météo-France web service through BaseClient, inheriting circuit breaking,
// retries and error mapping.
type MeteoFranceClient struct {
	base     *BaseClient
	apiToken string
	baseURL  string
	logger   *slog.Logger
	sink     RawPayloadSink
}

// NewMeteoFranceClient creates a MeteoFranceClient. The httpClient timeout
// should cover a full retried exchange (15-30 seconds).
func NewMeteoFranceClient(httpClient *http.Client, cfg MeteoFranceClientConfig) *MeteoFranceClient {
	base := NewBaseClient(
		httpClient,
		"meteofrance",
		DefaultRetryPolicy(),
		"TrailWatch/1.0",
	)
	return NewMeteoFranceClientWithBase(base, cfg)
}

// NewMeteoFranceClientWithBase creates a MeteoFranceClient with a
// pre-configured BaseClient, used by tests to disable retries.
func NewMeteoFranceClientWithBase(base *BaseClient, cfg MeteoFranceClientConfig) *MeteoFranceClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = meteoFranceAPIBase
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &MeteoFranceClient{
		base:     base,
		apiToken: cfg.APIToken,
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		logger:   logger,
		sink:     cfg.Sink,
	}
}

// Name identifies the provider in logs, archives and quality notes.
func (c *MeteoFranceClient) Name() string { return "meteofrance" }

// FetchForecast retrieves the hourly forecast for one coordinate and
// normalizes it to ForecastEntry values. Hourly rain/storm probabilities are
// joined from the 3-hourly probability forecast by truncating timestamps to
// the enclosing 3-hour slot.
func (c *MeteoFranceClient) FetchForecast(ctx context.Context, lat, lon float64) ([]types.ForecastEntry, error) {
	q := url.Values{}
	q.Set("lat", fmt.Sprintf("%.4f", lat))
	q.Set("lon", fmt.Sprintf("%.4f", lon))
	q.Set("token", c.apiToken)
	reqURL := fmt.Sprintf("%s/forecast?%s", c.baseURL, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, types.NewAppError(
			types.ErrCodeInternalUnexpected,
			"failed to create Météo-France forecast request",
			err,
		)
	}

	c.logger.DebugContext(ctx, "fetching Météo-France forecast", "lat", lat, "lon", lon)

	resp, err := c.base.Do(req)
	if err != nil {
		return nil, c.wrapError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, c.handleErrorResponse(ctx, resp)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, types.NewAppError(
			types.ErrCodeUpstreamForecast,
			"failed to read Météo-France response body",
			err,
		)
	}
	if c.sink != nil {
		c.sink.Capture(ctx, c.Name(), lat, lon, raw)
	}

	var payload meteoFranceForecast
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, types.NewAppError(
			types.ErrCodeUpstreamForecast,
			"failed to decode Météo-France forecast",
			err,
		)
	}

	// Index probabilities by their 3-hour slot start.
	type probs struct{ rain, storm *float64 }
	probBySlot := make(map[int64]probs, len(payload.ProbabilityForecast))
	for _, p := range payload.ProbabilityForecast {
		probBySlot[p.Dt] = probs{rain: p.RainProb, storm: p.StormProb}
	}

	entries := make([]types.ForecastEntry, 0, len(payload.Forecast))
	for _, fc := range payload.Forecast {
		ts := time.Unix(fc.Dt, 0).UTC()
		e := types.ForecastEntry{
			Time:         ts,
			TemperatureC: fc.Temperature.Value,
			WindSpeedKmh: fc.Wind.Speed,
			WindGustKmh:  fc.Wind.Gust,
			Condition:    fc.Weather.Desc,
		}
		if fc.Rain != nil {
			e.PrecipitationMM = fc.Rain["1h"]
		}
		slot := fc.Dt - fc.Dt%(3*3600)
		if p, ok := probBySlot[slot]; ok {
			e.RainProbabilityPct = p.rain
			e.ThunderstormProbabilityPct = p.storm
		}
		entries = append(entries, e)
	}

	c.logger.DebugContext(ctx, "Météo-France forecast fetched",
		"lat", lat, "lon", lon, "entries", len(entries))

	return entries, nil
}

func (c *MeteoFranceClient) handleErrorResponse(ctx context.Context, resp *http.Response) *types.AppError {
	bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	c.logger.ErrorContext(ctx, "Météo-France API error",
		"status_code", resp.StatusCode,
		"response_body", string(bodyBytes),
	)
	return types.NewAppError(
		types.ErrCodeUpstreamForecast,
		fmt.Sprintf("Météo-France returned %d", resp.StatusCode),
		fmt.Errorf("forecast request returned %d: %s", resp.StatusCode, string(bodyBytes)),
	)
}

func (c *MeteoFranceClient) wrapError(err error) error {
	var appErr *types.AppError
	if errors.As(err, &appErr) {
		return types.NewAppError(
			appErr.Code,
			fmt.Sprintf("Météo-France forecast: %s", appErr.Message),
			appErr.Err,
		)
	}
	return types.NewAppError(types.ErrCodeUpstreamForecast, "Météo-France forecast failed", err)
}

// Compile-time interface compliance check.
var _ types.ForecastProvider = (*MeteoFranceClient)(nil)
