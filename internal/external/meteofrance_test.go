package external

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"trailwatch/internal/types"
)

// capturedPayload records Capture calls for sink assertions.
type capturedPayload struct {
	provider string
	payload  []byte
}

type recordingSink struct {
	captures []capturedPayload
}

func (r *recordingSink) Capture(_ context.Context, provider string, _, _ float64, payload []byte) {
	r.captures = append(r.captures, capturedPayload{provider: provider, payload: payload})
}

func noRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 0, MinWait: time.Millisecond, MaxWait: time.Millisecond}
}

// Timestamps are multiples of 3h so the probability join lines up.
const meteoFranceBody = `{
  "forecast": [
    {"dt": 1783998000, "T": {"value": 21.5}, "weather": {"desc": "Eclaircies"},
     "wind": {"speed": 15, "gust": 35}, "rain": {"1h": 0.2}},
    {"dt": 1784001600, "T": {"value": null}, "weather": {"desc": "Risque d'orages"},
     "wind": {"speed": null, "gust": null}}
  ],
  "probability_forecast": [
    {"dt": 1783998000, "rain_3h": 40, "storm_3h": 25}
  ]
}`

func TestMeteoFranceFetchForecast(t *testing.T) {
	var gotPath, gotToken string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotToken = r.URL.Query().Get("token")
		w.Write([]byte(meteoFranceBody))
	}))
	defer server.Close()

	sink := &recordingSink{}
	base := newTestClient(t, noRetryPolicy())
	client := NewMeteoFranceClientWithBase(base, MeteoFranceClientConfig{
		APIToken: "tok-123",
		BaseURL:  server.URL,
		Logger:   slog.Default(),
		Sink:     sink,
	})

	entries, err := client.FetchForecast(context.Background(), 42.4708, 8.9010)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if gotPath != "/forecast" {
		t.Errorf("expected /forecast path, got %s", gotPath)
	}
	if gotToken != "tok-123" {
		t.Errorf("expected API token in query, got %q", gotToken)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}

	first := entries[0]
	if first.TemperatureC == nil || *first.TemperatureC != 21.5 {
		t.Errorf("unexpected temperature: %v", first.TemperatureC)
	}
	if first.WindGustKmh == nil || *first.WindGustKmh != 35 {
		t.Errorf("unexpected gust: %v", first.WindGustKmh)
	}
	if first.PrecipitationMM == nil || *first.PrecipitationMM != 0.2 {
		t.Errorf("unexpected rain: %v", first.PrecipitationMM)
	}
	// Joined from the 3-hourly probability forecast.
	if first.RainProbabilityPct == nil || *first.RainProbabilityPct != 40 {
		t.Errorf("unexpected rain probability: %v", first.RainProbabilityPct)
	}
	if first.ThunderstormProbabilityPct == nil || *first.ThunderstormProbabilityPct != 25 {
		t.Errorf("unexpected storm probability: %v", first.ThunderstormProbabilityPct)
	}

	// Null measurements stay nil.
	second := entries[1]
	if second.TemperatureC != nil {
		t.Errorf("null temperature must stay nil, got %v", *second.TemperatureC)
	}
	if second.Condition != "Risque d'orages" {
		t.Errorf("unexpected condition: %q", second.Condition)
	}

	if len(sink.captures) != 1 || sink.captures[0].provider != "meteofrance" {
		t.Errorf("expected one meteofrance capture, got %+v", sink.captures)
	}
}

func TestMeteoFranceUpstreamErrorCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	base := newTestClient(t, noRetryPolicy())
	client := NewMeteoFranceClientWithBase(base, MeteoFranceClientConfig{BaseURL: server.URL})

	_, err := client.FetchForecast(context.Background(), 42.0, 9.0)
	if err == nil {
		t.Fatal("expected error on 403")
	}
	var appErr *types.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected AppError, got %T", err)
	}
	if appErr.Code != types.ErrCodeUpstreamForecast {
		t.Errorf("expected code %s, got %s", types.ErrCodeUpstreamForecast, appErr.Code)
	}
}

func TestMeteoFranceMalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"forecast": "not-a-list"`))
	}))
	defer server.Close()

	base := newTestClient(t, noRetryPolicy())
	client := NewMeteoFranceClientWithBase(base, MeteoFranceClientConfig{BaseURL: server.URL})

	_, err := client.FetchForecast(context.Background(), 42.0, 9.0)
	var appErr *types.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected AppError, got %v", err)
	}
	if appErr.Code != types.ErrCodeUpstreamForecast {
		t.Errorf("expected code %s, got %s", types.ErrCodeUpstreamForecast, appErr.Code)
	}
}
