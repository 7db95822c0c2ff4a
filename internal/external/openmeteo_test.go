package external

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"trailwatch/internal/types"
)

const openMeteoBody = `{
  "hourly": {
    "time": ["2026-07-14T05:00", "2026-07-14T06:00", "2026-07-14T07:00"],
    "temperature_2m": [12.1, 13.4, null],
    "precipitation": [0, 0.3, 0.8],
    "precipitation_probability": [5, 30, 60],
    "windspeed_10m": [10, 12, 14],
    "windgusts_10m": [18, 22, 40],
    "weathercode": [1, 61, 95],
    "cape": [120, 450, 900]
  }
}`

func TestOpenMeteoFetchForecast(t *testing.T) {
	var gotQuery map[string][]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		w.Write([]byte(openMeteoBody))
	}))
	defer server.Close()

	base := newTestClient(t, noRetryPolicy())
	client := NewOpenMeteoClientWithBase(base, OpenMeteoClientConfig{BaseURL: server.URL})

	entries, err := client.FetchForecast(context.Background(), 42.4282, 8.8890)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if got := gotQuery["timezone"]; len(got) != 1 || got[0] != "UTC" {
		t.Errorf("expected timezone=UTC, got %v", got)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}

	first := entries[0]
	want := time.Date(2026, 7, 14, 5, 0, 0, 0, time.UTC)
	if !first.Time.Equal(want) {
		t.Errorf("expected %v, got %v", want, first.Time)
	}
	if first.TemperatureC == nil || *first.TemperatureC != 12.1 {
		t.Errorf("unexpected temperature: %v", first.TemperatureC)
	}
	if first.Condition != "Clear" {
		t.Errorf("expected Clear for code 1, got %q", first.Condition)
	}

	// Nulls in parallel arrays stay nil.
	if entries[2].TemperatureC != nil {
		t.Errorf("null temperature must stay nil, got %v", *entries[2].TemperatureC)
	}
	// Thundery weather codes become a keyword the risk matcher understands.
	if entries[2].Condition != "Thunderstorm" {
		t.Errorf("expected Thunderstorm for code 95, got %q", entries[2].Condition)
	}
	if entries[2].CAPE == nil || *entries[2].CAPE != 900 {
		t.Errorf("unexpected CAPE: %v", entries[2].CAPE)
	}
	if entries[1].Condition != "Rain" {
		t.Errorf("expected Rain for code 61, got %q", entries[1].Condition)
	}
}

func TestOpenMeteoShortArraysAreTolerated(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"hourly": {"time": ["2026-07-14T05:00", "2026-07-14T06:00"], "temperature_2m": [12.1]}}`))
	}))
	defer server.Close()

	base := newTestClient(t, noRetryPolicy())
	client := NewOpenMeteoClientWithBase(base, OpenMeteoClientConfig{BaseURL: server.URL})

	entries, err := client.FetchForecast(context.Background(), 42.0, 9.0)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[1].TemperatureC != nil {
		t.Error("out-of-range index must yield nil, not panic")
	}
}

func TestOpenMeteoBadTimestamp(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"hourly": {"time": ["not-a-time"]}}`))
	}))
	defer server.Close()

	base := newTestClient(t, noRetryPolicy())
	client := NewOpenMeteoClientWithBase(base, OpenMeteoClientConfig{BaseURL: server.URL})

	_, err := client.FetchForecast(context.Background(), 42.0, 9.0)
	var appErr *types.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected AppError, got %v", err)
	}
	if appErr.Code != types.ErrCodeUpstreamForecast {
		t.Errorf("expected code %s, got %s", types.ErrCodeUpstreamForecast, appErr.Code)
	}
}

func TestFallbackProviderUsesSecondaryOnFailure(t *testing.T) {
	primary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer primary.Close()
	secondary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(openMeteoBody))
	}))
	defer secondary.Close()

	chain := &FallbackProvider{
		Primary: NewMeteoFranceClientWithBase(newTestClient(t, noRetryPolicy()),
			MeteoFranceClientConfig{BaseURL: primary.URL}),
		Secondary: NewOpenMeteoClientWithBase(newTestClient(t, noRetryPolicy()),
			OpenMeteoClientConfig{BaseURL: secondary.URL}),
	}

	if chain.Name() != "meteofrance+openmeteo" {
		t.Errorf("unexpected chain name %q", chain.Name())
	}

	entries, err := chain.FetchForecast(context.Background(), 42.0, 9.0)
	if err != nil {
		t.Fatalf("expected fallback to succeed, got: %v", err)
	}
	if len(entries) != 3 {
		t.Errorf("expected secondary's 3 entries, got %d", len(entries))
	}
}
