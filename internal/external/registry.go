package external

import (
	"log/slog"
	"net/http"
	"time"

	"trailwatch/internal/types"
)

// ClientRegistry holds all upstream service clients. It is the single point
// of access for the rest of the application to talk to the outside world.
type ClientRegistry struct {
	// Forecast is the provider chain used for all waypoint fetches:
	// Météo-France first, Open-Meteo on failure.
	Forecast types.ForecastProvider

	// FireRisk resolves daily fire-risk warnings for report formatting.
	FireRisk types.FireRiskLookup
}

// RegistryConfig carries the settings needed to build real clients.
type RegistryConfig struct {
	// Stub selects the stub implementations (local/test mode, no credentials).
	Stub bool

	MeteoFranceToken   string
	MeteoFranceBaseURL string // tests only
	OpenMeteoBaseURL   string // tests only
	FireRiskBaseURL    string // tests only

	Logger *slog.Logger
	Clock  types.Clock
	Sink   RawPayloadSink
}

// NewClientRegistry builds the registry. In stub mode no HTTP client is
// created at all; in real mode every provider shares one http.Client with a
// strict timeout and gets its own circuit breaker.
func NewClientRegistry(cfg RegistryConfig) *ClientRegistry {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if cfg.Stub {
		logger.Info("external clients running in stub mode")
		return &ClientRegistry{
			Forecast: NewStubForecastProvider(logger, cfg.Clock),
			FireRisk: NewStubFireRiskLookup(logger),
		}
	}

	httpClient := &http.Client{Timeout: 30 * time.Second}

	primary := NewMeteoFranceClient(httpClient, MeteoFranceClientConfig{
		APIToken: cfg.MeteoFranceToken,
		BaseURL:  cfg.MeteoFranceBaseURL,
		Logger:   logger,
		Sink:     cfg.Sink,
	})
	secondary := NewOpenMeteoClient(httpClient, OpenMeteoClientConfig{
		BaseURL: cfg.OpenMeteoBaseURL,
		Logger:  logger,
		Sink:    cfg.Sink,
	})

	return &ClientRegistry{
		Forecast: &FallbackProvider{
			Primary:   primary,
			Secondary: secondary,
			Logger:    logger,
		},
		FireRisk: NewFireRiskClient(httpClient, FireRiskClientConfig{
			BaseURL: cfg.FireRiskBaseURL,
			Logger:  logger,
		}),
	}
}
