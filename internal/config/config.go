// Package config defines the global configuration structure for the
// TrailWatch service. Configuration is loaded once at process initialization
// and is immutable thereafter, following 12-Factor principles.
//
// Values are resolved via a priority chain:
//
//	OS Environment (Highest) -> Dotenv File -> AWS SSM Parameter Store (Lowest)
//
// Any missing required value or invalid format fails startup immediately.
package config

import (
	"time"

	"trailwatch/internal/types"
)

// SecretString is an alias for types.SecretString, the redacted secret type
// used throughout configuration to prevent accidental logging.
type SecretString = types.SecretString

// Config is the top-level configuration struct. Sub-components receive only
// the specific subsets they require.
type Config struct {
	Environment string `envconfig:"APP_ENV" validate:"required,oneof=local dev prod"`
	Service     string `envconfig:"OTEL_SERVICE_NAME" default:"trailwatch"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	// StubProviders swaps the real forecast and fire-risk clients for
	// deterministic stubs. Local development only.
	StubProviders bool `envconfig:"STUB_PROVIDERS" default:"false"`

	Server        ServerConfig
	Database      DatabaseConfig
	AWS           AWSConfig
	Forecast      ForecastConfig
	Route         RouteConfig
	Schedule      ScheduleConfig
	Thresholds    types.ThresholdConfig
	Observability ObservabilityConfig

	// Build Metadata (injected via ldflags, not env)
	Build BuildInfo
}

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8080"`
}

// DatabaseConfig holds database connection and pool tuning parameters.
type DatabaseConfig struct {
	URL SecretString `envconfig:"DATABASE_URL" validate:"required,url"`

	MaxConns          int           `envconfig:"DB_MAX_CONNS" default:"5"`
	MinConns          int           `envconfig:"DB_MIN_CONNS" default:"1"`
	MaxConnLifetime   time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"30m"`
	AcquireTimeout    time.Duration `envconfig:"DB_ACQUIRE_TIMEOUT" default:"2s"`
	HealthCheckPeriod time.Duration `envconfig:"DB_HEALTH_CHECK_PERIOD" default:"1m"`
}

// AWSConfig holds AWS resource identifiers and regional configuration.
type AWSConfig struct {
	Region string `envconfig:"AWS_REGION" default:"eu-west-3"`

	// Delivery queues: dynamic updates go urgent, scheduled reports standard.
	DeliveryQueueUrgent   string `envconfig:"SQS_DELIVERY_URGENT" validate:"required,url"`
	DeliveryQueueStandard string `envconfig:"SQS_DELIVERY_STANDARD" validate:"required,url"`

	// LocalStack support (empty in prod).
	EndpointURL string `envconfig:"AWS_ENDPOINT_URL"`
}

// ForecastConfig holds the upstream provider settings. The Meteo France token
// is optional: without it the service runs on Open-Meteo alone.
type ForecastConfig struct {
	MeteoFranceToken SecretString `envconfig:"METEOFRANCE_API_TOKEN"`

	// Base URL overrides for integration tests; empty uses the real services.
	MeteoFranceBaseURL string `envconfig:"METEOFRANCE_BASE_URL"`
	OpenMeteoBaseURL   string `envconfig:"OPENMETEO_BASE_URL"`
	FireRiskBaseURL    string `envconfig:"FIRERISK_BASE_URL"`
}

// RouteConfig locates the trek definition and the raw-payload archive.
type RouteConfig struct {
	File       string `envconfig:"ROUTE_FILE" validate:"required"`
	ArchiveDir string `envconfig:"ARCHIVE_DIR" default:"./archive"`
}

// ScheduleConfig holds the report scheduling policy.
type ScheduleConfig struct {
	MorningAt    string        `envconfig:"SCHEDULE_MORNING_AT" default:"04:30"`
	EveningAt    string        `envconfig:"SCHEDULE_EVENING_AT" default:"19:00"`
	TickInterval time.Duration `envconfig:"SCHEDULE_TICK_INTERVAL" default:"15m"`

	// Dynamic update policy.
	DeltaThreshold float64       `envconfig:"SCHEDULE_DELTA_THRESHOLD" default:"0.3" validate:"gte=0,lte=1"`
	MinInterval    time.Duration `envconfig:"SCHEDULE_MIN_INTERVAL" default:"1h"`
	MaxPerDay      int           `envconfig:"SCHEDULE_MAX_PER_DAY" default:"3" validate:"gte=0"`
}

// ObservabilityConfig holds telemetry settings.
type ObservabilityConfig struct {
	MetricNamespace string `envconfig:"METRIC_NAMESPACE" default:"TrailWatch"`
	EnableMetrics   bool   `envconfig:"ENABLE_METRICS" default:"false"`
}

// BuildInfo holds build-time metadata injected via ldflags.
// These values are NOT populated from environment variables.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// ConfigErrorType categorizes configuration loading failures to aid debugging.
type ConfigErrorType string

const (
	// ErrMissingEnv indicates a required environment variable was not found.
	ErrMissingEnv ConfigErrorType = "MISSING_ENV"
	// ErrSSMResolution indicates a failure when fetching secrets from AWS SSM.
	ErrSSMResolution ConfigErrorType = "SSM_FAILURE"
	// ErrValidation indicates the configuration failed struct validation rules.
	ErrValidation ConfigErrorType = "VALIDATION_FAILED"
	// ErrParsing indicates a failure when parsing environment variable values
	// into their target types.
	ErrParsing ConfigErrorType = "PARSING_FAILED"
)
