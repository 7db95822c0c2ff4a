package types

import (
	"github.com/go-playground/validator/v10"
)

// ThresholdConfig enumerates, per metric, the value used for crossing-time
// detection. It is validated once at the engine's entry point; a malformed
// configuration fails fast there rather than deep inside the finder.
type ThresholdConfig struct {
	RainProbabilityPct         float64 `json:"rain_probability_pct" envconfig:"THRESHOLD_RAIN_PROBABILITY" default:"25" validate:"gte=0,lte=100"`
	RainAmountMM               float64 `json:"rain_amount_mm" envconfig:"THRESHOLD_RAIN_AMOUNT" default:"2" validate:"gte=0"`
	WindSpeedKmh               float64 `json:"wind_speed_kmh" envconfig:"THRESHOLD_WIND_SPEED" default:"20" validate:"gte=0"`
	WindGustKmh                float64 `json:"wind_gust_kmh" envconfig:"THRESHOLD_WIND_GUST" default:"30" validate:"gte=0"`
	ThunderstormProbabilityPct float64 `json:"thunderstorm_probability_pct" envconfig:"THRESHOLD_THUNDERSTORM_PROBABILITY" default:"20" validate:"gte=0,lte=100"`
	HeatTemperatureC           float64 `json:"heat_temperature_c" envconfig:"THRESHOLD_HEAT_TEMPERATURE" default:"32" validate:"gte=-20,lte=60"`
	ColdTemperatureC           float64 `json:"cold_temperature_c" envconfig:"THRESHOLD_COLD_TEMPERATURE" default:"5" validate:"gte=-60,lte=30"`
}

// For returns the crossing threshold for the given metric. The temperature
// metric uses the heat threshold; the cold threshold applies only to the
// night minimum and is read directly by the classifier.
func (c ThresholdConfig) For(m Metric) float64 {
	switch m {
	case MetricTemperature:
		return c.HeatTemperatureC
	case MetricRainProbability:
		return c.RainProbabilityPct
	case MetricRainAmount:
		return c.RainAmountMM
	case MetricWindSpeed:
		return c.WindSpeedKmh
	case MetricWindGust:
		return c.WindGustKmh
	case MetricThunderstormProbability:
		return c.ThunderstormProbabilityPct
	}
	return 0
}

// Validate checks the configured thresholds against their physical ranges.
// Returns an AppError with code validation_invalid_thresholds on violation.
func (c ThresholdConfig) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return NewAppError(ErrCodeValidationThresholds,
			"threshold configuration out of range", err)
	}
	return nil
}
