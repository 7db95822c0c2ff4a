package types

// ReportType identifies which of the three report flavors is being generated.
// The window selection rules differ per type (see internal/window).
type ReportType string

const (
	// ReportMorning evaluates today's stage over today's daytime window.
	ReportMorning ReportType = "morning"
	// ReportEvening evaluates tomorrow's stage over tomorrow's daytime window,
	// plus tonight's cross-midnight window for the cold metric.
	ReportEvening ReportType = "evening"
	// ReportUpdate is the ad-hoc report triggered by a significant risk change.
	// Its daytime window starts at the current hour instead of the day start.
	ReportUpdate ReportType = "update"
)

// Valid reports whether rt is one of the three known report types.
func (rt ReportType) Valid() bool {
	switch rt {
	case ReportMorning, ReportEvening, ReportUpdate:
		return true
	}
	return false
}

// Metric identifies one aggregated forecast variable.
type Metric string

const (
	MetricTemperature             Metric = "temperature_c"
	MetricRainProbability         Metric = "rain_probability_pct"
	MetricRainAmount              Metric = "rain_amount_mm"
	MetricWindSpeed               Metric = "wind_speed_kmh"
	MetricWindGust                Metric = "wind_gust_kmh"
	MetricThunderstormProbability Metric = "thunderstorm_probability_pct"
)

// AllMetrics is the canonical ordering of metrics, used for deterministic
// iteration in aggregation and formatting.
var AllMetrics = []Metric{
	MetricTemperature,
	MetricRainProbability,
	MetricRainAmount,
	MetricWindSpeed,
	MetricWindGust,
	MetricThunderstormProbability,
}

// HazardCategory identifies one risk classification bucket.
type HazardCategory string

const (
	HazardHeat         HazardCategory = "heat"
	HazardCold         HazardCategory = "cold"
	HazardRain         HazardCategory = "rain"
	HazardThunderstorm HazardCategory = "thunderstorm"
	HazardWind         HazardCategory = "wind"
)

// AllHazards is the canonical ordering of hazard categories in a report.
var AllHazards = []HazardCategory{
	HazardHeat,
	HazardCold,
	HazardRain,
	HazardThunderstorm,
	HazardWind,
}

// TriggerKind describes why a report was generated.
type TriggerKind string

const (
	// TriggerScheduled is a fixed-time morning or evening report.
	TriggerScheduled TriggerKind = "scheduled"
	// TriggerDynamic is an ad-hoc report caused by a risk-delta crossing.
	TriggerDynamic TriggerKind = "dynamic"
	// TriggerManual is an operator-requested report (CLI or preview API).
	TriggerManual TriggerKind = "manual"
)

// Plausibility bounds for provider samples. Values outside these ranges are
// treated as provider glitches, excluded from extrema computation, and
// recorded in the result's exclusion count.
const (
	MinPlausibleTemperatureC = -45.0
	MaxPlausibleTemperatureC = 55.0
	MaxPlausibleWindKmh      = 350.0
	MaxPlausibleRainMMPerH   = 200.0
)
