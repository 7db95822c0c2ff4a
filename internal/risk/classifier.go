// Package risk turns per-metric extrema into hazard verdicts. Each hazard is
// a pure predicate over the extrema; the classifier never touches raw
// forecast entries.
package risk

import (
	"fmt"

	"trailwatch/internal/types"
)

// Classifier evaluates hazard predicates against configured thresholds.
type Classifier struct {
	thresholds types.ThresholdConfig
}

// NewClassifier returns a classifier using the given thresholds. Thresholds
// are validated by the engine before any classification runs.
func NewClassifier(thresholds types.ThresholdConfig) *Classifier {
	return &Classifier{thresholds: thresholds}
}

// Classify produces one RiskResult per hazard category, in the fixed order of
// types.AllHazards. extrema holds the daytime results keyed by metric; night
// is the night-minimum temperature result for evening reports (nil otherwise).
//
// The rain hazard is a conjunction: both the probability and the amount
// thresholds must be reached. A 60% chance of drizzle is not a rain risk, and
// neither is a heavy-but-unlikely shower. When either leg of the conjunction
// has no data the hazard is reported data-unavailable rather than "no risk":
// absence of data is never evidence of absence of risk.
func (c *Classifier) Classify(extrema map[types.Metric]types.ExtremaResult, night *types.ExtremaResult) []types.RiskResult {
	out := make([]types.RiskResult, 0, len(types.AllHazards))
	for _, h := range types.AllHazards {
		out = append(out, c.classifyOne(h, extrema, night))
	}
	return out
}

func (c *Classifier) classifyOne(h types.HazardCategory, extrema map[types.Metric]types.ExtremaResult, night *types.ExtremaResult) types.RiskResult {
	switch h {
	case types.HazardRain:
		return c.rain(extrema[types.MetricRainProbability], extrema[types.MetricRainAmount])
	case types.HazardThunderstorm:
		return c.exceeds(h, extrema[types.MetricThunderstormProbability],
			c.thresholds.ThunderstormProbabilityPct, "thunderstorm probability %.0f%% at its peak")
	case types.HazardWind:
		return c.wind(extrema[types.MetricWindSpeed], extrema[types.MetricWindGust])
	case types.HazardHeat:
		return c.exceeds(h, extrema[types.MetricTemperature],
			c.thresholds.HeatTemperatureC, "daytime high of %.1f°C")
	case types.HazardCold:
		return c.cold(night)
	}
	return types.RiskResult{Hazard: h}
}

// rain requires probability AND amount to reach their thresholds in the same
// window.
func (c *Classifier) rain(prob, amount types.ExtremaResult) types.RiskResult {
	res := types.RiskResult{
		Hazard:  types.HazardRain,
		Extrema: []types.ExtremaResult{prob, amount},
	}
	if !prob.HasData() || !amount.HasData() {
		res.QualityNotes = append(res.QualityNotes, "rain data incomplete")
		return res
	}
	res.DataAvailable = true
	res.HasRisk = prob.MaxValue >= c.thresholds.RainProbabilityPct &&
		amount.MaxValue >= c.thresholds.RainAmountMM
	if res.HasRisk {
		res.Description = fmt.Sprintf("rain %.0f%% up to %.1fmm/h", prob.MaxValue, amount.MaxValue)
	}
	return res
}

// wind triggers on sustained speed or on gusts, whichever reaches its
// threshold. Gust data is optional for some providers, so a missing gust
// series degrades to a quality note instead of data-unavailable as long as
// sustained speed is present.
func (c *Classifier) wind(speed, gust types.ExtremaResult) types.RiskResult {
	res := types.RiskResult{
		Hazard:  types.HazardWind,
		Extrema: []types.ExtremaResult{speed, gust},
	}
	if !speed.HasData() {
		res.QualityNotes = append(res.QualityNotes, "wind data unavailable")
		return res
	}
	res.DataAvailable = true

	overSpeed := speed.MaxValue >= c.thresholds.WindSpeedKmh
	overGust := gust.HasData() && gust.MaxValue >= c.thresholds.WindGustKmh
	if !gust.HasData() {
		res.QualityNotes = append(res.QualityNotes, "gust data unavailable")
	}

	res.HasRisk = overSpeed || overGust
	if res.HasRisk {
		if overGust {
			res.Description = fmt.Sprintf("wind %.0fkm/h gusting %.0fkm/h", speed.MaxValue, gust.MaxValue)
		} else {
			res.Description = fmt.Sprintf("wind %.0fkm/h sustained", speed.MaxValue)
		}
	}
	return res
}

// cold evaluates the night minimum at the overnight anchor. Reports without a
// night window carry no cold verdict beyond data-unavailable.
func (c *Classifier) cold(night *types.ExtremaResult) types.RiskResult {
	res := types.RiskResult{Hazard: types.HazardCold}
	if night == nil || !night.HasData() {
		res.QualityNotes = append(res.QualityNotes, "night temperature unavailable")
		return res
	}
	res.DataAvailable = true
	res.Extrema = []types.ExtremaResult{*night}
	res.HasRisk = night.MaxValue <= c.thresholds.ColdTemperatureC
	if res.HasRisk {
		res.Description = fmt.Sprintf("night low of %.1f°C", night.MaxValue)
	}
	return res
}

func (c *Classifier) exceeds(h types.HazardCategory, r types.ExtremaResult, threshold float64, format string) types.RiskResult {
	res := types.RiskResult{Hazard: h, Extrema: []types.ExtremaResult{r}}
	if !r.HasData() {
		res.QualityNotes = append(res.QualityNotes, fmt.Sprintf("%s data unavailable", h))
		return res
	}
	res.DataAvailable = true
	res.HasRisk = r.MaxValue >= threshold
	if res.HasRisk {
		res.Description = fmt.Sprintf(format, r.MaxValue)
	}
	return res
}
