package scheduler

import (
	"trailwatch/internal/types"
)

// hazardWeights expresses how strongly each hazard moves the overall risk
// score. Thunderstorms dominate: they are the one condition that changes
// route decisions on exposed ridgelines.
var hazardWeights = map[types.HazardCategory]float64{
	types.HazardThunderstorm: 0.40,
	types.HazardRain:         0.25,
	types.HazardWind:         0.15,
	types.HazardHeat:         0.10,
	types.HazardCold:         0.10,
}

// RiskScore reduces a report's hazard verdicts to one number in [0, 1] for
// the dynamic-trigger comparison. Data-unavailable hazards contribute
// nothing; the score compares what is known, and the quality notes travel
// with the report itself.
func RiskScore(res *types.ReportResult) float64 {
	if res == nil {
		return 0
	}
	score := 0.0
	for _, r := range res.Risks {
		if r.HasRisk {
			score += hazardWeights[r.Hazard]
		}
	}
	if score > 1 {
		score = 1
	}
	return score
}
