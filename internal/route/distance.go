package route

import (
	"math"

	"trailwatch/internal/types"
)

const earthRadiusKm = 6371.0

// HaversineKm returns the great-circle distance in kilometers between two
// coordinates.
func HaversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := radians(lat2 - lat1)
	dLon := radians(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(lat1))*math.Cos(radians(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// NearestWaypoint returns the route waypoint closest to the given position
// and its distance in kilometers, scanning every stage. Used to attribute an
// ad-hoc position (preview API requests) to a point the forecast cache
// already covers.
func (r *Route) NearestWaypoint(lat, lon float64) (*types.Waypoint, float64) {
	var best *types.Waypoint
	bestDist := math.MaxFloat64
	for si := range r.Stages {
		for wi := range r.Stages[si].Waypoints {
			wp := &r.Stages[si].Waypoints[wi]
			if d := HaversineKm(lat, lon, wp.Lat, wp.Lon); d < bestDist {
				best = wp
				bestDist = d
			}
		}
	}
	return best, bestDist
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }
