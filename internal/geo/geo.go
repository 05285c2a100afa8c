package geo

import "math"

// EarthRadius is the mean earth radius in meters.
const EarthRadius = 6371000.0

type Coordinates struct {
	Lat float64
	Lng float64
}

// Distance returns the great-circle distance in meters (haversine).
func Distance(from, to Coordinates) float64 {
	if from == to {
		return 0
	}
	toRad := func(d float64) float64 { return d * math.Pi / 180 }
	dLat := toRad(to.Lat - from.Lat)
	dLng := toRad(to.Lng - from.Lng)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(toRad(from.Lat))*math.Cos(toRad(to.Lat))*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadius * c
}
