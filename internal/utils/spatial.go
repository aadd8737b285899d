package utils

import (
	"math"

	"route-tracker/internal/models"
)

// HaversineDistance calculates the distance in meters between two points
// using the Haversine formula.
func HaversineDistance(lat1, lng1, lat2, lng2 float64) float64 {
	const earthRadiusKm = 6371.0

	dLat := (lat2 - lat1) * math.Pi / 180.0
	dLng := (lng2 - lng1) * math.Pi / 180.0

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180.0)*math.Cos(lat2*math.Pi/180.0)*
			math.Sin(dLng/2)*math.Sin(dLng/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c * 1000 // Convert to meters
}

// RouteDistance sums the Haversine distance over consecutive route points.
func RouteDistance(points []models.GeoPoint) float64 {
	var total float64
	for i := 1; i < len(points); i++ {
		total += HaversineDistance(
			points[i-1].Latitude, points[i-1].Longitude,
			points[i].Latitude, points[i].Longitude,
		)
	}
	return total
}
