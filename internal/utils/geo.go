package utils

import (
	"math"
	"time"

	"fixly-app/marketplace-service/internal/models"
)

const earthRadiusKm = 6371

// HaversineDistance returns the great-circle distance between two points
// in kilometers, on a spherical earth. Good enough for city-scale matching.
func HaversineDistance(a, b models.GeoPoint) float64 {
	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dLat := (b.Latitude - a.Latitude) * math.Pi / 180
	dLng := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusKm * c
}

// WithinRadius reports whether candidate lies within radiusKm of origin.
// A candidate at the (0,0) sentinel has no stored location and always
// matches, so that un-located records stay visible.
func WithinRadius(origin, candidate models.GeoPoint, radiusKm float64) bool {
	if candidate.IsUnset() {
		return true
	}
	return HaversineDistance(origin, candidate) <= radiusKm
}

// CalculateETA estimates travel time between two points at an assumed
// average speed in km/h.
func CalculateETA(from, to models.GeoPoint, averageSpeedKmh float64) time.Duration {
	distance := HaversineDistance(from, to)
	minutes := int(distance / averageSpeedKmh * 60)
	return time.Duration(minutes) * time.Minute
}

func IsLocationValid(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}
