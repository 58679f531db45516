package geo

import "math"

// EarthRadiusKm is the mean Earth radius used for every distance in the service.
const EarthRadiusKm = 6371.0

// DistanceKm returns the great-circle distance between two points using the
// spherical law of cosines.
func DistanceKm(lat1, lng1, lat2, lng2 float64) float64 {
	phi1, phi2 := radians(lat1), radians(lat2)
	dLambda := radians(lng2) - radians(lng1)

	cosAngle := math.Cos(phi1)*math.Cos(phi2)*math.Cos(dLambda) + math.Sin(phi1)*math.Sin(phi2)
	// Rounding can push identical points just past 1.
	cosAngle = math.Max(-1, math.Min(1, cosAngle))
	return EarthRadiusKm * math.Acos(cosAngle)
}

// LatitudeBand returns the latitude range that can contain points closer than
// radiusKm to lat. Longitude is not bounded.
func LatitudeBand(lat, radiusKm float64) (minLat, maxLat float64) {
	delta := degrees(radiusKm / EarthRadiusKm)
	return math.Max(-90, lat-delta), math.Min(90, lat+delta)
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }

func degrees(rad float64) float64 { return rad * 180 / math.Pi }
