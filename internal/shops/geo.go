package shops

import "math"

const earthRadiusKM = 6371.0

// DistanceKM is the haversine great-circle distance between two points.
func DistanceKM(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := radians(lat2 - lat1)
	dLng := radians(lng2 - lng1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(lat1))*math.Cos(radians(lat2))*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKM * math.Asin(math.Sqrt(a))
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

// boundingBox returns a lat/lng window that fully contains the radius, used
// to pre-filter rows before the exact distance check.
func boundingBox(lat, lng, radiusKM float64) (minLat, maxLat, minLng, maxLng float64) {
	latDelta := radiusKM / 111.0
	lngDelta := latDelta
	if cos := math.Cos(radians(lat)); cos > 0.01 {
		lngDelta = radiusKM / (111.0 * cos)
	}
	return lat - latDelta, lat + latDelta, lng - lngDelta, lng + lngDelta
}
