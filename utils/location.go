package utils

import "math"

// milesPerDegree is the length of one degree of latitude, rounded.
const milesPerDegree = 69.0

const earthRadiusMiles = 3958.8

// BoundingBox is a latitude/longitude rectangle. A nil longitude range means
// the box spans every longitude.
type BoundingBox struct {
	MinLat, MaxLat float64
	MinLon, MaxLon *float64
}

// RadiusBoundingBox approximates a circle of radiusMiles around (lat, lon) with a
// rectangle: lat delta = r/69, lon delta = r/(69*|lat/90|). It is not a great-circle
// test. At latitude 0 the longitude factor is zero and no longitude bound is applied.
func RadiusBoundingBox(lat, lon, radiusMiles float64) BoundingBox {
	latDelta := radiusMiles / milesPerDegree
	box := BoundingBox{
		MinLat: lat - latDelta,
		MaxLat: lat + latDelta,
	}

	factor := math.Abs(lat / 90)
	if factor == 0 {
		return box
	}
	lonDelta := radiusMiles / (milesPerDegree * factor)
	minLon, maxLon := lon-lonDelta, lon+lonDelta
	box.MinLon, box.MaxLon = &minLon, &maxLon
	return box
}

// Contains reports whether the point lies inside the rectangle (edges included).
func (b BoundingBox) Contains(lat, lon float64) bool {
	if lat < b.MinLat || lat > b.MaxLat {
		return false
	}
	if b.MinLon != nil && lon < *b.MinLon {
		return false
	}
	if b.MaxLon != nil && lon > *b.MaxLon {
		return false
	}
	return true
}

// HaversineMiles calculates the great-circle distance between two points in miles
func HaversineMiles(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	deltaLat := (lat2 - lat1) * math.Pi / 180
	deltaLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMiles * c
}

// IsValidLatitude checks a latitude in degrees
func IsValidLatitude(lat float64) bool {
	return lat >= -90 && lat <= 90
}

// IsValidLongitude checks a longitude in degrees
func IsValidLongitude(lng float64) bool {
	return lng >= -180 && lng <= 180
}
