// Package geo provides great-circle distance on the accident coordinates
// and a grid index for radius queries over them.
package geo

import "math"

// EarthRadiusKm is the mean Earth radius used for every distance.
const EarthRadiusKm = 6371.0

// KmPerDegreeLat is the arc length of one degree of latitude.
const KmPerDegreeLat = 2 * math.Pi * EarthRadiusKm / 360

// Point is a latitude/longitude pair in decimal degrees.
type Point struct {
	Latitude  float64
	Longitude float64
}

// Radians converts degrees to radians.
func Radians(deg float64) float64 { return deg * math.Pi / 180 }

// HaversineKm returns the great-circle distance between two points in
// kilometres.
func HaversineKm(p1, p2 Point) float64 {
	if p1 == p2 {
		return 0
	}
	lat1 := Radians(p1.Latitude)
	lat2 := Radians(p2.Latitude)
	dlat := lat2 - lat1
	dlon := Radians(p2.Longitude - p1.Longitude)

	a := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dlon/2)*math.Sin(dlon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusKm * c
}

// KmToRadians converts a surface distance to the central angle used by
// radian-based metrics.
func KmToRadians(km float64) float64 { return km / EarthRadiusKm }

// Centroid is the plain arithmetic mean of the points' degrees. Clusters
// span a few kilometres so the planar mean is adequate. ok is false for an
// empty slice.
func Centroid(points []Point) (c Point, ok bool) {
	if len(points) == 0 {
		return Point{}, false
	}
	for _, p := range points {
		c.Latitude += p.Latitude
		c.Longitude += p.Longitude
	}
	n := float64(len(points))
	c.Latitude /= n
	c.Longitude /= n
	return c, true
}

// MaxDistanceKm returns the largest distance from center to any point.
func MaxDistanceKm(center Point, points []Point) float64 {
	var farthest float64
	for _, p := range points {
		if d := HaversineKm(center, p); d > farthest {
			farthest = d
		}
	}
	return farthest
}
