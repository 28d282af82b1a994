package accident

// GeoBounds is the bounding box used to decide whether a record's
// coordinates are usable. It is a plain lat/lon rectangle; boxes crossing
// the antimeridian are not supported.
type GeoBounds struct {
	LatMin float64
	LatMax float64
	LonMin float64
	LonMax float64
}

// DefaultGeoBounds covers mainland Brazil.
func DefaultGeoBounds() GeoBounds {
	return GeoBounds{LatMin: -35, LatMax: 5, LonMin: -75, LonMax: -30}
}

// Contains is the single coordinate validity rule: the record has
// coordinates, both fall inside the box (inclusive) and neither is zero.
// Clustering, map points, segment centroids and quality reporting all use
// it.
func (b GeoBounds) Contains(r Record) bool {
	if !r.HasCoordinates {
		return false
	}
	return b.ContainsPoint(r.Latitude, r.Longitude)
}

// ContainsPoint applies the validity rule to a bare coordinate pair.
func (b GeoBounds) ContainsPoint(lat, lon float64) bool {
	if lat == 0 || lon == 0 {
		return false
	}
	// NaN fails every comparison, so it is rejected here as well.
	return lat >= b.LatMin && lat <= b.LatMax && lon >= b.LonMin && lon <= b.LonMax
}

// CountValid returns how many records pass Contains.
func (b GeoBounds) CountValid(records []Record) int {
	n := 0
	for _, r := range records {
		if b.Contains(r) {
			n++
		}
	}
	return n
}
