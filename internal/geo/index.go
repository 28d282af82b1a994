package geo

import "math"

// estimatedPointsPerCell sizes the initial grid map.
const estimatedPointsPerCell = 4

// SpatialIndex buckets points into a lat/lon grid whose cells are at least
// radiusKm wide in both directions, so a radius query only has to look at
// the 3x3 block of cells around a point.
type SpatialIndex struct {
	points   []Point
	radiusKm float64
	latCell  float64 // degrees
	lonCell  float64 // degrees
	grid     map[cellKey][]int
}

type cellKey struct{ x, y int64 }

// NewSpatialIndex indexes points for queries of radiusKm.
func NewSpatialIndex(points []Point, radiusKm float64) *SpatialIndex {
	si := &SpatialIndex{
		points:   points,
		radiusKm: radiusKm,
		grid:     make(map[cellKey][]int, len(points)/estimatedPointsPerCell+1),
	}

	si.latCell = radiusKm / KmPerDegreeLat
	// A degree of longitude shrinks with latitude; size the cell for the
	// point closest to a pole, reach one more cell poleward, and keep a
	// small slack for the great-circle shortcut.
	var maxAbsLat float64
	for _, p := range points {
		if a := math.Abs(p.Latitude); a > maxAbsLat {
			maxAbsLat = a
		}
	}
	lat := math.Min(maxAbsLat+si.latCell, 89)
	si.lonCell = si.latCell / math.Cos(Radians(lat)) * 1.01
	if si.latCell <= 0 {
		// single cell
		si.latCell, si.lonCell = math.Inf(1), math.Inf(1)
	}

	for i, p := range points {
		k := si.cell(p)
		si.grid[k] = append(si.grid[k], i)
	}
	return si
}

func (si *SpatialIndex) cell(p Point) cellKey {
	return cellKey{
		x: int64(math.Floor(p.Longitude / si.lonCell)),
		y: int64(math.Floor(p.Latitude / si.latCell)),
	}
}

// RegionQuery returns the indices of every point within the index radius of
// points[idx], the point itself included, in ascending index order within
// each cell.
func (si *SpatialIndex) RegionQuery(idx int) []int {
	p := si.points[idx]
	base := si.cell(p)
	var neighbors []int

	for dx := int64(-1); dx <= 1; dx++ {
		for dy := int64(-1); dy <= 1; dy++ {
			for _, j := range si.grid[cellKey{base.x + dx, base.y + dy}] {
				if HaversineKm(p, si.points[j]) <= si.radiusKm {
					neighbors = append(neighbors, j)
				}
			}
		}
	}
	return neighbors
}

// Len returns the number of indexed points.
func (si *SpatialIndex) Len() int { return len(si.points) }
