// Package cluster finds accident hotspots with DBSCAN over great-circle
// distance and summarises each hotspot.
package cluster

import (
	"github.com/banshee-data/roadrisk/internal/geo"
)

// Noise is the label of a point that belongs to no cluster.
const Noise = -1

// Defaults used when no configuration overrides them.
const (
	DefaultEpsKm      = 5.0
	DefaultMinSamples = 10
)

// Params configures DBSCAN.
type Params struct {
	EpsKm      float64 // neighbourhood radius in kilometres
	MinSamples int     // neighbours, the point itself included, for a core point
}

// DefaultParams returns the hotspot defaults.
func DefaultParams() Params {
	return Params{EpsKm: DefaultEpsKm, MinSamples: DefaultMinSamples}
}

// DBSCAN labels every point with a cluster id 0..k-1 in discovery order, or
// Noise. It returns the labels and k.
func DBSCAN(points []geo.Point, params Params) ([]int, int) {
	n := len(points)
	if n == 0 {
		return nil, 0
	}

	// 0=unvisited, -1=noise, >0=cluster ordinal+1 while expanding
	labels := make([]int, n)
	clusterID := 0

	index := geo.NewSpatialIndex(points, params.EpsKm)

	for i := 0; i < n; i++ {
		if labels[i] != 0 {
			continue
		}

		neighbors := index.RegionQuery(i)
		if len(neighbors) < params.MinSamples {
			labels[i] = Noise
			continue
		}

		clusterID++
		expandCluster(index, labels, i, neighbors, clusterID, params.MinSamples)
	}

	for i, l := range labels {
		if l > 0 {
			labels[i] = l - 1
		}
	}
	return labels, clusterID
}

// expandCluster grows a cluster from a core point, breadth first.
func expandCluster(index *geo.SpatialIndex, labels []int, seed int, neighbors []int, clusterID, minSamples int) {
	labels[seed] = clusterID

	for j := 0; j < len(neighbors); j++ {
		idx := neighbors[j]

		if labels[idx] == Noise {
			labels[idx] = clusterID // border point
		}
		if labels[idx] != 0 {
			continue
		}

		labels[idx] = clusterID
		next := index.RegionQuery(idx)
		if len(next) >= minSamples {
			neighbors = append(neighbors, next...)
		}
	}
}
