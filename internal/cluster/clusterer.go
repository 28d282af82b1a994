package cluster

import (
	"github.com/banshee-data/roadrisk/internal/accident"
	"github.com/banshee-data/roadrisk/internal/geo"
	"github.com/banshee-data/roadrisk/internal/monitoring"
)

// Stage names this engine in skip reasons and logs.
const Stage = "clusters"

// Clusterer assigns records to geographic hotspots.
type Clusterer interface {
	Cluster(ds accident.Dataset) Result
}

// Result is index-aligned with the dataset's records.
type Result struct {
	Labels   []int // cluster id per record, Noise when unclustered
	Clusters []Cluster
	Skip     *accident.Skip
}

// Hotspot reports whether record i belongs to a cluster.
func (r Result) Hotspot(i int) bool { return r.Labels[i] != Noise }

// Lookup returns the cluster with the given id.
func (r Result) Lookup(id int) (Cluster, bool) {
	if id < 0 || id >= len(r.Clusters) {
		return Cluster{}, false
	}
	return r.Clusters[id], true
}

// DBSCANClusterer implements Clusterer with haversine DBSCAN over the
// records that pass the bounds check.
type DBSCANClusterer struct {
	params Params
	bounds accident.GeoBounds
}

// NewDBSCANClusterer creates a clusterer.
func NewDBSCANClusterer(params Params, bounds accident.GeoBounds) *DBSCANClusterer {
	return &DBSCANClusterer{params: params, bounds: bounds}
}

// NewDefaultDBSCANClusterer uses the default parameters and mainland
// bounds.
func NewDefaultDBSCANClusterer() *DBSCANClusterer {
	return NewDBSCANClusterer(DefaultParams(), accident.DefaultGeoBounds())
}

// Params returns the clustering parameters.
func (c *DBSCANClusterer) Params() Params { return c.params }

// Cluster labels every record. Records outside the bounds are noise. When
// coordinates are missing from the input, or fewer valid records exist than
// MinSamples, every record is noise and Skip says why.
func (c *DBSCANClusterer) Cluster(ds accident.Dataset) Result {
	res := Result{Labels: make([]int, len(ds.Records))}
	for i := range res.Labels {
		res.Labels[i] = Noise
	}

	if skip := accident.MissingFields(Stage, ds.Fields, accident.FieldLatitude, accident.FieldLongitude); skip != nil {
		res.Skip = skip
		monitoring.Logf("%s", skip)
		return res
	}

	var (
		points []geo.Point
		rows   []int // record index of each point
	)
	for i, r := range ds.Records {
		if c.bounds.Contains(r) {
			points = append(points, geo.Point{Latitude: r.Latitude, Longitude: r.Longitude})
			rows = append(rows, i)
		}
	}
	if len(points) < c.params.MinSamples {
		res.Skip = accident.InsufficientSamples(Stage, len(points), c.params.MinSamples)
		monitoring.Logf("%s", res.Skip)
		return res
	}

	labels, k := DBSCAN(points, c.params)
	for j, l := range labels {
		res.Labels[rows[j]] = l
	}
	res.Clusters = Summarize(ds.Records, res.Labels, k)

	monitoring.Logf("clusters: %d hotspots from %d valid coordinates (eps %.1f km, min samples %d)",
		k, len(points), c.params.EpsKm, c.params.MinSamples)
	return res
}

var _ Clusterer = (*DBSCANClusterer)(nil)
