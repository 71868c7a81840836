package geo

import (
	"math"
	"sort"

	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"

	"github.com/hongminglow/parkshare/internal/models"
)

// Box is a latitude/longitude rectangle used as a coarse store-side prefilter.
type Box struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
}

// Contains reports whether p falls inside the box, edges included.
func (b Box) Contains(p Point) bool {
	return p.Lat >= b.MinLat && p.Lat <= b.MaxLat && p.Lng >= b.MinLng && p.Lng <= b.MaxLng
}

// Bounds returns a box guaranteed to contain every point within radius meters
// of center. The box is padded so the prefilter never drops a true match.
func Bounds(center Point, radius float64) Box {
	padded := radius*1.01 + 1
	b := orbgeo.NewBoundAroundPoint(center.orb(), padded)

	box := Box{
		MinLat: math.Max(b.Min[1], -90),
		MaxLat: math.Min(b.Max[1], 90),
		MinLng: b.Min[0],
		MaxLng: b.Max[0],
	}
	if box.MinLng < -180 || box.MaxLng > 180 || box.MinLng > box.MaxLng {
		box.MinLng, box.MaxLng = -180, 180
	}
	return box
}

// LngWeight is the squared cosine of lat. Scaling squared longitude deltas by
// it makes them comparable to squared latitude deltas near lat, which is
// enough for a store to order candidates approximately nearest first.
func LngWeight(lat float64) float64 {
	c := math.Cos(lat * math.Pi / 180)
	return c * c
}

type ranked struct {
	spot     models.Spot
	distance float64
}

// Rank orders spots by ascending distance from center. When radius is non-nil,
// spots farther than radius meters are dropped. Spots that cannot be measured
// (outside the projection) are skipped since they cannot be near any valid center.
func Rank(spots []models.Spot, center Point, radius *float64) []models.Spot {
	items := make([]ranked, 0, len(spots))
	for _, s := range spots {
		d, err := DistanceMeters(center, Point{Lat: s.Latitude, Lng: s.Longitude})
		if err != nil {
			continue
		}
		if radius != nil && d > *radius {
			continue
		}
		items = append(items, ranked{spot: s, distance: d})
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].distance < items[j].distance
	})

	out := make([]models.Spot, len(items))
	for i, it := range items {
		out[i] = it.spot
	}
	return out
}

// Haversine returns the great-circle distance on the same sphere the projection uses.
// It is kept as an independent cross-check for DistanceMeters.
func Haversine(a, b Point) float64 {
	return orbgeo.DistanceHaversine(orb.Point{a.Lng, a.Lat}, orb.Point{b.Lng, b.Lat})
}
