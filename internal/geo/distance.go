// Package geo measures ground distances between WGS84 coordinates and ranks
// parking spots by proximity to a point.
//
// Distances are computed on the spherical Web Mercator projection and corrected
// by the projection's point-scale factor at the mean latitude of the pair, so the
// result is in ground meters rather than projected meters. At city scale the error
// against the great-circle distance is far below a meter.
package geo

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/paulmach/orb/project"

	"github.com/hongminglow/parkshare/internal/apperr"
)

// MaxMercatorLatitude is the latitude beyond which Web Mercator is undefined.
const MaxMercatorLatitude = 85.05112878

// ErrOutsideProjection is returned for points the projection cannot represent.
var ErrOutsideProjection = errors.New("point outside projection bounds")

// Point is a WGS84 position in degrees.
type Point struct {
	Lat float64 `json:"latitude"`
	Lng float64 `json:"longitude"`
}

// Validate rejects NaN and out-of-range coordinates.
func (p Point) Validate() error {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lng) || p.Lat < -90 || p.Lat > 90 || p.Lng < -180 || p.Lng > 180 {
		return apperr.Validation(apperr.ReasonInvalidCoordinates,
			fmt.Sprintf("coordinates (%g, %g) out of range", p.Lat, p.Lng))
	}
	return nil
}

// Projectable reports whether p lies inside the Mercator domain.
func (p Point) Projectable() bool {
	return math.Abs(p.Lat) <= MaxMercatorLatitude
}

func (p Point) orb() orb.Point {
	return orb.Point{p.Lng, p.Lat}
}

// DistanceMeters returns the ground distance between a and b in meters.
func DistanceMeters(a, b Point) (float64, error) {
	if err := a.Validate(); err != nil {
		return 0, err
	}
	if err := b.Validate(); err != nil {
		return 0, err
	}
	if !a.Projectable() || !b.Projectable() {
		return 0, ErrOutsideProjection
	}

	// Keep the pair on the same side of the antimeridian.
	switch {
	case b.Lng-a.Lng > 180:
		b.Lng -= 360
	case b.Lng-a.Lng < -180:
		b.Lng += 360
	}

	pa := project.WGS84.ToMercator(a.orb())
	pb := project.WGS84.ToMercator(b.orb())
	scale := math.Cos((a.Lat + b.Lat) / 2 * math.Pi / 180)
	d := planar.Distance(pa, pb) * scale

	if math.IsNaN(d) || math.IsInf(d, 0) {
		return 0, fmt.Errorf("project (%g, %g) -> (%g, %g): %w", a.Lat, a.Lng, b.Lat, b.Lng, ErrOutsideProjection)
	}
	return d, nil
}
