package geo

import (
	"log/slog"
)

// DefaultMaxDistanceMeters is how far a spot may be from the person submitting it.
const DefaultMaxDistanceMeters = 50.0

// Validator decides whether a submitted spot is plausibly where the submitter stands.
type Validator struct {
	maxDistance float64
	logger      *slog.Logger
}

// NewValidator creates a validator with the given maximum distance in meters.
// A non-positive distance falls back to DefaultMaxDistanceMeters.
func NewValidator(maxDistanceMeters float64, logger *slog.Logger) *Validator {
	if maxDistanceMeters <= 0 {
		maxDistanceMeters = DefaultMaxDistanceMeters
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{maxDistance: maxDistanceMeters, logger: logger}
}

// MaxDistance returns the configured threshold in meters.
func (v *Validator) MaxDistance() float64 {
	return v.maxDistance
}

// Validate reports whether spot lies within the threshold of reporter.
// Any measurement failure fails closed.
func (v *Validator) Validate(spot, reporter Point) bool {
	d, err := DistanceMeters(spot, reporter)
	if err != nil {
		v.logger.Warn("proximity check failed",
			"spot_lat", spot.Lat, "spot_lng", spot.Lng,
			"reporter_lat", reporter.Lat, "reporter_lng", reporter.Lng,
			"error", err)
		return false
	}
	return d <= v.maxDistance
}
