package geo

import (
	"bytes"
	"log/slog"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hongminglow/parkshare/internal/apperr"
	"github.com/hongminglow/parkshare/internal/models"
)

func TestDistanceMeters_IdentityAndSymmetry(t *testing.T) {
	points := []Point{
		{Lat: 40.0, Lng: -75.0},
		{Lat: 0, Lng: 0},
		{Lat: -33.8688, Lng: 151.2093},
		{Lat: 59.9139, Lng: 10.7522},
		{Lat: 51.5007, Lng: -0.1246},
	}
	for _, a := range points {
		d, err := DistanceMeters(a, a)
		require.NoError(t, err)
		assert.Zero(t, d)

		for _, b := range points {
			ab, err := DistanceMeters(a, b)
			require.NoError(t, err)
			ba, err := DistanceMeters(b, a)
			require.NoError(t, err)
			assert.InDelta(t, ab, ba, 1e-9)
		}
	}
}

func TestDistanceMeters_KnownCityScaleDistances(t *testing.T) {
	origin := Point{Lat: 40.0, Lng: -75.0}

	north, err := DistanceMeters(origin, Point{Lat: 40.0010, Lng: -75.0})
	require.NoError(t, err)
	assert.InDelta(t, 111.3, north, 0.5)

	near, err := DistanceMeters(origin, Point{Lat: 40.00003, Lng: -75.0})
	require.NoError(t, err)
	assert.InDelta(t, 3.34, near, 0.05)

	east, err := DistanceMeters(origin, Point{Lat: 40.0, Lng: -74.999})
	require.NoError(t, err)
	assert.InDelta(t, 85.3, east, 0.5)
}

func TestDistanceMeters_AgreesWithGreatCircle(t *testing.T) {
	pairs := [][2]Point{
		{{Lat: 40.0, Lng: -75.0}, {Lat: 40.003, Lng: -75.004}},
		{{Lat: 64.1466, Lng: -21.9426}, {Lat: 64.1501, Lng: -21.9310}},
		{{Lat: -33.8688, Lng: 151.2093}, {Lat: -33.8650, Lng: 151.2150}},
		{{Lat: 1.3521, Lng: 103.8198}, {Lat: 1.3600, Lng: 103.8300}},
	}
	for _, p := range pairs {
		d, err := DistanceMeters(p[0], p[1])
		require.NoError(t, err)
		assert.InDelta(t, Haversine(p[0], p[1]), d, 1.0)
	}
}

func TestDistanceMeters_AcrossAntimeridian(t *testing.T) {
	d, err := DistanceMeters(Point{Lat: 0, Lng: 179.9995}, Point{Lat: 0, Lng: -179.9995})
	require.NoError(t, err)
	assert.InDelta(t, 111.3, d, 0.5)
}

func TestDistanceMeters_RejectsInvalid(t *testing.T) {
	_, err := DistanceMeters(Point{Lat: 91, Lng: 0}, Point{})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = DistanceMeters(Point{Lat: 0, Lng: -180.5}, Point{})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = DistanceMeters(Point{Lat: math.NaN(), Lng: 0}, Point{})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = DistanceMeters(Point{Lat: 89.9, Lng: 0}, Point{Lat: 89.9, Lng: 1})
	assert.ErrorIs(t, err, ErrOutsideProjection)
}

func TestValidator(t *testing.T) {
	v := NewValidator(50, slog.New(slog.DiscardHandler))
	spot := Point{Lat: 40.0, Lng: -75.0}

	assert.False(t, v.Validate(spot, Point{Lat: 40.0010, Lng: -75.0}))
	assert.True(t, v.Validate(spot, Point{Lat: 40.00003, Lng: -75.0}))
	assert.True(t, v.Validate(spot, spot))
}

func TestValidator_FailsClosedAndLogs(t *testing.T) {
	var buf bytes.Buffer
	v := NewValidator(50, slog.New(slog.NewTextHandler(&buf, nil)))

	assert.False(t, v.Validate(Point{Lat: 120, Lng: 0}, Point{Lat: 0, Lng: 0}))
	assert.False(t, v.Validate(Point{Lat: 89.99, Lng: 0}, Point{Lat: 89.99, Lng: 0}))
	assert.Contains(t, buf.String(), "proximity check failed")
}

func TestNewValidator_Defaults(t *testing.T) {
	v := NewValidator(0, nil)
	assert.Equal(t, DefaultMaxDistanceMeters, v.MaxDistance())
}

func TestBounds_ContainsEveryPointWithinRadius(t *testing.T) {
	center := Point{Lat: 40.0, Lng: -75.0}
	radius := 500.0
	box := Bounds(center, radius)

	for bearing := 0.0; bearing < 360; bearing += 15 {
		rad := bearing * math.Pi / 180
		dLat := radius * math.Cos(rad) / 111320
		dLng := radius * math.Sin(rad) / (111320 * math.Cos(center.Lat*math.Pi/180))
		p := Point{Lat: center.Lat + dLat, Lng: center.Lng + dLng}

		d, err := DistanceMeters(center, p)
		require.NoError(t, err)
		if d <= radius {
			assert.True(t, box.Contains(p), "bearing %v outside box", bearing)
		}
	}
}

func TestBounds_WrapsToFullLongitudeAtAntimeridian(t *testing.T) {
	box := Bounds(Point{Lat: 0, Lng: 179.9999}, 1000)
	assert.Equal(t, -180.0, box.MinLng)
	assert.Equal(t, 180.0, box.MaxLng)
}

func TestRank_OrdersAndFiltersByRadius(t *testing.T) {
	center := Point{Lat: 40.0, Lng: -75.0}
	spots := []models.Spot{
		{ID: 1, Latitude: 40.0040, Longitude: -75.0},   // ~445 m
		{ID: 2, Latitude: 40.0001, Longitude: -75.0},   // ~11 m
		{ID: 3, Latitude: 40.0200, Longitude: -75.0},   // ~2.2 km
		{ID: 4, Latitude: 40.0, Longitude: -75.0010},   // ~85 m
		{ID: 5, Latitude: 89.5, Longitude: -75.0},      // unmeasurable
	}
	radius := 500.0

	got := Rank(spots, center, &radius)

	ids := make([]int64, len(got))
	for i, s := range got {
		ids[i] = s.ID
	}
	assert.Equal(t, []int64{2, 4, 1}, ids)

	prev := -1.0
	for _, s := range got {
		d, err := DistanceMeters(center, Point{Lat: s.Latitude, Lng: s.Longitude})
		require.NoError(t, err)
		assert.LessOrEqual(t, d, radius)
		assert.GreaterOrEqual(t, d, prev)
		prev = d
	}
}

func TestRank_WithoutRadiusKeepsAllMeasurable(t *testing.T) {
	center := Point{Lat: 40.0, Lng: -75.0}
	spots := []models.Spot{
		{ID: 1, Latitude: 41.0, Longitude: -75.0},
		{ID: 2, Latitude: 40.5, Longitude: -75.0},
	}
	got := Rank(spots, center, nil)
	require.Len(t, got, 2)
	assert.Equal(t, int64(2), got[0].ID)
}

func TestRank_Empty(t *testing.T) {
	assert.Empty(t, Rank(nil, Point{}, nil))
}
