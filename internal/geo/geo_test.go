package geo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apexloop/circuitweather/internal/model"
)

func TestHaversineKnownDistances(t *testing.T) {
	tests := []struct {
		name                   string
		lat1, lon1, lat2, lon2 float64
		wantKM                 float64
		tolKM                  float64
	}{
		{"same point", 45.6156, 9.2811, 45.6156, 9.2811, 0, 0.001},
		{"monza to imola", 45.6156, 9.2811, 44.3439, 11.7167, 240, 10},
		{"silverstone to spa", 52.0786, -1.0169, 50.4372, 5.9714, 520, 15},
		{"equator quarter", 0, 0, 0, 90, 10007, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Haversine(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
			assert.InDelta(t, tt.wantKM, got, tt.tolKM)
		})
	}
}

func TestHaversineSymmetric(t *testing.T) {
	a := Haversine(40.3725, 49.8533, 45.6156, 9.2811)
	b := Haversine(45.6156, 9.2811, 40.3725, 49.8533)
	assert.InDelta(t, a, b, 1e-9)
}

func TestBoxAround(t *testing.T) {
	box := BoxAround(45.0, 9.0, 5)
	assert.Equal(t, BBox{MinLat: 40, MaxLat: 50, MinLon: 4, MaxLon: 14}, box)
}

// boxedSource returns its stations only when the queried box is at least
// wide degrees wide, to exercise the widening retry.
type boxedSource struct {
	stations []model.WeatherStation
	wide     float64
	queries  []BBox
}

func (s *boxedSource) WithinBBox(_ context.Context, box BBox) ([]model.WeatherStation, error) {
	s.queries = append(s.queries, box)
	if box.MaxLat-box.MinLat < 2*s.wide {
		return nil, nil
	}
	return s.stations, nil
}

func testStations() []model.WeatherStation {
	return []model.WeatherStation{
		{ID: "16066", Latitude: 45.62, Longitude: 9.28}, // closest
		{ID: "16088", Latitude: 45.43, Longitude: 9.28}, // ~21 km south
		{ID: "16059", Latitude: 46.17, Longitude: 9.88}, // farther north-east
		{ID: "07650", Latitude: 43.44, Longitude: 5.22}, // far away
	}
}

func TestNearestOrdersByExactDistance(t *testing.T) {
	src := &boxedSource{stations: testStations(), wide: 1}
	loc := NewLocator(src, 5, 15)

	ranked, err := loc.Nearest(context.Background(), 45.6156, 9.2811, 3)
	require.NoError(t, err)
	require.Len(t, ranked, 3)

	assert.Equal(t, "16066", ranked[0].Station.ID)
	for i := 1; i < len(ranked); i++ {
		assert.GreaterOrEqual(t, ranked[i].DistanceKM, ranked[i-1].DistanceKM)
	}
}

func TestNearestWidensOnce(t *testing.T) {
	src := &boxedSource{stations: testStations(), wide: 10}
	loc := NewLocator(src, 5, 15)

	ranked, err := loc.Nearest(context.Background(), 45.6156, 9.2811, 2)
	require.NoError(t, err)
	require.Len(t, ranked, 2)
	require.Len(t, src.queries, 2)
	assert.InDelta(t, 30.0, src.queries[1].MaxLat-src.queries[1].MinLat, 0.001)
}

func TestNearestEmptyAfterWideningFails(t *testing.T) {
	src := &boxedSource{stations: nil, wide: 1}
	loc := NewLocator(src, 5, 15)

	_, err := loc.Nearest(context.Background(), 0, 0, 5)
	assert.Error(t, err)
}

func TestNearestKLargerThanSet(t *testing.T) {
	src := &boxedSource{stations: testStations(), wide: 1}
	loc := NewLocator(src, 5, 15)

	ranked, err := loc.Nearest(context.Background(), 45.6156, 9.2811, 50)
	require.NoError(t, err)
	assert.Len(t, ranked, len(testStations()))
}
