// Package geo provides great-circle distance and availability-agnostic
// nearest-station queries over a station catalog.
package geo

import (
	"context"
	"math"
	"sort"

	"github.com/rotisserie/eris"

	"github.com/apexloop/circuitweather/internal/model"
)

const earthRadiusKM = 6371.0

// Haversine returns the great-circle distance in kilometers between two
// latitude/longitude points.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	p1 := lat1 * math.Pi / 180
	p2 := lat2 * math.Pi / 180
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(p1)*math.Cos(p2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKM * c
}

// BBox is a latitude/longitude bounding box.
type BBox struct {
	MinLat, MaxLat float64
	MinLon, MaxLon float64
}

// BoxAround returns a box of ±delta degrees around a point.
func BoxAround(lat, lon, delta float64) BBox {
	return BBox{
		MinLat: lat - delta, MaxLat: lat + delta,
		MinLon: lon - delta, MaxLon: lon + delta,
	}
}

// StationSource yields catalog stations inside a bounding box.
type StationSource interface {
	WithinBBox(ctx context.Context, box BBox) ([]model.WeatherStation, error)
}

// Ranked pairs a station with its exact distance to the query point.
type Ranked struct {
	Station    model.WeatherStation
	DistanceKM float64
}

// Locator answers nearest-station queries with a bounding-box prefilter.
// The prefilter is a performance optimization, not an approximation: the
// final ranking recomputes exact haversine distance over the filtered set.
type Locator struct {
	src       StationSource
	delta     float64
	wideDelta float64
}

// NewLocator creates a Locator. delta is the initial half-width of the
// bounding box in degrees; wideDelta is the retry width when the first box
// is empty.
func NewLocator(src StationSource, delta, wideDelta float64) *Locator {
	if delta <= 0 {
		delta = 5
	}
	if wideDelta <= delta {
		wideDelta = 15
	}
	return &Locator{src: src, delta: delta, wideDelta: wideDelta}
}

// Nearest returns up to k stations ordered by ascending exact distance from
// (lat, lon). An empty initial box is retried once with the widened delta;
// an empty widened box returns an error since downstream selection has
// nothing to work with.
func (l *Locator) Nearest(ctx context.Context, lat, lon float64, k int) ([]Ranked, error) {
	stations, err := l.src.WithinBBox(ctx, BoxAround(lat, lon, l.delta))
	if err != nil {
		return nil, eris.Wrap(err, "geo: bbox query")
	}
	if len(stations) == 0 {
		stations, err = l.src.WithinBBox(ctx, BoxAround(lat, lon, l.wideDelta))
		if err != nil {
			return nil, eris.Wrap(err, "geo: widened bbox query")
		}
	}
	if len(stations) == 0 {
		return nil, eris.Errorf("geo: no stations within ±%.0f° of (%.4f, %.4f)", l.wideDelta, lat, lon)
	}

	ranked := make([]Ranked, 0, len(stations))
	for _, s := range stations {
		ranked = append(ranked, Ranked{
			Station:    s,
			DistanceKM: Haversine(lat, lon, s.Latitude, s.Longitude),
		})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].DistanceKM < ranked[j].DistanceKM })

	if k > 0 && len(ranked) > k {
		ranked = ranked[:k]
	}
	return ranked, nil
}
