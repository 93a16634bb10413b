// Package weather reads extracted hourly observations and joins them onto
// context laps by UTC hour bucket.
package weather

import (
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/rotisserie/eris"

	"github.com/apexloop/circuitweather/internal/fetcher"
	"github.com/apexloop/circuitweather/internal/model"
)

// Store locates and reads per-station yearly hourly files laid out as
// <root>/<station_id>__<slug>/<year>.csv.
type Store struct {
	root string
}

// NewStore creates a Store over the extracted hourly tree.
func NewStore(root string) *Store {
	return &Store{root: root}
}

// StationDir returns the hourly folder for a station. The folder name embeds
// a human-readable slug after the station id, so it is located by prefix.
func (s *Store) StationDir(stationID string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(s.root, stationID+"__*"))
	if err != nil {
		return "", eris.Wrapf(err, "weather: glob station %s", stationID)
	}
	if len(matches) == 0 {
		return "", eris.Errorf("weather: no hourly folder for station %s under %s", stationID, s.root)
	}
	sort.Strings(matches)
	return matches[0], nil
}

// LoadYear reads one station-year of hourly observations.
func (s *Store) LoadYear(stationID string, year int) ([]model.HourlyRow, error) {
	dir, err := s.StationDir(stationID)
	if err != nil {
		return nil, err
	}
	path := filepath.Join(dir, fmt.Sprintf("%d.csv", year))
	rows, err := fetcher.ReadTable[model.HourlyRow](path)
	if err != nil {
		return nil, eris.Wrapf(err, "weather: station %s year %d", stationID, year)
	}
	return rows, nil
}

// LoadIndex reads the given station-years and indexes observations by hour
// bucket. Duplicate buckets keep the first row seen.
func (s *Store) LoadIndex(stationID string, years []int) (map[time.Time]model.Observation, error) {
	idx := make(map[time.Time]model.Observation)
	for _, year := range years {
		rows, err := s.LoadYear(stationID, year)
		if err != nil {
			return nil, err
		}
		for _, r := range rows {
			b := r.Bucket()
			if _, ok := idx[b]; !ok {
				idx[b] = r.Values()
			}
		}
	}
	return idx, nil
}
