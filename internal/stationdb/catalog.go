// Package stationdb reads the weather-station catalog from its SQLite
// distribution: a stations table plus a names side table keyed by station
// and language.
package stationdb

import (
	"context"
	"database/sql"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/apexloop/circuitweather/internal/geo"
	"github.com/apexloop/circuitweather/internal/model"
)

// Catalog is a read-only view over the station database.
type Catalog struct {
	db *sql.DB
}

// Ensure Catalog satisfies the locator's station source.
var _ geo.StationSource = (*Catalog)(nil)

// Open opens the station catalog at the given path.
func Open(path string) (*Catalog, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "stationdb: open")
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, eris.Wrap(err, "stationdb: set busy_timeout")
	}
	return &Catalog{db: db}, nil
}

// Close releases the database handle.
func (c *Catalog) Close() error {
	return c.db.Close()
}

const bboxSQL = `
SELECT id, country, latitude, longitude, elevation
FROM stations
WHERE latitude BETWEEN ? AND ?
  AND longitude BETWEEN ? AND ?`

// WithinBBox returns every station inside the box. Rows with null
// coordinates are excluded by the BETWEEN predicates.
func (c *Catalog) WithinBBox(ctx context.Context, box geo.BBox) ([]model.WeatherStation, error) {
	rows, err := c.db.QueryContext(ctx, bboxSQL, box.MinLat, box.MaxLat, box.MinLon, box.MaxLon)
	if err != nil {
		return nil, eris.Wrap(err, "stationdb: bbox query")
	}
	defer rows.Close() //nolint:errcheck

	var stations []model.WeatherStation
	for rows.Next() {
		var s model.WeatherStation
		var country sql.NullString
		var elevation sql.NullFloat64
		if err := rows.Scan(&s.ID, &country, &s.Latitude, &s.Longitude, &elevation); err != nil {
			return nil, eris.Wrap(err, "stationdb: scan station")
		}
		s.Country = country.String
		if elevation.Valid {
			s.Elevation = &elevation.Float64
		}
		stations = append(stations, s)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "stationdb: iterate stations")
	}
	return stations, nil
}

// Name returns the station's display name, English preferred with any
// language as fallback. A station with no name row yields "" without error.
func (c *Catalog) Name(ctx context.Context, stationID string) (string, error) {
	var name string
	err := c.db.QueryRowContext(ctx,
		"SELECT name FROM names WHERE station = ? AND language = 'en' LIMIT 1", stationID,
	).Scan(&name)
	if err == nil {
		return name, nil
	}
	if err != sql.ErrNoRows {
		return "", eris.Wrap(err, "stationdb: name query")
	}

	err = c.db.QueryRowContext(ctx,
		"SELECT name FROM names WHERE station = ? LIMIT 1", stationID,
	).Scan(&name)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", eris.Wrap(err, "stationdb: name fallback query")
	}
	return name, nil
}
