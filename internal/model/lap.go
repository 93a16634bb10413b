package model

import "time"

// LapRecord is one raw driver-lap as delivered by the timing source.
type LapRecord struct {
	SessionID    int        `csv:"session_key"`
	DriverNumber int        `csv:"driver_number"`
	LapNumber    int        `csv:"lap_number"`
	LapDuration  *float64   `csv:"lap_duration"`
	Sector1      *float64   `csv:"duration_sector_1"`
	Sector2      *float64   `csv:"duration_sector_2"`
	Sector3      *float64   `csv:"duration_sector_3"`
	SpeedI1      *float64   `csv:"i1_speed"`
	SpeedI2      *float64   `csv:"i2_speed"`
	SpeedST      *float64   `csv:"st_speed"`
	DateStart    *time.Time `csv:"date_start"`
}

// SessionMeta is one row of the sessions scope table.
type SessionMeta struct {
	SessionID        int        `csv:"session_key"`
	Year             int        `csv:"year"`
	MeetingKey       int        `csv:"meeting_key"`
	SessionName      string     `csv:"session_name"`
	SessionType      string     `csv:"session_type"`
	DateStart        *time.Time `csv:"date_start"`
	DateEnd          *time.Time `csv:"date_end"`
	CircuitID        int        `csv:"circuit_key"`
	CircuitShortName string     `csv:"circuit_short_name"`
	Location         string     `csv:"location"`
	CountryName      string     `csv:"country_name"`
}

// ContextLap is a lap with session context attached and the hour bucket
// derived from its start timestamp.
type ContextLap struct {
	LapRecord
	HourBucket       *time.Time `csv:"lap_hour_utc"`
	Year             int        `csv:"year"`
	MeetingKey       int        `csv:"meeting_key"`
	SessionName      string     `csv:"session_name"`
	SessionType      string     `csv:"session_type"`
	CircuitID        int        `csv:"circuit_key"`
	CircuitShortName string     `csv:"circuit_short_name"`
	Location         string     `csv:"location"`
	CountryName      string     `csv:"country_name"`
}

// HourlyRow is one row of a per-station-per-year bulk weather file.
type HourlyRow struct {
	Year          int      `csv:"year"`
	Month         int      `csv:"month"`
	Day           int      `csv:"day"`
	Hour          int      `csv:"hour"`
	Temp          *float64 `csv:"temp"`
	Humidity      *float64 `csv:"rhum"`
	Pressure      *float64 `csv:"pres"`
	WindSpeed     *float64 `csv:"wspd"`
	WindDir       *float64 `csv:"wdir"`
	Precipitation *float64 `csv:"prcp"`
	CloudCover    *float64 `csv:"cldc"`
}

// Bucket returns the UTC hour this row observes.
func (h HourlyRow) Bucket() time.Time {
	return time.Date(h.Year, time.Month(h.Month), h.Day, h.Hour, 0, 0, 0, time.UTC)
}

// Observation is the weather portion of an enriched lap. All fields are
// nullable; a lap whose observation is entirely null is dropped by the join.
type Observation struct {
	Temp          *float64 `csv:"temp"`
	Humidity      *float64 `csv:"rhum"`
	Pressure      *float64 `csv:"pres"`
	WindSpeed     *float64 `csv:"wspd"`
	WindDir       *float64 `csv:"wdir"`
	Precipitation *float64 `csv:"prcp"`
	CloudCover    *float64 `csv:"cldc"`
}

// Empty reports whether every weather field is null.
func (o Observation) Empty() bool {
	return o.Temp == nil && o.Humidity == nil && o.Pressure == nil &&
		o.WindSpeed == nil && o.WindDir == nil && o.Precipitation == nil &&
		o.CloudCover == nil
}

// Values returns the observation carried by this row.
func (h HourlyRow) Values() Observation {
	return Observation{
		Temp:          h.Temp,
		Humidity:      h.Humidity,
		Pressure:      h.Pressure,
		WindSpeed:     h.WindSpeed,
		WindDir:       h.WindDir,
		Precipitation: h.Precipitation,
		CloudCover:    h.CloudCover,
	}
}

// EnrichedLap is a context lap joined with hourly weather and stamped with
// its provenance.
type EnrichedLap struct {
	ContextLap
	Observation
	StationID     string `csv:"station_id"`
	RefCircuitURL string `csv:"reference_circuit_url"`
}
