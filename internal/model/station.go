package model

// WeatherStation is one row of the station catalog.
type WeatherStation struct {
	ID        string
	Country   string
	Latitude  float64
	Longitude float64
	Elevation *float64
	Name      string
}

// StationCandidate is one evaluated nearest-station candidate for a circuit.
type StationCandidate struct {
	CircuitID        string   `csv:"circuit_id"`
	CircuitName      string   `csv:"circuit_name"`
	Country          string   `csv:"country"`
	Locality         string   `csv:"locality"`
	CircuitLat       float64  `csv:"circuit_lat"`
	CircuitLon       float64  `csv:"circuit_lon"`
	StationRank      int      `csv:"station_rank"`
	StationID        string   `csv:"station_id"`
	StationName      string   `csv:"station_name"`
	StationCountry   string   `csv:"station_country"`
	StationLat       float64  `csv:"station_lat"`
	StationLon       float64  `csv:"station_lon"`
	StationElevation *float64 `csv:"station_elevation"`
	DistanceKM       float64  `csv:"distance_km"`
	YearsAvailable   string   `csv:"years_ok"`
	YearsMissing     string   `csv:"years_missing"`
}

// StationDecision records which candidate was chosen for a circuit and why.
type StationDecision struct {
	CircuitID      string  `csv:"circuit_id"`
	CircuitName    string  `csv:"circuit_name"`
	StationID      string  `csv:"chosen_station_id"`
	StationRank    int     `csv:"chosen_station_rank"`
	SelectionRule  string  `csv:"selection_rule"`
	DistanceKM     float64 `csv:"chosen_distance_km"`
	YearsAvailable string  `csv:"years_ok"`
	YearsMissing   string  `csv:"years_missing"`
}

// Selection rules for the station resolver, evaluated in order.
const (
	RuleNearestFullCoverage     = "nearest_full_coverage"
	RuleBestCoverageThenNearest = "best_coverage_then_nearest"
)

// CircuitStationMapping is the final circuit->station row read by downstream
// stages. Candidates and decisions exist only for auditability.
type CircuitStationMapping struct {
	CircuitID        string   `csv:"circuit_id"`
	CircuitName      string   `csv:"circuit_name"`
	CircuitURL       string   `csv:"circuit_url"`
	Locality         string   `csv:"locality"`
	Country          string   `csv:"country"`
	CircuitLat       float64  `csv:"circuit_lat"`
	CircuitLon       float64  `csv:"circuit_lon"`
	StationID        string   `csv:"station_id"`
	StationName      string   `csv:"station_name"`
	StationCountry   string   `csv:"station_country"`
	StationLat       float64  `csv:"station_lat"`
	StationLon       float64  `csv:"station_lon"`
	StationElevation *float64 `csv:"station_elevation"`
	DistanceKM       float64  `csv:"distance_km"`
	SelectionRule    string   `csv:"selection_rule"`
	CoverageNotes    string   `csv:"coverage_notes"`
}
