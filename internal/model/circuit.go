// Package model defines the typed rows exchanged between pipeline stages.
// Every flat table read or written by the pipeline has a struct here with
// explicit csv column bindings.
package model

// SourceCircuit is one circuit as known by the timing source.
type SourceCircuit struct {
	CircuitID   int    `csv:"circuit_key"`
	ShortName   string `csv:"circuit_short_name"`
	CountryName string `csv:"country_name"`
	Location    string `csv:"location"`
}

// ReferenceCircuit is one circuit scraped from the reference encyclopedia.
type ReferenceCircuit struct {
	CircuitName string   `csv:"circuit_name"`
	Locality    string   `csv:"locality"`
	Country     string   `csv:"country"`
	Latitude    *float64 `csv:"latitude"`
	Longitude   *float64 `csv:"longitude"`
	CircuitURL  string   `csv:"circuit_url"`
}

// MatchCandidate is one ranked candidate pairing for a source circuit.
// Regenerated on every matcher run.
type MatchCandidate struct {
	CircuitID       int      `csv:"circuit_key"`
	SourceShortName string   `csv:"source_circuit_short_name"`
	SourceCountry   string   `csv:"source_country_name"`
	SourceLocation  string   `csv:"source_location"`
	CandidateRank   int      `csv:"candidate_rank"`
	MatchScore      float64  `csv:"match_score"`
	RefCircuitName  string   `csv:"reference_circuit_name"`
	RefCountry      string   `csv:"reference_country"`
	RefLocality     string   `csv:"reference_locality"`
	RefCircuitURL   string   `csv:"reference_circuit_url"`
	RefLatitude     *float64 `csv:"reference_latitude"`
	RefLongitude    *float64 `csv:"reference_longitude"`
}

// CircuitMapping is the single authoritative source->reference row per circuit.
type CircuitMapping struct {
	CircuitID       int      `csv:"circuit_key"`
	SourceShortName string   `csv:"source_circuit_short_name"`
	SourceCountry   string   `csv:"source_country_name"`
	SourceLocation  string   `csv:"source_location"`
	ChosenRank      int      `csv:"candidate_rank"`
	MatchScore      float64  `csv:"match_score"`
	RefCircuitName  string   `csv:"reference_circuit_name"`
	RefCountry      string   `csv:"reference_country"`
	RefLocality     string   `csv:"reference_locality"`
	RefCircuitURL   string   `csv:"reference_circuit_url"`
	RefLatitude     *float64 `csv:"reference_latitude"`
	RefLongitude    *float64 `csv:"reference_longitude"`
}

// MappingOverride replaces the default rank-1 pick for one circuit.
type MappingOverride struct {
	CircuitID  int `csv:"circuit_key"`
	ChosenRank int `csv:"chosen_candidate_rank"`
}
