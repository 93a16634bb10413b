package model

// Required input columns per table. A missing column is a fatal precondition
// failure: commands check these before any processing starts, so a malformed
// input never produces partial output.
var (
	SourceCircuitColumns = []string{
		"circuit_key", "circuit_short_name", "country_name", "location",
	}

	ReferenceCircuitColumns = []string{
		"circuit_name", "locality", "country",
		"latitude", "longitude", "circuit_url",
	}

	MatchCandidateColumns = []string{
		"circuit_key", "source_circuit_short_name", "candidate_rank",
		"match_score", "reference_circuit_name", "reference_circuit_url",
		"reference_latitude", "reference_longitude",
	}

	MappingOverrideColumns = []string{
		"circuit_key", "chosen_candidate_rank",
	}

	CircuitMappingColumns = []string{
		"circuit_key", "reference_circuit_url",
	}

	CircuitStationMappingColumns = []string{
		"circuit_url", "circuit_name", "locality", "country",
		"station_id", "distance_km",
	}

	SessionMetaColumns = []string{
		"session_key", "year", "meeting_key", "session_name", "session_type",
		"date_start", "circuit_key", "circuit_short_name",
		"location", "country_name",
	}

	LapRecordColumns = []string{
		"driver_number", "lap_number", "date_start",
	}

	ContextLapColumns = []string{
		"session_key", "driver_number", "lap_number",
		"lap_hour_utc", "circuit_key",
	}
)
