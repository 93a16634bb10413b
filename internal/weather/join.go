package weather

import (
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/apexloop/circuitweather/internal/model"
)

// Joiner resolves a session's laps to their weather station through the two
// mapping tables and left-joins hourly observations by hour bucket.
type Joiner struct {
	circuitByKey map[int]model.CircuitMapping
	stationByURL map[string]model.CircuitStationMapping
	store        *Store
}

// NewJoiner builds a Joiner from the finalized circuit mapping and the
// circuit-station mapping. Duplicate keys keep the first row.
func NewJoiner(circuits []model.CircuitMapping, stations []model.CircuitStationMapping, store *Store) *Joiner {
	byKey := make(map[int]model.CircuitMapping, len(circuits))
	for _, c := range circuits {
		if _, ok := byKey[c.CircuitID]; !ok {
			byKey[c.CircuitID] = c
		}
	}
	byURL := make(map[string]model.CircuitStationMapping, len(stations))
	for _, s := range stations {
		if _, ok := byURL[s.CircuitURL]; !ok {
			byURL[s.CircuitURL] = s
		}
	}
	return &Joiner{circuitByKey: byKey, stationByURL: byURL, store: store}
}

// Stats describes what one session's join produced.
type Stats struct {
	CircuitID      int
	CircuitURL     string
	StationID      string
	MissingWeather int // laps dropped because no hourly row matched
}

// JoinSession enriches one session's context laps with hourly weather.
// The station is resolved from the laps' circuit key via the reference
// circuit URL; a session whose circuit is absent from either mapping fails.
// Laps whose hour bucket matches no observation, or whose observation is
// entirely null, are dropped and counted.
func (j *Joiner) JoinSession(sessionID int, contextLaps []model.ContextLap) ([]model.EnrichedLap, Stats, error) {
	var st Stats
	if len(contextLaps) == 0 {
		return nil, st, eris.Errorf("weather: session %d has no laps", sessionID)
	}

	circuitKey := contextLaps[0].CircuitID
	cm, ok := j.circuitByKey[circuitKey]
	if !ok {
		return nil, st, eris.Errorf("weather: session %d: circuit_key=%d not in circuit mapping", sessionID, circuitKey)
	}
	sm, ok := j.stationByURL[cm.RefCircuitURL]
	if !ok {
		return nil, st, eris.Errorf("weather: session %d: circuit_url=%q not in station mapping", sessionID, cm.RefCircuitURL)
	}
	st.CircuitID = circuitKey
	st.CircuitURL = cm.RefCircuitURL
	st.StationID = sm.StationID

	years := bucketYears(contextLaps)
	if len(years) == 0 {
		return nil, st, eris.Errorf("weather: session %d: no lap has an hour bucket", sessionID)
	}

	idx, err := j.store.LoadIndex(sm.StationID, years)
	if err != nil {
		return nil, st, err
	}

	out := make([]model.EnrichedLap, 0, len(contextLaps))
	for _, lap := range contextLaps {
		var obs model.Observation
		if lap.HourBucket != nil {
			obs = idx[lap.HourBucket.UTC()]
		}
		if obs.Empty() {
			st.MissingWeather++
			continue
		}
		out = append(out, model.EnrichedLap{
			ContextLap:    lap,
			Observation:   obs,
			StationID:     sm.StationID,
			RefCircuitURL: cm.RefCircuitURL,
		})
	}

	zap.L().Debug("weather: joined session",
		zap.Int("session_key", sessionID),
		zap.String("station_id", sm.StationID),
		zap.Int("n_in", len(contextLaps)),
		zap.Int("n_out", len(out)),
		zap.Int("n_missing_weather", st.MissingWeather),
	)
	return out, st, nil
}

// bucketYears returns the distinct UTC years covered by the laps' hour
// buckets, ascending.
func bucketYears(contextLaps []model.ContextLap) []int {
	seen := make(map[int]struct{})
	for _, lap := range contextLaps {
		if lap.HourBucket != nil {
			seen[lap.HourBucket.UTC().Year()] = struct{}{}
		}
	}
	years := make([]int, 0, len(seen))
	for y := range seen {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}

// JoinReport is one row of the weather join stage report.
type JoinReport struct {
	SessionID      int    `csv:"session_key"`
	InputPath      string `csv:"input_path"`
	OutputPath     string `csv:"output_path"`
	Status         string `csv:"status"`
	NIn            int    `csv:"n_in"`
	NOut           int    `csv:"n_out"`
	CircuitID      int    `csv:"circuit_key"`
	CircuitURL     string `csv:"reference_circuit_url"`
	StationID      string `csv:"station_id"`
	MissingWeather int    `csv:"n_missing_weather"`
	OK             bool   `csv:"ok"`
	Error          string `csv:"error"`
}
