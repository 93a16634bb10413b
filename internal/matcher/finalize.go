package matcher

import (
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/apexloop/circuitweather/internal/model"
)

// Finalize reduces a candidate set to exactly one mapping row per circuit.
// The rank-1 candidate wins unless an override names another rank. An
// override referencing a (circuit, rank) pair absent from the candidate set
// is fatal: it means the override file is stale relative to the candidates.
//
// Chosen mappings with missing latitude/longitude fail when strictLatLon is
// set, otherwise they are logged and shipped anyway.
func Finalize(cands []model.MatchCandidate, overrides []model.MappingOverride, strictLatLon bool) ([]model.CircuitMapping, error) {
	if len(cands) == 0 {
		return nil, eris.New("finalize: empty candidate set")
	}

	byKey := make(map[int]map[int]model.MatchCandidate)
	for _, c := range cands {
		if byKey[c.CircuitID] == nil {
			byKey[c.CircuitID] = make(map[int]model.MatchCandidate)
		}
		byKey[c.CircuitID][c.CandidateRank] = c
	}

	chosenRank := make(map[int]int, len(byKey))
	for id := range byKey {
		chosenRank[id] = 1
	}
	for _, ov := range overrides {
		ranks, ok := byKey[ov.CircuitID]
		if !ok {
			return nil, eris.Errorf("finalize: override refers to unknown circuit_key=%d", ov.CircuitID)
		}
		if _, ok := ranks[ov.ChosenRank]; !ok {
			return nil, eris.Errorf("finalize: override refers to missing candidate: circuit_key=%d rank=%d",
				ov.CircuitID, ov.ChosenRank)
		}
		chosenRank[ov.CircuitID] = ov.ChosenRank
	}

	out := make([]model.CircuitMapping, 0, len(byKey))
	var missingCoord []string
	for id, ranks := range byKey {
		c, ok := ranks[chosenRank[id]]
		if !ok {
			// Rank 1 must exist for every circuit emitted by the matcher.
			return nil, eris.Errorf("finalize: circuit_key=%d has no rank-%d candidate", id, chosenRank[id])
		}
		if c.RefLatitude == nil || c.RefLongitude == nil {
			missingCoord = append(missingCoord, c.SourceShortName)
		}
		out = append(out, model.CircuitMapping{
			CircuitID:       c.CircuitID,
			SourceShortName: c.SourceShortName,
			SourceCountry:   c.SourceCountry,
			SourceLocation:  c.SourceLocation,
			ChosenRank:      c.CandidateRank,
			MatchScore:      c.MatchScore,
			RefCircuitName:  c.RefCircuitName,
			RefCountry:      c.RefCountry,
			RefLocality:     c.RefLocality,
			RefCircuitURL:   c.RefCircuitURL,
			RefLatitude:     c.RefLatitude,
			RefLongitude:    c.RefLongitude,
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].CircuitID < out[j].CircuitID })

	if len(missingCoord) > 0 {
		sort.Strings(missingCoord)
		if strictLatLon {
			return nil, eris.Errorf("finalize: chosen mapping missing latitude/longitude for: %s",
				strings.Join(missingCoord, ", "))
		}
		zap.L().Warn("finalize: chosen mapping missing latitude/longitude",
			zap.Strings("circuits", missingCoord),
		)
	}

	return out, nil
}

// CheckCoverage verifies that every source circuit resolves to exactly one
// mapping row: never zero, never duplicated.
func CheckCoverage(maps []model.CircuitMapping, sources []model.SourceCircuit) error {
	seen := make(map[int]int, len(maps))
	for _, m := range maps {
		seen[m.CircuitID]++
	}
	for _, s := range sources {
		switch n := seen[s.CircuitID]; {
		case n == 0:
			return eris.Errorf("finalize: circuit_key=%d (%s) has no mapping row", s.CircuitID, s.ShortName)
		case n > 1:
			return eris.Errorf("finalize: circuit_key=%d (%s) has %d mapping rows", s.CircuitID, s.ShortName, n)
		}
	}
	return nil
}
