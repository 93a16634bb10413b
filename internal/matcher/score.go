// Package matcher resolves source-system circuits to reference-system
// circuits with weighted fuzzy text matching.
package matcher

import (
	"math"

	"github.com/agext/levenshtein"
)

// Component weights. Circuit name alignment is the most reliable signal;
// locality disambiguates circuits sharing a name fragment; the cross terms
// recover cases where one source encodes the city where the other encodes
// the track name.
const (
	weightNameName         = 0.55
	weightLocationLocality = 0.25
	weightNameLocality     = 0.10
	weightLocationName     = 0.10
)

var levParams = levenshtein.NewParams()

// Ratio returns an edit-distance-derived similarity in [0,1].
// Either side empty scores 0, never errors.
func Ratio(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	return levenshtein.Similarity(a, b, levParams)
}

// Score computes the weighted similarity between a source circuit and a
// reference circuit. All four inputs must already be normalized
// (textnorm.Normalize). The result is bounded to [0,1].
func Score(srcShort, srcLocation, refName, refLocality string) float64 {
	score := weightNameName*Ratio(srcShort, refName) +
		weightLocationLocality*Ratio(srcLocation, refLocality) +
		weightNameLocality*Ratio(srcShort, refLocality) +
		weightLocationName*Ratio(srcLocation, refName)
	return math.Min(1, math.Max(0, score))
}

// roundScore rounds to 4 decimals for the CSV boundary. In-memory ranking
// uses the full float.
func roundScore(s float64) float64 {
	return math.Round(s*10000) / 10000
}
