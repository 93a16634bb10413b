package matcher

import (
	"sort"

	"go.uber.org/zap"

	"github.com/apexloop/circuitweather/internal/model"
	"github.com/apexloop/circuitweather/internal/textnorm"
)

// Matcher ranks reference circuits against source circuits. The reference
// set and its country index are built once at construction; Candidates is
// safe for concurrent use.
type Matcher struct {
	refs      []normalizedRef
	byCountry map[string][]normalizedRef
	topN      int
}

type normalizedRef struct {
	ref      model.ReferenceCircuit
	name     string
	locality string
}

// New builds a Matcher over the reference set. topN bounds the candidates
// emitted per source circuit (minimum 1).
func New(refs []model.ReferenceCircuit, topN int) *Matcher {
	if topN < 1 {
		topN = 1
	}
	m := &Matcher{
		refs:      make([]normalizedRef, 0, len(refs)),
		byCountry: make(map[string][]normalizedRef),
		topN:      topN,
	}
	for _, r := range refs {
		nr := normalizedRef{
			ref:      r,
			name:     textnorm.Normalize(r.CircuitName),
			locality: textnorm.Normalize(r.Locality),
		}
		m.refs = append(m.refs, nr)
		country := textnorm.Normalize(r.Country)
		m.byCountry[country] = append(m.byCountry[country], nr)
	}
	return m
}

// Candidates scores the source circuit against the candidate pool and
// returns the top-N as ranked rows. The pool is blocked on normalized
// country; an empty block falls back to the full reference set so a circuit
// never silently matches nothing. Equal scores keep pool order (first-seen
// wins).
func (m *Matcher) Candidates(src model.SourceCircuit) []model.MatchCandidate {
	srcShort := textnorm.Normalize(src.ShortName)
	srcLocation := textnorm.Normalize(src.Location)

	pool := m.byCountry[textnorm.Normalize(src.CountryName)]
	if len(pool) == 0 {
		pool = m.refs
	}

	type scored struct {
		score float64
		ref   model.ReferenceCircuit
	}
	ranked := make([]scored, 0, len(pool))
	for _, r := range pool {
		ranked = append(ranked, scored{
			score: Score(srcShort, srcLocation, r.name, r.locality),
			ref:   r.ref,
		})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	n := m.topN
	if n > len(ranked) {
		n = len(ranked)
	}

	out := make([]model.MatchCandidate, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, model.MatchCandidate{
			CircuitID:       src.CircuitID,
			SourceShortName: src.ShortName,
			SourceCountry:   src.CountryName,
			SourceLocation:  src.Location,
			CandidateRank:   i + 1,
			MatchScore:      roundScore(ranked[i].score),
			RefCircuitName:  ranked[i].ref.CircuitName,
			RefCountry:      ranked[i].ref.Country,
			RefLocality:     ranked[i].ref.Locality,
			RefCircuitURL:   ranked[i].ref.CircuitURL,
			RefLatitude:     ranked[i].ref.Latitude,
			RefLongitude:    ranked[i].ref.Longitude,
		})
	}
	return out
}

// All ranks every source circuit, ordered by (circuit id, rank).
func (m *Matcher) All(srcs []model.SourceCircuit) []model.MatchCandidate {
	var out []model.MatchCandidate
	for _, src := range srcs {
		cands := m.Candidates(src)
		if len(cands) == 0 {
			zap.L().Warn("matcher: no candidates for circuit",
				zap.Int("circuit_key", src.CircuitID),
				zap.String("short_name", src.ShortName),
			)
			continue
		}
		out = append(out, cands...)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CircuitID != out[j].CircuitID {
			return out[i].CircuitID < out[j].CircuitID
		}
		return out[i].CandidateRank < out[j].CandidateRank
	})
	return out
}
