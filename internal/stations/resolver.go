// Package stations picks, per circuit, the weather station with the best
// distance/coverage trade-off, constrained by real bulk-file availability.
package stations

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/apexloop/circuitweather/internal/geo"
	"github.com/apexloop/circuitweather/internal/model"
	"github.com/apexloop/circuitweather/internal/probe"
	"github.com/apexloop/circuitweather/internal/textnorm"
)

// NameSource resolves a station id to its display name.
type NameSource interface {
	Name(ctx context.Context, stationID string) (string, error)
}

// Config bounds the resolver's search.
type Config struct {
	TopN        int   // nearest candidates to evaluate per circuit
	Years       []int // target years probed per candidate
	Concurrency int   // concurrent candidate probes
}

// Resolver combines the geo locator with availability probing.
type Resolver struct {
	locator *geo.Locator
	names   NameSource
	prober  *probe.Prober
	cfg     Config
}

// NewResolver creates a Resolver.
func NewResolver(locator *geo.Locator, names NameSource, prober *probe.Prober, cfg Config) *Resolver {
	if cfg.TopN <= 0 {
		cfg.TopN = 10
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	return &Resolver{locator: locator, names: names, prober: prober, cfg: cfg}
}

// Result holds the three per-circuit artifacts: the audit trail of every
// evaluated candidate, the decision record, and the final mapping row.
type Result struct {
	Candidates []model.StationCandidate
	Decision   model.StationDecision
	Mapping    model.CircuitStationMapping
}

// Resolve evaluates the top-K nearest stations for one circuit and selects
// one. Rule 1 (nearest_full_coverage): the first candidate in nearest-first
// order with no missing years. Rule 2 (best_coverage_then_nearest): when no
// candidate has full coverage, sort by (missing years ascending, distance
// ascending) and take the head.
func (r *Resolver) Resolve(ctx context.Context, c model.ReferenceCircuit) (*Result, error) {
	if c.Latitude == nil || c.Longitude == nil {
		return nil, eris.Errorf("stations: circuit %q has no coordinates", c.CircuitName)
	}
	lat, lon := *c.Latitude, *c.Longitude
	circuitID := textnorm.Slug(c.CircuitName, 64)

	ranked, err := r.locator.Nearest(ctx, lat, lon, r.cfg.TopN)
	if err != nil {
		return nil, eris.Wrapf(err, "stations: circuit %q", c.CircuitName)
	}

	cands := make([]model.StationCandidate, len(ranked))
	missing := make([][]int, len(ranked))

	// Candidates are probed concurrently; ranks follow nearest-first order
	// regardless of probe completion order.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Concurrency)
	for i, rk := range ranked {
		g.Go(func() error {
			name, err := r.names.Name(gctx, rk.Station.ID)
			if err != nil {
				return err
			}

			var ok, miss []int
			for _, year := range r.cfg.Years {
				if avail, _ := r.prober.Exists(gctx, rk.Station.ID, year); avail {
					ok = append(ok, year)
				} else {
					miss = append(miss, year)
				}
			}

			missing[i] = miss
			cands[i] = model.StationCandidate{
				CircuitID:        circuitID,
				CircuitName:      c.CircuitName,
				Country:          c.Country,
				Locality:         c.Locality,
				CircuitLat:       lat,
				CircuitLon:       lon,
				StationRank:      i + 1,
				StationID:        rk.Station.ID,
				StationName:      name,
				StationCountry:   rk.Station.Country,
				StationLat:       rk.Station.Latitude,
				StationLon:       rk.Station.Longitude,
				StationElevation: rk.Station.Elevation,
				DistanceKM:       roundKM(rk.DistanceKM),
				YearsAvailable:   joinYears(ok, "|"),
				YearsMissing:     joinYears(miss, "|"),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrapf(err, "stations: probe circuit %q", c.CircuitName)
	}

	chosen, rule := selectCandidate(cands, missing)

	notes := ""
	if cands[chosen].YearsMissing != "" {
		notes = "missing_years=" + strings.ReplaceAll(cands[chosen].YearsMissing, "|", ",")
	}

	zap.L().Info("stations: selected",
		zap.String("circuit", c.CircuitName),
		zap.String("station_id", cands[chosen].StationID),
		zap.Int("rank", chosen+1),
		zap.Float64("distance_km", cands[chosen].DistanceKM),
		zap.String("rule", rule),
		zap.String("years_missing", cands[chosen].YearsMissing),
	)

	return &Result{
		Candidates: cands,
		Decision: model.StationDecision{
			CircuitID:      circuitID,
			CircuitName:    c.CircuitName,
			StationID:      cands[chosen].StationID,
			StationRank:    chosen + 1,
			SelectionRule:  rule,
			DistanceKM:     cands[chosen].DistanceKM,
			YearsAvailable: cands[chosen].YearsAvailable,
			YearsMissing:   cands[chosen].YearsMissing,
		},
		Mapping: model.CircuitStationMapping{
			CircuitID:        circuitID,
			CircuitName:      c.CircuitName,
			CircuitURL:       c.CircuitURL,
			Locality:         c.Locality,
			Country:          c.Country,
			CircuitLat:       lat,
			CircuitLon:       lon,
			StationID:        cands[chosen].StationID,
			StationName:      cands[chosen].StationName,
			StationCountry:   cands[chosen].StationCountry,
			StationLat:       cands[chosen].StationLat,
			StationLon:       cands[chosen].StationLon,
			StationElevation: cands[chosen].StationElevation,
			DistanceKM:       cands[chosen].DistanceKM,
			SelectionRule:    rule,
			CoverageNotes:    notes,
		},
	}, nil
}

// selectCandidate returns the index of the chosen candidate and the rule
// that chose it. cands is in nearest-first order.
func selectCandidate(cands []model.StationCandidate, missing [][]int) (int, string) {
	for i := range cands {
		if len(missing[i]) == 0 {
			return i, model.RuleNearestFullCoverage
		}
	}

	order := make([]int, len(cands))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ia, ib := order[a], order[b]
		if len(missing[ia]) != len(missing[ib]) {
			return len(missing[ia]) < len(missing[ib])
		}
		return cands[ia].DistanceKM < cands[ib].DistanceKM
	})
	return order[0], model.RuleBestCoverageThenNearest
}

func joinYears(years []int, sep string) string {
	parts := make([]string, len(years))
	for i, y := range years {
		parts[i] = fmt.Sprintf("%d", y)
	}
	return strings.Join(parts, sep)
}

func roundKM(d float64) float64 {
	return float64(int(d*1000+0.5)) / 1000
}

// Report is one row of the station resolution stage report.
type Report struct {
	CircuitID     string  `csv:"circuit_id"`
	CircuitName   string  `csv:"circuit_name"`
	Status        string  `csv:"status"`
	StationID     string  `csv:"chosen_station_id"`
	StationRank   int     `csv:"chosen_station_rank"`
	SelectionRule string  `csv:"selection_rule"`
	DistanceKM    float64 `csv:"chosen_distance_km"`
	NCandidates   int     `csv:"n_candidates"`
	OK            bool    `csv:"ok"`
	Error         string  `csv:"error"`
}
