package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/apexloop/circuitweather/internal/fetcher"
	"github.com/apexloop/circuitweather/internal/geo"
	"github.com/apexloop/circuitweather/internal/model"
	"github.com/apexloop/circuitweather/internal/runner"
	"github.com/apexloop/circuitweather/internal/stationdb"
	"github.com/apexloop/circuitweather/internal/stations"
)

var stationsCmd = &cobra.Command{
	Use:   "stations",
	Short: "Resolve each circuit to its weather station",
	Long:  "Finds the nearest catalog stations per circuit, probes bulk file availability for the target years, and writes candidates, decisions, and the final circuit-station mapping.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		circuitsPath, _ := cmd.Flags().GetString("circuits")
		dbPath, _ := cmd.Flags().GetString("stations-db")
		outDir, _ := cmd.Flags().GetString("out-dir")
		topN, _ := cmd.Flags().GetInt("top-n")
		years, _ := cmd.Flags().GetIntSlice("years")
		if topN <= 0 {
			topN = cfg.Stations.TopN
		}
		if len(years) == 0 {
			years = cfg.Stations.Years
		}

		if err := fetcher.RequireColumns(circuitsPath, model.ReferenceCircuitColumns...); err != nil {
			return eris.Wrap(err, "stations: check circuits")
		}
		circuits, err := fetcher.ReadTable[model.ReferenceCircuit](circuitsPath)
		if err != nil {
			return eris.Wrap(err, "stations: read circuits")
		}
		if len(circuits) == 0 {
			return eris.Errorf("stations: no circuits in %s", circuitsPath)
		}

		catalog, err := stationdb.Open(dbPath)
		if err != nil {
			return err
		}
		defer catalog.Close() //nolint:errcheck

		opts := runnerOptions(cmd)
		resolver := stations.NewResolver(
			geo.NewLocator(catalog, cfg.Stations.BBoxDeg, cfg.Stations.BBoxWideDeg),
			catalog,
			newProber(),
			stations.Config{TopN: topN, Years: years, Concurrency: opts.Concurrency},
		)

		zap.L().Info("resolving stations",
			zap.Int("n_circuits", len(circuits)),
			zap.Ints("years", years),
			zap.Int("top_n", topN),
		)

		// Circuits are probed sequentially; each circuit fans its candidate
		// probes out under the resolver's own concurrency limit.
		results := make([]*stations.Result, len(circuits))
		units := make([]runner.Unit[stations.Report], len(circuits))
		for i, c := range circuits {
			units[i] = runner.Unit[stations.Report]{
				Key: c.CircuitName,
				Run: func(ctx context.Context) (stations.Report, error) {
					res, err := resolver.Resolve(ctx, c)
					if err != nil {
						return stations.Report{}, err
					}
					results[i] = res
					return stations.Report{
						CircuitID:     res.Decision.CircuitID,
						CircuitName:   c.CircuitName,
						Status:        runner.StatusSucceeded,
						StationID:     res.Decision.StationID,
						StationRank:   res.Decision.StationRank,
						SelectionRule: res.Decision.SelectionRule,
						DistanceKM:    res.Decision.DistanceKM,
						NCandidates:   len(res.Candidates),
						OK:            true,
					}, nil
				},
				Skipped: func() stations.Report {
					return stations.Report{CircuitName: c.CircuitName, Status: runner.StatusSkipped, OK: true}
				},
				Failed: func(err error) stations.Report {
					return stations.Report{CircuitName: c.CircuitName, Status: runner.StatusFailed, Error: err.Error()}
				},
			}
		}

		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return eris.Wrap(err, "stations: create out dir")
		}
		sum, err := runner.Run(ctx, runner.Options{Concurrency: 1}, units,
			filepath.Join(outDir, "report_stations.csv"),
			filepath.Join(outDir, "manifest_stations.json"))
		if err != nil {
			return err
		}

		var cands []model.StationCandidate
		var decisions []model.StationDecision
		var mappings []model.CircuitStationMapping
		for _, res := range results {
			if res == nil {
				continue
			}
			cands = append(cands, res.Candidates...)
			decisions = append(decisions, res.Decision)
			mappings = append(mappings, res.Mapping)
		}

		if err := fetcher.WriteTable(filepath.Join(outDir, "circuit_station_candidates.csv"), cands); err != nil {
			return eris.Wrap(err, "stations: write candidates")
		}
		if err := fetcher.WriteTable(filepath.Join(outDir, "circuit_station_decisions.csv"), decisions); err != nil {
			return eris.Wrap(err, "stations: write decisions")
		}
		if err := fetcher.WriteTable(filepath.Join(outDir, "circuit_station_mapping.csv"), mappings); err != nil {
			return eris.Wrap(err, "stations: write mapping")
		}

		exitCode = sum.ExitCode()
		fmt.Printf("resolved %d/%d circuits (report: %s)\n", sum.NOK, sum.NUnits, sum.Report)
		return nil
	},
}

func init() {
	stationsCmd.Flags().String("circuits", "data/reference/circuits_filtered.csv", "reference circuits CSV")
	stationsCmd.Flags().String("stations-db", "data/meteostat/stations.db", "station catalog SQLite database")
	stationsCmd.Flags().String("out-dir", "data/meteostat/mapping", "output directory")
	stationsCmd.Flags().Int("top-n", 0, "nearest candidates evaluated per circuit (0 = config default)")
	stationsCmd.Flags().IntSlice("years", nil, "target years (default from config)")
	rootCmd.AddCommand(stationsCmd)
}
