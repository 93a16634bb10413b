package main

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/apexloop/circuitweather/internal/fetcher"
	"github.com/apexloop/circuitweather/internal/laps"
	"github.com/apexloop/circuitweather/internal/model"
	"github.com/apexloop/circuitweather/internal/runner"
	"github.com/apexloop/circuitweather/internal/weather"
)

var joinCmd = &cobra.Command{
	Use:   "join",
	Short: "Join hourly weather onto enriched laps",
	Long:  "Resolves each session's circuit to its weather station through the two mapping tables, left-joins hourly observations by lap_hour_utc, drops laps with no weather, and writes one file per session.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		lapsDir, _ := cmd.Flags().GetString("laps-dir")
		circuitMapPath, _ := cmd.Flags().GetString("circuit-map")
		stationMapPath, _ := cmd.Flags().GetString("station-map")
		hourlyRoot, _ := cmd.Flags().GetString("hourly-root")
		outDir, _ := cmd.Flags().GetString("out-dir")
		if hourlyRoot == "" {
			hourlyRoot = cfg.Join.HourlyRoot
		}

		if err := fetcher.RequireColumns(circuitMapPath, model.CircuitMappingColumns...); err != nil {
			return eris.Wrap(err, "join: check circuit mapping")
		}
		circuits, err := fetcher.ReadTable[model.CircuitMapping](circuitMapPath)
		if err != nil {
			return eris.Wrap(err, "join: read circuit mapping")
		}
		if err := fetcher.RequireColumns(stationMapPath, model.CircuitStationMappingColumns...); err != nil {
			return eris.Wrap(err, "join: check station mapping")
		}
		stationMaps, err := fetcher.ReadTable[model.CircuitStationMapping](stationMapPath)
		if err != nil {
			return eris.Wrap(err, "join: read station mapping")
		}
		files, err := laps.ListSessionFiles(lapsDir)
		if err != nil {
			return err
		}
		if len(files) == 0 {
			return eris.Errorf("join: no session files under %s", lapsDir)
		}
		for _, f := range files {
			if err := fetcher.RequireColumns(f.Path, model.ContextLapColumns...); err != nil {
				return eris.Wrap(err, "join: check laps")
			}
		}

		joiner := weather.NewJoiner(circuits, stationMaps, weather.NewStore(hourlyRoot))

		zap.L().Info("joining weather",
			zap.Int("n_sessions", len(files)),
			zap.String("hourly_root", hourlyRoot),
		)

		units := make([]runner.Unit[weather.JoinReport], len(files))
		for i, f := range files {
			outPath := filepath.Join(outDir, filepath.Base(f.Path))
			units[i] = runner.Unit[weather.JoinReport]{
				Key:     fmt.Sprintf("session %d", f.SessionID),
				OutPath: outPath,
				Run: func(ctx context.Context) (weather.JoinReport, error) {
					contextLaps, err := fetcher.ReadTable[model.ContextLap](f.Path)
					if err != nil {
						return weather.JoinReport{}, err
					}
					enriched, st, err := joiner.JoinSession(f.SessionID, contextLaps)
					if err != nil {
						return weather.JoinReport{}, err
					}
					if err := fetcher.WriteTable(outPath, enriched); err != nil {
						return weather.JoinReport{}, err
					}
					return weather.JoinReport{
						SessionID:      f.SessionID,
						InputPath:      f.Path,
						OutputPath:     outPath,
						Status:         runner.StatusSucceeded,
						NIn:            len(contextLaps),
						NOut:           len(enriched),
						CircuitID:      st.CircuitID,
						CircuitURL:     st.CircuitURL,
						StationID:      st.StationID,
						MissingWeather: st.MissingWeather,
						OK:             true,
					}, nil
				},
				Skipped: func() weather.JoinReport {
					return weather.JoinReport{
						SessionID:  f.SessionID,
						InputPath:  f.Path,
						OutputPath: outPath,
						Status:     runner.StatusSkipped,
						OK:         true,
					}
				},
				Failed: func(err error) weather.JoinReport {
					return weather.JoinReport{
						SessionID: f.SessionID,
						InputPath: f.Path,
						Status:    runner.StatusFailed,
						Error:     err.Error(),
					}
				},
			}
		}

		sum, err := runner.Run(ctx, runnerOptions(cmd), units,
			filepath.Join(outDir, "report_weather_join.csv"),
			filepath.Join(outDir, "manifest_weather_join.json"))
		if err != nil {
			return err
		}

		exitCode = sum.ExitCode()
		fmt.Printf("joined %d/%d sessions (%d skipped, report: %s)\n",
			sum.NOK, sum.NUnits, sum.NSkipped, sum.Report)
		return nil
	},
}

func init() {
	joinCmd.Flags().String("laps-dir", "data/transform/laps_with_context_by_session", "context laps directory")
	joinCmd.Flags().String("circuit-map", "data/matching/circuit_mapping.csv", "finalized circuit mapping CSV")
	joinCmd.Flags().String("station-map", "data/meteostat/mapping/circuit_station_mapping.csv", "circuit-station mapping CSV")
	joinCmd.Flags().String("hourly-root", "", "extracted hourly weather root (default from config)")
	joinCmd.Flags().String("out-dir", "data/transform/laps_with_weather_by_session", "output directory")
	rootCmd.AddCommand(joinCmd)
}
