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
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Attach session context and hour buckets to per-session laps",
	Long:  "Joins each laps_session_<key>.csv with the sessions scope table, derives lap_hour_utc, and writes one enriched file per session.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		lapsDir, _ := cmd.Flags().GetString("laps-dir")
		scopePath, _ := cmd.Flags().GetString("scope")
		outDir, _ := cmd.Flags().GetString("out-dir")

		if err := fetcher.RequireColumns(scopePath, model.SessionMetaColumns...); err != nil {
			return eris.Wrap(err, "enrich: check scope")
		}
		scope, err := laps.LoadScope(scopePath)
		if err != nil {
			return err
		}
		files, err := laps.ListSessionFiles(lapsDir)
		if err != nil {
			return err
		}
		if len(files) == 0 {
			return eris.Errorf("enrich: no session files under %s", lapsDir)
		}
		for _, f := range files {
			if err := fetcher.RequireColumns(f.Path, model.LapRecordColumns...); err != nil {
				return eris.Wrap(err, "enrich: check laps")
			}
		}

		zap.L().Info("enriching sessions",
			zap.Int("n_sessions", len(files)),
			zap.Int("n_scope", scope.Len()),
		)

		units := make([]runner.Unit[laps.ContextReport], len(files))
		for i, f := range files {
			outPath := filepath.Join(outDir, filepath.Base(f.Path))
			units[i] = runner.Unit[laps.ContextReport]{
				Key:     fmt.Sprintf("session %d", f.SessionID),
				OutPath: outPath,
				Run: func(ctx context.Context) (laps.ContextReport, error) {
					records, err := fetcher.ReadTable[model.LapRecord](f.Path)
					if err != nil {
						return laps.ContextReport{}, err
					}
					enriched, st := laps.Enrich(f.SessionID, records, scope)
					if err := fetcher.WriteTable(outPath, enriched); err != nil {
						return laps.ContextReport{}, err
					}
					return laps.ContextReport{
						SessionID:        f.SessionID,
						InputPath:        f.Path,
						OutputPath:       outPath,
						Status:           runner.StatusSucceeded,
						NIn:              len(records),
						NOut:             len(enriched),
						MissingMeta:      st.MissingMeta,
						MissingDateStart: st.MissingDateStart,
						OK:               true,
					}, nil
				},
				Skipped: func() laps.ContextReport {
					return laps.ContextReport{
						SessionID:  f.SessionID,
						InputPath:  f.Path,
						OutputPath: outPath,
						Status:     runner.StatusSkipped,
						OK:         true,
					}
				},
				Failed: func(err error) laps.ContextReport {
					return laps.ContextReport{
						SessionID: f.SessionID,
						InputPath: f.Path,
						Status:    runner.StatusFailed,
						Error:     err.Error(),
					}
				},
			}
		}

		sum, err := runner.Run(ctx, runnerOptions(cmd), units,
			filepath.Join(outDir, "report_laps_context.csv"),
			filepath.Join(outDir, "manifest_context.json"))
		if err != nil {
			return err
		}

		exitCode = sum.ExitCode()
		fmt.Printf("enriched %d/%d sessions (%d skipped, report: %s)\n",
			sum.NOK, sum.NUnits, sum.NSkipped, sum.Report)
		return nil
	},
}

func init() {
	enrichCmd.Flags().String("laps-dir", "data/transform/laps_clean_by_session", "cleaned per-session laps directory")
	enrichCmd.Flags().String("scope", "data/transform/sessions_scope.csv", "sessions scope CSV")
	enrichCmd.Flags().String("out-dir", "data/transform/laps_with_context_by_session", "output directory")
	rootCmd.AddCommand(enrichCmd)
}
