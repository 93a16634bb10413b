package main

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/apexloop/circuitweather/internal/fetcher"
	"github.com/apexloop/circuitweather/internal/hourly"
	"github.com/apexloop/circuitweather/internal/model"
	"github.com/apexloop/circuitweather/internal/probe"
	"github.com/apexloop/circuitweather/internal/runner"
	"github.com/apexloop/circuitweather/internal/textnorm"
)

var fetchHourlyCmd = &cobra.Command{
	Use:   "fetch-hourly",
	Short: "Download bulk hourly weather files per station and year",
	Long:  "Downloads the yearly .csv.gz bulk files for every mapped station, unpacks them into the per-station folder layout, and reports per station-year.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		mappingPath, _ := cmd.Flags().GetString("mapping")
		rawDir, _ := cmd.Flags().GetString("raw-dir")
		outDir, _ := cmd.Flags().GetString("out-dir")
		years, _ := cmd.Flags().GetIntSlice("years")
		deleteRaw, _ := cmd.Flags().GetBool("delete-raw")
		purgeRaw, _ := cmd.Flags().GetBool("purge-raw")
		if rawDir == "" {
			rawDir = cfg.Hourly.RawDir
		}
		if outDir == "" {
			outDir = cfg.Hourly.OutDir
		}
		if len(years) == 0 {
			years = cfg.Stations.Years
		}
		if !cmd.Flags().Changed("purge-raw") {
			purgeRaw = cfg.Hourly.PurgeRaw
		}

		if err := fetcher.RequireColumns(mappingPath, model.CircuitStationMappingColumns...); err != nil {
			return eris.Wrap(err, "fetch-hourly: check mapping")
		}
		mappings, err := fetcher.ReadTable[model.CircuitStationMapping](mappingPath)
		if err != nil {
			return eris.Wrap(err, "fetch-hourly: read mapping")
		}
		if len(mappings) == 0 {
			return eris.Errorf("fetch-hourly: no rows in %s", mappingPath)
		}

		client := httpClient()
		dl := hourly.NewDownloader(client, probe.New(client, cfg.Probe.BaseURL), rawDir, outDir, !deleteRaw)

		aliases := hourly.FolderAliases(mappings, textnorm.Slug)
		stationIDs := make([]string, 0, len(aliases))
		for id := range aliases {
			stationIDs = append(stationIDs, id)
		}
		sort.Strings(stationIDs)

		zap.L().Info("fetching hourly bulk files",
			zap.Int("n_stations", len(stationIDs)),
			zap.Ints("years", years),
			zap.String("out_dir", outDir),
		)

		var units []runner.Unit[hourly.Result]
		for _, id := range stationIDs {
			folder := aliases[id]
			for _, year := range years {
				units = append(units, runner.Unit[hourly.Result]{
					Key:     fmt.Sprintf("%s/%d", id, year),
					OutPath: dl.OutPath(folder, year),
					Run: func(ctx context.Context) (hourly.Result, error) {
						return dl.Fetch(ctx, id, folder, year)
					},
					Skipped: func() hourly.Result {
						return hourly.Result{
							StationID:     id,
							StationFolder: folder,
							Year:          year,
							Status:        "SKIP",
							OutCSV:        dl.OutPath(folder, year),
						}
					},
					Failed: func(err error) hourly.Result {
						return hourly.Result{
							StationID:     id,
							StationFolder: folder,
							Year:          year,
							Status:        "ERROR",
							Error:         err.Error(),
						}
					},
				})
			}
		}

		opts := runnerOptions(cmd)
		sum, err := runner.Run(ctx, opts, units,
			filepath.Join(outDir, "report_hourly_download.csv"),
			filepath.Join(outDir, "manifest_hourly_download.json"))
		if err != nil {
			return err
		}

		if purgeRaw {
			files, dirs := dl.PurgeRaw()
			zap.L().Info("purged raw archives", zap.Int("files", files), zap.Int("dirs", dirs))
		}

		exitCode = sum.ExitCode()
		fmt.Printf("downloaded %d/%d station-years (%d skipped, report: %s)\n",
			sum.NOK, sum.NUnits, sum.NSkipped, sum.Report)
		return nil
	},
}

func init() {
	fetchHourlyCmd.Flags().String("mapping", "data/meteostat/mapping/circuit_station_mapping.csv", "circuit-station mapping CSV")
	fetchHourlyCmd.Flags().String("raw-dir", "", "raw .csv.gz directory (default from config)")
	fetchHourlyCmd.Flags().String("out-dir", "", "extracted CSV directory (default from config)")
	fetchHourlyCmd.Flags().IntSlice("years", nil, "years to download (default from config)")
	fetchHourlyCmd.Flags().Bool("delete-raw", false, "delete each .csv.gz archive after unpacking")
	fetchHourlyCmd.Flags().Bool("purge-raw", false, "delete leftover archives and empty raw dirs at end of run")
	rootCmd.AddCommand(fetchHourlyCmd)
}
