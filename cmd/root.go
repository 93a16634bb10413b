package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/apexloop/circuitweather/internal/config"
	"github.com/apexloop/circuitweather/internal/fetcher"
	"github.com/apexloop/circuitweather/internal/probe"
	"github.com/apexloop/circuitweather/internal/resilience"
	"github.com/apexloop/circuitweather/internal/runner"
)

var cfg *config.Config

// exitCode carries the batch outcome (0 clean, 2 partial failure) past
// cobra's Execute, which only distinguishes error from success.
var exitCode int

var rootCmd = &cobra.Command{
	Use:   "circuitweather",
	Short: "Circuit identity resolution and weather enrichment pipeline",
	Long:  "Matches timing-source circuits to reference circuits, resolves each circuit to a weather station, and enriches lap data with hourly observations.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		if t, _ := cmd.Flags().GetInt("timeout"); t > 0 {
			cfg.Probe.TimeoutSecs = t
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().Int("concurrency", 0, "concurrent work units (0 = config default)")
	rootCmd.PersistentFlags().Int("timeout", 0, "HTTP timeout in seconds (0 = config default)")
	rootCmd.PersistentFlags().Bool("skip-existing", false, "skip units whose output file already exists")
	rootCmd.PersistentFlags().Bool("overwrite", false, "reprocess units even when output exists")
}

// runnerOptions merges the persistent batch flags over the config defaults.
func runnerOptions(cmd *cobra.Command) runner.Options {
	opts := runner.Options{
		Concurrency:  cfg.Runner.Concurrency,
		SkipExisting: cfg.Runner.SkipExisting,
		Overwrite:    cfg.Runner.Overwrite,
	}
	if cmd.Flags().Changed("concurrency") {
		opts.Concurrency, _ = cmd.Flags().GetInt("concurrency")
	}
	if cmd.Flags().Changed("skip-existing") {
		opts.SkipExisting, _ = cmd.Flags().GetBool("skip-existing")
	}
	if cmd.Flags().Changed("overwrite") {
		opts.Overwrite, _ = cmd.Flags().GetBool("overwrite")
	}
	return opts
}

// httpClient builds the shared rate-limited client from probe config.
func httpClient() *fetcher.Client {
	retry := resilience.DefaultRetryConfig()
	retry.MaxAttempts = cfg.Probe.MaxRetries + 1
	return fetcher.New(fetcher.Options{
		UserAgent:  cfg.Probe.UserAgent,
		Timeout:    time.Duration(cfg.Probe.TimeoutSecs) * time.Second,
		RatePerSec: cfg.Probe.RatePerSec,
		Retry:      retry,
	})
}

func newProber() *probe.Prober {
	return probe.New(httpClient(), cfg.Probe.BaseURL)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
	os.Exit(exitCode)
}
