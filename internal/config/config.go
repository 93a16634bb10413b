// Package config loads application configuration from file and environment
// and initializes the global logger.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Match    MatchConfig    `yaml:"match" mapstructure:"match"`
	Stations StationsConfig `yaml:"stations" mapstructure:"stations"`
	Probe    ProbeConfig    `yaml:"probe" mapstructure:"probe"`
	Hourly   HourlyConfig   `yaml:"hourly" mapstructure:"hourly"`
	Join     JoinConfig     `yaml:"join" mapstructure:"join"`
	Runner   RunnerConfig   `yaml:"runner" mapstructure:"runner"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// MatchConfig configures circuit candidate matching and mapping finalization.
type MatchConfig struct {
	TopN               int  `yaml:"top_n" mapstructure:"top_n"`
	FailOnMissingCoord bool `yaml:"fail_on_missing_latlon" mapstructure:"fail_on_missing_latlon"`
}

// StationsConfig configures nearest-station resolution.
type StationsConfig struct {
	TopN        int     `yaml:"top_n" mapstructure:"top_n"`
	BBoxDeg     float64 `yaml:"bbox_deg" mapstructure:"bbox_deg"`
	BBoxWideDeg float64 `yaml:"bbox_wide_deg" mapstructure:"bbox_wide_deg"`
	Years       []int   `yaml:"years" mapstructure:"years"`
}

// ProbeConfig configures remote availability probing.
type ProbeConfig struct {
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries  int     `yaml:"max_retries" mapstructure:"max_retries"`
	RatePerSec  float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	UserAgent   string  `yaml:"user_agent" mapstructure:"user_agent"`
}

// HourlyConfig configures the bulk hourly weather downloader.
type HourlyConfig struct {
	RawDir   string `yaml:"raw_dir" mapstructure:"raw_dir"`
	OutDir   string `yaml:"out_dir" mapstructure:"out_dir"`
	PurgeRaw bool   `yaml:"purge_raw" mapstructure:"purge_raw"`
}

// JoinConfig configures the per-session weather join.
type JoinConfig struct {
	HourlyRoot string `yaml:"hourly_root" mapstructure:"hourly_root"`
}

// RunnerConfig configures per-unit pipeline execution.
type RunnerConfig struct {
	Concurrency  int  `yaml:"concurrency" mapstructure:"concurrency"`
	SkipExisting bool `yaml:"skip_existing" mapstructure:"skip_existing"`
	Overwrite    bool `yaml:"overwrite" mapstructure:"overwrite"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("CIRCUITWEATHER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("match.top_n", 5)
	v.SetDefault("match.fail_on_missing_latlon", false)
	v.SetDefault("stations.top_n", 10)
	v.SetDefault("stations.bbox_deg", 5.0)
	v.SetDefault("stations.bbox_wide_deg", 15.0)
	v.SetDefault("stations.years", []int{2023, 2024, 2025})
	v.SetDefault("probe.base_url", "https://data.meteostat.net")
	v.SetDefault("probe.timeout_secs", 20)
	v.SetDefault("probe.max_retries", 3)
	v.SetDefault("probe.rate_per_sec", 4.0)
	v.SetDefault("probe.user_agent", "circuitweather/1.0")
	v.SetDefault("hourly.purge_raw", false)
	v.SetDefault("runner.concurrency", 4)
	v.SetDefault("runner.skip_existing", false)
	v.SetDefault("runner.overwrite", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
