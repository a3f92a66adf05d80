// Package config provides configuration management for the application.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Config is the engine's full configuration, loaded from a TOML file,
// environment variables (PHOTOBACKUP_ prefixed), and flag overrides.
type Config struct {
	Catalog struct {
		Path          string `mapstructure:"path"`
		MigrationMode string `mapstructure:"migration_mode"`
	} `mapstructure:"catalog"`

	Sync struct {
		Concurrency int `mapstructure:"concurrency"`
	} `mapstructure:"sync"`

	Verification struct {
		Concurrency int `mapstructure:"concurrency"`
	} `mapstructure:"verification"`

	Schedule struct {
		Preset           string `mapstructure:"preset"`
		WindowStart      string `mapstructure:"window_start"`
		WindowEnd        string `mapstructure:"window_end"`
		RequiresCharging bool   `mapstructure:"requires_charging"`
	} `mapstructure:"schedule"`

	Log struct {
		Level         string    `mapstructure:"level"`
		Levels        LogLevels `mapstructure:"levels"`
		RetentionDays int       `mapstructure:"retention_days"`
	} `mapstructure:"log"`

	Multipart struct {
		ThresholdBytes int64 `mapstructure:"threshold_bytes"`
		PartSizeBytes  int64 `mapstructure:"part_size_bytes"`
		MaxRetries     int   `mapstructure:"max_retries"`
	} `mapstructure:"multipart"`

	Encryption struct {
		Enabled bool `mapstructure:"enabled"`
	} `mapstructure:"encryption"`

	App struct {
		DataDir     string `mapstructure:"data_dir"`
		Environment string `mapstructure:"environment"`
	} `mapstructure:"app"`
}

// Load reads configuration from cfgFile (a TOML path) plus environment
// overrides, applying defaults for anything unset. An explicit cfgFile
// that does not exist is an error; an empty cfgFile falls back to
// ./config.toml and tolerates it being absent.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("toml")
	}

	v.SetEnvPrefix("PHOTOBACKUP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || cfgFile != "" {
			return nil, fmt.Errorf("config: read: %w", err)
		}
		// Missing default config.toml is fine; defaults carry the run.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(LogLevelsDecodeHook())); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}

	// log.levels arrives via viper as a nested map when TOML parses dotted
	// keys; re-read it through viper.Get to recover the flat form.
	cfg.Log.Levels = flattenLogLevels(v.Get("log.levels"))

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("catalog.path", "photobackup.db")
	v.SetDefault("catalog.migration_mode", "versioned")

	v.SetDefault("sync.concurrency", 3)
	v.SetDefault("verification.concurrency", 5)

	v.SetDefault("schedule.preset", "daily")
	v.SetDefault("schedule.window_start", "01:00")
	v.SetDefault("schedule.window_end", "06:00")
	v.SetDefault("schedule.requires_charging", false)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.retention_days", 14)

	v.SetDefault("multipart.threshold_bytes", 50*1024*1024)
	v.SetDefault("multipart.part_size_bytes", 10*1024*1024)
	v.SetDefault("multipart.max_retries", 3)

	v.SetDefault("encryption.enabled", false)

	v.SetDefault("app.data_dir", "./app_data")
	v.SetDefault("app.environment", "production")
}

// BindFlags binds command-line flags shared by every subcommand.
func BindFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().String("config", "", "config file (default is ./config.toml)")
}
