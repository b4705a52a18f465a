// Package config loads subrec configuration from flags, environment
// variables, .env files, and an optional config file, in that order of
// precedence.
package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/centrimetry/subrec/pkg/errors"
	"github.com/centrimetry/subrec/pkg/repair"
)

// Config holds the application configuration.
type Config struct {
	// Input feeds
	SubscribersPath  string
	TransactionsPath string
	Delimiter        string

	// Sinks
	DatabasePath string
	OutputPath   string

	// Repair rules
	Repair repair.Config

	// Logging
	LogLevel  string
	LogFormat string

	// ConfigFile actually used, if any
	ConfigFile string
}

// Load builds the configuration from all sources in order of precedence:
// command-line flags (bound by cobra), environment variables, .env files,
// config file, defaults.
func Load(configFile string) (*Config, error) {
	loadEnvFiles()

	viper.AutomaticEnv()
	viper.SetEnvPrefix("SUBREC")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	setDefaults()

	if configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return nil, errors.NewConfigError("viper", "unable to read config file", err)
		}
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".subrec")
		// A missing default config file is fine.
		_ = viper.ReadInConfig()
	}

	cfg := &Config{
		SubscribersPath:  viper.GetString("subscribers"),
		TransactionsPath: viper.GetString("transactions"),
		Delimiter:        viper.GetString("delimiter"),
		DatabasePath:     viper.GetString("db"),
		OutputPath:       viper.GetString("out"),
		Repair:           repairConfig(),
		LogLevel:         viper.GetString("log-level"),
		LogFormat:        viper.GetString("log-format"),
		ConfigFile:       viper.ConfigFileUsed(),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DelimiterRune returns the feed delimiter as a rune.
func (c *Config) DelimiterRune() rune {
	if c.Delimiter == "" {
		return ','
	}
	return []rune(c.Delimiter)[0]
}

func (c *Config) validate() error {
	if len([]rune(c.Delimiter)) > 1 {
		return errors.NewValidationError("delimiter", c.Delimiter, "must be a single character")
	}
	return nil
}

func setDefaults() {
	viper.SetDefault("delimiter", ",")
	viper.SetDefault("db", "subrec.db")
	viper.SetDefault("out", "unmatched.parquet")
	viper.SetDefault("log-level", "info")
	viper.SetDefault("log-format", "auto")

	defaults := repair.DefaultConfig()
	viper.SetDefault("repair.invalid_amount_marker", defaults.InvalidAmountMarker)
	viper.SetDefault("repair.invalid_channel_marker", defaults.InvalidChannelMarker)
	viper.SetDefault("repair.fallback_channel", defaults.FallbackChannel)
	viper.SetDefault("repair.exclude_repaired_from_mean", defaults.ExcludeRepairedFromMean)
}

// repairConfig assembles the repair rules, preferring configured anomaly
// signatures over the historical defaults.
func repairConfig() repair.Config {
	cfg := repair.Config{
		InvalidAmountMarker:     viper.GetString("repair.invalid_amount_marker"),
		InvalidChannelMarker:    viper.GetString("repair.invalid_channel_marker"),
		FallbackChannel:         viper.GetString("repair.fallback_channel"),
		ExcludeRepairedFromMean: viper.GetBool("repair.exclude_repaired_from_mean"),
	}

	var anomalies []repair.AnomalySignature
	if err := viper.UnmarshalKey("repair.anomalies", &anomalies); err == nil && len(anomalies) > 0 {
		cfg.Anomalies = anomalies
	} else {
		cfg.Anomalies = repair.DefaultConfig().Anomalies
	}
	return cfg
}

// loadEnvFiles loads .env files if present, without overriding variables
// already set in the environment.
func loadEnvFiles() {
	for _, name := range []string{".env", ".env.local"} {
		if _, err := os.Stat(name); err == nil {
			_ = godotenv.Load(name)
		}
	}
}
