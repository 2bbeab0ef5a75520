// Package config holds the app wide settings that are unmarshalled from
// viper (flags, BQTOOLS_* environment variables and an optional file).
package config

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. BQTOOLS_THREADS.
const EnvPrefix = "BQTOOLS"

// Settings are the options shared by every command.
type Settings struct {
	// worker count; 0 means one per CPU
	Threads int `mapstructure:"threads"`

	// debug, info, warn or error
	LogLevel string `mapstructure:"log-level"`

	// only errors are logged
	Quiet bool `mapstructure:"quiet"`

	// records per container block written by encode
	BatchSize int `mapstructure:"batch-size"`

	// zstd level 1-4 used by encode
	Level int `mapstructure:"level"`
}

// New returns a viper instance with the defaults and environment binding
// in place. Flags are bound by the caller.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("threads", 0)
	v.SetDefault("log-level", "info")
	v.SetDefault("quiet", false)
	v.SetDefault("batch-size", 8192)
	v.SetDefault("level", 2)
	return v
}

// Load reads the optional config file and unmarshals the merged settings.
func Load(v *viper.Viper, file string) (Settings, error) {
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Settings{}, fmt.Errorf("config %s: %w", file, err)
		}
	}
	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("config: %w", err)
	}
	return s, s.Validate()
}

// Validate rejects settings no command can run with.
func (s Settings) Validate() error {
	if s.Threads < 0 {
		return fmt.Errorf("threads must be >= 0, got %d", s.Threads)
	}
	if s.BatchSize < 1 {
		return fmt.Errorf("batch-size must be >= 1, got %d", s.BatchSize)
	}
	if s.Level < 1 || s.Level > 4 {
		return fmt.Errorf("level must be 1-4, got %d", s.Level)
	}
	if _, err := log.ParseLevel(s.LogLevel); err != nil {
		return fmt.Errorf("log-level: %w", err)
	}
	return nil
}
