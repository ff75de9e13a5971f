package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/pbaille/frames/internal/timefmt"
	"github.com/spf13/viper"
)

// Config represents the complete frames configuration
type Config struct {
	// DateFormat is a Go time layout for calendar dates (default: "January 2, 2006")
	DateFormat string `mapstructure:"date_format"`
	// TimeFormat is a Go time layout for times of day (default: "3:04 pm")
	TimeFormat string `mapstructure:"time_format"`
	// DurationFormat is a %-token template, see timefmt.FormatDuration (default: "%h:%I")
	DurationFormat string `mapstructure:"duration_format"`
	// Timezone is the IANA zone reports are displayed in (default: "UTC")
	Timezone string `mapstructure:"timezone"`
	// Database is the path of the SQLite database
	Database string        `mapstructure:"database"`
	Logging  LoggingConfig `mapstructure:"logging"`
}

// LoggingConfig controls debug logging
type LoggingConfig struct {
	// Level is one of debug, info, warn, error (default: "warn")
	Level string `mapstructure:"level"`
	// File receives JSON log lines; empty means stderr
	File string `mapstructure:"file"`
}

// Default returns a Config with default values
func Default() *Config {
	return &Config{
		DateFormat:     timefmt.DefaultDateLayout,
		TimeFormat:     timefmt.DefaultTimeLayout,
		DurationFormat: timefmt.DefaultDurationFormat,
		Timezone:       "UTC",
		Database:       filepath.Join(DataDir(), "frames.db"),
		Logging: LoggingConfig{
			Level: "warn",
		},
	}
}

// SetDefaults registers default values with the global viper instance
func SetDefaults() {
	SetDefaultsOn(viper.GetViper())
}

// SetDefaultsOn registers default values with v
func SetDefaultsOn(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("date_format", defaults.DateFormat)
	v.SetDefault("time_format", defaults.TimeFormat)
	v.SetDefault("duration_format", defaults.DurationFormat)
	v.SetDefault("timezone", defaults.Timezone)
	v.SetDefault("database", defaults.Database)

	v.SetDefault("logging.level", defaults.Logging.Level)
	v.SetDefault("logging.file", defaults.Logging.File)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom reads and validates the configuration held by v
func LoadFrom(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Location returns the display timezone. Validate guarantees it loads.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Formatter builds the display formatter described by the configuration
func (c *Config) Formatter() timefmt.Formatter {
	return timefmt.Formatter{
		Location:       c.Location(),
		DateLayout:     c.DateFormat,
		TimeLayout:     c.TimeFormat,
		DurationFormat: c.DurationFormat,
	}
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "frames")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".frames"
	}
	return filepath.Join(home, ".config", "frames")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// DataDir returns the directory holding the database
func DataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "frames")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".frames"
	}
	return filepath.Join(home, ".local", "share", "frames")
}

// Keys returns the settings that can be changed with `frames settings edit`
func Keys() []string {
	return []string{
		"date_format",
		"time_format",
		"duration_format",
		"timezone",
		"database",
		"logging.level",
		"logging.file",
	}
}
