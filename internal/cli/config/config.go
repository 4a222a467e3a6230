package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/conduit-lang/pipecheck/internal/metadata"
)

// Config represents the pipecheck configuration
type Config struct {
	CompatibilityLevel string       `mapstructure:"compatibility_level"`
	Log                LogConfig    `mapstructure:"log"`
	Output             OutputConfig `mapstructure:"output"`
	Watch              WatchConfig  `mapstructure:"watch"`
}

// LogConfig represents logging configuration
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// OutputConfig represents report output configuration
type OutputConfig struct {
	Format  string `mapstructure:"format"`
	NoColor bool   `mapstructure:"no_color"`
}

// WatchConfig represents watch mode configuration
type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce"`
}

// Output formats
const (
	FormatText = "text"
	FormatJSON = "json"
)

var logLevels = []string{"debug", "info", "warn", "error"}

// Load loads the configuration from pipecheck.yml or pipecheck.yaml in the
// working directory
func Load() (*Config, error) {
	return LoadFrom(".")
}

// LoadFrom loads the configuration from dir. Environment variables with
// the PIPECHECK_ prefix override the file, e.g. PIPECHECK_LOG_LEVEL.
func LoadFrom(dir string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("compatibility_level", metadata.DefaultLevel.String())
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.development", false)
	v.SetDefault("output.format", FormatText)
	v.SetDefault("output.no_color", false)
	v.SetDefault("watch.debounce", 200*time.Millisecond)

	// Set config name and paths
	v.SetConfigName("pipecheck")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)

	// Enable environment variable support
	v.SetEnvPrefix("PIPECHECK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file if it exists
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found - use defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// Level returns the configured compatibility level
func (c *Config) Level() metadata.CompatibilityLevel {
	level, err := metadata.ParseLevel(c.CompatibilityLevel)
	if err != nil {
		return metadata.DefaultLevel
	}
	return level
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	if _, err := metadata.ParseLevel(cfg.CompatibilityLevel); err != nil {
		return fmt.Errorf("compatibility_level: %w", err)
	}

	cfg.Log.Level = strings.ToLower(cfg.Log.Level)
	if !contains(logLevels, cfg.Log.Level) {
		return fmt.Errorf("log.level must be one of %s, got: %s", strings.Join(logLevels, ", "), cfg.Log.Level)
	}

	cfg.Output.Format = strings.ToLower(cfg.Output.Format)
	if cfg.Output.Format != FormatText && cfg.Output.Format != FormatJSON {
		return fmt.Errorf("output.format must be %s or %s, got: %s", FormatText, FormatJSON, cfg.Output.Format)
	}

	if cfg.Watch.Debounce <= 0 {
		return fmt.Errorf("watch.debounce must be positive, got: %s", cfg.Watch.Debounce)
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
