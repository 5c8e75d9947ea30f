package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/marmos91/dittoiod/pkg/engine"
	"github.com/marmos91/dittoiod/pkg/group"
	"github.com/spf13/viper"
)

// Config represents the complete dittoiod configuration.
//
// Configuration sources (in order of precedence):
//  1. Environment variables (DITTOIOD_*)
//  2. Configuration file (YAML)
//  3. Default values
//
// Container Configuration Pattern:
// Each container backend defines its own configuration type. The Container
// section carries one map per backend (container.memory, container.badger)
// and only the map matching container.type is decoded.
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Container selects and configures the object container groups live in
	Container ContainerConfig `mapstructure:"container" yaml:"container"`

	// Integrity controls checksumming of group scratch pads
	Integrity IntegrityConfig `mapstructure:"integrity" yaml:"integrity"`

	// Groups holds defaults applied to group requests
	Groups GroupsConfig `mapstructure:"groups" yaml:"groups"`

	// Engine bounds how requests are dispatched
	Engine engine.Config `mapstructure:"engine" yaml:"engine"`

	// Metrics configures Prometheus collection
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" yaml:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" yaml:"format" validate:"required,oneof=text json"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" yaml:"output" validate:"required"`
}

// ContainerConfig specifies the object container.
type ContainerConfig struct {
	// Name identifies the container in the registry, logs and metrics
	Name string `mapstructure:"name" yaml:"name" validate:"required"`

	// Type specifies which backend to use
	// Valid values: memory, badger
	Type string `mapstructure:"type" yaml:"type" validate:"required,oneof=memory badger"`

	// BootstrapTrans is the transaction the root group is created under
	// when the container is empty
	BootstrapTrans uint64 `mapstructure:"bootstrap_trans" yaml:"bootstrap_trans" validate:"gt=0"`

	// OpenRetries is how many times opening a persistent backend is retried
	// while another process still holds it
	OpenRetries uint64 `mapstructure:"open_retries" yaml:"open_retries" validate:"lte=20"`

	// Memory contains memory-specific configuration
	// Only used when Type = "memory"
	Memory map[string]any `mapstructure:"memory" yaml:"memory"`

	// Badger contains BadgerDB-specific configuration
	// Only used when Type = "badger"
	Badger map[string]any `mapstructure:"badger" yaml:"badger"`
}

// IntegrityConfig controls checksum generation and verification.
type IntegrityConfig struct {
	// Checksum enables checksums on stored scratch pads
	Checksum bool `mapstructure:"checksum" yaml:"checksum"`
}

// Scope returns the checksum scope requests are issued with.
func (c IntegrityConfig) Scope() group.ChecksumScope {
	if c.Checksum {
		return group.ChecksumStore
	}
	return group.ChecksumNone
}

// GroupsConfig holds group request defaults.
type GroupsConfig struct {
	// DefaultCreateProps is stored for groups created without explicit
	// creation properties
	DefaultCreateProps string `mapstructure:"default_create_props" yaml:"default_create_props" validate:"required"`
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Port for the /metrics endpoint
	Port int `mapstructure:"port" yaml:"port" validate:"omitempty,min=1,max=65535"`
}

// Load loads configuration from file, environment, and defaults.
//
// Parameters:
//   - configPath: Path to config file (empty string uses default location)
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: Configuration loading or validation error
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath string) {
	// Example: DITTOIOD_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("DITTOIOD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Booleans cannot be defaulted after unmarshalling, their zero value is
	// a valid setting. Registering the keys also lets AutomaticEnv see them.
	v.SetDefault("integrity.checksum", true)
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("container.open_retries", 3)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists.
func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		// An explicit path that does not exist is treated like a missing
		// default file
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	return nil
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to current
// directory (.) if home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "dittoiod")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "dittoiod")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// ConfigExists checks if a config file exists at the default location.
func ConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// GetConfigDir returns the configuration directory path.
func GetConfigDir() string {
	return getConfigDir()
}
