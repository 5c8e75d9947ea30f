package config

import (
	"strings"

	"github.com/marmos91/dittoiod/pkg/group"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// Zero values ("", 0, nil) are replaced with defaults and explicit values
// are preserved. Boolean defaults are registered with viper in setupViper
// instead, since false is a meaningful setting.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyContainerDefaults(&cfg.Container)
	applyGroupsDefaults(&cfg.Groups)
	applyMetricsDefaults(&cfg.Metrics)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

// applyContainerDefaults sets container defaults.
func applyContainerDefaults(cfg *ContainerConfig) {
	if cfg.Name == "" {
		cfg.Name = "default"
	}
	if cfg.Type == "" {
		cfg.Type = "memory"
	}
	if cfg.BootstrapTrans == 0 {
		cfg.BootstrapTrans = 1
	}

	if cfg.Memory == nil {
		cfg.Memory = make(map[string]any)
	}
	if cfg.Badger == nil {
		cfg.Badger = make(map[string]any)
	}

	// Populated for both backends so a generated file documents them
	if _, ok := cfg.Badger["db_path"]; !ok {
		cfg.Badger["db_path"] = "/tmp/dittoiod-container"
	}
}

func applyGroupsDefaults(cfg *GroupsConfig) {
	if cfg.DefaultCreateProps == "" {
		cfg.DefaultCreateProps = string(group.DefaultCreateProps)
	}
}

func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Port == 0 {
		cfg.Port = 9090
	}
}

// GetDefaultConfig returns a Config struct with all default values applied.
//
// This is useful for:
//   - Generating sample configuration files
//   - Testing
func GetDefaultConfig() *Config {
	cfg := &Config{
		Container: ContainerConfig{OpenRetries: 3},
		Integrity: IntegrityConfig{Checksum: true},
	}
	ApplyDefaults(cfg)
	return cfg
}
