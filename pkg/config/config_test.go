package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/marmos91/dittoiod/pkg/group"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

func TestLoad_DefaultConfig(t *testing.T) {
	path := writeConfig(t, `
logging:
  level: "info"

container:
  name: "main"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected normalized level 'INFO', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Expected default format 'text', got %q", cfg.Logging.Format)
	}
	if cfg.Container.Name != "main" {
		t.Errorf("Expected container name 'main', got %q", cfg.Container.Name)
	}
	if cfg.Container.Type != "memory" {
		t.Errorf("Expected default container type 'memory', got %q", cfg.Container.Type)
	}
	if !cfg.Integrity.Checksum {
		t.Errorf("Expected checksums enabled by default")
	}
	if cfg.Container.OpenRetries != 3 {
		t.Errorf("Expected default open_retries 3, got %d", cfg.Container.OpenRetries)
	}
}

func TestLoad_NoConfigFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "default", cfg.Container.Name)
	assert.Equal(t, uint64(1), cfg.Container.BootstrapTrans)
	assert.Equal(t, string(group.DefaultCreateProps), cfg.Groups.DefaultCreateProps)
	assert.Equal(t, 9090, cfg.Metrics.Port)
	assert.False(t, cfg.Metrics.Enabled)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "logging: [unclosed\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, `
logging:
  level: "INFO"
container:
  type: "memory"
`)
	t.Setenv("DITTOIOD_LOGGING_LEVEL", "debug")
	t.Setenv("DITTOIOD_INTEGRITY_CHECKSUM", "false")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "DEBUG", cfg.Logging.Level)
	assert.False(t, cfg.Integrity.Checksum)
	assert.Equal(t, group.ChecksumNone, cfg.Integrity.Scope())
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown container type", "container:\n  type: \"s3\"\n"},
		{"unknown log level", "logging:\n  level: \"LOUD\"\n"},
		{"unknown log format", "logging:\n  format: \"xml\"\n"},
		{"negative concurrency", "engine:\n  concurrency: -1\n"},
		{"metrics port out of range", "metrics:\n  port: 70000\n"},
		{"badger without path", "container:\n  type: \"badger\"\n  badger:\n    db_path: \"\"\n"},
		{"burst without rate", "engine:\n  burst: 4\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestIntegrityScope(t *testing.T) {
	assert.Equal(t, group.ChecksumStore, IntegrityConfig{Checksum: true}.Scope())
	assert.True(t, group.PolicyFromScope(IntegrityConfig{Checksum: true}.Scope()).Enabled())
	assert.False(t, group.PolicyFromScope(IntegrityConfig{}.Scope()).Enabled())
}

func TestGetDefaultConfig_Validates(t *testing.T) {
	cfg := GetDefaultConfig()
	require.NoError(t, Validate(cfg))
	assert.True(t, cfg.Integrity.Checksum)
	assert.Equal(t, "/tmp/dittoiod-container", cfg.Container.Badger["db_path"])
}

func TestInitConfigToPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, InitConfigToPath(path, false))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	for _, section := range []string{"# dittoiod configuration file", "logging:", "container:", "integrity:", "groups:", "engine:", "metrics:"} {
		assert.Contains(t, string(data), section)
	}

	assert.Error(t, InitConfigToPath(path, false))
	assert.NoError(t, InitConfigToPath(path, true))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, GetDefaultConfig(), cfg)
}

func TestInitConfig_DefaultLocation(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	path, err := InitConfig(false)
	require.NoError(t, err)
	assert.Equal(t, GetDefaultConfigPath(), path)
	assert.True(t, ConfigExists())
}
