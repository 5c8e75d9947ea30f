package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetWriter(&buf)
	t.Cleanup(func() {
		SetWriter(os.Stdout)
		SetLevel("INFO")
		_ = SetFormat("text")
	})
	return &buf
}

func TestSetLevel(t *testing.T) {
	buf := capture(t)

	SetLevel("WARN")
	assert.Equal(t, LevelWarn, GetLevel())

	Info("hidden %d", 1)
	Warn("shown %d", 2)

	assert.NotContains(t, buf.String(), "hidden 1")
	assert.Contains(t, buf.String(), "shown 2")
}

func TestSetLevel_UnknownIgnored(t *testing.T) {
	capture(t)
	SetLevel("debug")
	SetLevel("verbose")
	assert.Equal(t, LevelDebug, GetLevel())
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
		ok   bool
	}{
		{"debug", LevelDebug, true},
		{"INFO", LevelInfo, true},
		{"Warn", LevelWarn, true},
		{"error", LevelError, true},
		{"trace", LevelInfo, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseLevel(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.ok, ok)
		})
	}
}

func TestSetFormat_JSON(t *testing.T) {
	buf := capture(t)
	require.NoError(t, SetFormat("json"))

	Error("boom %s", "here")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "boom here", entry["msg"])
	assert.Equal(t, "error", entry["level"])
}

func TestSetFormat_Unknown(t *testing.T) {
	assert.Error(t, SetFormat("xml"))
}

func TestSetOutput_File(t *testing.T) {
	capture(t)
	path := filepath.Join(t.TempDir(), "dittoiod.log")

	require.NoError(t, SetOutput(path))
	Info("to file")
	require.NoError(t, SetOutput("stdout"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "to file")
}
