package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohankatakam/pagegraph/internal/config"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    logrus.Level
		wantErr bool
	}{
		{"debug", logrus.DebugLevel, false},
		{"", logrus.InfoLevel, false},
		{"INFO", logrus.InfoLevel, false},
		{"warn", logrus.WarnLevel, false},
		{"warning", logrus.WarnLevel, false},
		{"error", logrus.ErrorLevel, false},
		{"trace", logrus.InfoLevel, true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLevel(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNew_WritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "pagegraph.log")
	l, err := New(config.LogConfig{Level: "debug", JSON: true, File: path})
	require.NoError(t, err)

	l.WithField("request_id", "abc").Debug("Resolving query")
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(string(data))), &entry))
	assert.Equal(t, "Resolving query", entry["msg"])
	assert.Equal(t, "abc", entry["request_id"])
	assert.Equal(t, "debug", entry["level"])
}

func TestNew_RejectsUnknownLevel(t *testing.T) {
	_, err := New(config.LogConfig{Level: "loud"})
	assert.Error(t, err)
}

func TestRotateIfNeeded(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pagegraph.log")
	write := func(name, content string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}

	write("pagegraph.log", "current log")
	write("pagegraph.log.1", "older")

	t.Run("small file is kept", func(t *testing.T) {
		require.NoError(t, rotateIfNeeded(path, 1024, 2))
		assert.FileExists(t, path)
	})

	t.Run("large file is shifted", func(t *testing.T) {
		require.NoError(t, rotateIfNeeded(path, 4, 2))
		assert.NoFileExists(t, path)

		first, err := os.ReadFile(path + ".1")
		require.NoError(t, err)
		assert.Equal(t, "current log", string(first))

		second, err := os.ReadFile(path + ".2")
		require.NoError(t, err)
		assert.Equal(t, "older", string(second))
	})

	t.Run("missing file", func(t *testing.T) {
		assert.NoError(t, rotateIfNeeded(filepath.Join(dir, "absent.log"), 4, 2))
	})

	t.Run("no backups removes the file", func(t *testing.T) {
		write("pagegraph.log", "current log")
		require.NoError(t, rotateIfNeeded(path, 4, 0))
		assert.NoFileExists(t, path)
	})
}
