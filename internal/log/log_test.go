package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/mmcdole/photure/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("WARNING"))
	assert.Equal(t, slog.LevelError, ParseLevel("Error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}

func TestNewLogger(t *testing.T) {
	t.Run("writes json records at or above level", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(&buf, "WARN")

		logger.Info("dropped")
		logger.Warn("kept", "photoID", "p1")

		var record map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
		assert.Equal(t, "kept", record["msg"])
		assert.Equal(t, "p1", record["photoID"])
	})

	t.Run("redacts credentials", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(&buf, "DEBUG")

		logger.Info("signed in", "refresh_token", "r-123", "Authorization", "Bearer abc", "user", "alice")

		out := buf.String()
		assert.NotContains(t, out, "r-123")
		assert.NotContains(t, out, "Bearer abc")
		assert.Contains(t, out, `"refresh_token":"[redacted]"`)
		assert.Contains(t, out, `"user":"alice"`)
	})
}

func TestSetupLogger(t *testing.T) {
	t.Run("creates the log directory and file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "photure.log")

		logger, err := SetupLogger(&config.LoggingConfig{File: path, Level: "INFO"})
		require.NoError(t, err)
		logger.Info("hello")

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"msg":"hello"`)
	})

	t.Run("rotates an oversized log", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "photure.log")
		old := bytes.Repeat([]byte("x"), 2<<20)
		require.NoError(t, os.WriteFile(path, old, 0600))

		logger, err := SetupLogger(&config.LoggingConfig{File: path, Level: "INFO", MaxSizeMB: 1})
		require.NoError(t, err)
		logger.Info("fresh")

		backup, err := os.ReadFile(path + ".1")
		require.NoError(t, err)
		assert.Len(t, backup, len(old))

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.NotContains(t, string(data), "xxx")
		assert.Contains(t, string(data), `"msg":"fresh"`)
	})

	t.Run("keeps a small log", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "photure.log")
		require.NoError(t, os.WriteFile(path, []byte("previous\n"), 0600))

		_, err := SetupLogger(&config.LoggingConfig{File: path, Level: "INFO", MaxSizeMB: 1})
		require.NoError(t, err)

		assert.NoFileExists(t, path+".1")
	})
}
