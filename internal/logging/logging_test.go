package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	for name, want := range map[string]slog.Level{
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		"":      slog.LevelWarn,
		"error": slog.LevelError,
	} {
		got, err := ParseLevel(name)
		require.NoError(t, err)
		assert.Equal(t, want, got, name)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Level: "info", JSON: true, Writer: &buf})
	require.NoError(t, err)

	l.Debug("hidden")
	l.Info("job queued", "job_id", "c123")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "job queued", rec["msg"])
	assert.Equal(t, "c123", rec["job_id"])
	assert.NoError(t, l.Close())
}

func TestNew_LogDir(t *testing.T) {
	dir := t.TempDir()
	var buf bytes.Buffer
	l, err := New(Config{Writer: &buf, LogDir: dir})
	require.NoError(t, err)

	l.With("run", "r1").Debug("state transition", "to", "polling")
	require.NoError(t, l.Close())

	assert.Empty(t, buf.String())
	files, err := filepath.Glob(filepath.Join(dir, "blitzbar_*.log"))
	require.NoError(t, err)
	require.Len(t, files, 1)
	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), `"run":"r1"`)
	assert.Contains(t, string(data), `"to":"polling"`)
}

func TestDiscard(t *testing.T) {
	assert.NotPanics(t, func() { Discard().Error("nothing") })
}
