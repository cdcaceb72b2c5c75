package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_WritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "tethbox.log")

	logger, err := New(path, false)
	require.NoError(t, err)
	logger.Info("session initialized")
	logger.Debug("hidden at info level")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, "session initialized")
	assert.Contains(t, out, "tethbox")
	assert.NotContains(t, out, "hidden at info level")
}

func TestNew_DebugLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tethbox.log")

	logger, err := New(path, true)
	require.NoError(t, err)
	logger.Debug("poll skipped")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "poll skipped")
}

func TestNew_Appends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tethbox.log")

	for _, msg := range []string{"first run", "second run"} {
		logger, err := New(path, false)
		require.NoError(t, err)
		logger.Info(msg)
		_ = logger.Sync()
	}

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(data), "run"))
}

func TestDefaultPath(t *testing.T) {
	t.Setenv("HOME", "/home/tester")
	assert.Equal(t, filepath.Join("/home/tester", ".config", "tethbox", "tethbox.log"), DefaultPath())
}
