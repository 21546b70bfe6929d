package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDebugFile(t *testing.T) {
	assert.Equal(t, "logs/game.debug.log", DebugFile("logs/game.log"))
	assert.Equal(t, "logs/game.txt.debug", DebugFile("logs/game.txt"))
}

func TestDebugLinesOnlyReachDebugWriter(t *testing.T) {
	var mainBuf, debugBuf bytes.Buffer
	logger := New(&mainBuf, &debugBuf, log.DebugLevel)

	logger.Info("test-id-button-clicked: main-button")
	logger.Debug("pointer moved", "x", 1)

	assert.Contains(t, mainBuf.String(), "test-id-button-clicked: main-button")
	assert.NotContains(t, mainBuf.String(), "pointer moved")
	assert.Contains(t, debugBuf.String(), "test-id-button-clicked: main-button")
	assert.Contains(t, debugBuf.String(), "pointer moved")
}

func TestDebugLevelDisabled(t *testing.T) {
	var mainBuf, debugBuf bytes.Buffer
	logger := New(&mainBuf, &debugBuf, log.InfoLevel)

	logger.Debug("pointer moved")
	logger.Warn("font missing")

	assert.NotContains(t, debugBuf.String(), "pointer moved")
	assert.Contains(t, debugBuf.String(), "font missing")
	assert.Contains(t, mainBuf.String(), "font missing")
}

func TestSetupCreatesBothFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scenario", "game.log")

	logger, err := Setup(Options{File: path})
	require.NoError(t, err)
	logger.Info("game starting")
	require.NoError(t, logger.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "game starting")

	data, err = os.ReadFile(filepath.Join(dir, "scenario", "game.debug.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "game starting")
}

func TestSetupAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "game.log")
	require.NoError(t, os.WriteFile(path, []byte("existing line\n"), 0o644))

	logger, err := Setup(Options{File: path})
	require.NoError(t, err)
	logger.With("step", 2).Info("screenshot requested")
	require.NoError(t, logger.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "existing line\n")
	assert.Contains(t, string(data), "screenshot requested")
	assert.Contains(t, string(data), "step=2")
}

func TestSetupRejectsEmptyPath(t *testing.T) {
	_, err := Setup(Options{})
	assert.Error(t, err)
}
