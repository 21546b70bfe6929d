package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	c, err := Load(LoadOptions{})
	require.NoError(t, err)

	assert.Equal(t, WindowConfig{Width: 800, Height: 600, Title: "Simple Game"}, c.Window)
	assert.Equal(t, "127.0.0.1", c.Bridge.Host)
	assert.Equal(t, DefaultPort, c.Bridge.Port)
	assert.Equal(t, 2*time.Second, c.Bridge.CommandTimeout)
	assert.Equal(t, 5*time.Second, c.Bridge.ScreenshotTimeout)
	assert.False(t, c.Bridge.WebRTC.Enabled)
	assert.Equal(t, DefaultLogFile, c.Log.File)
	assert.False(t, c.TestMode)
}

func TestLoadTestRunnerEnv(t *testing.T) {
	t.Setenv("TEST_PORT", "9333")
	t.Setenv("TEST_LOG_FILE", "logs/scenario/game.log")
	t.Setenv("TEST_DEBUG", "")

	c, err := Load(LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, 9333, c.Bridge.Port)
	assert.Equal(t, "logs/scenario/game.log", c.Log.File)
	assert.True(t, c.Log.Debug)
}

func TestLoadInvalidPortFallsBack(t *testing.T) {
	for _, port := range []string{"abc", "0", "70000", "-1"} {
		t.Run(port, func(t *testing.T) {
			t.Setenv("TEST_PORT", port)

			c, err := Load(LoadOptions{})
			require.NoError(t, err)
			assert.Equal(t, DefaultPort, c.Bridge.Port)
		})
	}
}

func TestLoadFilePrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "game.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
window:
  title: From File
bridge:
  port: 9444
  command_timeout: 3s
  webrtc:
    enabled: true
    stun_port: 3478
`), 0o644))

	c, err := Load(LoadOptions{ConfigFile: path})
	require.NoError(t, err)
	assert.Equal(t, "From File", c.Window.Title)
	assert.Equal(t, 9444, c.Bridge.Port)
	assert.Equal(t, 3*time.Second, c.Bridge.CommandTimeout)
	assert.Equal(t, WebRTCConfig{Enabled: true, STUNPort: 3478}, c.Bridge.WebRTC)

	// env beats the file
	t.Setenv("TEST_PORT", "9555")
	t.Setenv("SIMPLE_GAME_WINDOW_TITLE", "From Env")
	c, err = Load(LoadOptions{ConfigFile: path})
	require.NoError(t, err)
	assert.Equal(t, 9555, c.Bridge.Port)
	assert.Equal(t, "From Env", c.Window.Title)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(LoadOptions{ConfigFile: filepath.Join(t.TempDir(), "missing.yaml")})
	require.Error(t, err)
}

func TestLoadFlags(t *testing.T) {
	flags := pflag.NewFlagSet("simple-game", pflag.ContinueOnError)
	flags.Bool("test-mode", false, "")
	flags.String("font", "", "")
	require.NoError(t, flags.Parse([]string{"--test-mode", "--font", "/fonts/a.ttf"}))

	c, err := Load(LoadOptions{Flags: flags})
	require.NoError(t, err)
	assert.True(t, c.TestMode)
	assert.Equal(t, "/fonts/a.ttf", c.Font.Path)
}
