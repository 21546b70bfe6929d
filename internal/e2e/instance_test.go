package e2e

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestInstanceManager(t *testing.T, binary string, env ...string) *InstanceManager {
	m, err := NewInstanceManager(InstanceManagerOptions{
		Binary:  binary,
		LogsDir: t.TempDir(),
		Env:     env,
		Log:     log.New(os.Stderr),
	})
	require.NoError(t, err)
	t.Cleanup(m.StopAll)
	return m
}

func TestNewInstanceManagerNeedsBinary(t *testing.T) {
	_, err := NewInstanceManager(InstanceManagerOptions{})
	assert.EqualError(t, err, "cannot give empty game binary path")
}

func TestReserveDirIsUniqueWhileHeld(t *testing.T) {
	m := newTestInstanceManager(t, "game")

	// both sanitise to the same 30 rune prefix
	first := m.reserveDir("Clicking the main button spawns a ball")
	second := m.reserveDir("Clicking the main button spawns a red ball twice")
	third := m.reserveDir("Clicking the main button spawns a ball")
	assert.Equal(t, m.ScenarioDir("Clicking the main button spawns a ball"), first)
	assert.Equal(t, first+"-2", second)
	assert.Equal(t, first+"-3", third)

	m.releaseDir(first)
	assert.Equal(t, first, m.reserveDir("Clicking the main button spawns a ball"))
}

func TestCollidingScenariosDoNotShareLogs(t *testing.T) {
	m := newTestInstanceManager(t, fakeGameBinary(t), fakeGameEnv+"=1")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	first, err := m.Start(ctx, "Clicking the main button spawns a ball")
	require.NoError(t, err)
	second, err := m.Start(ctx, "Clicking the main button spawns a red ball twice")
	require.NoError(t, err)

	assert.NotEqual(t, first.Dir, second.Dir)
	assert.NotEqual(t, first.LogFile, second.LogFile)

	// starting the second game must not have emptied the first one's log
	data, err := os.ReadFile(first.LogFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "UI setup complete")

	require.NoError(t, m.Stop(first))
	require.NoError(t, m.Stop(second))
	assert.Equal(t, first.Dir, m.reserveDir("Clicking the main button spawns a ball"))
}

func TestScenarioDirIsSanitized(t *testing.T) {
	m := newTestInstanceManager(t, "game")
	assert.Equal(t, "Click_the_button", filepath.Base(m.ScenarioDir("Click the button!")))
}

func TestStartAndStopInstance(t *testing.T) {
	m := newTestInstanceManager(t, fakeGameBinary(t), fakeGameEnv+"=1")

	// leftovers from an earlier run must not leak into this one
	dir := m.ScenarioDir("Start and stop")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, GameLogName), []byte("old run\n"), 0o644))

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	inst, err := m.Start(ctx, "Start and stop")
	require.NoError(t, err)
	assert.Greater(t, inst.Port, 0)
	assert.False(t, inst.Exited())

	require.NoError(t, m.Stop(inst))
	assert.True(t, inst.Exited())

	data, err := os.ReadFile(inst.LogFile)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "old run")
	assert.Contains(t, string(data), "UI setup complete")
}

func TestStartFailsWhenGameExits(t *testing.T) {
	// without the fake game env the test binary rejects --test-mode and exits
	m := newTestInstanceManager(t, fakeGameBinary(t), "SIMPLE_GAME_E2E_UNUSED=1")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	_, err := m.Start(ctx, "exits early")
	require.Error(t, err)
}

func TestFindAvailablePort(t *testing.T) {
	port, err := findAvailablePort()
	require.NoError(t, err)
	assert.Greater(t, port, 0)
}
