package e2e

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const buttonFeature = `Feature: Button
  Scenario: Click the button
    Given the game is running
    When I click the button "main-button"
    Then the log should contain "test-id-button-clicked: main-button"
    And there should be 1 component of type "Ball"

  Scenario: Misspelt test id
    Given the game is running
    When I click the button "main-buton"
`

func TestRunFeature(t *testing.T) {
	dir := t.TempDir()
	featurePath := filepath.Join(dir, "button.feature")
	require.NoError(t, os.WriteFile(featurePath, []byte(buttonFeature), 0o644))
	logsDir := filepath.Join(dir, "logs")

	history, err := OpenHistory(filepath.Join(logsDir, "history.db"))
	require.NoError(t, err)
	defer history.Close()

	var reportOut bytes.Buffer
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	summary, err := Run(ctx, Options{
		Paths:         []string{featurePath},
		Binary:        fakeGameBinary(t),
		LogsDir:       logsDir,
		NoScreenshots: true,
		Output:        io.Discard,
		Env:           []string{fakeGameEnv + "=1"},
		History:       history,
		Reporter:      NewReporter(&reportOut),
		Log:           log.New(io.Discard),
	})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Passed)
	assert.Equal(t, 1, summary.Failed)
	assert.False(t, summary.OK())
	require.Len(t, summary.Scenarios, 2)

	byName := map[string]ScenarioResult{}
	for _, result := range summary.Scenarios {
		byName[result.Scenario] = result
	}
	clicked := byName["Click the button"]
	assert.True(t, clicked.Passed, clicked.Error)
	assert.NotEmpty(t, clicked.ID)

	misspelt := byName["Misspelt test id"]
	assert.False(t, misspelt.Passed)
	assert.Contains(t, misspelt.Error, `did you mean "main-button"?`)
	// failures carry the tail of the game log
	assert.Contains(t, misspelt.Error, "UI setup complete")

	data, err := os.ReadFile(filepath.Join(logsDir, "Click_the_button", GameLogName))
	require.NoError(t, err)
	assert.Contains(t, string(data), "test-id-button-clicked: main-button")

	recorded, err := history.Recent(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, recorded, 2)

	assert.Contains(t, reportOut.String(), "PASS Click the button")
	assert.Contains(t, reportOut.String(), "FAIL Misspelt test id")
}

func TestRunStepsNeedRunningGame(t *testing.T) {
	dir := t.TempDir()
	featurePath := filepath.Join(dir, "broken.feature")
	require.NoError(t, os.WriteFile(featurePath, []byte(`Feature: Broken
  Scenario: Forgot to start
    Then the log should contain "anything"
`), 0o644))

	summary, err := Run(context.Background(), Options{
		Paths:   []string{featurePath},
		Binary:  fakeGameBinary(t),
		LogsDir: filepath.Join(dir, "logs"),
		Output:  io.Discard,
		Log:     log.New(io.Discard),
	})
	require.NoError(t, err)
	require.Len(t, summary.Scenarios, 1)
	assert.False(t, summary.Scenarios[0].Passed)
	assert.Contains(t, summary.Scenarios[0].Error, "the game is not running")
}

func TestRunMissingFeatures(t *testing.T) {
	_, err := Run(context.Background(), Options{
		Paths:  []string{filepath.Join(t.TempDir(), "missing")},
		Binary: fakeGameBinary(t),
		Output: io.Discard,
		Log:    log.New(io.Discard),
	})
	assert.Error(t, err)
}
