package e2e

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeLines(t *testing.T, path string, n int) {
	var b strings.Builder
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&b, "line %d\n", i)
	}
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
}

func TestReadLastNLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "game.log")
	writeLines(t, path, 5)

	lines, err := ReadLastNLines(path, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"line 3", "line 4", "line 5"}, lines)

	lines, err = ReadLastNLines(path, 10)
	require.NoError(t, err)
	assert.Len(t, lines, 5)
	assert.Equal(t, "line 1", lines[0])
}

func TestReadLastNLinesMissingFile(t *testing.T) {
	_, err := ReadLastNLines(filepath.Join(t.TempDir(), "nope.log"), 3)
	assert.Error(t, err)
}

func TestWaitForLogFindsLineWrittenLater(t *testing.T) {
	path := filepath.Join(t.TempDir(), "game.log")
	require.NoError(t, os.WriteFile(path, []byte("2026-01-01 00:00:00 INFO UI setup complete\n"), 0o644))

	go func() {
		time.Sleep(100 * time.Millisecond)
		f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return
		}
		defer f.Close()
		f.WriteString("2026-01-01 00:00:01 INFO test-id-button-clicked: main-button\n")
	}()

	assert.NoError(t, WaitForLog(path, "test-id-button-clicked: main-button"))
}

func TestWaitForLogOnlyLooksAtRecentLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "game.log")
	content := "needle\n" + strings.Repeat("hay\n", waitForLogLines)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	err := waitForLog(path, "needle", &backoff.StopBackOff{})
	require.Error(t, err)
}

func TestWaitForLogFailureShowsTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "game.log")
	writeLines(t, path, 20)

	err := waitForLog(path, "never logged", &backoff.StopBackOff{})
	require.Error(t, err)

	var logErr *LogTimeoutError
	require.True(t, errors.As(err, &logErr))
	assert.Equal(t, "never logged", logErr.Text)
	require.Len(t, logErr.Tail, failureContextLines)
	assert.Equal(t, "line 11", logErr.Tail[0])
	assert.Equal(t, "line 20", logErr.Tail[9])
	assert.Contains(t, err.Error(), "line 20")
}
