package e2e

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
)

const (
	// waitForLogLines is how far back WaitForLog looks
	waitForLogLines = 100
	// failureContextLines are shown when WaitForLog gives up
	failureContextLines = 10
)

// ReadLastNLines returns up to the last n lines of the file, oldest first
func ReadLastNLines(path string, n int) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open log %s", path)
	}
	defer f.Close()

	if n <= 0 {
		return nil, nil
	}
	ring := make([]string, 0, n)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if len(ring) == n {
			copy(ring, ring[1:])
			ring = ring[:n-1]
		}
		ring = append(ring, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "unable to read log %s", path)
	}
	return ring, nil
}

// WaitForLog polls the tail of the log until a line contains text, giving
// up after 3 seconds with the last few lines in the error.
func WaitForLog(path, text string) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.MaxInterval = 500 * time.Millisecond
	b.MaxElapsedTime = 3 * time.Second
	return waitForLog(path, text, b)
}

func waitForLog(path, text string, b backoff.BackOff) error {
	err := backoff.Retry(func() error {
		lines, err := ReadLastNLines(path, waitForLogLines)
		if err != nil {
			return err
		}
		for _, line := range lines {
			if strings.Contains(line, text) {
				return nil
			}
		}
		return errors.Errorf("log does not contain %q", text)
	}, b)
	if err == nil {
		return nil
	}
	lines, readErr := ReadLastNLines(path, failureContextLines)
	if readErr != nil {
		return errors.Wrapf(err, "unable to read log for context: %v", readErr)
	}
	return &LogTimeoutError{Text: text, Tail: lines}
}

// LogTimeoutError is returned when WaitForLog gives up, Tail holds the last
// lines of the log at that point.
type LogTimeoutError struct {
	Text string
	Tail []string
}

func (e *LogTimeoutError) Error() string {
	return fmt.Sprintf("expected log to contain %q, last %d lines:\n%s", e.Text, len(e.Tail), strings.Join(e.Tail, "\n"))
}
