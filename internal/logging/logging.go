// logging writes the game log that the e2e runner asserts on.
//
// Every line goes to the main log file. A second "debug" file sits next to it
// (game.log -> game.debug.log) and gets the same lines, plus debug lines when
// debug logging is enabled.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/pkg/errors"
)

// TimeFormat is the timestamp written at the start of each line
const TimeFormat = "2006-01-02 15:04:05"

type Options struct {
	// File is the main log file, ie. "logs/game.log"
	File string
	// Debug enables debug level lines in the debug log
	Debug bool
	// Stderr mirrors the main log to stderr (used outside of test mode)
	Stderr bool
}

// Logger fans each line out to the main and debug log
type Logger struct {
	main  *log.Logger
	debug *log.Logger

	closers []io.Closer
}

// Setup opens (or creates) the log files and returns a Logger writing to them
func Setup(options Options) (*Logger, error) {
	if options.File == "" {
		return nil, errors.New("cannot give empty log file path")
	}
	if dir := filepath.Dir(options.File); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrapf(err, "unable to create log directory %s", dir)
		}
	}
	mainFile, err := openAppend(options.File)
	if err != nil {
		return nil, err
	}
	debugFile, err := openAppend(DebugFile(options.File))
	if err != nil {
		mainFile.Close()
		return nil, err
	}

	var mainWriter io.Writer = mainFile
	if options.Stderr {
		mainWriter = io.MultiWriter(mainFile, os.Stderr)
	}
	debugLevel := log.InfoLevel
	if options.Debug {
		debugLevel = log.DebugLevel
	}
	logger := New(mainWriter, debugFile, debugLevel)
	logger.closers = []io.Closer{mainFile, debugFile}
	return logger, nil
}

// New creates a logger from writers, the main writer only ever gets info and above
func New(mainWriter, debugWriter io.Writer, debugLevel log.Level) *Logger {
	return &Logger{
		main:  newCharmLogger(mainWriter, log.InfoLevel),
		debug: newCharmLogger(debugWriter, debugLevel),
	}
}

// Discard is a logger that writes nowhere, handy for tests
func Discard() *Logger {
	return New(io.Discard, io.Discard, log.DebugLevel)
}

func newCharmLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      TimeFormat,
		Level:           level,
	})
}

func openAppend(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open log file %s", path)
	}
	return f, nil
}

// DebugFile returns the debug log path for a main log path
func DebugFile(path string) string {
	if strings.HasSuffix(path, ".log") {
		return strings.TrimSuffix(path, ".log") + ".debug.log"
	}
	return path + ".debug"
}

func (l *Logger) Debug(msg interface{}, keyvals ...interface{}) {
	l.debug.Debug(msg, keyvals...)
}

func (l *Logger) Info(msg interface{}, keyvals ...interface{}) {
	l.main.Info(msg, keyvals...)
	l.debug.Info(msg, keyvals...)
}

func (l *Logger) Warn(msg interface{}, keyvals ...interface{}) {
	l.main.Warn(msg, keyvals...)
	l.debug.Warn(msg, keyvals...)
}

func (l *Logger) Error(msg interface{}, keyvals ...interface{}) {
	l.main.Error(msg, keyvals...)
	l.debug.Error(msg, keyvals...)
}

// With returns a logger that adds the key/values to every line
func (l *Logger) With(keyvals ...interface{}) *Logger {
	return &Logger{
		main:  l.main.With(keyvals...),
		debug: l.debug.With(keyvals...),
	}
}

// Close closes the underlying files, if any
func (l *Logger) Close() error {
	var firstErr error
	for _, c := range l.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	l.closers = nil
	return firstErr
}
