package e2e

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/cucumber/godog"
	"github.com/pkg/errors"
)

const DefaultFeaturesDir = "features"

type Options struct {
	// Paths are feature files or directories, defaults to "features"
	Paths []string
	// Binary is the game executable to spawn per scenario
	Binary string
	// LogsDir defaults to DefaultLogsDir
	LogsDir string
	// Transport is TransportWebSocket (default) or TransportWebRTC
	Transport string
	// Tags filters scenarios, ie. "@smoke && ~@slow"
	Tags string
	// Concurrency is how many scenarios run at once, defaults to 1
	Concurrency int
	// NoScreenshots skips the per step screenshots
	NoScreenshots bool
	// Output receives godog's own formatter output, defaults to stdout
	Output io.Writer
	// Env is added to each game's environment
	Env []string

	// History is optional, every scenario result is recorded in it
	History  *History
	Reporter *Reporter
	Log      *log.Logger
}

type runner struct {
	options   Options
	log       *log.Logger
	instances *InstanceManager

	mu      sync.Mutex
	summary Summary
}

// Run executes the feature files against fresh game processes. The returned
// error is only for problems running the suite, check Summary.OK for failures.
func Run(ctx context.Context, options Options) (Summary, error) {
	if len(options.Paths) == 0 {
		options.Paths = []string{DefaultFeaturesDir}
	}
	if options.Concurrency <= 0 {
		options.Concurrency = 1
	}
	if options.Output == nil {
		options.Output = os.Stdout
	}
	logger := options.Log
	if logger == nil {
		logger = log.New(os.Stderr)
	}

	env := append([]string(nil), options.Env...)
	if options.Transport == TransportWebRTC {
		env = append(env, "SIMPLE_GAME_BRIDGE_WEBRTC_ENABLED=true")
	}
	instances, err := NewInstanceManager(InstanceManagerOptions{
		Binary:  options.Binary,
		LogsDir: options.LogsDir,
		Env:     env,
		Log:     logger,
	})
	if err != nil {
		return Summary{}, err
	}
	r := &runner{
		options:   options,
		log:       logger,
		instances: instances,
		summary: Summary{
			StartedAt: time.Now(),
		},
	}

	// godog has no way to cancel a run, so stop the games under it instead
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			instances.StopAll()
		case <-stop:
		}
	}()

	format := "pretty"
	if options.Concurrency > 1 {
		format = "progress"
	}
	status := godog.TestSuite{
		Name:                "simple-game",
		ScenarioInitializer: r.initializeScenario,
		Options: &godog.Options{
			Format:         format,
			Paths:          options.Paths,
			Tags:           options.Tags,
			Concurrency:    options.Concurrency,
			Output:         options.Output,
			Strict:         true,
			DefaultContext: ctx,
		},
	}.Run()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.summary.Duration = time.Since(r.summary.StartedAt)
	if status == 2 {
		return r.summary, errors.Errorf("unable to run features in %v", options.Paths)
	}
	if status != 0 && r.summary.OK() {
		// ie. undefined steps, which never reach a scenario After hook as a failure
		r.summary.Failed++
	}
	if ctx.Err() != nil {
		return r.summary, errors.Wrap(ctx.Err(), "run interrupted")
	}
	return r.summary, nil
}

func (r *runner) initializeScenario(sc *godog.ScenarioContext) {
	s := &scenario{runner: r}
	s.register(sc)
}

func (r *runner) record(result ScenarioResult) {
	if r.options.History != nil {
		recorded, err := r.options.History.Record(context.Background(), result)
		if err != nil {
			r.log.Error("unable to record scenario", "scenario", result.Scenario, "err", err)
		}
		result = recorded
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.summary.Add(result)
	if r.options.Reporter != nil {
		r.options.Reporter.Scenario(result)
	}
}
