package e2e

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/cucumber/godog"
	"github.com/pkg/errors"

	"github.com/silbinarywolf/simple-game/internal/bridge"
)

// commandTimeout bounds a single round trip to the game
const commandTimeout = 10 * time.Second

var errGameNotRunning = errors.New("the game is not running, add the step: Given the game is running")

// scenario is the state shared by the steps of one scenario
type scenario struct {
	runner *runner

	name      string
	feature   string
	startedAt time.Time
	step      int

	inst   *Instance
	client *Client
}

func (s *scenario) register(sc *godog.ScenarioContext) {
	sc.Before(func(ctx context.Context, pickle *godog.Scenario) (context.Context, error) {
		s.name = pickle.Name
		s.feature = pickle.Uri
		s.startedAt = time.Now()
		return ctx, nil
	})
	sc.StepContext().Before(func(ctx context.Context, st *godog.Step) (context.Context, error) {
		s.step++
		return ctx, nil
	})
	sc.After(func(ctx context.Context, pickle *godog.Scenario, err error) (context.Context, error) {
		s.finish(err)
		return ctx, nil
	})

	sc.Step(`^the game is running$`, s.theGameIsRunning)
	sc.Step(`^I click the button "([^"]*)"$`, s.iClickTheButton)
	sc.Step(`^I hover over the button "([^"]*)"$`, s.iHoverOverTheButton)
	sc.Step(`^the log should contain "([^"]*)"$`, s.theLogShouldContain)
	sc.Step(`^there should be (\d+) components? of type "([^"]*)"$`, s.thereShouldBeComponents)
}

func (s *scenario) theGameIsRunning(ctx context.Context) error {
	if s.inst == nil {
		inst, err := s.runner.instances.Start(ctx, s.name)
		if err != nil {
			return err
		}
		s.inst = inst
	}
	if s.client == nil {
		connectCtx, cancel := context.WithTimeout(ctx, commandTimeout)
		defer cancel()
		client, err := Connect(connectCtx, s.inst, s.runner.options.Transport)
		if err != nil {
			return err
		}
		s.client = client
	}
	return s.screenshot(ctx, "game_started")
}

func (s *scenario) iClickTheButton(ctx context.Context, testID string) error {
	if s.client == nil {
		return errGameNotRunning
	}
	bounds, err := s.locate(ctx, testID)
	if err != nil {
		return err
	}
	if err := s.hover(ctx, bounds.CenterX, bounds.CenterY); err != nil {
		return err
	}
	if err := s.screenshot(ctx, "hover_"+testID); err != nil {
		return err
	}
	cmdCtx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()
	if err := s.client.Click(cmdCtx, bounds.CenterX, bounds.CenterY); err != nil {
		return err
	}
	return s.screenshot(ctx, "clicked_"+testID)
}

func (s *scenario) iHoverOverTheButton(ctx context.Context, testID string) error {
	if s.client == nil {
		return errGameNotRunning
	}
	bounds, err := s.locate(ctx, testID)
	if err != nil {
		return err
	}
	if err := s.hover(ctx, bounds.CenterX, bounds.CenterY); err != nil {
		return err
	}
	return s.screenshot(ctx, "hover_"+testID)
}

func (s *scenario) theLogShouldContain(ctx context.Context, text string) error {
	if s.inst == nil {
		return errGameNotRunning
	}
	return WaitForLog(s.inst.LogFile, text)
}

func (s *scenario) thereShouldBeComponents(ctx context.Context, expected int, componentType string) error {
	if s.client == nil {
		return errGameNotRunning
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.MaxInterval = 500 * time.Millisecond
	b.MaxElapsedTime = 3 * time.Second

	return backoff.Retry(func() error {
		cmdCtx, cancel := context.WithTimeout(ctx, commandTimeout)
		defer cancel()
		counts, err := s.client.QueryComponents(cmdCtx)
		if err != nil {
			return backoff.Permanent(err)
		}
		if got := counts[componentType]; got != expected {
			return errors.Errorf("expected %d components of type %q, got %d (all counts: %v)", expected, componentType, got, counts)
		}
		return nil
	}, backoff.WithContext(b, ctx))
}

func (s *scenario) locate(ctx context.Context, testID string) (bridge.Bounds, error) {
	cmdCtx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()
	return s.client.Locate(cmdCtx, testID)
}

func (s *scenario) hover(ctx context.Context, x, y float32) error {
	cmdCtx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()
	return s.client.Hover(cmdCtx, x, y)
}

// screenshot saves to <scenario dir>/step_NN_<label>.png
func (s *scenario) screenshot(ctx context.Context, label string) error {
	if s.runner.options.NoScreenshots {
		return nil
	}
	path := filepath.Join(s.inst.Dir, fmt.Sprintf("step_%02d_%s.png", s.step, SanitizeName(label)))
	cmdCtx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()
	return s.client.Screenshot(cmdCtx, path)
}

// finish tears down the game and records how the scenario went
func (s *scenario) finish(err error) {
	result := ScenarioResult{
		Feature:   s.feature,
		Scenario:  s.name,
		Passed:    err == nil,
		StartedAt: s.startedAt,
		Duration:  time.Since(s.startedAt),
	}
	if err != nil {
		result.Error = err.Error()
		var logErr *LogTimeoutError
		if s.inst != nil && !errors.As(err, &logErr) {
			if tail, tailErr := ReadLastNLines(s.inst.LogFile, failureContextLines); tailErr == nil && len(tail) > 0 {
				result.Error += fmt.Sprintf("\nlast %d lines of %s:\n%s", len(tail), s.inst.LogFile, strings.Join(tail, "\n"))
			}
		}
	}
	if s.client != nil {
		result.Latency = s.client.Latency()
		if closeErr := s.client.Close(); closeErr != nil {
			s.runner.log.Debug("unable to close client", "scenario", s.name, "err", closeErr)
		}
		s.client = nil
	}
	if s.inst != nil {
		result.Dir = s.inst.Dir
		if stopErr := s.runner.instances.Stop(s.inst); stopErr != nil {
			s.runner.log.Error("unable to stop game", "scenario", s.name, "err", stopErr)
		}
		s.inst = nil
	}
	s.runner.record(result)
}
