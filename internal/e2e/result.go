package e2e

import "time"

// ScenarioResult is the outcome of one scenario run
type ScenarioResult struct {
	ID        string        `yaml:"id"`
	Feature   string        `yaml:"feature"`
	Scenario  string        `yaml:"scenario"`
	Passed    bool          `yaml:"passed"`
	StartedAt time.Time     `yaml:"started_at"`
	Duration  time.Duration `yaml:"duration"`
	Error     string        `yaml:"error,omitempty"`
	Latency   LatencyStats  `yaml:"latency"`
	// Dir holds the game log and screenshots
	Dir string `yaml:"dir,omitempty"`
}

type Summary struct {
	StartedAt time.Time        `yaml:"started_at"`
	Duration  time.Duration    `yaml:"duration"`
	Passed    int              `yaml:"passed"`
	Failed    int              `yaml:"failed"`
	Scenarios []ScenarioResult `yaml:"scenarios"`
}

func (s *Summary) Add(result ScenarioResult) {
	if result.Passed {
		s.Passed++
	} else {
		s.Failed++
	}
	s.Scenarios = append(s.Scenarios, result)
}

func (s *Summary) OK() bool {
	return s.Failed == 0
}
