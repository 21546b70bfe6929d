package e2e

import (
	"sync"
	"time"
)

// smoothingFactor is how much each new round trip moves the average
const smoothingFactor = 0.10

// LatencyStats summarises bridge command round trips for a scenario
type LatencyStats struct {
	Commands int           `yaml:"commands"`
	Smoothed time.Duration `yaml:"smoothed"`
	Max      time.Duration `yaml:"max"`
}

type latencyTracker struct {
	mu    sync.Mutex
	stats LatencyStats
}

func (t *latencyTracker) Observe(roundTrip time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stats.Commands == 0 {
		t.stats.Smoothed = roundTrip
	} else {
		t.stats.Smoothed = time.Duration(float64(t.stats.Smoothed) + (smoothingFactor * float64(roundTrip-t.stats.Smoothed)))
	}
	if roundTrip > t.stats.Max {
		t.stats.Max = roundTrip
	}
	t.stats.Commands++
}

func (t *latencyTracker) Stats() LatencyStats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stats
}
