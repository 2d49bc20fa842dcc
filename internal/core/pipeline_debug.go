// internal/core/pipeline_debug.go
// Per-cycle timing for debug runs
package core

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultDebugWindow is the number of cycles summarised per debug log line.
const DefaultDebugWindow = 100

// CycleTiming is how long each stage of one cycle took.
type CycleTiming struct {
	Read      time.Duration
	Transform time.Duration
	Sinks     time.Duration
	Captured  bool
	Err       error
}

// PipelineDebugger aggregates cycle timings and logs a summary every window
// cycles at debug level.
type PipelineDebugger struct {
	logger *logrus.Logger
	window int

	mu             sync.Mutex
	cycles         int
	total          int
	skipped        int
	failed         int
	readTimes      []time.Duration
	transformTimes []time.Duration
	sinkTimes      []time.Duration
	last           map[string]interface{}
}

func NewPipelineDebugger(logger *logrus.Logger, window int) *PipelineDebugger {
	if window <= 0 {
		window = DefaultDebugWindow
	}
	return &PipelineDebugger{
		logger:         logger,
		window:         window,
		readTimes:      make([]time.Duration, 0, window),
		transformTimes: make([]time.Duration, 0, window),
		sinkTimes:      make([]time.Duration, 0, window),
	}
}

// LogCycle records one cycle.
func (pd *PipelineDebugger) LogCycle(timing CycleTiming) {
	pd.mu.Lock()
	defer pd.mu.Unlock()

	pd.cycles++
	pd.total++
	pd.readTimes = append(pd.readTimes, timing.Read)
	switch {
	case !timing.Captured:
		pd.skipped++
	case timing.Err != nil:
		pd.failed++
		pd.logger.WithError(timing.Err).Debug("PIPELINE: Cycle failed")
	default:
		pd.transformTimes = append(pd.transformTimes, timing.Transform)
		pd.sinkTimes = append(pd.sinkTimes, timing.Sinks)
	}

	if pd.cycles >= pd.window {
		pd.flushLocked()
	}
}

func (pd *PipelineDebugger) flushLocked() {
	pd.last = map[string]interface{}{
		"cycles":            pd.cycles,
		"skipped":           pd.skipped,
		"failed":            pd.failed,
		"avg_read_ms":       averageDuration(pd.readTimes).Seconds() * 1000,
		"avg_transform_ms":  averageDuration(pd.transformTimes).Seconds() * 1000,
		"avg_sinks_ms":      averageDuration(pd.sinkTimes).Seconds() * 1000,
		"total_cycles_seen": pd.total,
	}
	pd.logger.WithFields(logrus.Fields(pd.last)).Debug("PIPELINE: Cycle summary")

	pd.cycles, pd.skipped, pd.failed = 0, 0, 0
	pd.readTimes = pd.readTimes[:0]
	pd.transformTimes = pd.transformTimes[:0]
	pd.sinkTimes = pd.sinkTimes[:0]
}

// GetStats returns the last logged summary, or nil before the first window
// completes.
func (pd *PipelineDebugger) GetStats() map[string]interface{} {
	pd.mu.Lock()
	defer pd.mu.Unlock()
	if pd.last == nil {
		return nil
	}
	stats := make(map[string]interface{}, len(pd.last))
	for k, v := range pd.last {
		stats[k] = v
	}
	return stats
}

func averageDuration(durations []time.Duration) time.Duration {
	if len(durations) == 0 {
		return 0
	}

	var total time.Duration
	for _, d := range durations {
		total += d
	}

	return total / time.Duration(len(durations))
}
