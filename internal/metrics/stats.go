// Capture loop counters and frame rate estimate
package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// fpsSmoothing is the EWMA weight given to the newest frame interval.
const fpsSmoothing = 0.1

// Stats tracks capture loop activity. The zero value is ready to use.
type Stats struct {
	captured atomic.Uint64
	skipped  atomic.Uint64
	failed   atomic.Uint64

	mu        sync.Mutex
	lastFrame time.Time
	fps       float64
}

// Snapshot is a point-in-time copy of Stats.
type Snapshot struct {
	Captured uint64
	Skipped  uint64
	Failed   uint64
	FPS      float64
}

// RecordFrame counts a successfully processed frame captured at t.
func (s *Stats) RecordFrame(t time.Time) {
	s.captured.Add(1)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.lastFrame.IsZero() {
		if dt := t.Sub(s.lastFrame).Seconds(); dt > 0 {
			instant := 1 / dt
			if s.fps == 0 {
				s.fps = instant
			} else {
				s.fps = s.fps*(1-fpsSmoothing) + instant*fpsSmoothing
			}
		}
	}
	s.lastFrame = t
}

// RecordSkip counts a cycle where no frame was available.
func (s *Stats) RecordSkip() {
	s.skipped.Add(1)
}

// RecordFailure counts a cycle whose transform or sinks failed.
func (s *Stats) RecordFailure() {
	s.failed.Add(1)
}

func (s *Stats) Snapshot() Snapshot {
	s.mu.Lock()
	fps := s.fps
	s.mu.Unlock()
	return Snapshot{
		Captured: s.captured.Load(),
		Skipped:  s.skipped.Load(),
		Failed:   s.failed.Load(),
		FPS:      fps,
	}
}
