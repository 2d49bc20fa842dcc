// Capture session state shared between the loop and the UI
package core

import (
	"fmt"
	"sync"

	"gocv.io/x/gocv"

	"webcam-lab/internal/algorithms"
)

// Session owns the state the transform reads each cycle: the selected mode,
// the motion strategy and the frame captured in the previous cycle.
type Session struct {
	mu       sync.RWMutex
	mode     Mode
	motion   MotionSettings
	previous gocv.Mat
}

// NewSession creates a session in Normal mode with the default motion strategy
func NewSession() *Session {
	return &Session{
		mode:     ModeNormal,
		motion:   DefaultMotionSettings(),
		previous: gocv.NewMat(),
	}
}

func (s *Session) Mode() Mode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}

func (s *Session) SetMode(mode Mode) error {
	if !mode.Valid() {
		return fmt.Errorf("unknown mode: %d", int(mode))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = mode
	return nil
}

// MotionSettings returns a copy of the active motion strategy settings.
func (s *Session) MotionSettings() MotionSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	params := make(map[string]interface{}, len(s.motion.Params))
	for k, v := range s.motion.Params {
		params[k] = v
	}
	return MotionSettings{Strategy: s.motion.Strategy, Params: params}
}

// SetMotionStrategy selects a registered motion strategy. params overlay the
// strategy defaults and are validated before being applied.
func (s *Session) SetMotionStrategy(name string, params map[string]interface{}) error {
	if !algorithms.IsMotionStrategy(name) {
		return fmt.Errorf("unknown motion strategy: %q", name)
	}
	merged := algorithms.MergeParams(name, params)
	if err := algorithms.ValidateParameters(name, merged); err != nil {
		return fmt.Errorf("invalid parameters: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.motion = MotionSettings{Strategy: name, Params: merged}
	return nil
}

// HasPrevious reports whether a previous frame is held.
func (s *Session) HasPrevious() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.previous.Empty()
}

// Process transforms frame with the current state, then keeps a copy of
// frame as the previous frame for the next cycle. The copy is taken even if
// the transform fails so a resolution change recovers on the next cycle.
func (s *Session) Process(frame gocv.Mat) (Output, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out, err := Transform(s.mode, frame, s.previous, s.motion)
	if !frame.Empty() {
		s.previous.Close()
		s.previous = frame.Clone()
	}
	if err != nil {
		out.Close()
		return Output{}, err
	}

	return Output{
		Frame:    out,
		Mode:     s.mode,
		Strategy: s.motion.Strategy,
	}, nil
}

// Reset drops the previous frame so the next cycle behaves like the first.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.previous.Close()
	s.previous = gocv.NewMat()
}

// Close releases the previous frame
func (s *Session) Close() {
	s.Reset()
}
