package core

import (
	"fmt"

	"gocv.io/x/gocv"

	"webcam-lab/internal/algorithms"
)

// MotionSettings names the motion strategy and its parameters.
type MotionSettings struct {
	Strategy string
	Params   map[string]interface{}
}

// DefaultMotionSettings returns the binary threshold strategy with its defaults.
func DefaultMotionSettings() MotionSettings {
	return MotionSettings{
		Strategy: algorithms.BinaryThreshold,
		Params:   algorithms.MergeParams(algorithms.BinaryThreshold, nil),
	}
}

// Transform produces the output frame for mode from the current and previous
// captures. previous may be empty (first cycle), in which case Motion and
// Anaglyph fall back to identity. The inputs are never modified; the
// returned Mat belongs to the caller.
func Transform(mode Mode, current, previous gocv.Mat, motion MotionSettings) (gocv.Mat, error) {
	if err := ValidateFrame(current); err != nil {
		return gocv.NewMat(), err
	}

	if mode == ModeNormal || previous.Empty() {
		if !mode.Valid() {
			return gocv.NewMat(), fmt.Errorf("unknown mode: %d", int(mode))
		}
		return current.Clone(), nil
	}

	if err := SameShape(current, previous); err != nil {
		return gocv.NewMat(), err
	}

	switch mode {
	case ModeMotion:
		if !algorithms.IsMotionStrategy(motion.Strategy) {
			return gocv.NewMat(), fmt.Errorf("unknown motion strategy: %q", motion.Strategy)
		}
		out, err := algorithms.Apply(motion.Strategy, current, previous, motion.Params)
		if err != nil {
			return gocv.NewMat(), fmt.Errorf("motion %s: %w", motion.Strategy, err)
		}
		return out, nil

	case ModeAnaglyph:
		if current.Channels() != 3 {
			return gocv.NewMat(), fmt.Errorf("%w: anaglyph needs 3 channels, got %d", ErrChannels, current.Channels())
		}
		out, err := algorithms.Apply(algorithms.Anaglyph, current, previous, nil)
		if err != nil {
			return gocv.NewMat(), fmt.Errorf("anaglyph: %w", err)
		}
		return out, nil
	}

	return gocv.NewMat(), fmt.Errorf("unknown mode: %d", int(mode))
}
