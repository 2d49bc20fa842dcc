package metrics

import (
	"fmt"

	"gocv.io/x/gocv"
)

// MotionCoverage returns the fraction of non-zero pixels in a single-channel
// motion frame, in [0, 1].
func MotionCoverage(frame gocv.Mat) (float64, error) {
	if frame.Empty() {
		return 0, fmt.Errorf("frame is empty")
	}
	if frame.Channels() != 1 {
		return 0, fmt.Errorf("motion coverage needs a single-channel frame, got %d channels", frame.Channels())
	}
	total := frame.Rows() * frame.Cols()
	return float64(gocv.CountNonZero(frame)) / float64(total), nil
}
