package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func TestStats_Counters(t *testing.T) {
	var s Stats
	s.RecordSkip()
	s.RecordSkip()
	s.RecordFailure()

	snap := s.Snapshot()
	assert.Equal(t, uint64(0), snap.Captured)
	assert.Equal(t, uint64(2), snap.Skipped)
	assert.Equal(t, uint64(1), snap.Failed)
	assert.Zero(t, snap.FPS)
}

func TestStats_FPSConverges(t *testing.T) {
	var s Stats
	start := time.Unix(1000, 0)
	for i := 0; i < 200; i++ {
		s.RecordFrame(start.Add(time.Duration(i) * 50 * time.Millisecond))
	}
	snap := s.Snapshot()
	assert.Equal(t, uint64(200), snap.Captured)
	assert.InDelta(t, 20.0, snap.FPS, 0.01)
}

func TestMotionCoverage(t *testing.T) {
	m := gocv.NewMatWithSize(4, 5, gocv.MatTypeCV8UC1)
	defer m.Close()
	m.SetTo(gocv.NewScalar(0, 0, 0, 0))
	m.SetUCharAt(0, 0, 255)
	m.SetUCharAt(3, 4, 255)

	cov, err := MotionCoverage(m)
	require.NoError(t, err)
	assert.InDelta(t, 0.1, cov, 1e-9)
}

func TestMotionCoverage_RejectsColor(t *testing.T) {
	m := gocv.NewMatWithSize(2, 2, gocv.MatTypeCV8UC3)
	defer m.Close()
	_, err := MotionCoverage(m)
	assert.Error(t, err)

	empty := gocv.NewMat()
	defer empty.Close()
	_, err = MotionCoverage(empty)
	assert.Error(t, err)
}
