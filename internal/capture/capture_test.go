package capture

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func TestSyntheticSource_ProducesFrames(t *testing.T) {
	src := NewSyntheticSource(64, 48)
	frame := gocv.NewMat()
	defer frame.Close()

	require.True(t, src.Read(&frame))
	assert.Equal(t, 48, frame.Rows())
	assert.Equal(t, 64, frame.Cols())
	assert.Equal(t, 3, frame.Channels())

	first := frame.Clone()
	defer first.Close()
	require.True(t, src.Read(&frame))

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(first, frame, &diff)
	gray := gocv.NewMat()
	defer gray.Close()
	require.NoError(t, gocv.CvtColor(diff, &gray, gocv.ColorBGRToGray))
	assert.Greater(t, gocv.CountNonZero(gray), 0, "square should move between frames")
}

func TestSyntheticSource_ScriptedFailuresAndClose(t *testing.T) {
	src := NewSyntheticSource(16, 12)
	src.FailReads(1)
	frame := gocv.NewMat()
	defer frame.Close()

	assert.True(t, src.Read(&frame))
	assert.False(t, src.Read(&frame))
	assert.True(t, src.Read(&frame))
	assert.Equal(t, 3, src.Reads())

	require.NoError(t, src.Close())
	assert.False(t, src.Read(&frame))
	assert.Equal(t, 1, src.Closed())
}

func TestControls_AcceptedSetting(t *testing.T) {
	logger, _ := test.NewNullLogger()
	src := NewSyntheticSource(8, 8)
	c := NewControls(src, logger)

	res := c.SetAutoExposure(false)
	assert.True(t, res.Accepted)
	assert.Equal(t, SettingAutoExposure, res.Setting)
	assert.InDelta(t, autoExposureOff, res.Applied, 1e-9)

	res = c.SetExposure(-6)
	assert.True(t, res.Accepted)
	assert.InDelta(t, -6.0, src.Property(gocv.VideoCaptureExposure), 1e-9)
}

func TestControls_RejectedSettingIsObservable(t *testing.T) {
	logger, hook := test.NewNullLogger()
	src := NewSyntheticSource(8, 8)
	src.RejectProperty(gocv.VideoCaptureExposure)
	c := NewControls(src, logger)

	res := c.SetExposure(-4)
	assert.False(t, res.Accepted)
	assert.Equal(t, -4.0, res.Requested)
	assert.Contains(t, res.String(), "rejected")

	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
}

func TestControls_ExposureIsClamped(t *testing.T) {
	logger, _ := test.NewNullLogger()
	c := NewControls(NewSyntheticSource(8, 8), logger)
	res := c.SetExposure(5)
	assert.Equal(t, ExposureMax, res.Requested)
}

func TestControls_Capabilities(t *testing.T) {
	logger, _ := test.NewNullLogger()
	src := NewSyntheticSource(8, 8)
	c := NewControls(src, logger)
	c.SetAutoExposure(true)

	caps := c.Capabilities()
	require.Len(t, caps, 2)
	assert.Equal(t, SettingAutoExposure, caps[0].Setting)
	assert.True(t, caps[0].Supported)
	assert.Equal(t, SettingExposure, caps[1].Setting)
	assert.False(t, caps[1].Supported)
}

func TestControls_NilDevice(t *testing.T) {
	logger, _ := test.NewNullLogger()
	c := NewControls(nil, logger)
	assert.False(t, c.SetAutoExposure(true).Accepted)
	for _, cp := range c.Capabilities() {
		assert.False(t, cp.Supported)
	}
}
