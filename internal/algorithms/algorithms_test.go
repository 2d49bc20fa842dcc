package algorithms

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func solidBGR(rows, cols int, b, g, r float64) gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(b, g, r, 0), rows, cols, gocv.MatTypeCV8UC3)
}

func setBGR(m gocv.Mat, row, col int, b, g, r uint8) {
	m.SetUCharAt(row, col*3, b)
	m.SetUCharAt(row, col*3+1, g)
	m.SetUCharAt(row, col*3+2, r)
}

func TestRegistry_HasMotionStrategiesAndAnaglyph(t *testing.T) {
	assert.True(t, IsValidAlgorithm(BinaryThreshold))
	assert.True(t, IsValidAlgorithm(SquaredEmphasis))
	assert.True(t, IsValidAlgorithm(Anaglyph))
	assert.False(t, IsValidAlgorithm("sobel"))

	assert.True(t, IsMotionStrategy(BinaryThreshold))
	assert.False(t, IsMotionStrategy(Anaglyph))
	assert.Equal(t, []string{BinaryThreshold, SquaredEmphasis}, MotionStrategies())
}

func TestApply_UnknownAlgorithm(t *testing.T) {
	a := solidBGR(2, 2, 0, 0, 0)
	defer a.Close()
	out, err := Apply("nope", a, a, nil)
	defer out.Close()
	require.Error(t, err)
}

func TestMergeParams_OverlaysDefaults(t *testing.T) {
	merged := MergeParams(SquaredEmphasis, map[string]interface{}{"gain": 5.0})
	assert.Equal(t, 10.0, merged["floor"])
	assert.Equal(t, 5.0, merged["gain"])
}

func TestBinaryThreshold_IdenticalFramesAreBlack(t *testing.T) {
	a := solidBGR(6, 8, 40, 90, 200)
	defer a.Close()
	b := a.Clone()
	defer b.Close()

	out, err := NewBinaryThresholdMotion().Apply(a, b, nil)
	require.NoError(t, err)
	defer out.Close()

	assert.Equal(t, 1, out.Channels())
	assert.Equal(t, 6, out.Rows())
	assert.Equal(t, 8, out.Cols())
	assert.Equal(t, 0, gocv.CountNonZero(out))
}

func TestBinaryThreshold_SinglePixelDelta(t *testing.T) {
	prev := solidBGR(6, 8, 100, 100, 100)
	defer prev.Close()
	cur := prev.Clone()
	defer cur.Close()
	setBGR(cur, 2, 5, 130, 130, 130)

	out, err := NewBinaryThresholdMotion().Apply(cur, prev, nil)
	require.NoError(t, err)
	defer out.Close()

	assert.Equal(t, uint8(255), out.GetUCharAt(2, 5))
	assert.Equal(t, 1, gocv.CountNonZero(out))
}

func TestBinaryThreshold_BoundaryIsInclusive(t *testing.T) {
	prev := solidBGR(2, 2, 100, 100, 100)
	defer prev.Close()
	cur := prev.Clone()
	defer cur.Close()
	setBGR(cur, 0, 0, 125, 125, 125)
	setBGR(cur, 1, 1, 124, 124, 124)

	out, err := NewBinaryThresholdMotion().Apply(cur, prev, nil)
	require.NoError(t, err)
	defer out.Close()

	assert.Equal(t, uint8(255), out.GetUCharAt(0, 0))
	assert.Equal(t, uint8(0), out.GetUCharAt(1, 1))
}

func TestBinaryThreshold_GrayscaleInput(t *testing.T) {
	prev := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(10, 0, 0, 0), 3, 3, gocv.MatTypeCV8UC1)
	defer prev.Close()
	cur := prev.Clone()
	defer cur.Close()
	cur.SetUCharAt(1, 1, 200)

	out, err := NewBinaryThresholdMotion().Apply(cur, prev, map[string]interface{}{"threshold": 50.0})
	require.NoError(t, err)
	defer out.Close()
	assert.Equal(t, uint8(255), out.GetUCharAt(1, 1))
	assert.Equal(t, 1, gocv.CountNonZero(out))
}

func TestBinaryThreshold_SizeMismatch(t *testing.T) {
	a := solidBGR(4, 4, 0, 0, 0)
	defer a.Close()
	b := solidBGR(4, 5, 0, 0, 0)
	defer b.Close()

	out, err := NewBinaryThresholdMotion().Apply(a, b, nil)
	defer out.Close()
	require.Error(t, err)
}

func TestSquaredEmphasis_SmallDeltaIsSuppressed(t *testing.T) {
	prev := solidBGR(4, 4, 100, 100, 100)
	defer prev.Close()
	cur := prev.Clone()
	defer cur.Close()
	setBGR(cur, 1, 1, 105, 105, 105)
	setBGR(cur, 2, 3, 150, 150, 150)

	out, err := NewSquaredEmphasisMotion().Apply(cur, prev, nil)
	require.NoError(t, err)
	defer out.Close()

	assert.Equal(t, 1, out.Channels())
	small := out.GetUCharAt(1, 1)
	large := out.GetUCharAt(2, 3)
	assert.Equal(t, uint8(0), small)
	assert.Greater(t, large, uint8(0))
	assert.Greater(t, large, small)
	assert.Equal(t, 1, gocv.CountNonZero(out))
}

func TestSquaredEmphasis_Saturates(t *testing.T) {
	prev := solidBGR(2, 2, 0, 0, 0)
	defer prev.Close()
	cur := solidBGR(2, 2, 255, 255, 255)
	defer cur.Close()

	out, err := NewSquaredEmphasisMotion().Apply(cur, prev, nil)
	require.NoError(t, err)
	defer out.Close()
	assert.Equal(t, uint8(255), out.GetUCharAt(0, 0))
}

func TestSquaredEmphasis_Validate(t *testing.T) {
	s := NewSquaredEmphasisMotion()
	assert.NoError(t, s.Validate(s.GetDefaultParams()))
	assert.Error(t, s.Validate(map[string]interface{}{"floor": 300.0}))
	assert.Error(t, s.Validate(map[string]interface{}{"gain": 0.0}))
}

func TestAnaglyph_ChannelMapping(t *testing.T) {
	cur := solidBGR(3, 4, 10, 20, 30)
	defer cur.Close()
	prev := solidBGR(3, 4, 110, 120, 130)
	defer prev.Close()
	setBGR(cur, 0, 0, 1, 2, 3)
	setBGR(prev, 2, 3, 7, 8, 9)

	out, err := NewTemporalAnaglyph().Apply(cur, prev, nil)
	require.NoError(t, err)
	defer out.Close()

	require.Equal(t, 3, out.Channels())
	require.Equal(t, cur.Rows(), out.Rows())
	require.Equal(t, cur.Cols(), out.Cols())
	for row := 0; row < out.Rows(); row++ {
		for col := 0; col < out.Cols(); col++ {
			assert.Equal(t, cur.GetUCharAt(row, col*3), out.GetUCharAt(row, col*3))
			assert.Equal(t, cur.GetUCharAt(row, col*3+1), out.GetUCharAt(row, col*3+1))
			assert.Equal(t, prev.GetUCharAt(row, col*3+2), out.GetUCharAt(row, col*3+2))
		}
	}
}

func TestAnaglyph_RejectsGrayscale(t *testing.T) {
	g := gocv.NewMatWithSize(2, 2, gocv.MatTypeCV8UC1)
	defer g.Close()
	out, err := NewTemporalAnaglyph().Apply(g, g, nil)
	defer out.Close()
	require.Error(t, err)
}
