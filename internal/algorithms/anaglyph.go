// Time-shifted anaglyph
package algorithms

import (
	"fmt"

	"gocv.io/x/gocv"
)

// TemporalAnaglyph builds a red/cyan image from two consecutive frames:
// blue and green from the current frame, red from the previous one.
type TemporalAnaglyph struct{}

func NewTemporalAnaglyph() *TemporalAnaglyph {
	return &TemporalAnaglyph{}
}

func (a *TemporalAnaglyph) Apply(current, previous gocv.Mat, params map[string]interface{}) (gocv.Mat, error) {
	if err := checkPair(current, previous); err != nil {
		return gocv.NewMat(), err
	}
	if current.Channels() != 3 {
		return gocv.NewMat(), fmt.Errorf("anaglyph needs 3-channel input, got %d", current.Channels())
	}

	currentChannels := gocv.Split(current)
	defer closeAll(currentChannels)
	previousChannels := gocv.Split(previous)
	defer closeAll(previousChannels)

	output := gocv.NewMat()
	gocv.Merge([]gocv.Mat{currentChannels[0], currentChannels[1], previousChannels[2]}, &output)

	return output, nil
}

func (a *TemporalAnaglyph) GetDefaultParams() map[string]interface{} {
	return map[string]interface{}{}
}

func (a *TemporalAnaglyph) GetName() string {
	return "Temporal Anaglyph"
}

func (a *TemporalAnaglyph) GetDescription() string {
	return "Blue/green from the current frame, red from the previous frame"
}

func (a *TemporalAnaglyph) Validate(params map[string]interface{}) error {
	return nil
}

func (a *TemporalAnaglyph) GetParameterInfo() []ParameterInfo {
	return nil
}

func closeAll(mats []gocv.Mat) {
	for i := range mats {
		mats[i].Close()
	}
}
