// Motion detection by frame differencing
package algorithms

import (
	"fmt"

	"gocv.io/x/gocv"
)

// BinaryThresholdMotion marks every pixel whose luma changed by at least
// threshold as 255 and everything else as 0.
type BinaryThresholdMotion struct{}

// NewBinaryThresholdMotion creates the binary threshold motion strategy
func NewBinaryThresholdMotion() *BinaryThresholdMotion {
	return &BinaryThresholdMotion{}
}

func (b *BinaryThresholdMotion) Apply(current, previous gocv.Mat, params map[string]interface{}) (gocv.Mat, error) {
	if err := checkPair(current, previous); err != nil {
		return gocv.NewMat(), err
	}

	threshold := floatParam(params, "threshold", 25)

	grayCurrent, err := toGray(current)
	if err != nil {
		return gocv.NewMat(), err
	}
	defer grayCurrent.Close()

	grayPrevious, err := toGray(previous)
	if err != nil {
		return gocv.NewMat(), err
	}
	defer grayPrevious.Close()

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(grayCurrent, grayPrevious, &diff)

	// THRESH_BINARY is strict (>), so step one below to keep diff == threshold.
	output := gocv.NewMat()
	gocv.Threshold(diff, &output, float32(threshold-1), 255, gocv.ThresholdBinary)

	return output, nil
}

func (b *BinaryThresholdMotion) GetDefaultParams() map[string]interface{} {
	return map[string]interface{}{
		"threshold": 25.0,
	}
}

func (b *BinaryThresholdMotion) GetName() string {
	return "Binary Threshold"
}

func (b *BinaryThresholdMotion) GetDescription() string {
	return "Absolute luma difference binarized at a fixed threshold"
}

func (b *BinaryThresholdMotion) Validate(params map[string]interface{}) error {
	if _, ok := params["threshold"]; ok {
		v := floatParam(params, "threshold", -1)
		if v < 1 || v > 255 {
			return fmt.Errorf("threshold must be between 1 and 255")
		}
	}
	return nil
}

func (b *BinaryThresholdMotion) GetParameterInfo() []ParameterInfo {
	return []ParameterInfo{
		{
			Name:        "threshold",
			Type:        "int",
			Min:         1.0,
			Max:         255.0,
			Default:     25.0,
			Description: "Minimum luma change counted as motion",
		},
	}
}

// SquaredEmphasisMotion squares the colour difference luma to suppress
// sensor noise while keeping strong changes visible.
type SquaredEmphasisMotion struct{}

// NewSquaredEmphasisMotion creates the squared emphasis motion strategy
func NewSquaredEmphasisMotion() *SquaredEmphasisMotion {
	return &SquaredEmphasisMotion{}
}

func (s *SquaredEmphasisMotion) Apply(current, previous gocv.Mat, params map[string]interface{}) (gocv.Mat, error) {
	if err := checkPair(current, previous); err != nil {
		return gocv.NewMat(), err
	}

	floor := floatParam(params, "floor", 10)
	gain := floatParam(params, "gain", 3)

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(current, previous, &diff)

	gray, err := toGray(diff)
	if err != nil {
		return gocv.NewMat(), err
	}
	defer gray.Close()

	grayFloat := gocv.NewMat()
	defer grayFloat.Close()
	gray.ConvertTo(&grayFloat, gocv.MatTypeCV32F)

	squared := gocv.NewMat()
	defer squared.Close()
	if err := gocv.Multiply(grayFloat, grayFloat, &squared); err != nil {
		return gocv.NewMat(), fmt.Errorf("squaring difference failed: %w", err)
	}
	squared.DivideFloat(255)

	// Back to 8 bit (rounded, saturated) before applying the floor.
	scaled := gocv.NewMat()
	defer scaled.Close()
	squared.ConvertTo(&scaled, gocv.MatTypeCV8U)

	floored := gocv.NewMat()
	defer floored.Close()
	gocv.Threshold(scaled, &floored, float32(floor-1), 255, gocv.ThresholdToZero)

	output := gocv.NewMat()
	floored.ConvertToWithParams(&output, gocv.MatTypeCV8U, float32(gain), 0)

	return output, nil
}

func (s *SquaredEmphasisMotion) GetDefaultParams() map[string]interface{} {
	return map[string]interface{}{
		"floor": 10.0,
		"gain":  3.0,
	}
}

func (s *SquaredEmphasisMotion) GetName() string {
	return "Squared Emphasis"
}

func (s *SquaredEmphasisMotion) GetDescription() string {
	return "Squared colour difference with a noise floor and visibility gain"
}

func (s *SquaredEmphasisMotion) Validate(params map[string]interface{}) error {
	if _, ok := params["floor"]; ok {
		v := floatParam(params, "floor", -1)
		if v < 0 || v > 255 {
			return fmt.Errorf("floor must be between 0 and 255")
		}
	}

	if _, ok := params["gain"]; ok {
		v := floatParam(params, "gain", -1)
		if v < 0.1 || v > 20 {
			return fmt.Errorf("gain must be between 0.1 and 20")
		}
	}

	return nil
}

func (s *SquaredEmphasisMotion) GetParameterInfo() []ParameterInfo {
	return []ParameterInfo{
		{
			Name:        "floor",
			Type:        "int",
			Min:         0.0,
			Max:         255.0,
			Default:     10.0,
			Description: "Values below the floor are treated as noise",
		},
		{
			Name:        "gain",
			Type:        "float",
			Min:         0.1,
			Max:         20.0,
			Default:     3.0,
			Description: "Visibility multiplier, saturating at 255",
		},
	}
}
