// Frame algorithm registry used by the transformer
package algorithms

import (
	"fmt"
	"sort"

	"gocv.io/x/gocv"
)

// Algorithm defines the interface for two-frame image algorithms.
// Implementations must not modify their inputs and always return a new Mat
// owned by the caller.
type Algorithm interface {
	Apply(current, previous gocv.Mat, params map[string]interface{}) (gocv.Mat, error)
	GetDefaultParams() map[string]interface{}
	GetName() string
	GetDescription() string
	Validate(params map[string]interface{}) error
	GetParameterInfo() []ParameterInfo
}

// ParameterInfo describes a parameter for UI generation
type ParameterInfo struct {
	Name        string      `json:"name"`
	Type        string      `json:"type"` // "int", "float", "bool", "string", "enum"
	Min         interface{} `json:"min,omitempty"`
	Max         interface{} `json:"max,omitempty"`
	Default     interface{} `json:"default"`
	Description string      `json:"description"`
	Options     []string    `json:"options,omitempty"` // For enum type
}

const (
	BinaryThreshold = "binary_threshold"
	SquaredEmphasis = "squared_emphasis"
	Anaglyph        = "anaglyph"
)

var algorithms = make(map[string]Algorithm)

func Register(name string, algorithm Algorithm) {
	algorithms[name] = algorithm
}

func Get(name string) (Algorithm, bool) {
	algorithm, exists := algorithms[name]
	return algorithm, exists
}

func Apply(name string, current, previous gocv.Mat, params map[string]interface{}) (gocv.Mat, error) {
	algorithm, exists := algorithms[name]
	if !exists {
		return gocv.NewMat(), fmt.Errorf("algorithm not found: %s", name)
	}

	return algorithm.Apply(current, previous, params)
}

func ValidateParameters(name string, params map[string]interface{}) error {
	algorithm, exists := algorithms[name]
	if !exists {
		return fmt.Errorf("algorithm not found: %s", name)
	}

	return algorithm.Validate(params)
}

func IsValidAlgorithm(name string) bool {
	_, exists := algorithms[name]
	return exists
}

// IsMotionStrategy reports whether name is a registered motion algorithm.
func IsMotionStrategy(name string) bool {
	for _, n := range GetAlgorithmsByCategory()["Motion"] {
		if n == name {
			return IsValidAlgorithm(name)
		}
	}
	return false
}

func GetAllAlgorithms() map[string]Algorithm {
	result := make(map[string]Algorithm)
	for name, algorithm := range algorithms {
		result[name] = algorithm
	}
	return result
}

// MotionStrategies returns the registered motion algorithm names, sorted.
func MotionStrategies() []string {
	names := make([]string, 0, 2)
	for _, n := range GetAlgorithmsByCategory()["Motion"] {
		if IsValidAlgorithm(n) {
			names = append(names, n)
		}
	}
	sort.Strings(names)
	return names
}

func GetAlgorithmsByCategory() map[string][]string {
	return map[string][]string{
		"Motion": {
			BinaryThreshold,
			SquaredEmphasis,
		},
		"Stereo": {
			Anaglyph,
		},
	}
}

// MergeParams overlays params on top of the algorithm defaults.
func MergeParams(name string, params map[string]interface{}) map[string]interface{} {
	merged := make(map[string]interface{})
	if algorithm, ok := algorithms[name]; ok {
		for k, v := range algorithm.GetDefaultParams() {
			merged[k] = v
		}
	}
	for k, v := range params {
		merged[k] = v
	}
	return merged
}

func init() {
	Register(BinaryThreshold, NewBinaryThresholdMotion())
	Register(SquaredEmphasis, NewSquaredEmphasisMotion())
	Register(Anaglyph, NewTemporalAnaglyph())
}

// floatParam reads a numeric parameter, accepting the numeric types a TOML
// decoder or a widget may produce.
func floatParam(params map[string]interface{}, name string, fallback float64) float64 {
	val, ok := params[name]
	if !ok {
		return fallback
	}
	switch v := val.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return fallback
}

func checkPair(current, previous gocv.Mat) error {
	if current.Empty() || previous.Empty() {
		return fmt.Errorf("input image is empty")
	}
	if current.Rows() != previous.Rows() || current.Cols() != previous.Cols() {
		return fmt.Errorf("frame size mismatch: %dx%d vs %dx%d",
			current.Cols(), current.Rows(), previous.Cols(), previous.Rows())
	}
	if current.Channels() != previous.Channels() {
		return fmt.Errorf("channel mismatch: %d vs %d", current.Channels(), previous.Channels())
	}
	return nil
}

// toGray returns a single-channel copy of input.
func toGray(input gocv.Mat) (gocv.Mat, error) {
	gray := gocv.NewMat()
	switch input.Channels() {
	case 1:
		input.CopyTo(&gray)
	case 3:
		if err := gocv.CvtColor(input, &gray, gocv.ColorBGRToGray); err != nil {
			gray.Close()
			return gocv.NewMat(), fmt.Errorf("grayscale conversion failed: %w", err)
		}
	default:
		gray.Close()
		return gocv.NewMat(), fmt.Errorf("unsupported channel count: %d", input.Channels())
	}
	return gray, nil
}
