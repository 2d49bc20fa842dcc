// Frame validation helpers
package core

import (
	"errors"
	"fmt"

	"gocv.io/x/gocv"
)

var (
	ErrEmptyFrame    = errors.New("frame is empty")
	ErrShapeMismatch = errors.New("frame shapes differ")
	ErrChannels      = errors.New("unsupported channel layout")
)

// maxDimension guards against corrupt captures allocating huge buffers.
const maxDimension = 16384

// ValidateFrame validates an OpenCV Mat for use as a capture frame
func ValidateFrame(mat gocv.Mat) error {
	if mat.Empty() {
		return ErrEmptyFrame
	}

	if mat.Cols() <= 0 || mat.Rows() <= 0 {
		return fmt.Errorf("invalid dimensions: %dx%d", mat.Cols(), mat.Rows())
	}

	channels := mat.Channels()
	if channels != 1 && channels != 3 {
		return fmt.Errorf("%w: %d channels", ErrChannels, channels)
	}

	if mat.Cols() > maxDimension || mat.Rows() > maxDimension {
		return fmt.Errorf("frame too large: %dx%d (max: %d)", mat.Cols(), mat.Rows(), maxDimension)
	}

	return nil
}

// SameShape checks that two frames can be combined pixel for pixel.
func SameShape(a, b gocv.Mat) error {
	if a.Rows() != b.Rows() || a.Cols() != b.Cols() {
		return fmt.Errorf("%w: %dx%d vs %dx%d", ErrShapeMismatch, a.Cols(), a.Rows(), b.Cols(), b.Rows())
	}
	if a.Channels() != b.Channels() {
		return fmt.Errorf("%w: %d vs %d channels", ErrShapeMismatch, a.Channels(), b.Channels())
	}
	return nil
}
