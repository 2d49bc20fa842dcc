// Package capture provides frame sources and device property controls.
package capture

import "gocv.io/x/gocv"

// Source is a stream of frames, such as a camera.
type Source interface {
	// Read fills dst with the next frame. It returns false when no frame is
	// available; dst is then left unspecified.
	Read(dst *gocv.Mat) bool

	// Close releases the device. It must be safe to call more than once.
	Close() error
}

// PropertyDevice exposes raw capture properties.
type PropertyDevice interface {
	SetProperty(prop gocv.VideoCaptureProperties, value float64)
	Property(prop gocv.VideoCaptureProperties) float64
}
