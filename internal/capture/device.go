package capture

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

// DeviceSource reads frames from a local camera through OpenCV.
type DeviceSource struct {
	mu        sync.Mutex
	capture   *gocv.VideoCapture
	device    int
	logger    *logrus.Logger
	closeOnce sync.Once
	closeErr  error
}

// OpenDevice opens camera device and requests the given capture size.
func OpenDevice(device, width, height int, logger *logrus.Logger) (*DeviceSource, error) {
	vc, err := gocv.OpenVideoCapture(device)
	if err != nil {
		return nil, fmt.Errorf("open camera %d: %w", device, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("open camera %d: device not available", device)
	}

	vc.Set(gocv.VideoCaptureFrameWidth, float64(width))
	vc.Set(gocv.VideoCaptureFrameHeight, float64(height))

	logger.WithFields(logrus.Fields{
		"device":           device,
		"requested_width":  width,
		"requested_height": height,
		"width":            vc.Get(gocv.VideoCaptureFrameWidth),
		"height":           vc.Get(gocv.VideoCaptureFrameHeight),
	}).Info("Camera opened")

	return &DeviceSource{capture: vc, device: device, logger: logger}, nil
}

func (d *DeviceSource) Read(dst *gocv.Mat) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.capture == nil {
		return false
	}
	return d.capture.Read(dst)
}

func (d *DeviceSource) SetProperty(prop gocv.VideoCaptureProperties, value float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.capture != nil {
		d.capture.Set(prop, value)
	}
}

func (d *DeviceSource) Property(prop gocv.VideoCaptureProperties) float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.capture == nil {
		return 0
	}
	return d.capture.Get(prop)
}

func (d *DeviceSource) Close() error {
	d.closeOnce.Do(func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.closeErr = d.capture.Close()
		d.capture = nil
		d.logger.WithField("device", d.device).Info("Camera released")
	})
	return d.closeErr
}
