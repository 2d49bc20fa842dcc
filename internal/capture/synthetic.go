package capture

import (
	"image"
	"image/color"
	"sync"

	"gocv.io/x/gocv"
)

// SyntheticSource produces a square moving across a flat background. It
// stands in for a camera in tests and in -synthetic runs.
type SyntheticSource struct {
	mu       sync.Mutex
	width    int
	height   int
	square   int
	step     int
	reads    int
	failures map[int]bool
	props    map[gocv.VideoCaptureProperties]float64
	rejected map[gocv.VideoCaptureProperties]bool
	closed   int
}

// NewSyntheticSource creates a width x height BGR frame generator.
func NewSyntheticSource(width, height int) *SyntheticSource {
	square := height / 4
	if square < 1 {
		square = 1
	}
	return &SyntheticSource{
		width:    width,
		height:   height,
		square:   square,
		step:     4,
		failures: make(map[int]bool),
		props: map[gocv.VideoCaptureProperties]float64{
			gocv.VideoCaptureFrameWidth:  float64(width),
			gocv.VideoCaptureFrameHeight: float64(height),
		},
		rejected: make(map[gocv.VideoCaptureProperties]bool),
	}
}

// FailReads makes the given zero-based read attempts return false.
func (s *SyntheticSource) FailReads(attempts ...int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range attempts {
		s.failures[a] = true
	}
}

// RejectProperty makes SetProperty ignore prop, as some drivers do.
func (s *SyntheticSource) RejectProperty(prop gocv.VideoCaptureProperties) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rejected[prop] = true
}

func (s *SyntheticSource) Read(dst *gocv.Mat) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	attempt := s.reads
	s.reads++
	if s.closed > 0 || s.failures[attempt] {
		return false
	}

	frame := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(40, 40, 40, 0), s.height, s.width, gocv.MatTypeCV8UC3)
	defer frame.Close()

	span := s.width - s.square
	x := 0
	if span > 0 {
		x = (attempt * s.step) % span
	}
	y := (s.height - s.square) / 2
	rect := image.Rect(x, y, x+s.square, y+s.square)
	gocv.Rectangle(&frame, rect, color.RGBA{R: 230, G: 180, B: 60, A: 255}, -1)

	frame.CopyTo(dst)
	return true
}

// Reads returns the number of read attempts so far.
func (s *SyntheticSource) Reads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}

// Closed returns how many times Close has been called.
func (s *SyntheticSource) Closed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *SyntheticSource) SetProperty(prop gocv.VideoCaptureProperties, value float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rejected[prop] {
		return
	}
	s.props[prop] = value
}

func (s *SyntheticSource) Property(prop gocv.VideoCaptureProperties) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.props[prop]
}

func (s *SyntheticSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	return nil
}
