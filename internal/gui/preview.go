// internal/gui/preview.go
// Live preview display sink
package gui

import (
	"image"
	"math"
	"sync/atomic"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"github.com/sirupsen/logrus"

	"webcam-lab/internal/core"
	"webcam-lab/internal/metrics"
)

// Preview is the display sink. Frames are converted on the pipeline
// goroutine and handed to the canvas on the fyne main goroutine.
type Preview struct {
	image  *canvas.Image
	logger *logrus.Logger

	coverage atomic.Uint64 // float64 bits, motion frames only
	frames   atomic.Uint64
}

func NewPreview(logger *logrus.Logger) *Preview {
	img := canvas.NewImageFromImage(image.NewGray(image.Rect(0, 0, 1, 1)))
	img.FillMode = canvas.ImageFillContain
	img.ScaleMode = canvas.ImageScaleFastest
	img.SetMinSize(fyne.NewSize(640, 480))

	return &Preview{
		image:  img,
		logger: logger,
	}
}

func (p *Preview) Put(out core.Output) error {
	img, err := out.Frame.ToImage()
	if err != nil {
		return err
	}

	if out.Mode == core.ModeMotion && out.Frame.Channels() == 1 {
		if cov, err := metrics.MotionCoverage(out.Frame); err == nil {
			p.coverage.Store(math.Float64bits(cov))
		}
	} else {
		p.coverage.Store(0)
	}
	p.frames.Add(1)

	fyne.Do(func() {
		p.image.Image = img
		p.image.Refresh()
	})
	return nil
}

// Coverage is the motion coverage of the last displayed frame, or 0 outside
// Motion mode.
func (p *Preview) Coverage() float64 {
	return math.Float64frombits(p.coverage.Load())
}

// Frames counts displayed frames.
func (p *Preview) Frames() uint64 {
	return p.frames.Load()
}

func (p *Preview) GetCanvas() *canvas.Image {
	return p.image
}
