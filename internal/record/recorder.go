// Package record writes pipeline output to one or two video files.
package record

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"webcam-lab/internal/core"
)

// ErrNotRecording is returned by Files when no recording is active.
var ErrNotRecording = errors.New("not recording")

// Format is a container extension paired with a fourcc codec.
type Format struct {
	Ext   string
	Codec string
}

var (
	FormatAVI = Format{Ext: ".avi", Codec: "XVID"}
	FormatMP4 = Format{Ext: ".mp4", Codec: "mp4v"}
)

// VideoWriter is the subset of gocv.VideoWriter the recorder needs.
type VideoWriter interface {
	Write(frame gocv.Mat) error
	Close() error
}

// OpenFunc opens a video writer. The default opens a gocv.VideoWriter.
type OpenFunc func(path, codec string, fps float64, width, height int, isColor bool) (VideoWriter, error)

// OpenVideoFile opens an OpenCV video writer.
func OpenVideoFile(path, codec string, fps float64, width, height int, isColor bool) (VideoWriter, error) {
	vw, err := gocv.VideoWriterFile(path, codec, fps, width, height, isColor)
	if err != nil {
		return nil, err
	}
	if !vw.IsOpened() {
		vw.Close()
		return nil, fmt.Errorf("codec %s could not open %s", codec, path)
	}
	return vw, nil
}

// Settings configure a Recorder.
type Settings struct {
	Dir       string
	FPS       float64
	Width     int
	Height    int
	Primary   Format
	Secondary Format
	Dual      bool
}

// DefaultSettings records XVID/AVI at 20 fps, 640x480.
func DefaultSettings() Settings {
	return Settings{
		Dir:       "gallery",
		FPS:       20,
		Width:     640,
		Height:    480,
		Primary:   FormatAVI,
		Secondary: FormatMP4,
	}
}

type track struct {
	path   string
	writer VideoWriter
	closed bool
}

// Recorder is a core.Sink that writes frames while a recording is active.
type Recorder struct {
	mu       sync.Mutex
	settings Settings
	open     OpenFunc
	logger   *logrus.Logger
	now      func() time.Time

	tracks  []*track
	color   bool
	started time.Time
	frames  int
}

func NewRecorder(settings Settings, open OpenFunc, logger *logrus.Logger) *Recorder {
	if open == nil {
		open = OpenVideoFile
	}
	return &Recorder{
		settings: settings,
		open:     open,
		logger:   logger,
		now:      time.Now,
	}
}

// SetDualFormat enables the secondary container from the next Start.
func (r *Recorder) SetDualFormat(dual bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.settings.Dual = dual
}

func (r *Recorder) DualFormat() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.settings.Dual
}

func (r *Recorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tracks) > 0
}

// Files returns the paths of the active recording.
func (r *Recorder) Files() ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.tracks) == 0 {
		return nil, ErrNotRecording
	}
	paths := make([]string, 0, len(r.tracks))
	for _, t := range r.tracks {
		paths = append(paths, t.path)
	}
	return paths, nil
}

// Start opens the writers for a new recording. Motion mode records
// grayscale, every other mode records colour. Starting while already
// recording is a no-op that returns the current files.
func (r *Recorder) Start(mode core.Mode) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.tracks) > 0 {
		return r.pathsLocked(), nil
	}

	if err := os.MkdirAll(r.settings.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create recording directory: %w", err)
	}

	formats := []Format{r.settings.Primary}
	if r.settings.Dual {
		formats = append(formats, r.settings.Secondary)
	}

	stamp := r.now().Format("20060102_150405")
	color := mode.IsColor()
	tracks := make([]*track, 0, len(formats))
	for _, f := range formats {
		path := filepath.Join(r.settings.Dir, fmt.Sprintf("video_%s%s", stamp, f.Ext))
		w, err := r.open(path, f.Codec, r.settings.FPS, r.settings.Width, r.settings.Height, color)
		if err != nil {
			for _, t := range tracks {
				t.writer.Close()
			}
			return nil, fmt.Errorf("open video writer %s: %w", path, err)
		}
		tracks = append(tracks, &track{path: path, writer: w})
	}

	r.tracks = tracks
	r.color = color
	r.started = r.now()
	r.frames = 0

	r.logger.WithFields(logrus.Fields{
		"files": r.pathsLocked(),
		"mode":  mode.String(),
		"color": color,
		"fps":   r.settings.FPS,
	}).Info("Recording started")
	return r.pathsLocked(), nil
}

// Toggle starts a recording if none is active, otherwise stops it. It
// reports whether a recording is active afterwards and the files involved.
func (r *Recorder) Toggle(mode core.Mode) (bool, []string, error) {
	if files, err := r.Files(); err == nil {
		return false, files, r.Stop()
	}
	files, err := r.Start(mode)
	return err == nil, files, err
}

func (r *Recorder) Put(out core.Output) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.tracks) == 0 {
		return nil
	}

	frame, err := r.conform(out.Frame)
	if err != nil {
		return err
	}
	defer frame.Close()

	var errs []error
	for _, t := range r.tracks {
		if err := t.writer.Write(frame); err != nil {
			errs = append(errs, fmt.Errorf("write %s: %w", t.path, err))
		}
	}
	r.frames++
	return errors.Join(errs...)
}

// conform converts frame to the channel count and size the writers were
// opened with; the mode may have changed since Start.
func (r *Recorder) conform(frame gocv.Mat) (gocv.Mat, error) {
	out := gocv.NewMat()
	switch {
	case r.color && frame.Channels() == 1:
		if err := gocv.CvtColor(frame, &out, gocv.ColorGrayToBGR); err != nil {
			out.Close()
			return gocv.NewMat(), fmt.Errorf("convert frame for recording: %w", err)
		}
	case !r.color && frame.Channels() == 3:
		if err := gocv.CvtColor(frame, &out, gocv.ColorBGRToGray); err != nil {
			out.Close()
			return gocv.NewMat(), fmt.Errorf("convert frame for recording: %w", err)
		}
	default:
		frame.CopyTo(&out)
	}

	if out.Cols() != r.settings.Width || out.Rows() != r.settings.Height {
		resized := gocv.NewMat()
		gocv.Resize(out, &resized, image.Pt(r.settings.Width, r.settings.Height), 0, 0, gocv.InterpolationLinear)
		out.Close()
		out = resized
	}
	return out, nil
}

// Stop closes every open writer exactly once. Calling Stop when no recording
// is active does nothing.
func (r *Recorder) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.tracks) == 0 {
		return nil
	}

	var errs []error
	for _, t := range r.tracks {
		if t.closed {
			continue
		}
		t.closed = true
		if err := t.writer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", t.path, err))
		}
	}

	r.logger.WithFields(logrus.Fields{
		"files":    r.pathsLocked(),
		"frames":   r.frames,
		"duration": r.now().Sub(r.started).Round(time.Millisecond),
	}).Info("Recording stopped")

	r.tracks = nil
	return errors.Join(errs...)
}

// Close stops any active recording.
func (r *Recorder) Close() error {
	return r.Stop()
}

func (r *Recorder) pathsLocked() []string {
	paths := make([]string, 0, len(r.tracks))
	for _, t := range r.tracks {
		paths = append(paths, t.path)
	}
	return paths
}
