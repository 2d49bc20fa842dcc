package io

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"webcam-lab/internal/core"
)

// ErrNoFrame is returned by Take before the first frame has been seen.
var ErrNoFrame = errors.New("no frame available yet")

const timestampLayout = "20060102_150405"

// Snapshotter keeps the most recent output frame and writes it to disk on
// request. It is a core.Sink.
type Snapshotter struct {
	mu     sync.Mutex
	dir    string
	ext    string
	loader *ImageLoader
	logger *logrus.Logger
	now    func() time.Time

	latest gocv.Mat
	mode   core.Mode
	closed bool
}

// NewSnapshotter writes snapshots into dir using the ext image format.
func NewSnapshotter(dir, ext string, loader *ImageLoader, logger *logrus.Logger) *Snapshotter {
	if ext == "" {
		ext = ".jpg"
	}
	return &Snapshotter{
		dir:    dir,
		ext:    ext,
		loader: loader,
		logger: logger,
		now:    time.Now,
		latest: gocv.NewMat(),
	}
}

func (s *Snapshotter) Put(out core.Output) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	out.Frame.CopyTo(&s.latest)
	s.mode = out.Mode
	return nil
}

// Take writes the latest frame as snapshot_<timestamp>_<mode><ext> and
// returns the path.
func (s *Snapshotter) Take() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.latest.Empty() {
		return "", ErrNoFrame
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create snapshot directory: %w", err)
	}

	path, err := s.uniquePath()
	if err != nil {
		return "", err
	}
	if err := s.loader.SaveImage(s.latest, path); err != nil {
		return "", err
	}

	s.logger.WithFields(logrus.Fields{
		"filepath": path,
		"mode":     s.mode.String(),
	}).Info("Snapshot saved")
	return path, nil
}

// SaveAs writes the latest frame to an explicit path.
func (s *Snapshotter) SaveAs(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.latest.Empty() {
		return ErrNoFrame
	}
	if err := s.loader.SaveImage(s.latest, path); err != nil {
		return err
	}
	s.logger.WithField("filepath", path).Info("Frame exported")
	return nil
}

func (s *Snapshotter) uniquePath() (string, error) {
	base := fmt.Sprintf("snapshot_%s_%s", s.now().Format(timestampLayout), s.mode)
	path := filepath.Join(s.dir, base+s.ext)
	for i := 1; ; i++ {
		_, err := os.Stat(path)
		if errors.Is(err, os.ErrNotExist) {
			return path, nil
		}
		if err != nil {
			return "", fmt.Errorf("check snapshot path: %w", err)
		}
		path = filepath.Join(s.dir, fmt.Sprintf("%s_%d%s", base, i, s.ext))
	}
}

// Close releases the retained frame. Later calls to Put are ignored.
func (s *Snapshotter) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.latest.Close()
}
