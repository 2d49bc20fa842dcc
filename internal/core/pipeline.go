// internal/core/pipeline.go
// Capture loop: poll the source, transform, dispatch to sinks
package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"webcam-lab/internal/capture"
	"webcam-lab/internal/metrics"
)

// DefaultInterval matches a ~60 Hz preview refresh.
const DefaultInterval = 15 * time.Millisecond

// Pipeline drives one capture-transform-dispatch cycle at a time.
type Pipeline struct {
	source  capture.Source
	session *Session
	logger  *logrus.Logger
	stats   *metrics.Stats

	mu       sync.RWMutex
	sinks    []Sink
	interval time.Duration
	onError  func(error)
	seq      uint64
	frame    gocv.Mat
	now      func() time.Time
	debugger *PipelineDebugger

	closeOnce sync.Once
	closeErr  error
}

func NewPipeline(source capture.Source, session *Session, logger *logrus.Logger) *Pipeline {
	return &Pipeline{
		source:   source,
		session:  session,
		logger:   logger,
		stats:    &metrics.Stats{},
		interval: DefaultInterval,
		frame:    gocv.NewMat(),
		now:      time.Now,
	}
}

// AddSink appends a sink. Sinks are called in the order they were added.
func (p *Pipeline) AddSink(s Sink) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sinks = append(p.sinks, s)
}

func (p *Pipeline) SetInterval(d time.Duration) {
	if d <= 0 {
		d = DefaultInterval
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.interval = d
}

// SetErrorHandler sets the callback Run uses for cycle errors.
func (p *Pipeline) SetErrorHandler(fn func(error)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onError = fn
}

// SetDebugger enables per-cycle timing. Pass nil to disable.
func (p *Pipeline) SetDebugger(d *PipelineDebugger) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.debugger = d
}

func (p *Pipeline) Session() *Session {
	return p.session
}

func (p *Pipeline) Stats() metrics.Snapshot {
	return p.stats.Snapshot()
}

// Step runs a single cycle. It reports whether a frame was captured. A
// failed read skips the cycle without touching the session or the sinks.
func (p *Pipeline) Step() (bool, error) {
	p.mu.RLock()
	debugger := p.debugger
	p.mu.RUnlock()

	var timing CycleTiming
	start := time.Now()
	if debugger != nil {
		defer func() { debugger.LogCycle(timing) }()
	}

	if !p.source.Read(&p.frame) || p.frame.Empty() {
		timing.Read = time.Since(start)
		p.stats.RecordSkip()
		p.logger.Debug("PIPELINE: No frame available, skipping cycle")
		return false, nil
	}
	captured := p.now()
	timing.Read = time.Since(start)
	timing.Captured = true

	start = time.Now()
	out, err := p.session.Process(p.frame)
	timing.Transform = time.Since(start)
	if err != nil {
		p.stats.RecordFailure()
		timing.Err = fmt.Errorf("transform: %w", err)
		return true, timing.Err
	}
	defer out.Frame.Close()

	p.mu.Lock()
	p.seq++
	out.Seq = p.seq
	sinks := append([]Sink(nil), p.sinks...)
	p.mu.Unlock()
	out.Captured = captured

	start = time.Now()
	var errs []error
	for _, sink := range sinks {
		if err := sink.Put(out); err != nil {
			errs = append(errs, err)
		}
	}
	timing.Sinks = time.Since(start)
	p.stats.RecordFrame(captured)

	if len(errs) > 0 {
		p.stats.RecordFailure()
		timing.Err = errors.Join(errs...)
		return true, timing.Err
	}
	return true, nil
}

// Run calls Step every interval until ctx is cancelled. Cycle errors go to
// the error handler and do not stop the loop.
func (p *Pipeline) Run(ctx context.Context) error {
	p.mu.RLock()
	interval := p.interval
	p.mu.RUnlock()

	p.logger.WithField("interval", interval).Info("PIPELINE: Capture loop started")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("PIPELINE: Capture loop stopped")
			return nil
		case <-ticker.C:
			if _, err := p.Step(); err != nil {
				p.reportError(err)
			}
		}
	}
}

func (p *Pipeline) reportError(err error) {
	p.mu.RLock()
	handler := p.onError
	p.mu.RUnlock()

	if handler != nil {
		handler(err)
		return
	}
	p.logger.WithError(err).Error("PIPELINE: Cycle failed")
}

// Close releases the source and the capture buffer exactly once. It must not
// be called while Run is active.
func (p *Pipeline) Close() error {
	p.closeOnce.Do(func() {
		p.closeErr = p.source.Close()
		p.frame.Close()
		p.session.Close()
	})
	return p.closeErr
}
