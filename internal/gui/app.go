// Main application window wiring the capture pipeline to the controls
package gui

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"github.com/sirupsen/logrus"

	"webcam-lab/internal/capture"
	"webcam-lab/internal/config"
	"webcam-lab/internal/core"
	"webcam-lab/internal/io"
	"webcam-lab/internal/record"
	"webcam-lab/internal/stream"
)

const statusInterval = 500 * time.Millisecond

// Options carries what the entry point has already opened.
type Options struct {
	Config *config.Config
	Source capture.Source
	Debug  bool

	// ConfigPath is watched for changes when set.
	ConfigPath string
	// Device is nil when the source has no adjustable properties.
	Device capture.PropertyDevice
	// OpenVideo defaults to gocv video writers.
	OpenVideo record.OpenFunc
}

// Application represents the main window and everything it drives.
type Application struct {
	app        fyne.App
	window     fyne.Window
	logger     *logrus.Logger
	debugMode  bool
	configPath string

	cfgMu sync.Mutex
	cfg   *config.Config

	// Core components
	session     *core.Session
	pipeline    *core.Pipeline
	loader      *io.ImageLoader
	snapshotter *io.Snapshotter
	recorder    *record.Recorder
	broadcaster *stream.Broadcaster
	controls    *capture.Controls

	// GUI components
	preview     *Preview
	panel       *ControlPanel
	status      *StatusBar
	menuHandler *MenuHandler

	mainContent *container.Split

	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	startOnce   sync.Once
	cleanupOnce sync.Once
}

func NewApplication(app fyne.App, opts Options, logger *logrus.Logger) (*Application, error) {
	if opts.Source == nil {
		return nil, errors.New("no capture source")
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	window := app.NewWindow("webcam-lab")
	window.Resize(fyne.NewSize(1100, 720))
	window.CenterOnScreen()

	ctx, cancel := context.WithCancel(context.Background())
	appInstance := &Application{
		app:        app,
		window:     window,
		logger:     logger,
		debugMode:  opts.Debug,
		configPath: opts.ConfigPath,
		cfg:        cfg,
		ctx:        ctx,
		cancel:     cancel,
	}

	if err := appInstance.initializeCore(opts); err != nil {
		cancel()
		return nil, err
	}
	appInstance.initializeGUI()
	appInstance.setupLayout()
	appInstance.setupCallbacks()

	return appInstance, nil
}

func (a *Application) initializeCore(opts Options) error {
	mode, err := core.ParseMode(a.cfg.Camera.Mode)
	if err != nil {
		return err
	}

	a.session = core.NewSession()
	if err := a.session.SetMode(mode); err != nil {
		return err
	}
	if err := a.session.SetMotionStrategy(a.cfg.Motion.Strategy, a.cfg.MotionParams()); err != nil {
		return fmt.Errorf("motion strategy: %w", err)
	}

	a.pipeline = core.NewPipeline(opts.Source, a.session, a.logger)
	a.pipeline.SetInterval(a.cfg.Interval())
	if opts.Debug {
		a.pipeline.SetDebugger(core.NewPipelineDebugger(a.logger, core.DefaultDebugWindow))
	}

	a.loader = io.NewImageLoader(a.logger)
	a.snapshotter = io.NewSnapshotter(a.cfg.Output.Dir, a.cfg.Output.SnapshotFormat, a.loader, a.logger)
	a.recorder = record.NewRecorder(RecorderSettings(a.cfg), opts.OpenVideo, a.logger)

	if opts.Device != nil {
		a.controls = capture.NewControls(opts.Device, a.logger)
	}
	if a.cfg.Stream.Listen != "" {
		a.broadcaster = stream.NewBroadcaster(a.logger)
	}
	return nil
}

func (a *Application) initializeGUI() {
	a.preview = NewPreview(a.logger)
	a.panel = NewControlPanel(a.session.Mode(), a.session.MotionSettings().Strategy, a.cfg.Output.DualFormat)
	a.status = NewStatusBar()
	a.menuHandler = NewMenuHandler(a.window, a.snapshotter, a.loader, a.logger)

	a.panel.SetExposure(a.cfg.Camera.AutoExposure, a.cfg.Camera.Exposure)
	if a.controls == nil {
		a.panel.DisableExposure()
	}
}

func (a *Application) setupLayout() {
	center := container.NewBorder(
		nil,                     // top
		a.status.GetContainer(), // bottom
		nil,                     // left
		nil,                     // right
		a.preview.GetCanvas(),   // center
	)

	a.mainContent = container.NewHSplit(
		center,
		container.NewVScroll(a.panel.GetContainer()),
	)
	a.mainContent.SetOffset(0.75)

	a.window.SetMainMenu(a.menuHandler.GetMainMenu())
	a.window.SetContent(a.mainContent)
}

func (a *Application) setupCallbacks() {
	// Sinks run in this order every cycle
	a.pipeline.AddSink(a.preview)
	a.pipeline.AddSink(a.recorder)
	a.pipeline.AddSink(a.snapshotter)
	if a.broadcaster != nil {
		a.pipeline.AddSink(a.broadcaster)
	}

	a.pipeline.SetErrorHandler(func(err error) {
		a.logger.WithError(err).Warn("Capture cycle failed")
		fyne.Do(func() {
			a.updateStatusMessage(fmt.Sprintf("Error: %s", err.Error()))
		})
	})

	a.panel.SetCallbacks(PanelCallbacks{
		OnModeChanged:     a.onModeChanged,
		OnStrategyChanged: a.onStrategyChanged,
		OnSnapshot:        a.onSnapshot,
		OnRecordToggle:    a.onRecordToggle,
		OnDualFormat:      a.onDualFormat,
		OnAutoExposure:    a.onAutoExposure,
		OnExposure:        a.onExposure,
	})

	a.menuHandler.SetCallbacks(
		// onSnapshot
		a.onSnapshot,
		// onRecordToggle
		a.onRecordToggle,
		// onModeSelected: goes through the radio so both stay in sync
		func(mode core.Mode) {
			a.panel.modeRadio.SetSelected(mode.String())
		},
		// onReset
		func() {
			a.session.Reset()
			a.updateStatusMessage("Motion reference cleared")
		},
		// onExported
		func(path string) {
			a.updateStatusMessage(fmt.Sprintf("Exported: %s", path))
		},
	)
}

func (a *Application) onModeChanged(mode core.Mode) {
	if err := a.session.SetMode(mode); err != nil {
		a.showError("Mode", err)
		return
	}
	a.logger.WithField("mode", mode.String()).Info("Mode changed")
	a.updateStatusMessage(fmt.Sprintf("Mode: %s", mode))
}

func (a *Application) onStrategyChanged(name string) {
	a.cfgMu.Lock()
	params := map[string]interface{}{}
	if name == a.cfg.Motion.Strategy {
		params = a.cfg.MotionParams()
	}
	a.cfgMu.Unlock()

	if err := a.session.SetMotionStrategy(name, params); err != nil {
		a.showError("Motion strategy", err)
		return
	}
	a.logger.WithField("strategy", name).Info("Motion strategy changed")
	a.updateStatusMessage(fmt.Sprintf("Motion strategy: %s", name))
}

func (a *Application) onSnapshot() {
	path, err := a.snapshotter.Take()
	if errors.Is(err, io.ErrNoFrame) {
		a.updateStatusMessage("No frame captured yet")
		return
	}
	if err != nil {
		a.showError("Snapshot failed", err)
		return
	}
	a.updateStatusMessage(fmt.Sprintf("Saved: %s", path))
}

func (a *Application) onRecordToggle() {
	recording, files, err := a.recorder.Toggle(a.session.Mode())
	if err != nil {
		a.showError("Recording failed", err)
		a.panel.SetRecording(a.recorder.Recording())
		return
	}
	a.panel.SetRecording(recording)
	if recording {
		a.updateStatusMessage(fmt.Sprintf("Recording: %v", files))
	} else {
		a.updateStatusMessage(fmt.Sprintf("Recording saved: %v", files))
	}
}

func (a *Application) onDualFormat(on bool) {
	a.recorder.SetDualFormat(on)
}

func (a *Application) onAutoExposure(on bool) {
	if a.controls == nil {
		return
	}
	a.reportSetting(a.controls.SetAutoExposure(on))
}

func (a *Application) onExposure(level float64) {
	if a.controls == nil {
		return
	}
	a.reportSetting(a.controls.SetExposure(level))
}

func (a *Application) reportSetting(result capture.Result) {
	if result.Accepted {
		a.updateStatusMessage(result.String())
		return
	}
	a.updateStatusMessage("Warning: " + result.String())
}

// applyExposure pushes the configured exposure to the device. Called from
// Start and after a config reload, off the main goroutine.
func (a *Application) applyExposure(cfg *config.Config) {
	if a.controls == nil {
		return
	}
	results := []capture.Result{a.controls.SetAutoExposure(cfg.Camera.AutoExposure)}
	if !cfg.Camera.AutoExposure {
		results = append(results, a.controls.SetExposure(cfg.Camera.Exposure))
	}
	for _, result := range results {
		if !result.Accepted {
			msg := "Warning: " + result.String()
			fyne.Do(func() { a.updateStatusMessage(msg) })
		}
	}
}

// applyConfig takes motion, recording and exposure settings from a reloaded
// configuration. Camera geometry and output paths need a restart.
func (a *Application) applyConfig(cfg *config.Config) {
	a.cfgMu.Lock()
	a.cfg = cfg
	a.cfgMu.Unlock()

	if err := a.session.SetMotionStrategy(cfg.Motion.Strategy, cfg.MotionParams()); err != nil {
		a.logger.WithError(err).Warn("Reloaded motion settings rejected")
		return
	}
	a.recorder.SetDualFormat(cfg.Output.DualFormat)
	a.applyExposure(cfg)

	fyne.Do(func() {
		a.panel.SetStrategy(cfg.Motion.Strategy)
		a.panel.SetDualFormat(cfg.Output.DualFormat)
		a.panel.SetExposure(cfg.Camera.AutoExposure, cfg.Camera.Exposure)
		a.updateStatusMessage("Configuration reloaded")
	})
}

// Start launches the capture loop and the background services. It is called
// by ShowAndRun and is safe to call more than once.
func (a *Application) Start() {
	a.startOnce.Do(func() {
		if a.controls != nil {
			for _, c := range a.controls.Capabilities() {
				a.logger.WithFields(logrus.Fields{
					"setting":   c.Setting,
					"supported": c.Supported,
					"current":   c.Current,
				}).Info("Device capability")
			}
			a.applyExposure(a.cfg)
		}

		if a.broadcaster != nil {
			addr, err := a.broadcaster.ListenAndServe(a.cfg.Stream.Listen)
			if err != nil {
				a.logger.WithError(err).Error("Live stream disabled")
				a.broadcaster = nil
			} else {
				a.updateStatusMessage(fmt.Sprintf("Streaming on http://%s/", addr))
			}
		}

		a.wg.Add(2)
		go func() {
			defer a.wg.Done()
			if err := a.pipeline.Run(a.ctx); err != nil {
				a.logger.WithError(err).Error("Capture loop ended")
			}
		}()
		go func() {
			defer a.wg.Done()
			a.statusLoop()
		}()

		if a.configPath != "" {
			a.wg.Add(1)
			go func() {
				defer a.wg.Done()
				if err := config.Watch(a.ctx, a.configPath, a.logger, a.applyConfig); err != nil {
					a.logger.WithError(err).Warn("Configuration hot reload disabled")
				}
			}()
		}
	})
}

func (a *Application) statusLoop() {
	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()
	for {
		select {
		case <-a.ctx.Done():
			return
		case <-ticker.C:
			text := FormatStats(a.pipeline.Stats(), a.session.Mode(), a.preview.Coverage(), a.recorder.Recording())
			fyne.Do(func() { a.status.SetStats(text) })
		}
	}
}

func (a *Application) updateStatusMessage(message string) {
	if a.status != nil {
		a.status.SetMessage(message)
	}
}

func (a *Application) ShowAndRun() {
	a.logger.Info("Showing main application window")

	a.window.SetCloseIntercept(func() {
		a.cleanup()
		a.app.Quit()
	})

	a.Start()
	a.window.ShowAndRun()
	a.cleanup()
}

// cleanup stops the loop, then releases every resource exactly once. Parts
// that were never started are skipped.
func (a *Application) cleanup() {
	a.cleanupOnce.Do(func() {
		a.logger.Info("Cleaning up application resources")
		a.cancel()
		a.wg.Wait()

		if err := a.recorder.Close(); err != nil {
			a.logger.WithError(err).Error("Closing recording failed")
		}
		a.snapshotter.Close()
		if a.broadcaster != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			if err := a.broadcaster.Shutdown(ctx); err != nil {
				a.logger.WithError(err).Warn("Stream shutdown failed")
			}
			cancel()
		}
		if err := a.pipeline.Close(); err != nil {
			a.logger.WithError(err).Error("Closing capture source failed")
		}
	})
}

func (a *Application) showError(title string, err error) {
	a.logger.WithError(err).Error(title)
	dialog.ShowError(err, a.window)
	a.updateStatusMessage(fmt.Sprintf("Error: %s", err.Error()))
}

// RecorderSettings maps the output section onto recorder settings.
func RecorderSettings(cfg *config.Config) record.Settings {
	settings := record.DefaultSettings()
	settings.Dir = cfg.Output.Dir
	settings.FPS = cfg.Output.FPS
	settings.Width = cfg.Camera.Width
	settings.Height = cfg.Camera.Height
	settings.Primary = record.Format{Ext: cfg.Output.Container, Codec: cfg.Output.Codec}
	settings.Secondary = record.Format{Ext: cfg.Output.SecondaryExt, Codec: cfg.Output.SecondaryCodec}
	settings.Dual = cfg.Output.DualFormat
	return settings
}
