// Webcam Lab - live camera preview with motion and anaglyph transforms
// License: MIT
// Version: 1.0.0

package main

import (
	"flag"
	"os"

	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/theme"
	"github.com/sirupsen/logrus"

	"webcam-lab/internal/capture"
	"webcam-lab/internal/config"
	"webcam-lab/internal/gui"
)

const (
	AppName    = "Webcam Lab"
	AppID      = "com.webcamlab.app"
	AppVersion = "1.0.0"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", config.DefaultPath, "Path to the TOML configuration file")
	debugMode := flag.Bool("debug", false, "Enable debug mode with verbose logging")
	device := flag.Int("device", -1, "Camera device index (overrides the config file)")
	synthetic := flag.Bool("synthetic", false, "Use a generated test pattern instead of a camera")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		// Logger is not configured yet
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	if *device >= 0 {
		cfg.Camera.Device = *device
	}

	level := cfg.Log.Level
	if *debugMode {
		level = logrus.DebugLevel.String()
	}
	logger := config.NewLogger(level, cfg.Log.JSON && !*debugMode)
	logger.WithFields(logrus.Fields{
		"version":    AppVersion,
		"debug_mode": *debugMode,
		"config":     *configPath,
	}).Info("Starting Webcam Lab")

	opts := gui.Options{
		Config:     cfg,
		ConfigPath: *configPath,
		Debug:      *debugMode,
	}
	if *synthetic {
		src := capture.NewSyntheticSource(cfg.Camera.Width, cfg.Camera.Height)
		opts.Source, opts.Device = src, src
		logger.Info("Using synthetic capture source")
	} else {
		src, err := capture.OpenDevice(cfg.Camera.Device, cfg.Camera.Width, cfg.Camera.Height, logger)
		if err != nil {
			logger.WithError(err).WithField("device", cfg.Camera.Device).Fatal("Failed to open camera")
		}
		opts.Source, opts.Device = src, src
	}

	// Create Fyne application
	myApp := app.NewWithID(AppID)
	myApp.SetIcon(theme.MediaVideoIcon())
	myApp.Settings().SetTheme(theme.DefaultTheme())

	mainApp, err := gui.NewApplication(myApp, opts, logger)
	if err != nil {
		opts.Source.Close()
		logger.WithError(err).Fatal("Failed to initialise application")
	}
	mainApp.ShowAndRun()

	logger.Info("Application shutting down gracefully")
	os.Exit(0)
}
