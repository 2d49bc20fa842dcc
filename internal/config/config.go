// Package config loads the TOML configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"webcam-lab/internal/algorithms"
	"webcam-lab/internal/core"
)

// DefaultPath is used when no -config flag is given.
const DefaultPath = "webcam-lab.toml"

// Config holds runtime configuration. Fields may be loaded from a TOML file
// and overridden by command-line flags.
type Config struct {
	Camera CameraConfig `toml:"camera"`
	Motion MotionConfig `toml:"motion"`
	Output OutputConfig `toml:"output"`
	Stream StreamConfig `toml:"stream"`
	Log    LogConfig    `toml:"log"`
}

type CameraConfig struct {
	Device       int     `toml:"device"`
	Width        int     `toml:"width"`
	Height       int     `toml:"height"`
	IntervalMS   int     `toml:"interval_ms"`
	AutoExposure bool    `toml:"auto_exposure"`
	Exposure     float64 `toml:"exposure"`
	Mode         string  `toml:"mode"`
}

type MotionConfig struct {
	Strategy  string  `toml:"strategy"`
	Threshold float64 `toml:"threshold"`
	Floor     float64 `toml:"floor"`
	Gain      float64 `toml:"gain"`
}

type OutputConfig struct {
	Dir            string  `toml:"dir"`
	SnapshotFormat string  `toml:"snapshot_format"`
	FPS            float64 `toml:"fps"`
	Codec          string  `toml:"codec"`
	Container      string  `toml:"container"`
	DualFormat     bool    `toml:"dual_format"`
	SecondaryCodec string  `toml:"secondary_codec"`
	SecondaryExt   string  `toml:"secondary_container"`
}

type StreamConfig struct {
	Listen string `toml:"listen"`
}

type LogConfig struct {
	Level string `toml:"level"`
	JSON  bool   `toml:"json"`
}

// DefaultConfig returns a Config populated with standard defaults.
func DefaultConfig() *Config {
	return &Config{
		Camera: CameraConfig{
			Device:       0,
			Width:        640,
			Height:       480,
			IntervalMS:   15,
			AutoExposure: true,
			Exposure:     -6,
			Mode:         core.ModeNormal.String(),
		},
		Motion: MotionConfig{
			Strategy:  algorithms.BinaryThreshold,
			Threshold: 25,
			Floor:     10,
			Gain:      3,
		},
		Output: OutputConfig{
			Dir:            "gallery",
			SnapshotFormat: ".jpg",
			FPS:            20,
			Codec:          "XVID",
			Container:      ".avi",
			DualFormat:     false,
			SecondaryCodec: "mp4v",
			SecondaryExt:   ".mp4",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Validate clamps numeric values to safe ranges and rejects values that
// cannot be repaired.
func (c *Config) Validate() error {
	var errs []error

	if c.Camera.Width <= 0 || c.Camera.Height <= 0 {
		c.Camera.Width, c.Camera.Height = 640, 480
	}
	if c.Camera.IntervalMS <= 0 {
		c.Camera.IntervalMS = 15
	}
	if c.Camera.Device < 0 {
		errs = append(errs, fmt.Errorf("camera.device must not be negative"))
	}
	if _, err := core.ParseMode(c.Camera.Mode); err != nil {
		errs = append(errs, fmt.Errorf("camera.mode: %w", err))
	}

	if !algorithms.IsMotionStrategy(c.Motion.Strategy) {
		errs = append(errs, fmt.Errorf("motion.strategy must be one of %s", strings.Join(algorithms.MotionStrategies(), ", ")))
	} else if err := algorithms.ValidateParameters(c.Motion.Strategy, c.MotionParams()); err != nil {
		errs = append(errs, fmt.Errorf("motion: %w", err))
	}

	if c.Output.Dir == "" {
		c.Output.Dir = "gallery"
	}
	if c.Output.FPS <= 0 {
		c.Output.FPS = 20
	}
	if !strings.HasPrefix(c.Output.SnapshotFormat, ".") {
		c.Output.SnapshotFormat = "." + c.Output.SnapshotFormat
	}
	for _, codec := range []string{c.Output.Codec, c.Output.SecondaryCodec} {
		if len(codec) != 4 {
			errs = append(errs, fmt.Errorf("codec %q must be a four-character code", codec))
		}
	}
	for _, ext := range []*string{&c.Output.Container, &c.Output.SecondaryExt} {
		if !strings.HasPrefix(*ext, ".") {
			*ext = "." + *ext
		}
	}

	return errors.Join(errs...)
}

// MotionParams returns the parameters for the configured motion strategy.
func (c *Config) MotionParams() map[string]interface{} {
	switch c.Motion.Strategy {
	case algorithms.SquaredEmphasis:
		return map[string]interface{}{"floor": c.Motion.Floor, "gain": c.Motion.Gain}
	default:
		return map[string]interface{}{"threshold": c.Motion.Threshold}
	}
}

// Interval is the capture loop period.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.Camera.IntervalMS) * time.Millisecond
}

// Load reads configuration from path. A missing file yields DefaultConfig().
// Values absent from the file keep their defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return DefaultConfig(), fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the configuration to path in TOML format.
func (c *Config) Save(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(c)
}
