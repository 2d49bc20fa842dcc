package capture

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

// Setting names a device control independent of driver property codes.
type Setting string

const (
	SettingAutoExposure Setting = "auto_exposure"
	SettingExposure     Setting = "exposure"
)

// V4L2 through OpenCV encodes the auto-exposure menu as 0.75 (aperture
// priority, automatic) and 0.25 (manual).
const (
	autoExposureOn  = 0.75
	autoExposureOff = 0.25
)

// Exposure slider range, in driver units (log2 seconds on most UVC cameras).
const (
	ExposureMin = -13.0
	ExposureMax = 0.0
)

const readbackTolerance = 0.01

var settingProps = map[Setting]gocv.VideoCaptureProperties{
	SettingAutoExposure: gocv.VideoCaptureAutoExposure,
	SettingExposure:     gocv.VideoCaptureExposure,
}

// Result reports what the device did with a requested setting. A rejected
// setting is not an error: many drivers silently ignore properties.
type Result struct {
	Setting   Setting
	Requested float64
	Applied   float64
	Accepted  bool
}

func (r Result) String() string {
	if r.Accepted {
		return fmt.Sprintf("%s = %g", r.Setting, r.Applied)
	}
	return fmt.Sprintf("%s rejected by device (requested %g, reads %g)", r.Setting, r.Requested, r.Applied)
}

// Capability describes whether a setting appears to be supported.
type Capability struct {
	Setting   Setting
	Supported bool
	Current   float64
}

// Controls negotiates named settings with a PropertyDevice.
type Controls struct {
	device PropertyDevice
	logger *logrus.Logger
}

func NewControls(device PropertyDevice, logger *logrus.Logger) *Controls {
	return &Controls{device: device, logger: logger}
}

// SetAutoExposure switches automatic exposure on or off.
func (c *Controls) SetAutoExposure(on bool) Result {
	value := autoExposureOff
	if on {
		value = autoExposureOn
	}
	return c.Apply(SettingAutoExposure, value)
}

// SetExposure sets the manual exposure level, clamped to the slider range.
func (c *Controls) SetExposure(level float64) Result {
	level = math.Max(ExposureMin, math.Min(ExposureMax, level))
	return c.Apply(SettingExposure, level)
}

// Apply writes a setting, reads it back and reports whether it stuck.
func (c *Controls) Apply(setting Setting, value float64) Result {
	prop, ok := settingProps[setting]
	if !ok || c.device == nil {
		return Result{Setting: setting, Requested: value}
	}

	c.device.SetProperty(prop, value)
	applied := c.device.Property(prop)
	result := Result{
		Setting:   setting,
		Requested: value,
		Applied:   applied,
		Accepted:  math.Abs(applied-value) <= readbackTolerance,
	}

	fields := logrus.Fields{
		"setting":   setting,
		"requested": value,
		"applied":   applied,
	}
	if result.Accepted {
		c.logger.WithFields(fields).Debug("Device setting applied")
	} else {
		c.logger.WithFields(fields).Warn("Device rejected setting")
	}
	return result
}

// Capabilities probes each known setting. Drivers report 0 for properties
// they do not implement, so a zero read is treated as unsupported.
func (c *Controls) Capabilities() []Capability {
	caps := make([]Capability, 0, len(settingProps))
	for _, setting := range []Setting{SettingAutoExposure, SettingExposure} {
		if c.device == nil {
			caps = append(caps, Capability{Setting: setting})
			continue
		}
		current := c.device.Property(settingProps[setting])
		caps = append(caps, Capability{
			Setting:   setting,
			Supported: current != 0,
			Current:   current,
		})
	}
	return caps
}
