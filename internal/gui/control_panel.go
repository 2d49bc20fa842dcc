// internal/gui/control_panel.go
// Right-hand panel: mode, motion strategy, capture actions, exposure
package gui

import (
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"webcam-lab/internal/algorithms"
	"webcam-lab/internal/capture"
	"webcam-lab/internal/core"
)

// PanelCallbacks are invoked on the fyne main goroutine.
type PanelCallbacks struct {
	OnModeChanged     func(core.Mode)
	OnStrategyChanged func(string)
	OnSnapshot        func()
	OnRecordToggle    func()
	OnDualFormat      func(bool)
	OnAutoExposure    func(bool)
	OnExposure        func(float64)
}

type ControlPanel struct {
	container *fyne.Container

	// Transform
	modeRadio      *widget.RadioGroup
	strategySelect *widget.Select
	strategyInfo   *widget.Label

	// Capture
	snapshotBtn *widget.Button
	recordBtn   *widget.Button
	dualCheck   *widget.Check

	// Exposure
	autoExposureCheck *widget.Check
	exposureSlider    *widget.Slider
	exposureLabel     *widget.Label

	callbacks PanelCallbacks

	// syncing suppresses callbacks while state is pushed in from outside.
	syncing bool
}

func NewControlPanel(mode core.Mode, strategy string, dual bool) *ControlPanel {
	panel := &ControlPanel{}
	panel.initializeUI(mode, strategy, dual)
	return panel
}

func (cp *ControlPanel) initializeUI(mode core.Mode, strategy string, dual bool) {
	modeNames := make([]string, 0, len(core.Modes()))
	for _, m := range core.Modes() {
		modeNames = append(modeNames, m.String())
	}
	cp.modeRadio = widget.NewRadioGroup(modeNames, cp.modeSelected)
	cp.modeRadio.Horizontal = true
	cp.modeRadio.Required = true

	cp.strategyInfo = widget.NewLabel("")
	cp.strategyInfo.Wrapping = fyne.TextWrapWord
	cp.strategySelect = widget.NewSelect(algorithms.MotionStrategies(), cp.strategySelected)

	cp.snapshotBtn = widget.NewButtonWithIcon("Snapshot", theme.MediaPhotoIcon(), func() {
		if cp.callbacks.OnSnapshot != nil {
			cp.callbacks.OnSnapshot()
		}
	})
	cp.snapshotBtn.Importance = widget.HighImportance

	cp.recordBtn = widget.NewButtonWithIcon("Record", theme.MediaRecordIcon(), func() {
		if cp.callbacks.OnRecordToggle != nil {
			cp.callbacks.OnRecordToggle()
		}
	})

	cp.dualCheck = widget.NewCheck("Also record MP4", func(on bool) {
		if !cp.syncing && cp.callbacks.OnDualFormat != nil {
			cp.callbacks.OnDualFormat(on)
		}
	})

	cp.autoExposureCheck = widget.NewCheck("Auto exposure", func(on bool) {
		if on {
			cp.exposureSlider.Disable()
		} else {
			cp.exposureSlider.Enable()
		}
		if !cp.syncing && cp.callbacks.OnAutoExposure != nil {
			cp.callbacks.OnAutoExposure(on)
		}
	})

	cp.exposureLabel = widget.NewLabel("")
	cp.exposureSlider = widget.NewSlider(capture.ExposureMin, capture.ExposureMax)
	cp.exposureSlider.Step = 1
	cp.exposureSlider.OnChanged = func(v float64) {
		cp.exposureLabel.SetText(fmt.Sprintf("Exposure: %.0f", v))
	}
	cp.exposureSlider.OnChangeEnded = func(v float64) {
		if !cp.syncing && cp.callbacks.OnExposure != nil {
			cp.callbacks.OnExposure(v)
		}
	}

	cp.syncing = true
	cp.modeRadio.SetSelected(mode.String())
	cp.strategySelect.SetSelected(strategy)
	cp.dualCheck.SetChecked(dual)
	cp.syncing = false

	cp.container = container.NewVBox(
		widget.NewCard("Mode", "", container.NewVBox(cp.modeRadio)),
		widget.NewCard("Motion", "", container.NewVBox(cp.strategySelect, cp.strategyInfo)),
		widget.NewCard("Capture", "", container.NewVBox(cp.snapshotBtn, cp.recordBtn, cp.dualCheck)),
		widget.NewCard("Exposure", "", container.NewVBox(cp.autoExposureCheck, cp.exposureLabel, cp.exposureSlider)),
	)
}

func (cp *ControlPanel) SetCallbacks(callbacks PanelCallbacks) {
	cp.callbacks = callbacks
}

func (cp *ControlPanel) modeSelected(name string) {
	mode, err := core.ParseMode(name)
	if err != nil {
		return
	}
	if mode == core.ModeMotion {
		cp.strategySelect.Enable()
	} else {
		cp.strategySelect.Disable()
	}
	if !cp.syncing && cp.callbacks.OnModeChanged != nil {
		cp.callbacks.OnModeChanged(mode)
	}
}

func (cp *ControlPanel) strategySelected(name string) {
	if algorithm, ok := algorithms.Get(name); ok {
		cp.strategyInfo.SetText(algorithm.GetDescription())
	}
	if !cp.syncing && cp.callbacks.OnStrategyChanged != nil {
		cp.callbacks.OnStrategyChanged(name)
	}
}

// SetStrategy selects a strategy without firing OnStrategyChanged.
func (cp *ControlPanel) SetStrategy(name string) {
	cp.syncing = true
	defer func() { cp.syncing = false }()
	cp.strategySelect.SetSelected(name)
}

// SetDualFormat checks the dual format box without firing OnDualFormat.
func (cp *ControlPanel) SetDualFormat(on bool) {
	cp.syncing = true
	defer func() { cp.syncing = false }()
	cp.dualCheck.SetChecked(on)
}

// SetExposure pushes device state into the exposure widgets.
func (cp *ControlPanel) SetExposure(auto bool, level float64) {
	cp.syncing = true
	defer func() { cp.syncing = false }()
	cp.exposureSlider.SetValue(level)
	cp.autoExposureCheck.SetChecked(auto)
	if auto {
		cp.exposureSlider.Disable()
	} else {
		cp.exposureSlider.Enable()
	}
}

// DisableExposure is used when the source has no adjustable properties.
func (cp *ControlPanel) DisableExposure() {
	cp.autoExposureCheck.Disable()
	cp.exposureSlider.Disable()
	cp.exposureLabel.SetText("Exposure: not available")
}

func (cp *ControlPanel) SetRecording(recording bool) {
	if recording {
		cp.recordBtn.SetText("Stop")
		cp.recordBtn.SetIcon(theme.MediaStopIcon())
		cp.recordBtn.Importance = widget.DangerImportance
		cp.dualCheck.Disable()
	} else {
		cp.recordBtn.SetText("Record")
		cp.recordBtn.SetIcon(theme.MediaRecordIcon())
		cp.recordBtn.Importance = widget.MediumImportance
		cp.dualCheck.Enable()
	}
	cp.recordBtn.Refresh()
}

func (cp *ControlPanel) GetContainer() *fyne.Container {
	return cp.container
}
