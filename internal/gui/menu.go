// Menu handler for application actions
package gui

import (
	"errors"
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"
	"github.com/sirupsen/logrus"

	"webcam-lab/internal/core"
	"webcam-lab/internal/io"
)

// MenuHandler handles menu actions
type MenuHandler struct {
	window      fyne.Window
	snapshotter *io.Snapshotter
	loader      *io.ImageLoader
	logger      *logrus.Logger

	onSnapshot     func()
	onRecordToggle func()
	onModeSelected func(core.Mode)
	onReset        func()
	onExported     func(string)
}

func NewMenuHandler(window fyne.Window, snapshotter *io.Snapshotter, loader *io.ImageLoader, logger *logrus.Logger) *MenuHandler {
	return &MenuHandler{
		window:      window,
		snapshotter: snapshotter,
		loader:      loader,
		logger:      logger,
	}
}

func (mh *MenuHandler) GetMainMenu() *fyne.MainMenu {
	// File menu
	fileMenu := fyne.NewMenu("File",
		fyne.NewMenuItem("Save Snapshot", mh.call(&mh.onSnapshot)),
		fyne.NewMenuItem("Export Frame As...", mh.exportFrame),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Exit", func() {
			mh.window.Close()
		}),
	)

	// Capture menu
	captureMenu := fyne.NewMenu("Capture",
		fyne.NewMenuItem("Start/Stop Recording", mh.call(&mh.onRecordToggle)),
		fyne.NewMenuItem("Reset Motion Reference", mh.call(&mh.onReset)),
	)

	// Mode menu
	modeItems := make([]*fyne.MenuItem, 0, len(core.Modes()))
	for _, mode := range core.Modes() {
		mode := mode
		modeItems = append(modeItems, fyne.NewMenuItem(mode.String(), func() {
			if mh.onModeSelected != nil {
				mh.onModeSelected(mode)
			}
		}))
	}
	modeMenu := fyne.NewMenu("Mode", modeItems...)

	// Help menu
	helpMenu := fyne.NewMenu("Help",
		fyne.NewMenuItem("About", mh.showAbout),
	)

	return fyne.NewMainMenu(fileMenu, captureMenu, modeMenu, helpMenu)
}

func (mh *MenuHandler) call(fn *func()) func() {
	return func() {
		if *fn != nil {
			(*fn)()
		}
	}
}

func (mh *MenuHandler) exportFrame() {
	mh.logger.Info("Opening file dialog for frame export")

	fileDialog := dialog.NewFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil {
			mh.showError("File Dialog Error", err)
			return
		}
		if writer == nil {
			return
		}
		filepath := writer.URI().Path()
		// SaveImage writes through OpenCV, not the dialog's stream.
		writer.Close()

		if err := mh.ExportTo(filepath); err != nil {
			mh.showError("Failed to Export Frame", err)
		}
	}, mh.window)

	fileDialog.SetFileName("frame.png")
	fileDialog.SetFilter(storage.NewExtensionFileFilter(mh.loader.GetSupportedExtensions()))
	fileDialog.Show()
}

// ExportTo saves the latest output frame to filepath.
func (mh *MenuHandler) ExportTo(filepath string) error {
	if err := mh.snapshotter.SaveAs(filepath); err != nil {
		if errors.Is(err, io.ErrNoFrame) {
			return fmt.Errorf("nothing to export: %w", err)
		}
		return err
	}
	if mh.onExported != nil {
		mh.onExported(filepath)
	}
	return nil
}

func (mh *MenuHandler) showAbout() {
	content := container.NewVBox(
		widget.NewLabel("Webcam Lab v1.0"),
		widget.NewSeparator(),
		widget.NewLabel("Live camera preview with Normal, Motion"),
		widget.NewLabel("and time-shifted Anaglyph views."),
		widget.NewSeparator(),
		widget.NewLabel("Built with Go, Fyne v2.6 and OpenCV"),
		widget.NewLabel("License: MIT"),
	)

	aboutDialog := dialog.NewCustom("About", "Close", content, mh.window)
	aboutDialog.Resize(fyne.NewSize(360, 220))
	aboutDialog.Show()
}

func (mh *MenuHandler) showError(title string, err error) {
	mh.logger.WithError(err).Error(title)
	dialog.ShowError(err, mh.window)
}

func (mh *MenuHandler) SetCallbacks(onSnapshot, onRecordToggle func(), onModeSelected func(core.Mode), onReset func(), onExported func(string)) {
	mh.onSnapshot = onSnapshot
	mh.onRecordToggle = onRecordToggle
	mh.onModeSelected = onModeSelected
	mh.onReset = onReset
	mh.onExported = onExported
}
