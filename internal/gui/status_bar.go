// internal/gui/status_bar.go
package gui

import (
	"fmt"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"webcam-lab/internal/core"
	"webcam-lab/internal/metrics"
)

type StatusBar struct {
	container    *fyne.Container
	statsLabel   *widget.Label
	messageLabel *widget.Label
}

func NewStatusBar() *StatusBar {
	sb := &StatusBar{
		statsLabel:   widget.NewLabel("Waiting for camera..."),
		messageLabel: widget.NewLabel(""),
	}
	sb.messageLabel.Truncation = fyne.TextTruncateEllipsis
	sb.container = container.NewBorder(nil, nil, sb.statsLabel, nil, sb.messageLabel)
	return sb
}

func (sb *StatusBar) SetStats(text string) {
	sb.statsLabel.SetText(text)
}

func (sb *StatusBar) SetMessage(message string) {
	sb.messageLabel.SetText(message)
}

func (sb *StatusBar) GetContainer() *fyne.Container {
	return sb.container
}

// FormatStats renders the loop counters for the status bar.
func FormatStats(snap metrics.Snapshot, mode core.Mode, coverage float64, recording bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s | %.1f fps | %d frames", mode, snap.FPS, snap.Captured)
	if snap.Skipped > 0 {
		fmt.Fprintf(&b, " | %d skipped", snap.Skipped)
	}
	if snap.Failed > 0 {
		fmt.Fprintf(&b, " | %d failed", snap.Failed)
	}
	if mode == core.ModeMotion {
		fmt.Fprintf(&b, " | motion %.1f%%", coverage*100)
	}
	if recording {
		b.WriteString(" | REC")
	}
	return b.String()
}
