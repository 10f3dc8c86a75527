package gui

import (
	"fmt"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/docupload/docupload/internal/upload"
)

// StatusLevel selects the status bar icon.
type StatusLevel int

const (
	StatusInfo StatusLevel = iota
	StatusSuccess
	StatusWarning
	StatusError
	// StatusBusy shows a spinner instead of an icon.
	StatusBusy
)

// StatusBar is the one-line status display at the bottom of the window.
type StatusBar struct {
	widget.BaseWidget

	mu      sync.RWMutex
	level   StatusLevel
	message string

	icon    *widget.Icon
	label   *widget.Label
	spinner *widget.Activity
}

// NewStatusBar creates a status bar showing msg.
func NewStatusBar(msg string) *StatusBar {
	sb := &StatusBar{level: StatusInfo, message: msg}
	sb.label = widget.NewLabel(msg)
	sb.label.TextStyle = fyne.TextStyle{Italic: true}
	sb.icon = widget.NewIcon(theme.InfoIcon())
	sb.spinner = widget.NewActivity()
	sb.spinner.Hide()
	sb.ExtendBaseWidget(sb)
	return sb
}

// Set updates the message and level. Safe from any goroutine.
func (sb *StatusBar) Set(message string, level StatusLevel) {
	sb.mu.Lock()
	sb.level = level
	sb.message = message
	sb.mu.Unlock()

	fyne.Do(func() {
		sb.label.SetText(message)
		if level == StatusBusy {
			sb.icon.Hide()
			sb.spinner.Show()
			sb.spinner.Start()
			return
		}
		sb.spinner.Stop()
		sb.spinner.Hide()
		sb.icon.Show()
		switch level {
		case StatusSuccess:
			sb.icon.SetResource(theme.ConfirmIcon())
		case StatusWarning:
			sb.icon.SetResource(theme.WarningIcon())
		case StatusError:
			sb.icon.SetResource(theme.ErrorIcon())
		default:
			sb.icon.SetResource(theme.InfoIcon())
		}
	})
}

// ShowTally summarizes a finished upload action.
func (sb *StatusBar) ShowTally(t upload.Tally) {
	msg := fmt.Sprintf("%d document uploaded, %d failed", t.Succeeded, t.Failed())
	switch {
	case t.Failed() == 0:
		sb.Set(msg, StatusSuccess)
	case t.Succeeded == 0:
		sb.Set(msg, StatusError)
	default:
		sb.Set(msg, StatusWarning)
	}
}

// Message returns the current message.
func (sb *StatusBar) Message() string {
	sb.mu.RLock()
	defer sb.mu.RUnlock()
	return sb.message
}

// Level returns the current level.
func (sb *StatusBar) Level() StatusLevel {
	sb.mu.RLock()
	defer sb.mu.RUnlock()
	return sb.level
}

// CreateRenderer implements fyne.Widget
func (sb *StatusBar) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(container.NewHBox(sb.icon, sb.spinner, sb.label))
}
