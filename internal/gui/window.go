package gui

import (
	"context"
	"fmt"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/docupload/docupload/internal/events"
	"github.com/docupload/docupload/internal/logging"
	"github.com/docupload/docupload/internal/progress"
	"github.com/docupload/docupload/internal/upload"
)

// Uploader is what the window needs from the engine.
type Uploader interface {
	Upload(ctx context.Context, folders []string) upload.Tally
	Events() *events.EventBus
}

// Window is the main window: the selection list, "Choose documents" and "Upload".
type Window struct {
	ctx      context.Context
	window   fyne.Window
	uploader Uploader
	logger   *logging.Logger

	selection upload.Selection
	folders   *FolderList
	status    *StatusBar

	chooseButton *widget.Button
	uploadButton *widget.Button
	busy         bool

	// onUploadDone, when set, is called on the fyne goroutine after each upload action.
	onUploadDone func(upload.Tally)
}

// NewWindow creates the main window content for w.
func NewWindow(ctx context.Context, w fyne.Window, uploader Uploader, logger *logging.Logger) *Window {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	ui := &Window{
		ctx:      ctx,
		window:   w,
		uploader: uploader,
		logger:   logger,
		folders:  NewFolderList(),
		status:   NewStatusBar("Ready"),
	}
	ui.chooseButton = widget.NewButtonWithIcon("Choose documents", theme.FolderOpenIcon(), ui.chooseDocuments)
	ui.uploadButton = widget.NewButtonWithIcon("Upload", theme.UploadIcon(), ui.startUpload)
	ui.uploadButton.Importance = widget.HighImportance
	ui.folders.SetFolders(nil)
	return ui
}

// Build creates the window layout.
func (ui *Window) Build() fyne.CanvasObject {
	header := widget.NewLabelWithStyle("Selected documents", fyne.TextAlignLeading, fyne.TextStyle{Bold: true})
	actions := container.NewHBox(ui.chooseButton, ui.uploadButton)
	return container.NewBorder(
		header,
		container.NewVBox(widget.NewSeparator(), container.NewBorder(nil, nil, ui.status, actions)),
		nil, nil,
		ui.folders.CanvasObject(),
	)
}

// SetSelection replaces the selected folders and refreshes the list.
// Must run on the fyne goroutine.
func (ui *Window) SetSelection(folders []string) {
	ui.selection.Replace(folders)
	ui.folders.SetFolders(ui.selection.Folders())
	ui.logger.Debug().Int("folders", ui.selection.Len()).Msg("Selection replaced")
	ui.status.Set(selectionMessage(ui.selection.Len()), StatusInfo)
}

func selectionMessage(n int) string {
	if n == 1 {
		return "1 document selected"
	}
	return fmt.Sprintf("%d documents selected", n)
}

func (ui *Window) chooseDocuments() {
	d := dialog.NewFolderOpen(func(uri fyne.ListableURI, err error) {
		if err != nil {
			ui.logger.Warn().Err(err).Msg("Folder dialog failed")
			dialog.ShowError(err, ui.window)
			return
		}
		if uri == nil {
			return
		}
		folders, err := expandChoice(uri.Path())
		if err != nil {
			ui.logger.Warn().Err(err).Str("folder", uri.Path()).Msg("Failed to read chosen folder")
			dialog.ShowError(err, ui.window)
			return
		}
		ui.SetSelection(folders)
	}, ui.window)
	d.Show()
}

// setBusy disables the actions while an upload runs.
func (ui *Window) setBusy(busy bool) {
	ui.busy = busy
	if busy {
		ui.chooseButton.Disable()
		ui.uploadButton.Disable()
		return
	}
	ui.chooseButton.Enable()
	ui.uploadButton.Enable()
}

// FollowLogs shows warnings and errors logged through the event bus in the
// status bar until stop is called.
func (ui *Window) FollowLogs() (stop func()) {
	bus := ui.uploader.Events()
	ch := bus.Subscribe(events.EventLog)
	quit := make(chan struct{})

	go func() {
		for {
			select {
			case <-quit:
				return
			case ev, ok := <-ch:
				if !ok {
					return
				}
				if le, ok := ev.(*events.LogEvent); ok {
					fyne.Do(func() { ui.showLog(le) })
				}
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(quit)
			bus.UnsubscribeAll(ch)
		})
	}
}

// showLog puts a logged problem in the status bar. During an upload the
// batch summary takes precedence.
func (ui *Window) showLog(e *events.LogEvent) {
	if ui.busy {
		return
	}
	switch e.Level {
	case events.ErrorLevel:
		ui.status.Set(e.Message, StatusError)
	case events.WarnLevel:
		ui.status.Set(e.Message, StatusWarning)
	}
}

// startUpload runs one upload action over the current selection. The window
// stays behind a modal progress dialog until the batch is finished.
func (ui *Window) startUpload() {
	folders := ui.selection.Folders()
	ui.setBusy(true)
	ui.status.Set("Uploading...", StatusBusy)

	progressDialog := newUploadDialog(ui.window, len(folders))
	progressDialog.Show()
	stop := progress.Follow(ui.uploader.Events(), progressDialog)

	go func() {
		tally := ui.uploader.Upload(ui.ctx, folders)
		stop()
		fyne.Do(func() {
			progressDialog.Hide()
			ui.setBusy(false)
			ui.status.ShowTally(tally)
			if ui.onUploadDone != nil {
				ui.onUploadDone(tally)
			}
		})
	}()
}
