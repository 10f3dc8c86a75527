package gui

import (
	"fmt"
	"path/filepath"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"github.com/docupload/docupload/internal/events"
)

// uploadDialog is the modal shown while an upload action runs. It has no
// buttons: the batch always runs to completion. It implements progress.Sink.
type uploadDialog struct {
	dialog *dialog.CustomDialog

	documentLabel *widget.Label
	fileLabel     *widget.Label
	documents     *widget.ProgressBar
	files         *widget.ProgressBar

	mu        sync.Mutex
	total     int
	processed int
	failed    int
}

func newUploadDialog(parent fyne.Window, totalDocuments int) *uploadDialog {
	d := &uploadDialog{
		total:         totalDocuments,
		documentLabel: widget.NewLabel(fmt.Sprintf("Preparing %d document(s)...", totalDocuments)),
		fileLabel:     widget.NewLabel(""),
		documents:     widget.NewProgressBar(),
		files:         widget.NewProgressBar(),
	}
	d.documents.Max = float64(max(totalDocuments, 1))
	d.documents.TextFormatter = func() string {
		return fmt.Sprintf("%d / %d documents", int(d.documents.Value), totalDocuments)
	}
	d.fileLabel.Truncation = fyne.TextTruncateEllipsis

	content := container.NewVBox(
		d.documentLabel,
		d.documents,
		widget.NewSeparator(),
		d.fileLabel,
		d.files,
	)
	d.dialog = dialog.NewCustomWithoutButtons("Uploading documents", content, parent)
	d.dialog.Resize(fyne.NewSize(480, 220))
	return d
}

func (d *uploadDialog) Show() { d.dialog.Show() }
func (d *uploadDialog) Hide() { d.dialog.Hide() }

// OnStage implements progress.Sink.
func (d *uploadDialog) OnStage(e *events.StageChangeEvent) {
	d.mu.Lock()
	index := d.processed + 1
	d.mu.Unlock()

	fyne.Do(func() {
		switch e.Stage {
		case events.StageStart:
			d.documentLabel.SetText(fmt.Sprintf("Document %d of %d: %s", index, d.total, filepath.Base(e.Folder)))
			d.fileLabel.SetText("Reading description")
			d.files.SetValue(0)
		case events.StageContainerCreated:
			d.documentLabel.SetText(fmt.Sprintf("Document %d of %d: %s", index, d.total, e.Document))
			d.fileLabel.SetText("Container created")
		case events.StageFilesUploading:
			d.files.Max = float64(max(e.FileTotal, 1))
			d.fileLabel.SetText(fmt.Sprintf("File %d of %d: %s", e.FileIndex, e.FileTotal, e.FileName))
		}
	})
}

// OnFileUploaded implements progress.Sink.
func (d *uploadDialog) OnFileUploaded(e *events.FileUploadedEvent) {
	fyne.Do(func() {
		d.files.SetValue(float64(e.Index))
	})
}

// OnDocument implements progress.Sink.
func (d *uploadDialog) OnDocument(e *events.DocumentEvent) {
	d.mu.Lock()
	d.processed++
	if e.Error != nil {
		d.failed++
	}
	processed := d.processed
	d.mu.Unlock()

	fyne.Do(func() {
		d.documents.SetValue(float64(processed))
	})
}

// OnBatch implements progress.Sink.
func (d *uploadDialog) OnBatch(e *events.BatchEvent) {
	fyne.Do(func() {
		d.documentLabel.SetText(fmt.Sprintf("Finished: %d uploaded, %d failed", e.Succeeded, e.Failed))
		d.fileLabel.SetText("")
	})
}

// counts returns documents processed and failed so far.
func (d *uploadDialog) counts() (processed, failed int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.processed, d.failed
}
