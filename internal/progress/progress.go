// Package progress renders upload progress on a terminal.
// A single document gets a schollz/progressbar bar; several documents get
// stacked mpb bars with an overall counter.
package progress

import (
	"fmt"
	"io"

	"github.com/schollz/progressbar/v3"

	"github.com/docupload/docupload/internal/events"
)

// Reporter is the interface for reporting progress of one unit of work.
type Reporter interface {
	Start(total int64, description string)
	Update(current int64)
	Finish()
	Error(err error)
	SetDescription(desc string)
}

// CLIProgress implements Reporter with a progress bar.
type CLIProgress struct {
	out io.Writer
	bar *progressbar.ProgressBar
}

// NewCLIProgress creates a reporter that draws on out (normally os.Stderr).
func NewCLIProgress(out io.Writer) *CLIProgress {
	return &CLIProgress{out: out}
}

// Start initializes the progress bar with the number of files and a description.
func (p *CLIProgress) Start(total int64, description string) {
	out := p.out
	p.bar = progressbar.NewOptions64(total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(out),
		progressbar.OptionSetItsString("files"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionThrottle(100),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(out, "\n")
		}),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetRenderBlankState(true),
	)
}

// Update updates the progress bar to the current position.
func (p *CLIProgress) Update(current int64) {
	if p.bar != nil {
		_ = p.bar.Set64(current)
	}
}

// Finish completes the progress bar.
func (p *CLIProgress) Finish() {
	if p.bar != nil {
		_ = p.bar.Finish()
		p.bar = nil
	}
}

// Error abandons the bar and prints the error below it.
func (p *CLIProgress) Error(err error) {
	if p.bar != nil {
		_ = p.bar.Exit()
		p.bar = nil
	}
	if err != nil {
		fmt.Fprintf(p.out, "\nError: %v\n", err)
	}
}

// SetDescription updates the progress bar description.
func (p *CLIProgress) SetDescription(desc string) {
	if p.bar != nil {
		p.bar.Describe(desc)
	}
}

// NoOpProgress is a progress reporter that does nothing (for non-terminal output).
type NoOpProgress struct{}

// NewNoOpProgress creates a new no-op progress reporter.
func NewNoOpProgress() *NoOpProgress {
	return &NoOpProgress{}
}

func (p *NoOpProgress) Start(total int64, description string) {}
func (p *NoOpProgress) Update(current int64)                  {}
func (p *NoOpProgress) Finish()                               {}
func (p *NoOpProgress) Error(err error)                       {}
func (p *NoOpProgress) SetDescription(desc string)            {}

// DocumentProgress drives a Reporter from the events of a single document:
// the bar counts files and is labelled with the document name.
type DocumentProgress struct {
	reporter Reporter
	started  bool
}

// NewDocumentProgress creates a Sink over reporter.
func NewDocumentProgress(reporter Reporter) *DocumentProgress {
	return &DocumentProgress{reporter: reporter}
}

// OnStage implements Sink.
func (d *DocumentProgress) OnStage(e *events.StageChangeEvent) {
	if e.Stage != events.StageFilesUploading {
		return
	}
	if !d.started {
		d.reporter.Start(int64(e.FileTotal), e.Document)
		d.started = true
	}
	d.reporter.SetDescription(fmt.Sprintf("%s: %s", e.Document, e.FileName))
}

// OnFileUploaded implements Sink.
func (d *DocumentProgress) OnFileUploaded(e *events.FileUploadedEvent) {
	d.reporter.Update(int64(e.Index))
}

// OnDocument implements Sink.
func (d *DocumentProgress) OnDocument(e *events.DocumentEvent) {
	if e.Error != nil {
		d.reporter.Error(e.Error)
	} else if d.started {
		d.reporter.SetDescription(e.Document)
		d.reporter.Finish()
	}
	d.started = false
}

// OnBatch implements Sink.
func (d *DocumentProgress) OnBatch(e *events.BatchEvent) {}
