package progress

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
	"golang.org/x/term"

	"github.com/docupload/docupload/internal/events"
)

// UploadUI shows one overall bar counting documents plus a bar for the
// document currently being uploaded. When stderr is not a terminal the bars
// are discarded and only the per-document result lines are written.
type UploadUI struct {
	progress   *mpb.Progress
	out        io.Writer
	isTerminal bool

	mu      sync.Mutex
	overall *mpb.Bar
	current *mpb.Bar
	done    bool
}

// NewUploadUI creates a UI for totalDocuments folders drawing on stderr.
func NewUploadUI(totalDocuments int) *UploadUI {
	isTerminal := term.IsTerminal(int(os.Stderr.Fd()))
	if isTerminal {
		enableVirtualTerminal(os.Stderr)
	}
	return newUploadUI(os.Stderr, isTerminal, totalDocuments)
}

func newUploadUI(out io.Writer, isTerminal bool, totalDocuments int) *UploadUI {
	var p *mpb.Progress
	if isTerminal {
		p = mpb.New(
			mpb.WithOutput(out),
			mpb.WithRefreshRate(150*time.Millisecond),
			mpb.WithWidth(60),
		)
	} else {
		p = mpb.New(mpb.WithOutput(io.Discard))
	}

	u := &UploadUI{progress: p, out: out, isTerminal: isTerminal}
	u.overall = p.AddBar(int64(totalDocuments),
		mpb.PrependDecorators(
			decor.Name("Documents ", decor.WC{C: decor.DindentRight}),
			decor.CountersNoUnit("%d/%d", decor.WCSyncWidth),
		),
		mpb.AppendDecorators(
			decor.Elapsed(decor.ET_STYLE_GO, decor.WCSyncSpace),
		),
	)
	return u
}

// IsTerminal reports whether bars are being drawn.
func (u *UploadUI) IsTerminal() bool {
	return u.isTerminal
}

// Writer returns a writer that prints above the bars without tearing them.
func (u *UploadUI) Writer() io.Writer {
	if u.isTerminal {
		return u.progress
	}
	return u.out
}

// OnStage implements Sink.
func (u *UploadUI) OnStage(e *events.StageChangeEvent) {
	if e.Stage != events.StageFilesUploading || e.FileIndex != 1 {
		return
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.done {
		return
	}
	u.abortCurrent()
	name := truncatePath(e.Document, 30)
	u.current = u.progress.AddBar(int64(e.FileTotal),
		mpb.PrependDecorators(
			decor.Name(name, decor.WC{W: 31, C: decor.DindentRight}),
			decor.CountersNoUnit("%d/%d files", decor.WCSyncWidth),
		),
		mpb.AppendDecorators(
			decor.Percentage(decor.WCSyncSpace),
		),
		mpb.BarRemoveOnComplete(),
	)
}

// OnFileUploaded implements Sink.
func (u *UploadUI) OnFileUploaded(e *events.FileUploadedEvent) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.current != nil {
		u.current.SetCurrent(int64(e.Index))
	}
}

// OnDocument implements Sink.
func (u *UploadUI) OnDocument(e *events.DocumentEvent) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.current != nil {
		if e.Error == nil {
			u.current.SetTotal(-1, true)
		} else {
			u.current.Abort(true)
		}
		u.current = nil
	}
	if e.Error != nil {
		fmt.Fprintf(u.Writer(), "✗ %s: %v\n", truncatePath(e.Folder, 60), e.Error)
	} else {
		fmt.Fprintf(u.Writer(), "✓ %s → %s (%d files, %s)\n",
			truncatePath(e.Folder, 60), e.Document, e.Files, e.Duration.Round(time.Millisecond))
	}
	if !u.done {
		u.overall.Increment()
	}
}

// OnBatch implements Sink.
func (u *UploadUI) OnBatch(e *events.BatchEvent) {
	u.complete()
}

// Wait completes any remaining bars and blocks until rendering has stopped.
func (u *UploadUI) Wait() {
	u.complete()
	u.progress.Wait()
}

func (u *UploadUI) complete() {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.done {
		return
	}
	u.abortCurrent()
	u.overall.SetTotal(-1, true)
	u.done = true
}

func (u *UploadUI) abortCurrent() {
	if u.current != nil {
		u.current.Abort(true)
		u.current = nil
	}
}

// truncatePath shortens a path to max characters, keeping its tail.
func truncatePath(path string, max int) string {
	if len(path) <= max {
		return path
	}
	base := filepath.Base(path)
	if len(base) >= max-3 {
		return "..." + base[len(base)-(max-3):]
	}
	keep := max - 3
	return "..." + strings.TrimLeft(path[len(path)-keep:], string(filepath.Separator))
}
