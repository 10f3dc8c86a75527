package progress

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/docupload/docupload/internal/events"
)

type recordingSink struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingSink) add(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, s)
}

func (r *recordingSink) OnStage(e *events.StageChangeEvent)         { r.add("stage:" + string(e.Stage)) }
func (r *recordingSink) OnFileUploaded(e *events.FileUploadedEvent) { r.add("file:" + e.FileName) }
func (r *recordingSink) OnDocument(e *events.DocumentEvent)         { r.add("document:" + e.Folder) }
func (r *recordingSink) OnBatch(e *events.BatchEvent)               { r.add("batch") }

func TestFollowDeliversBufferedEventsInOrder(t *testing.T) {
	bus := events.NewEventBus(64)
	defer bus.Close()

	sink := &recordingSink{}
	stop := Follow(bus, sink)

	bus.Publish(&events.StageChangeEvent{Stage: events.StageStart})
	bus.Publish(&events.FileUploadedEvent{FileName: "a.pdf"})
	bus.Publish(&events.DocumentEvent{Folder: "doc1"})
	bus.Publish(&events.BatchEvent{})
	stop()

	want := []string{"stage:start", "file:a.pdf", "document:doc1", "batch"}
	if len(sink.events) != len(want) {
		t.Fatalf("events = %v, want %v", sink.events, want)
	}
	for i := range want {
		if sink.events[i] != want[i] {
			t.Errorf("event %d = %q, want %q", i, sink.events[i], want[i])
		}
	}

	// stop is idempotent and later events are not delivered
	stop()
	bus.Publish(&events.BatchEvent{})
	if len(sink.events) != len(want) {
		t.Errorf("event delivered after stop: %v", sink.events)
	}
}

type recordingReporter struct {
	calls []string
}

func (r *recordingReporter) Start(total int64, description string) {
	r.calls = append(r.calls, "start:"+description)
}
func (r *recordingReporter) Update(current int64) { r.calls = append(r.calls, "update") }
func (r *recordingReporter) Finish()              { r.calls = append(r.calls, "finish") }
func (r *recordingReporter) Error(err error)      { r.calls = append(r.calls, "error") }
func (r *recordingReporter) SetDescription(string) {
}

func TestDocumentProgress(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want []string
	}{
		{"success", nil, []string{"start:Report", "update", "update", "finish"}},
		{"failure", errors.New("boom"), []string{"start:Report", "update", "update", "error"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rep := &recordingReporter{}
			d := NewDocumentProgress(rep)
			d.OnStage(&events.StageChangeEvent{Stage: events.StageContainerCreated, Document: "Report"})
			for i := 1; i <= 2; i++ {
				d.OnStage(&events.StageChangeEvent{Stage: events.StageFilesUploading, Document: "Report", FileIndex: i, FileTotal: 2})
				d.OnFileUploaded(&events.FileUploadedEvent{Index: i, Total: 2})
			}
			d.OnDocument(&events.DocumentEvent{Document: "Report", Error: tt.err})

			if strings.Join(rep.calls, ",") != strings.Join(tt.want, ",") {
				t.Errorf("calls = %v, want %v", rep.calls, tt.want)
			}
		})
	}
}

func TestUploadUINonTerminal(t *testing.T) {
	var buf bytes.Buffer
	ui := newUploadUI(&buf, false, 2)

	ui.OnStage(&events.StageChangeEvent{Stage: events.StageFilesUploading, Document: "Report", FileIndex: 1, FileTotal: 1})
	ui.OnFileUploaded(&events.FileUploadedEvent{Index: 1, Total: 1})
	ui.OnDocument(&events.DocumentEvent{Folder: "/docs/report", Document: "Report", Files: 1, Duration: 1500 * time.Millisecond})
	ui.OnDocument(&events.DocumentEvent{Folder: "/docs/broken", Error: errors.New("missing description")})
	ui.OnBatch(&events.BatchEvent{Total: 2, Succeeded: 1, Failed: 1})
	ui.Wait()

	out := buf.String()
	if !strings.Contains(out, "✓ /docs/report → Report (1 files, 1.5s)") {
		t.Errorf("missing success line in %q", out)
	}
	if !strings.Contains(out, "✗ /docs/broken: missing description") {
		t.Errorf("missing failure line in %q", out)
	}
}

func TestUploadUIWaitWithoutEvents(t *testing.T) {
	ui := newUploadUI(&bytes.Buffer{}, false, 3)

	done := make(chan struct{})
	go func() {
		ui.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Wait did not return")
	}
}

func TestTruncatePath(t *testing.T) {
	tests := []struct {
		path string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"abcdefghijklmnop", 10, "...jklmnop"},
	}
	for _, tt := range tests {
		if got := truncatePath(tt.path, tt.max); got != tt.want {
			t.Errorf("truncatePath(%q, %d) = %q, want %q", tt.path, tt.max, got, tt.want)
		}
		if got := truncatePath(tt.path, tt.max); len(got) > tt.max {
			t.Errorf("truncatePath(%q) too long: %q", tt.path, got)
		}
	}
}
