package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/docupload/docupload/internal/config"
	"github.com/docupload/docupload/internal/events"
	"github.com/docupload/docupload/internal/metadata"
	"github.com/docupload/docupload/internal/storage"
)

type uploadCall struct {
	spec    storage.FileSpec
	content string
}

// fakeBackend is an in-memory storage.Backend.
type fakeBackend struct {
	mu        sync.Mutex
	creates   []storage.ContainerSpec
	uploads   []uploadCall
	createErr error
	failAt    int // 1-based upload attempt that fails; 0 never
	attempts  int
}

func (f *fakeBackend) Name() string { return "fake" }

func (f *fakeBackend) CreateContainer(ctx context.Context, spec storage.ContainerSpec) (*storage.Container, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.creates = append(f.creates, spec)
	return &storage.Container{
		ID:       fmt.Sprintf("container-%d", len(f.creates)),
		Name:     spec.Name,
		Category: spec.Category,
	}, nil
}

func (f *fakeBackend) UploadFile(ctx context.Context, spec storage.FileSpec) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts++
	if f.attempts == f.failAt {
		return &storage.RemoteError{Backend: "fake", Op: storage.OpUploadFile, Target: spec.Name, StatusCode: 500}
	}
	data, err := io.ReadAll(spec.Body)
	if err != nil {
		return err
	}
	f.uploads = append(f.uploads, uploadCall{spec: spec, content: string(data)})
	return nil
}

// makeFolder creates a document folder with description and the given files.
func makeFolder(t *testing.T, root, name, description string, files map[string]string) string {
	t.Helper()
	dir := filepath.Join(root, name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if description != "" {
		if err := os.WriteFile(filepath.Join(dir, "description.txt"), []byte(description), 0644); err != nil {
			t.Fatal(err)
		}
	}
	for fname, content := range files {
		if err := os.WriteFile(filepath.Join(dir, fname), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func newTestUploader(backend storage.Backend, opts Options, bus *events.EventBus) *Uploader {
	opts.List.IncludeHidden = true
	u := NewUploader(backend, opts, bus, nil, nil)
	u.newRunID = func() string { return "run-1" }
	return u
}

func TestUploadDocument_ReportFinance(t *testing.T) {
	root := t.TempDir()
	doc1 := makeFolder(t, root, "doc1", "Name: Report\nCategory: Finance", map[string]string{
		"a.pdf": "AAA",
		"b.pdf": "BBB",
	})

	backend := &fakeBackend{}
	u := newTestUploader(backend, Options{}, nil)

	tally := u.UploadAll(context.Background(), []string{doc1})

	if tally.Succeeded != 1 || len(tally.Failures) != 0 {
		t.Fatalf("tally = %+v, want 1 success and no failures", tally)
	}
	if len(backend.creates) != 1 || backend.creates[0].Name != "Report" || backend.creates[0].Category != "Finance" {
		t.Fatalf("creates = %+v, want one Report/Finance container", backend.creates)
	}
	if len(backend.uploads) != 2 {
		t.Fatalf("got %d uploads, want 2", len(backend.uploads))
	}
	for i, want := range []struct{ source, content string }{{"a.pdf", "AAA"}, {"b.pdf", "BBB"}} {
		up := backend.uploads[i]
		if up.spec.Name != "Report" {
			t.Errorf("upload %d named %q, want Report", i, up.spec.Name)
		}
		if up.spec.ParentID != "container-1" {
			t.Errorf("upload %d parent %q, want container-1", i, up.spec.ParentID)
		}
		if up.spec.SourceName != want.source || up.content != want.content {
			t.Errorf("upload %d = %s/%q, want %s/%q", i, up.spec.SourceName, up.content, want.source, want.content)
		}
		if up.spec.ContentType != "application/octet-stream" {
			t.Errorf("upload %d content type %q", i, up.spec.ContentType)
		}
		if up.spec.Size != 3 {
			t.Errorf("upload %d size %d, want 3", i, up.spec.Size)
		}
	}
	if tally.RunID != "run-1" {
		t.Errorf("RunID = %q", tally.RunID)
	}
	if tally.Results[0].Files != 2 || tally.Results[0].Container.ID != "container-1" {
		t.Errorf("result = %+v", tally.Results[0])
	}
}

func TestUploadDocument_OneContainerNUploads(t *testing.T) {
	for _, n := range []int{0, 1, 5} {
		t.Run(fmt.Sprintf("%d files", n), func(t *testing.T) {
			files := map[string]string{}
			for i := 0; i < n; i++ {
				files[fmt.Sprintf("f%d.bin", i)] = "x"
			}
			dir := makeFolder(t, t.TempDir(), "doc", "Name: N\nCategory: C", files)

			backend := &fakeBackend{}
			c, err := newTestUploader(backend, Options{}, nil).UploadDocument(context.Background(), dir)
			if err != nil {
				t.Fatalf("UploadDocument failed: %v", err)
			}
			if c == nil || c.ID != "container-1" {
				t.Errorf("container = %+v", c)
			}
			if len(backend.creates) != 1 {
				t.Errorf("got %d creates, want 1", len(backend.creates))
			}
			if len(backend.uploads) != n {
				t.Errorf("got %d uploads, want %d", len(backend.uploads), n)
			}
			for _, up := range backend.uploads {
				if up.spec.SourceName == "description.txt" {
					t.Error("description.txt must not be uploaded")
				}
			}
		})
	}
}

func TestUploadDocument_FailedUploadStopsFolder(t *testing.T) {
	dir := makeFolder(t, t.TempDir(), "doc", "Name: Report\nCategory: Finance", map[string]string{
		"a.pdf": "A", "b.pdf": "B", "c.pdf": "C",
	})

	backend := &fakeBackend{failAt: 2}
	c, err := newTestUploader(backend, Options{}, nil).UploadDocument(context.Background(), dir)

	var re *storage.RemoteError
	if !errors.As(err, &re) {
		t.Fatalf("expected *storage.RemoteError, got %v", err)
	}
	if c == nil {
		t.Error("container should be returned even when an upload fails")
	}
	if len(backend.creates) != 1 {
		t.Errorf("got %d creates, want 1", len(backend.creates))
	}
	if backend.attempts != 2 {
		t.Errorf("got %d upload attempts, want 2 (remaining files skipped)", backend.attempts)
	}
}

func TestUploadDocument_Errors(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(t *testing.T) string
		backend   *fakeBackend
		check     func(t *testing.T, err error)
		wantCalls int
	}{
		{
			name: "missing description",
			setup: func(t *testing.T) string {
				return makeFolder(t, t.TempDir(), "doc", "", map[string]string{"a.pdf": "A"})
			},
			backend: &fakeBackend{},
			check: func(t *testing.T, err error) {
				var ioErr *IoError
				if !errors.As(err, &ioErr) {
					t.Fatalf("expected *IoError, got %v", err)
				}
				if !errors.Is(err, os.ErrNotExist) {
					t.Errorf("expected os.ErrNotExist cause, got %v", ioErr.Err)
				}
			},
		},
		{
			name: "missing folder",
			setup: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "nope")
			},
			backend: &fakeBackend{},
			check: func(t *testing.T, err error) {
				var ioErr *IoError
				if !errors.As(err, &ioErr) {
					t.Fatalf("expected *IoError, got %v", err)
				}
			},
		},
		{
			name: "malformed description",
			setup: func(t *testing.T) string {
				return makeFolder(t, t.TempDir(), "doc", "just a title", map[string]string{"a.pdf": "A"})
			},
			backend: &fakeBackend{},
			check: func(t *testing.T, err error) {
				var fe *metadata.FormatError
				if !errors.As(err, &fe) {
					t.Fatalf("expected *metadata.FormatError, got %v", err)
				}
			},
		},
		{
			name: "container rejected",
			setup: func(t *testing.T) string {
				return makeFolder(t, t.TempDir(), "doc", "Name: R\nCategory: C", map[string]string{"a.pdf": "A"})
			},
			backend: &fakeBackend{createErr: errors.New("quota exceeded")},
			check: func(t *testing.T, err error) {
				var re *storage.RemoteError
				if !errors.As(err, &re) {
					t.Fatalf("expected *storage.RemoteError, got %v", err)
				}
				if re.Op != storage.OpCreateContainer || re.Backend != "fake" {
					t.Errorf("unexpected error fields %+v", re)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestUploader(tt.backend, Options{}, nil).UploadDocument(context.Background(), tt.setup(t))
			if err == nil {
				t.Fatal("expected error")
			}
			tt.check(t, err)
			if len(tt.backend.uploads) != tt.wantCalls {
				t.Errorf("got %d uploads, want %d", len(tt.backend.uploads), tt.wantCalls)
			}
		})
	}
}

func TestUploadDocument_Subdirectories(t *testing.T) {
	newDir := func(t *testing.T) string {
		dir := makeFolder(t, t.TempDir(), "doc", "Name: R\nCategory: C", map[string]string{"a.pdf": "A", "z.pdf": "Z"})
		if err := os.Mkdir(filepath.Join(dir, "m-sub"), 0755); err != nil {
			t.Fatal(err)
		}
		return dir
	}

	t.Run("fails the folder", func(t *testing.T) {
		backend := &fakeBackend{}
		_, err := newTestUploader(backend, Options{}, nil).UploadDocument(context.Background(), newDir(t))

		var ioErr *IoError
		if !errors.As(err, &ioErr) || !errors.Is(err, ErrIsDirectory) {
			t.Fatalf("expected IoError for subdirectory, got %v", err)
		}
		if len(backend.uploads) != 1 {
			t.Errorf("got %d uploads, want 1 (entries after the subdirectory skipped)", len(backend.uploads))
		}
	})

	t.Run("skipped when configured", func(t *testing.T) {
		backend := &fakeBackend{}
		_, err := newTestUploader(backend, Options{SkipSubdirectories: true}, nil).UploadDocument(context.Background(), newDir(t))
		if err != nil {
			t.Fatalf("UploadDocument failed: %v", err)
		}
		if len(backend.uploads) != 2 {
			t.Errorf("got %d uploads, want 2", len(backend.uploads))
		}
	})
}

func TestUploadDocument_Symlinks(t *testing.T) {
	targets := t.TempDir()
	payload := strings.Repeat("x", 5000)
	if err := os.WriteFile(filepath.Join(targets, "payload.pdf"), []byte(payload), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(targets, "folder"), 0755); err != nil {
		t.Fatal(err)
	}

	newDir := func(t *testing.T) string {
		dir := makeFolder(t, t.TempDir(), "doc", "Name: R\nCategory: C", nil)
		if err := os.Symlink(filepath.Join(targets, "payload.pdf"), filepath.Join(dir, "a.pdf")); err != nil {
			t.Skipf("symlinks not supported: %v", err)
		}
		if err := os.Symlink(filepath.Join(targets, "folder"), filepath.Join(dir, "linkdir")); err != nil {
			t.Fatal(err)
		}
		return dir
	}

	t.Run("linked directory fails the folder", func(t *testing.T) {
		backend := &fakeBackend{}
		_, err := newTestUploader(backend, Options{}, nil).UploadDocument(context.Background(), newDir(t))

		var ioErr *IoError
		if !errors.As(err, &ioErr) || !errors.Is(err, ErrIsDirectory) {
			t.Fatalf("expected IoError for linked directory, got %v", err)
		}
	})

	t.Run("linked directory skipped and file sized from target", func(t *testing.T) {
		backend := &fakeBackend{}
		_, err := newTestUploader(backend, Options{SkipSubdirectories: true}, nil).UploadDocument(context.Background(), newDir(t))
		if err != nil {
			t.Fatalf("UploadDocument failed: %v", err)
		}
		if len(backend.uploads) != 1 {
			t.Fatalf("got %d uploads, want 1", len(backend.uploads))
		}
		up := backend.uploads[0]
		if up.spec.Size != 5000 || len(up.content) != 5000 {
			t.Errorf("Size = %d, content %d bytes, want 5000", up.spec.Size, len(up.content))
		}
	})
}

func TestUploadDocument_Options(t *testing.T) {
	dir := makeFolder(t, t.TempDir(), "doc", "Name: Report\nCategory: Finance", map[string]string{
		"page.png":  "\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR",
		"notes.tmp": "scratch",
	})

	backend := &fakeBackend{}
	opts := Options{FileNaming: config.NamingOriginal, DetectContentType: true}
	opts.List.Exclude = []string{"*.tmp"}

	if _, err := newTestUploader(backend, opts, nil).UploadDocument(context.Background(), dir); err != nil {
		t.Fatalf("UploadDocument failed: %v", err)
	}
	if len(backend.uploads) != 1 {
		t.Fatalf("got %d uploads, want 1 (notes.tmp excluded)", len(backend.uploads))
	}
	up := backend.uploads[0]
	if up.spec.Name != "page.png" {
		t.Errorf("Name = %q, want page.png", up.spec.Name)
	}
	if up.spec.ContentType != "image/png" {
		t.Errorf("ContentType = %q, want image/png", up.spec.ContentType)
	}
}

func TestUploadAll_ContinuesAfterFailure(t *testing.T) {
	root := t.TempDir()
	bad := makeFolder(t, root, "bad", "no colon here", nil)
	good := makeFolder(t, root, "good", "Name: G\nCategory: C", map[string]string{"a": "A"})
	missing := filepath.Join(root, "missing")

	backend := &fakeBackend{}
	tally := newTestUploader(backend, Options{}, nil).UploadAll(context.Background(), []string{bad, good, missing})

	if tally.Succeeded != 1 {
		t.Errorf("Succeeded = %d, want 1", tally.Succeeded)
	}
	if len(tally.Failures) != 2 || tally.Failures[0].Folder != bad || tally.Failures[1].Folder != missing {
		t.Errorf("Failures = %+v", tally.Failures)
	}
	if tally.Total() != 3 || tally.Failed() != 2 {
		t.Errorf("Total/Failed = %d/%d", tally.Total(), tally.Failed())
	}
}

func TestUploadAll_ZeroFolders(t *testing.T) {
	backend := &fakeBackend{}
	tally := newTestUploader(backend, Options{}, nil).UploadAll(context.Background(), nil)

	if tally.Succeeded != 0 || len(tally.Failures) != 0 {
		t.Errorf("tally = %+v, want empty", tally)
	}
	if len(backend.creates) != 0 || backend.attempts != 0 {
		t.Error("backend should not be called for an empty selection")
	}
}

func TestUploadAll_Cancelled(t *testing.T) {
	root := t.TempDir()
	a := makeFolder(t, root, "a", "Name: A\nCategory: C", nil)
	b := makeFolder(t, root, "b", "Name: B\nCategory: C", nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	backend := &fakeBackend{}
	tally := newTestUploader(backend, Options{}, nil).UploadAll(ctx, []string{a, b})

	if tally.Failed() != 2 {
		t.Fatalf("Failed = %d, want 2", tally.Failed())
	}
	for _, f := range tally.Failures {
		if !errors.Is(f.Err, context.Canceled) {
			t.Errorf("failure %s = %v, want context.Canceled", f.Folder, f.Err)
		}
	}
	if len(backend.creates) != 0 {
		t.Error("no folder should start after cancellation")
	}
}

func TestUploadAll_PublishesEvents(t *testing.T) {
	dir := makeFolder(t, t.TempDir(), "doc", "Name: Report\nCategory: Finance", map[string]string{"a.pdf": "A"})

	bus := events.NewEventBus(64)
	defer bus.Close()
	ch := bus.SubscribeAll()

	newTestUploader(&fakeBackend{}, Options{}, bus).UploadAll(context.Background(), []string{dir})

	var stages []events.Stage
	var files, documents, batches int
	for done := false; !done; {
		select {
		case ev := <-ch:
			switch e := ev.(type) {
			case *events.StageChangeEvent:
				stages = append(stages, e.Stage)
			case *events.FileUploadedEvent:
				files++
			case *events.DocumentEvent:
				documents++
				if e.Type() != events.EventDocumentCompleted || e.Document != "Report" || e.RunID != "run-1" {
					t.Errorf("unexpected document event %+v", e)
				}
			case *events.BatchEvent:
				batches++
				if e.Succeeded != 1 || e.Total != 1 {
					t.Errorf("unexpected batch event %+v", e)
				}
			}
		default:
			done = true
		}
	}

	want := []events.Stage{
		events.StageStart,
		events.StageMetadataRead,
		events.StageMetadataParsed,
		events.StageContainerCreated,
		events.StageFilesUploading,
		events.StageDone,
	}
	if len(stages) != len(want) {
		t.Fatalf("stages = %v, want %v", stages, want)
	}
	for i := range want {
		if stages[i] != want[i] {
			t.Errorf("stage %d = %s, want %s", i, stages[i], want[i])
		}
	}
	if files != 1 || documents != 1 || batches != 1 {
		t.Errorf("files/documents/batches = %d/%d/%d, want 1/1/1", files, documents, batches)
	}
}

func TestUploadAll_FailedStage(t *testing.T) {
	dir := makeFolder(t, t.TempDir(), "doc", "broken", nil)

	bus := events.NewEventBus(64)
	defer bus.Close()
	ch := bus.Subscribe(events.EventStageChange)

	newTestUploader(&fakeBackend{}, Options{}, bus).UploadAll(context.Background(), []string{dir})

	var last events.Stage
	for done := false; !done; {
		select {
		case ev := <-ch:
			last = ev.(*events.StageChangeEvent).Stage
		default:
			done = true
		}
	}
	if last != events.StageFailed {
		t.Errorf("last stage = %s, want %s", last, events.StageFailed)
	}
}

func TestSelection(t *testing.T) {
	var s Selection
	if s.Len() != 0 {
		t.Fatal("new selection should be empty")
	}

	input := []string{"/a", "/b"}
	s.Replace(input)
	input[0] = "/mutated"
	if got := s.Folders(); len(got) != 2 || got[0] != "/a" {
		t.Errorf("Folders() = %v, want [/a /b]", got)
	}

	s.Replace([]string{"/c"})
	if got := s.Folders(); len(got) != 1 || got[0] != "/c" {
		t.Errorf("Replace should discard the previous selection, got %v", got)
	}

	s.Replace(nil)
	if s.Len() != 0 {
		t.Error("Replace(nil) should clear the selection")
	}
}

func TestIoError(t *testing.T) {
	err := &IoError{Op: "open", Path: "/doc/sub", Err: ErrIsDirectory}
	if err.Error() != "open /doc/sub: is a directory" {
		t.Errorf("Error() = %q", err.Error())
	}
	if !errors.Is(err, ErrIsDirectory) {
		t.Error("IoError should unwrap to its cause")
	}
}
