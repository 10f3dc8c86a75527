// Package upload turns document folders into remote documents.
//
// Each folder goes through
//
//	Start -> MetadataRead -> MetadataParsed -> ContainerCreated -> FilesUploading(i) -> Done
//
// and any failure moves it to Failed. A failed folder never stops the batch.
package upload

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/docupload/docupload/internal/config"
	"github.com/docupload/docupload/internal/constants"
	"github.com/docupload/docupload/internal/events"
	"github.com/docupload/docupload/internal/localfs"
	"github.com/docupload/docupload/internal/logging"
	"github.com/docupload/docupload/internal/metadata"
	"github.com/docupload/docupload/internal/metrics"
	"github.com/docupload/docupload/internal/storage"
)

// Options controls how folder entries become remote files.
type Options struct {
	// FileNaming is config.NamingDocument (every file named after the document)
	// or config.NamingOriginal (local file names kept).
	FileNaming string

	// DetectContentType sniffs each file instead of sending application/octet-stream.
	DetectContentType bool

	// SkipSubdirectories leaves subdirectories out instead of failing the folder.
	SkipSubdirectories bool

	List localfs.ListOptions
}

// OptionsFromConfig maps the [upload] section onto Options.
func OptionsFromConfig(cfg config.UploadConfig) Options {
	return Options{
		FileNaming:         cfg.FileNaming,
		DetectContentType:  cfg.DetectContentType,
		SkipSubdirectories: cfg.SkipSubdirectories,
		List: localfs.ListOptions{
			IncludeHidden: cfg.IncludeHidden,
			Exclude:       cfg.Exclude,
		},
	}
}

// Uploader uploads document folders to one backend, one folder and one file at a time.
type Uploader struct {
	backend storage.Backend
	opts    Options
	bus     *events.EventBus
	metrics *metrics.Metrics
	logger  *logging.Logger

	newRunID func() string
}

// NewUploader creates an Uploader. bus and m may be nil.
func NewUploader(backend storage.Backend, opts Options, bus *events.EventBus, m *metrics.Metrics, logger *logging.Logger) *Uploader {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if opts.FileNaming == "" {
		opts.FileNaming = config.NamingDocument
	}
	return &Uploader{
		backend:  backend,
		opts:     opts,
		bus:      bus,
		metrics:  m,
		logger:   logger,
		newRunID: uuid.NewString,
	}
}

// UploadDocument uploads the folder at dir as one document and returns the
// created container. On error the container may already exist remotely; it is
// not rolled back.
func (u *Uploader) UploadDocument(ctx context.Context, dir string) (*storage.Container, error) {
	r := u.uploadDocument(ctx, "", dir)
	return r.Container, r.Err
}

// UploadAll uploads folders in order. Per-folder failures are collected and
// the loop continues; cancelling ctx marks every folder not yet started as
// failed with the context error.
func (u *Uploader) UploadAll(ctx context.Context, folders []string) Tally {
	tally := Tally{RunID: u.newRunID()}
	start := time.Now()
	logger := u.logger.WithFields("run_id", tally.RunID)

	u.metrics.ObserveBatch()
	logger.Info().Int("folders", len(folders)).Str("backend", u.backend.Name()).Msg("Upload started")

	for i, folder := range folders {
		if err := ctx.Err(); err != nil {
			for _, rest := range folders[i:] {
				tally.record(Result{Folder: rest, Err: err})
			}
			logger.Warn().Int("skipped", len(folders)-i).Msg("Upload cancelled")
			break
		}
		tally.record(u.uploadDocument(ctx, tally.RunID, folder))
	}

	u.bus.Publish(&events.BatchEvent{
		BaseEvent: events.BaseEvent{EventType: events.EventBatchCompleted, Time: time.Now()},
		RunID:     tally.RunID,
		Total:     tally.Total(),
		Succeeded: tally.Succeeded,
		Failed:    tally.Failed(),
		Duration:  time.Since(start),
	})
	logger.Info().
		Int("succeeded", tally.Succeeded).
		Int("failed", tally.Failed()).
		Dur("duration", time.Since(start)).
		Msg("Upload finished")

	return tally
}

// run carries the state of one folder through the state machine.
type run struct {
	u        *Uploader
	runID    string
	folder   string
	document string
	logger   *logging.Logger
	result   Result
}

func (r *run) stage(stage events.Stage) {
	r.logger.Debug().Str("stage", string(stage)).Msg("Stage")
	r.u.bus.PublishStage(r.runID, r.folder, r.document, stage, r.containerID())
}

func (r *run) containerID() string {
	if r.result.Container == nil {
		return ""
	}
	return r.result.Container.ID
}

func (u *Uploader) uploadDocument(ctx context.Context, runID, dir string) Result {
	start := time.Now()
	r := &run{
		u:      u,
		runID:  runID,
		folder: dir,
		logger: u.logger.WithFields("run_id", runID, "folder", dir, "backend", u.backend.Name()),
		result: Result{Folder: dir},
	}

	r.result.Err = u.process(ctx, r)
	u.finish(r, time.Since(start))
	return r.result
}

func (u *Uploader) process(ctx context.Context, r *run) error {
	r.stage(events.StageStart)

	descPath := filepath.Join(r.folder, constants.DescriptionFileName)
	data, err := os.ReadFile(descPath)
	if err != nil {
		return &IoError{Op: "read", Path: descPath, Err: err}
	}
	r.stage(events.StageMetadataRead)

	doc, err := metadata.Parse(string(data))
	if err != nil {
		return err
	}
	r.document = doc.Name
	r.logger = r.logger.WithFields("document", doc.Name)
	r.stage(events.StageMetadataParsed)

	container, err := u.backend.CreateContainer(ctx, storage.ContainerSpec{Name: doc.Name, Category: doc.Category})
	if err != nil {
		return u.remoteError(storage.OpCreateContainer, doc.Name, err)
	}
	r.result.Container = container
	r.logger = r.logger.WithFields("container_id", container.ID)
	r.stage(events.StageContainerCreated)

	entries, err := localfs.ListDirectory(r.folder, u.opts.List)
	if err != nil {
		return &IoError{Op: "list", Path: r.folder, Err: err}
	}
	entries = u.payload(entries, r.logger)

	for i, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}

		r.u.bus.Publish(&events.StageChangeEvent{
			BaseEvent:   events.BaseEvent{EventType: events.EventStageChange, Time: time.Now()},
			RunID:       r.runID,
			Folder:      r.folder,
			Document:    r.document,
			Stage:       events.StageFilesUploading,
			ContainerID: container.ID,
			FileIndex:   i + 1,
			FileTotal:   len(entries),
			FileName:    entry.Name,
		})

		if err := u.uploadEntry(ctx, container, doc, entry); err != nil {
			return err
		}
		r.result.Files++

		r.logger.Debug().Str("file", entry.Name).Int64("size", entry.Size).Msg("File uploaded")
		u.bus.Publish(&events.FileUploadedEvent{
			BaseEvent:   events.BaseEvent{EventType: events.EventFileUploaded, Time: time.Now()},
			RunID:       r.runID,
			Folder:      r.folder,
			Document:    r.document,
			ContainerID: container.ID,
			FileName:    entry.Name,
			Index:       i + 1,
			Total:       len(entries),
			Size:        entry.Size,
		})
	}

	r.stage(events.StageDone)
	return nil
}

// payload drops description.txt and, when configured, subdirectories.
func (u *Uploader) payload(entries []localfs.FileEntry, logger *logging.Logger) []localfs.FileEntry {
	out := entries[:0]
	for _, e := range entries {
		if !e.IsDir && e.Name == constants.DescriptionFileName {
			continue
		}
		if e.IsDir && u.opts.SkipSubdirectories {
			logger.Debug().Str("file", e.Name).Msg("Skipping subdirectory")
			continue
		}
		out = append(out, e)
	}
	return out
}

func (u *Uploader) uploadEntry(ctx context.Context, container *storage.Container, doc *metadata.Document, entry localfs.FileEntry) error {
	if entry.IsDir {
		return &IoError{Op: "open", Path: entry.Path, Err: ErrIsDirectory}
	}

	f, err := os.Open(entry.Path)
	if err != nil {
		return &IoError{Op: "open", Path: entry.Path, Err: err}
	}
	defer f.Close()

	size := entry.Size
	if st, err := f.Stat(); err == nil {
		if st.IsDir() {
			return &IoError{Op: "open", Path: entry.Path, Err: ErrIsDirectory}
		}
		size = st.Size()
	}

	name := doc.Name
	if u.opts.FileNaming == config.NamingOriginal {
		name = entry.Name
	}

	err = u.backend.UploadFile(ctx, storage.FileSpec{
		ParentID:    container.ID,
		Name:        name,
		SourceName:  entry.Name,
		ContentType: u.contentType(entry.Path),
		Size:        size,
		Body:        f,
	})
	u.metrics.ObserveFile(u.backend.Name(), err == nil, size)
	if err != nil {
		return u.remoteError(storage.OpUploadFile, name, err)
	}
	return nil
}

func (u *Uploader) contentType(path string) string {
	if !u.opts.DetectContentType {
		return constants.BinaryMimeType
	}
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return constants.BinaryMimeType
	}
	return mt.String()
}

// remoteError makes sure every backend failure surfaces as *storage.RemoteError.
func (u *Uploader) remoteError(op, target string, err error) error {
	var re *storage.RemoteError
	if errors.As(err, &re) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &storage.RemoteError{Backend: u.backend.Name(), Op: op, Target: target, Err: err}
}

func (u *Uploader) finish(r *run, d time.Duration) {
	ok := r.result.Err == nil
	u.metrics.ObserveDocument(u.backend.Name(), ok, d)

	eventType := events.EventDocumentCompleted
	if ok {
		r.logger.Info().Int("files", r.result.Files).Dur("duration", d).Msg("Document uploaded")
	} else {
		eventType = events.EventDocumentFailed
		r.stage(events.StageFailed)
		r.logger.Error().Err(r.result.Err).Int("files", r.result.Files).Msg("Document upload failed")
	}

	u.bus.Publish(&events.DocumentEvent{
		BaseEvent:   events.BaseEvent{EventType: eventType, Time: time.Now()},
		RunID:       r.runID,
		Folder:      r.folder,
		Document:    r.document,
		ContainerID: r.containerID(),
		Files:       r.result.Files,
		Error:       r.result.Err,
		Duration:    d,
	})
}
