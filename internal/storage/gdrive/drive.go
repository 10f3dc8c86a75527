// Package gdrive stores documents in Google Drive: one folder per document,
// every payload file created inside it.
package gdrive

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/docupload/docupload/internal/constants"
	"github.com/docupload/docupload/internal/storage"
)

// BackendName is the value of [storage] backend selecting Drive.
const BackendName = "gdrive"

// Backend implements storage.Backend on the Drive v3 API.
type Backend struct {
	svc      *drive.Service
	parentID string
}

// New creates a Drive backend. httpClient must already carry OAuth credentials;
// opts are appended after it (tests pass option.WithEndpoint).
func New(ctx context.Context, httpClient *http.Client, parentFolderID string, opts ...option.ClientOption) (*Backend, error) {
	if httpClient == nil {
		return nil, fmt.Errorf("gdrive: an authenticated http client is required")
	}
	all := append([]option.ClientOption{option.WithHTTPClient(httpClient)}, opts...)
	svc, err := drive.NewService(ctx, all...)
	if err != nil {
		return nil, fmt.Errorf("gdrive: failed to create service: %w", err)
	}
	return &Backend{svc: svc, parentID: parentFolderID}, nil
}

// Name implements storage.Backend.
func (b *Backend) Name() string { return BackendName }

// CreateContainer creates a Drive folder named after the document.
// The category is stored as the folder description and as a custom property.
func (b *Backend) CreateContainer(ctx context.Context, spec storage.ContainerSpec) (*storage.Container, error) {
	folder := &drive.File{
		Name:        spec.Name,
		MimeType:    constants.FolderMimeType,
		Description: spec.Category,
		Properties:  map[string]string{"category": spec.Category},
	}
	if b.parentID != "" {
		folder.Parents = []string{b.parentID}
	}

	created, err := b.svc.Files.Create(folder).
		Fields("id", "name", "webViewLink").
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return nil, b.remoteError(storage.OpCreateContainer, spec.Name, err)
	}

	return &storage.Container{
		ID:       created.Id,
		Name:     spec.Name,
		Category: spec.Category,
		WebLink:  created.WebViewLink,
	}, nil
}

// UploadFile creates a file inside the container folder with spec.Body as content.
func (b *Backend) UploadFile(ctx context.Context, spec storage.FileSpec) error {
	contentType := spec.ContentType
	if contentType == "" {
		contentType = constants.BinaryMimeType
	}

	file := &drive.File{
		Name:       spec.Name,
		MimeType:   contentType,
		Parents:    []string{spec.ParentID},
		Properties: map[string]string{"source_name": spec.SourceName},
	}

	_, err := b.svc.Files.Create(file).
		Media(spec.Body, googleapi.ContentType(contentType)).
		Fields("id").
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return b.remoteError(storage.OpUploadFile, spec.Name, err)
	}
	return nil
}

func (b *Backend) remoteError(op, target string, err error) error {
	re := &storage.RemoteError{Backend: BackendName, Op: op, Target: target, Err: err}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		re.StatusCode = gerr.Code
	}
	return re
}

var _ storage.Backend = (*Backend)(nil)
