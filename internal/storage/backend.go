// Package storage defines the contract every remote backend implements,
// so the upload orchestrator can treat Google Drive, S3 and Azure Blob alike.
package storage

import (
	"context"
	"io"
	"strings"
)

// Backend is a remote store that can hold documents.
//
// A document becomes one container (a Drive folder, or a key prefix in an
// object store) with every payload file created as its child.
type Backend interface {
	// Name identifies the backend in logs and errors ("gdrive", "s3", "azure").
	Name() string

	// CreateContainer creates the remote container for one document.
	CreateContainer(ctx context.Context, spec ContainerSpec) (*Container, error)

	// UploadFile uploads one file under an existing container.
	UploadFile(ctx context.Context, spec FileSpec) error
}

// ContainerSpec describes the container to create for a document.
type ContainerSpec struct {
	Name     string
	Category string
}

// Container is a created remote container. Only ID is needed to parent files.
type Container struct {
	ID       string
	Name     string
	Category string
	WebLink  string
}

// FileSpec describes one file upload.
type FileSpec struct {
	ParentID    string    // Container.ID
	Name        string    // remote display name
	SourceName  string    // local file name
	ContentType string
	Size        int64
	Body        io.Reader
}

// SafeKeyComponent makes a document name usable as one segment of an object key.
func SafeKeyComponent(name string) string {
	name = strings.TrimSpace(name)
	name = strings.NewReplacer("/", "_", "\\", "_").Replace(name)
	if name == "" || name == "." || name == ".." {
		return "document"
	}
	return name
}
