// Package azure stores documents in an Azure Blob container. A document is a
// virtual directory: a zero-length marker blob plus one blob per payload file.
package azure

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/google/uuid"

	appconfig "github.com/docupload/docupload/internal/config"
	"github.com/docupload/docupload/internal/constants"
	"github.com/docupload/docupload/internal/storage"
)

// BackendName is the value of [storage] backend selecting Azure Blob.
const BackendName = "azure"

// Blob metadata keys. Azure requires C# identifier rules, so no dashes.
const (
	metaDocumentName = "document_name"
	metaCategory     = "category"
	metaIsFolder     = "hdi_isfolder"
)

// Backend implements storage.Backend on Azure Blob Storage.
type Backend struct {
	client     *azblob.Client
	serviceURL string
	container  string
	prefix     string
	newID      func() string
}

// New creates an Azure backend. cfg.ServiceURL must carry a SAS token with
// write permission on cfg.Container.
func New(cfg appconfig.AzureConfig, httpClient *http.Client) (*Backend, error) {
	if cfg.ServiceURL == "" || cfg.Container == "" {
		return nil, fmt.Errorf("azure: service_url and container are required")
	}

	clientOpts := azcore.ClientOptions{
		// Uploads are not retried; a rejected file fails its document
		Retry: policy.RetryOptions{MaxRetries: -1},
	}
	if httpClient != nil {
		clientOpts.Transport = httpClient
	}

	client, err := azblob.NewClientWithNoCredential(cfg.ServiceURL, &azblob.ClientOptions{
		ClientOptions: clientOpts,
	})
	if err != nil {
		return nil, fmt.Errorf("azure: failed to create client: %w", err)
	}

	return &Backend{
		client:     client,
		serviceURL: cfg.ServiceURL,
		container:  cfg.Container,
		prefix:     strings.Trim(cfg.Prefix, "/"),
		newID:      func() string { return uuid.NewString() },
	}, nil
}

// Name implements storage.Backend.
func (b *Backend) Name() string { return BackendName }

// CreateContainer writes the marker blob of a new virtual directory.
func (b *Backend) CreateContainer(ctx context.Context, spec storage.ContainerSpec) (*storage.Container, error) {
	prefix := directoryPrefix(b.prefix, spec.Name, b.newID())
	marker := strings.TrimSuffix(prefix, "/")

	_, err := b.client.UploadBuffer(ctx, b.container, marker, []byte{}, &azblob.UploadBufferOptions{
		HTTPHeaders: &blob.HTTPHeaders{BlobContentType: ptr(constants.DirectoryMarkerMimeType)},
		Metadata: map[string]*string{
			metaDocumentName: ptr(metadataValue(spec.Name)),
			metaCategory:     ptr(metadataValue(spec.Category)),
			metaIsFolder:     ptr("true"),
		},
	})
	if err != nil {
		return nil, remoteError(storage.OpCreateContainer, spec.Name, err)
	}

	return &storage.Container{
		ID:       prefix,
		Name:     spec.Name,
		Category: spec.Category,
		WebLink:  b.blobLocation(prefix),
	}, nil
}

// UploadFile streams one file into a blob under the directory prefix.
func (b *Backend) UploadFile(ctx context.Context, spec storage.FileSpec) error {
	contentType := spec.ContentType
	if contentType == "" {
		contentType = constants.BinaryMimeType
	}

	_, err := b.client.UploadStream(ctx, b.container, blobName(spec.ParentID, spec.SourceName), spec.Body, &azblob.UploadStreamOptions{
		HTTPHeaders: &blob.HTTPHeaders{BlobContentType: ptr(contentType)},
		Metadata: map[string]*string{
			metaDocumentName: ptr(metadataValue(spec.Name)),
		},
	})
	if err != nil {
		return remoteError(storage.OpUploadFile, spec.Name, err)
	}
	return nil
}

// blobLocation returns the SAS-free URL of a blob path.
func (b *Backend) blobLocation(name string) string {
	u, err := url.Parse(b.serviceURL)
	if err != nil {
		return name
	}
	u.RawQuery = ""
	u.Path = path.Join(u.Path, b.container, name) + "/"
	return u.String()
}

// directoryPrefix returns "<base>/<name>-<id>/" (or "<name>-<id>/" without base).
func directoryPrefix(base, name, id string) string {
	return path.Join(base, storage.SafeKeyComponent(name)+"-"+id) + "/"
}

// blobName places a file under a directory prefix.
func blobName(containerID, sourceName string) string {
	return containerID + storage.SafeKeyComponent(sourceName)
}

// metadataValue keeps header-safe ASCII. Blob metadata travels as HTTP headers.
func metadataValue(s string) string {
	return url.QueryEscape(s)
}

func remoteError(op, target string, err error) error {
	re := &storage.RemoteError{Backend: BackendName, Op: op, Target: target, Err: err}
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		re.StatusCode = respErr.StatusCode
	}
	return re
}

func ptr(s string) *string { return &s }

var _ storage.Backend = (*Backend)(nil)
