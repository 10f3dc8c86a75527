// Package providers creates the configured storage backend.
package providers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/docupload/docupload/internal/config"
	"github.com/docupload/docupload/internal/storage"
	"github.com/docupload/docupload/internal/storage/azure"
	"github.com/docupload/docupload/internal/storage/gdrive"
	"github.com/docupload/docupload/internal/storage/s3"
)

// Authorizer yields an HTTP client carrying the user's OAuth credentials.
// Only the Drive backend needs one.
type Authorizer interface {
	Client(ctx context.Context) (*http.Client, error)
}

// Factory creates backends from configuration.
type Factory struct {
	// HTTPClient is the proxy-aware client used by the object-store backends.
	HTTPClient *http.Client

	// Authorizer is consulted only when the Drive backend is selected.
	Authorizer Authorizer
}

// NewBackend creates the backend named by cfg.Backend.
func (f *Factory) NewBackend(ctx context.Context, cfg *config.Config) (storage.Backend, error) {
	switch cfg.Backend {
	case config.BackendDrive:
		if f.Authorizer == nil {
			return nil, fmt.Errorf("backend %s requires authorization", cfg.Backend)
		}
		client, err := f.Authorizer.Client(ctx)
		if err != nil {
			return nil, err
		}
		return gdrive.New(ctx, client, cfg.Drive.ParentFolderID)
	case config.BackendS3:
		return s3.New(ctx, cfg.S3, f.HTTPClient)
	case config.BackendAzure:
		return azure.New(cfg.Azure, f.HTTPClient)
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", cfg.Backend)
	}
}
