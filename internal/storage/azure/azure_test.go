package azure

import (
	"errors"
	"net/http"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"

	appconfig "github.com/docupload/docupload/internal/config"
	"github.com/docupload/docupload/internal/storage"
)

func TestDirectoryPrefix(t *testing.T) {
	tests := []struct {
		base, name, id string
		want           string
	}{
		{"", "Report", "42", "Report-42/"},
		{"incoming", "Report", "42", "incoming/Report-42/"},
		{"incoming/docs", "a/b", "42", "incoming/docs/a_b-42/"},
	}
	for _, tt := range tests {
		if got := directoryPrefix(tt.base, tt.name, tt.id); got != tt.want {
			t.Errorf("directoryPrefix(%q, %q, %q) = %q, want %q", tt.base, tt.name, tt.id, got, tt.want)
		}
	}
}

func TestBlobName(t *testing.T) {
	if got := blobName("incoming/Report-42/", "b.pdf"); got != "incoming/Report-42/b.pdf" {
		t.Errorf("blobName() = %q", got)
	}
}

func TestMetadataValue(t *testing.T) {
	if got := metadataValue("Q3 Report/Überblick"); got != "Q3+Report%2F%C3%9Cberblick" {
		t.Errorf("metadataValue() = %q", got)
	}
}

func TestNew(t *testing.T) {
	b, err := New(appconfig.AzureConfig{
		ServiceURL: "https://acct.blob.core.windows.net/?sv=2024&sig=abc",
		Container:  "docs",
		Prefix:     "/incoming/",
	}, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if b.Name() != "azure" {
		t.Errorf("Name() = %q", b.Name())
	}
	if b.prefix != "incoming" {
		t.Errorf("prefix = %q, want incoming", b.prefix)
	}
	if got := b.blobLocation("incoming/Report-42/"); got != "https://acct.blob.core.windows.net/docs/incoming/Report-42/" {
		t.Errorf("blobLocation() = %q", got)
	}
}

func TestNew_RequiresTarget(t *testing.T) {
	if _, err := New(appconfig.AzureConfig{Container: "docs"}, nil); err == nil {
		t.Error("expected error for missing service URL")
	}
	if _, err := New(appconfig.AzureConfig{ServiceURL: "https://acct.blob.core.windows.net/"}, nil); err == nil {
		t.Error("expected error for missing container")
	}
}

func TestRemoteError(t *testing.T) {
	cause := &azcore.ResponseError{ErrorCode: "AuthorizationFailure", StatusCode: http.StatusForbidden}
	err := remoteError(storage.OpUploadFile, "Report", cause)

	var re *storage.RemoteError
	if !errors.As(err, &re) {
		t.Fatalf("expected *storage.RemoteError, got %T", err)
	}
	if re.StatusCode != http.StatusForbidden || re.Backend != BackendName {
		t.Errorf("unexpected error fields %+v", re)
	}
	if !errors.Is(err, cause) {
		t.Error("RemoteError should unwrap to the azcore error")
	}
}
