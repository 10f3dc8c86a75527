// Package constants holds application identity and tuning values shared by the
// CLI, the GUI and the storage backends.
package constants

import (
	"time"
)

// Application identity
const (
	// AppName is the human-readable application name used in window titles and notifications.
	AppName = "Document Uploader"

	// AppID is the fyne application ID (also used for preferences storage).
	AppID = "com.docupload.uploader"

	// CacheDirName is the directory under the user cache dir that holds
	// secret.json and the persisted OAuth token.
	CacheDirName = "document-upload-cli"

	// ConfigDirName is the directory under the user config dir that holds config.ini.
	ConfigDirName = "docupload"

	// LogFileName is the GUI log file written into the log directory.
	LogFileName = "docupload.log"
)

// Document folder layout
const (
	// DescriptionFileName is the metadata file every document folder must contain.
	DescriptionFileName = "description.txt"

	// SecretFileName is the OAuth application credential inside the cache dir.
	SecretFileName = "secret.json"

	// TokenFileName is the persisted user token inside the cache dir.
	TokenFileName = "auth"
)

// Content types
const (
	// FolderMimeType marks a Drive object as a folder.
	FolderMimeType = "application/vnd.google-apps.folder"

	// BinaryMimeType is the content type used for uploaded payload files.
	BinaryMimeType = "application/octet-stream"

	// DirectoryMarkerMimeType is the content type of the zero-length marker
	// object written by object-store backends for a container.
	DirectoryMarkerMimeType = "application/x-directory"
)

// OAuth consent flow
const (
	// DefaultCallbackPort is the fixed local port the consent redirect lands on.
	DefaultCallbackPort = 8001

	// CallbackShutdownTimeout bounds how long the callback server may take to stop.
	CallbackShutdownTimeout = 5 * time.Second
)

// Token endpoint retry policy. Only token exchange/refresh is retried;
// document uploads are never retried.
const (
	TokenRetryMax     = 3
	TokenRetryWaitMin = 500 * time.Millisecond
	TokenRetryWaitMax = 5 * time.Second
)

// HTTP Client Timeouts
const (
	// HTTPIdleConnTimeout - how long to keep idle connections open (90 seconds)
	HTTPIdleConnTimeout = 90 * time.Second

	// HTTPTLSHandshakeTimeout - timeout for TLS handshake (60 seconds)
	HTTPTLSHandshakeTimeout = 60 * time.Second

	// HTTPExpectContinueTimeout - timeout for 100-continue response (1 second)
	HTTPExpectContinueTimeout = 1 * time.Second

	// HTTPDialTimeout - timeout for establishing connection (30 seconds)
	HTTPDialTimeout = 30 * time.Second

	// HTTPDialKeepAlive - keep-alive period for dialer (30 seconds)
	HTTPDialKeepAlive = 30 * time.Second
)

// Event bus sizing
const (
	// EventBusDefaultBuffer is the per-subscriber channel buffer.
	EventBusDefaultBuffer = 256

	// EventBusMaxBuffer caps caller-provided buffer sizes.
	EventBusMaxBuffer = 4096
)
