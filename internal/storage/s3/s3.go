// Package s3 stores documents in an S3 bucket. A document is a key prefix
// marked by a zero-byte object; payload files are objects under that prefix.
package s3

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	awscreds "github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	appconfig "github.com/docupload/docupload/internal/config"
	"github.com/docupload/docupload/internal/constants"
	"github.com/docupload/docupload/internal/storage"
)

// BackendName is the value of [storage] backend selecting S3.
const BackendName = "s3"

// Object metadata keys (sent as x-amz-meta-*).
const (
	metaDocumentName = "document-name"
	metaCategory     = "category"
)

// Backend implements storage.Backend on S3.
type Backend struct {
	client *s3.Client
	bucket string
	prefix string
	newID  func() string
}

// New creates an S3 backend from the [s3] config section.
// Static keys are used when both are set; otherwise the default AWS chain applies.
func New(ctx context.Context, cfg appconfig.S3Config, httpClient *http.Client) (*Backend, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3: bucket is required")
	}

	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
		// Uploads are not retried; a rejected file fails its document
		config.WithRetryer(func() aws.Retryer { return aws.NopRetryer{} }),
	}
	if httpClient != nil {
		opts = append(opts, config.WithHTTPClient(awsHTTPClient(httpClient)))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			awscreds.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("s3: failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &Backend{
		client: client,
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
		newID:  func() string { return uuid.NewString() },
	}, nil
}

// awsHTTPClient carries the proxy-aware transport settings over to an SDK
// buildable client, which the SDK can still extend with AWS_CA_BUNDLE roots.
// An NTLM negotiator cannot be rebuilt that way and is used as-is.
func awsHTTPClient(httpClient *http.Client) aws.HTTPClient {
	rt := httpClient.Transport
	if rt == nil {
		rt = http.DefaultTransport
	}
	src, ok := rt.(*http.Transport)
	if !ok {
		return httpClient
	}

	client := awshttp.NewBuildableClient().WithTransportOptions(func(tr *http.Transport) {
		tr.Proxy = src.Proxy
		tr.ProxyConnectHeader = src.ProxyConnectHeader
		if src.DialContext != nil {
			tr.DialContext = src.DialContext
		}
		if src.TLSClientConfig != nil {
			tr.TLSClientConfig = src.TLSClientConfig.Clone()
		}
		if src.TLSHandshakeTimeout > 0 {
			tr.TLSHandshakeTimeout = src.TLSHandshakeTimeout
		}
		tr.DisableCompression = src.DisableCompression
		tr.ForceAttemptHTTP2 = src.ForceAttemptHTTP2
		if src.TLSNextProto != nil && len(src.TLSNextProto) == 0 {
			// HTTP/2 was switched off for the proxy
			tr.TLSNextProto = map[string]func(string, *tls.Conn) http.RoundTripper{}
		}
	})
	if httpClient.Timeout > 0 {
		client = client.WithTimeout(httpClient.Timeout)
	}
	return client
}

// Name implements storage.Backend.
func (b *Backend) Name() string { return BackendName }

// CreateContainer writes the marker object for a new document prefix.
// The prefix carries a fresh UUID so documents sharing a name never collide.
func (b *Backend) CreateContainer(ctx context.Context, spec storage.ContainerSpec) (*storage.Container, error) {
	prefix := containerPrefix(b.prefix, spec.Name, b.newID())

	_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(b.bucket),
		Key:           aws.String(prefix),
		Body:          bytes.NewReader(nil),
		ContentLength: aws.Int64(0),
		ContentType:   aws.String(constants.DirectoryMarkerMimeType),
		Metadata: map[string]string{
			metaDocumentName: spec.Name,
			metaCategory:     spec.Category,
		},
	})
	if err != nil {
		return nil, remoteError(storage.OpCreateContainer, spec.Name, err)
	}

	return &storage.Container{
		ID:       prefix,
		Name:     spec.Name,
		Category: spec.Category,
		WebLink:  fmt.Sprintf("s3://%s/%s", b.bucket, prefix),
	}, nil
}

// UploadFile puts one object under the container prefix, keyed by the local
// file name. The document name travels in object metadata.
func (b *Backend) UploadFile(ctx context.Context, spec storage.FileSpec) error {
	contentType := spec.ContentType
	if contentType == "" {
		contentType = constants.BinaryMimeType
	}

	input := &s3.PutObjectInput{
		Bucket:      aws.String(b.bucket),
		Key:         aws.String(objectKey(spec.ParentID, spec.SourceName)),
		Body:        spec.Body,
		ContentType: aws.String(contentType),
		Metadata:    map[string]string{metaDocumentName: spec.Name},
	}
	if spec.Size >= 0 {
		input.ContentLength = aws.Int64(spec.Size)
	}

	if _, err := b.client.PutObject(ctx, input); err != nil {
		return remoteError(storage.OpUploadFile, spec.Name, err)
	}
	return nil
}

// containerPrefix returns "<base>/<name>-<id>/" (or "<name>-<id>/" without base).
func containerPrefix(base, name, id string) string {
	return path.Join(base, storage.SafeKeyComponent(name)+"-"+id) + "/"
}

// objectKey places a file under a container prefix.
func objectKey(containerID, sourceName string) string {
	return containerID + storage.SafeKeyComponent(sourceName)
}

func remoteError(op, target string, err error) error {
	re := &storage.RemoteError{Backend: BackendName, Op: op, Target: target, Err: err}
	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		re.StatusCode = respErr.HTTPStatusCode()
	}
	return re
}

var _ storage.Backend = (*Backend)(nil)
