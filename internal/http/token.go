package http

import (
	nethttp "net/http"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/docupload/docupload/internal/constants"
	"github.com/docupload/docupload/internal/logging"
)

// retryLogger implements the retryablehttp.LeveledLogger interface
type retryLogger struct {
	logger *logging.Logger
}

func (l *retryLogger) Error(msg string, keysAndValues ...interface{}) {
	l.logger.Error().Fields(keysAndValues).Msg(msg)
}

func (l *retryLogger) Info(msg string, keysAndValues ...interface{}) {
	// Only log errors and warnings, not all info
}

func (l *retryLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l *retryLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.Warn().Fields(keysAndValues).Msg(msg)
}

// NewTokenClient wraps base in a retrying client for OAuth token exchange and refresh.
// Token endpoints are idempotent for a given code or refresh token, so transient
// failures are retried; nothing else should use this client.
func NewTokenClient(base *nethttp.Client, logger *logging.Logger) *nethttp.Client {
	if base == nil {
		base = &nethttp.Client{Transport: newTransport()}
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient = base
	retryClient.RetryMax = constants.TokenRetryMax
	retryClient.RetryWaitMin = constants.TokenRetryWaitMin
	retryClient.RetryWaitMax = constants.TokenRetryWaitMax
	retryClient.Logger = &retryLogger{logger: logger}

	return retryClient.StandardClient()
}
