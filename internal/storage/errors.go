package storage

import (
	"fmt"
	"strings"
)

// RemoteError reports that the remote service rejected or failed an operation.
type RemoteError struct {
	Backend    string // backend name
	Op         string // "create container" or "upload file"
	Target     string // container or file name
	StatusCode int    // HTTP status, 0 when no response was received
	Err        error
}

func (e *RemoteError) Error() string {
	msg := fmt.Sprintf("%s: %s %q", e.Backend, e.Op, e.Target)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// Operation names used in RemoteError.Op.
const (
	OpCreateContainer = "create container"
	OpUploadFile      = "upload file"
)

// IsNetworkError checks if an error is network-related
// The CLI uses it to point at the [proxy] settings; uploads are never retried
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())

	networkIndicators := []string{
		"connection",    // connection refused, connection reset, etc.
		"timeout",       // i/o timeout, dial timeout, etc.
		"network",       // network unreachable, network error, etc.
		"eof",           // unexpected EOF
		"broken pipe",   // broken pipe
		"tls handshake", // TLS handshake errors
		"no such host",  // DNS failure
	}

	for _, indicator := range networkIndicators {
		if strings.Contains(errStr, indicator) {
			return true
		}
	}

	return false
}

// IsCredentialError checks if an error is authentication/authorization related
// The CLI uses it to suggest "docupload auth login"
func IsCredentialError(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())

	credentialIndicators := []string{
		"401",           // HTTP Unauthorized
		"403",           // HTTP Forbidden
		"unauthorized",  // HTTP Unauthorized
		"expired",       // expired token/credential
		"expiredtoken",  // AWS specific
		"invalid token", // invalid authentication
		"invalid_grant", // OAuth refresh token revoked
	}

	for _, indicator := range credentialIndicators {
		if strings.Contains(errStr, indicator) {
			return true
		}
	}

	return false
}
