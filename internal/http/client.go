package http

import (
	"crypto/tls"
	nethttp "net/http"
	"os"
	"strings"

	"golang.org/x/net/http2"

	"github.com/docupload/docupload/internal/config"
	"github.com/docupload/docupload/internal/logging"
)

// CreateUploadClient creates the HTTP client every storage backend uploads through.
//
// It starts from ConfigureHTTPClient and then:
//   - enables HTTP/2 when no proxy is in the way (DISABLE_HTTP2=true forces HTTP/1.1)
//   - disables compression, payloads are sent as-is
//   - removes any overall timeout, large files are bounded by the caller's context
//
// The client performs exactly one attempt per request.
func CreateUploadClient(cfg config.ProxyConfig, logger *logging.Logger) (*nethttp.Client, error) {
	baseClient, err := ConfigureHTTPClient(cfg, logger)
	if err != nil {
		return nil, err
	}
	baseClient.Timeout = 0

	tr, ok := baseClient.Transport.(*nethttp.Transport)
	if !ok {
		// NTLM wraps the transport in ntlmssp.Negotiator; leave it as configured
		return baseClient, nil
	}

	tr.DisableCompression = true
	tr.ForceAttemptHTTP2 = true
	_ = http2.ConfigureTransport(tr)

	// Proxies often mishandle HTTP/2 multiplexing. FORCE_HTTP2=true overrides.
	disable := os.Getenv("DISABLE_HTTP2") == "true" ||
		(proxyActive(cfg) && os.Getenv("FORCE_HTTP2") != "true")
	if disable {
		tr.ForceAttemptHTTP2 = false
		tr.TLSNextProto = make(map[string]func(string, *tls.Conn) nethttp.RoundTripper)
	}

	return baseClient, nil
}

// proxyActive reports whether requests will go through a proxy.
// System mode depends on the environment.
func proxyActive(cfg config.ProxyConfig) bool {
	switch strings.ToLower(cfg.Mode) {
	case "no-proxy", "":
		return false
	case "system":
		return os.Getenv("HTTP_PROXY") != "" || os.Getenv("HTTPS_PROXY") != "" ||
			os.Getenv("http_proxy") != "" || os.Getenv("https_proxy") != ""
	default:
		return cfg.Host != ""
	}
}
