// Package http builds the HTTP clients docupload talks to remote services with:
// a proxy-aware transport shared by every backend, and a retrying client for
// OAuth token calls.
package http

import (
	"crypto/tls"
	"fmt"
	"net"
	nethttp "net/http"
	"net/url"
	"strings"

	ntlmssp "github.com/Azure/go-ntlmssp"
	"golang.org/x/net/http/httpproxy"

	"github.com/docupload/docupload/internal/config"
	"github.com/docupload/docupload/internal/constants"
	"github.com/docupload/docupload/internal/logging"
)

// newTransport returns the base transport with the dial and TLS timeouts every client shares.
func newTransport() *nethttp.Transport {
	return &nethttp.Transport{
		DialContext: (&net.Dialer{
			Timeout:   constants.HTTPDialTimeout,
			KeepAlive: constants.HTTPDialKeepAlive,
		}).DialContext,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
		MaxIdleConns:          16,
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       constants.HTTPIdleConnTimeout,
		TLSHandshakeTimeout:   constants.HTTPTLSHandshakeTimeout,
		ExpectContinueTimeout: constants.HTTPExpectContinueTimeout,
	}
}

// ConfigureHTTPClient configures an HTTP client with proxy settings.
// The client has no overall timeout; uploads of large files are bounded by
// the caller's context instead.
func ConfigureHTTPClient(cfg config.ProxyConfig, logger *logging.Logger) (*nethttp.Client, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	transport := newTransport()

	switch strings.ToLower(cfg.Mode) {
	case "no-proxy", "":
		transport.Proxy = nil

	case "system":
		// HTTP_PROXY, HTTPS_PROXY and NO_PROXY from the environment
		transport.Proxy = nethttp.ProxyFromEnvironment

	case "ntlm":
		// Fall back to no-proxy if host is missing so the user can still reach `config init`
		if cfg.Host == "" {
			logger.Warn().Msg("Proxy mode is NTLM but host is missing - falling back to no-proxy mode")
			transport.Proxy = nil
			return &nethttp.Client{Transport: transport}, nil
		}

		transport.Proxy = proxyFuncWithBypass(buildProxyURL(cfg), cfg.NoProxy, logger)
		return &nethttp.Client{
			Transport: ntlmssp.Negotiator{
				RoundTripper: transport,
			},
		}, nil

	case "basic":
		if cfg.Host == "" {
			logger.Warn().Msg("Proxy mode is basic but host is missing - falling back to no-proxy mode")
			transport.Proxy = nil
			return &nethttp.Client{Transport: transport}, nil
		}

		if cfg.User != "" && cfg.Password == "" {
			logger.Warn().Msg("Proxy user configured but password missing - proxy auth disabled until password is set")
		}
		transport.Proxy = proxyFuncWithBypass(buildProxyURL(cfg), cfg.NoProxy, logger)

	default:
		return nil, fmt.Errorf("unsupported proxy mode: %s", cfg.Mode)
	}

	return &nethttp.Client{Transport: transport}, nil
}

// buildProxyURL constructs a proxy URL from config
func buildProxyURL(cfg config.ProxyConfig) *url.URL {
	port := cfg.Port
	if port == 0 {
		port = 8080
	}

	proxyURL := &url.URL{
		Scheme: "http",
		Host:   net.JoinHostPort(cfg.Host, fmt.Sprint(port)),
	}

	// Only embed credentials if both user AND password are provided
	if cfg.User != "" && cfg.Password != "" {
		proxyURL.User = url.UserPassword(cfg.User, cfg.Password)
	}

	return proxyURL
}

// proxyFuncWithBypass returns a proxy function that respects the NoProxy bypass list.
// If noProxy is empty, behaves identically to nethttp.ProxyURL.
// When noProxy is set, uses golang.org/x/net/http/httpproxy to match hosts/CIDRs.
func proxyFuncWithBypass(proxyURL *url.URL, noProxy string, logger *logging.Logger) func(*nethttp.Request) (*url.URL, error) {
	if noProxy == "" {
		return nethttp.ProxyURL(proxyURL)
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	cfg := httpproxy.Config{
		HTTPProxy:  proxyURL.String(),
		HTTPSProxy: proxyURL.String(),
		NoProxy:    noProxy,
	}
	proxyFunc := cfg.ProxyFunc()
	return func(req *nethttp.Request) (*url.URL, error) {
		result, err := proxyFunc(req.URL)
		if result == nil {
			logger.Debug().Str("host", req.URL.Host).Msg("Proxy bypass (direct connection)")
		} else {
			logger.Debug().Str("host", req.URL.Host).Str("proxy", result.Host).Msg("Proxied")
		}
		return result, err
	}
}

// NeedsProxyPassword returns true if the proxy configuration requires a password
// but one has not been provided. Used by CLI to determine if interactive prompt is needed.
func NeedsProxyPassword(cfg config.ProxyConfig) bool {
	mode := strings.ToLower(cfg.Mode)
	if mode != "basic" && mode != "ntlm" {
		return false
	}
	return cfg.User != "" && cfg.Password == ""
}
