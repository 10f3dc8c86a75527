package http

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/docupload/docupload/internal/config"
)

func TestCreateUploadClient(t *testing.T) {
	t.Setenv("DISABLE_HTTP2", "")
	t.Setenv("FORCE_HTTP2", "")

	client, err := CreateUploadClient(config.ProxyConfig{Mode: "no-proxy"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if client.Timeout != 0 {
		t.Errorf("Timeout = %v, want 0", client.Timeout)
	}
	tr := client.Transport.(*http.Transport)
	if !tr.DisableCompression {
		t.Error("expected compression to be disabled")
	}
	if !tr.ForceAttemptHTTP2 {
		t.Error("expected HTTP/2 without a proxy")
	}
}

func TestCreateUploadClient_ProxyDisablesHTTP2(t *testing.T) {
	t.Setenv("FORCE_HTTP2", "")

	client, err := CreateUploadClient(config.ProxyConfig{Mode: "basic", Host: "proxy.corp"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	tr := client.Transport.(*http.Transport)
	if tr.ForceAttemptHTTP2 {
		t.Error("expected HTTP/2 to be disabled behind a proxy")
	}
}

func TestCreateUploadClient_NoRetry(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client, err := CreateUploadClient(config.ProxyConfig{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := client.Get(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	if hits.Load() != 1 {
		t.Errorf("server hit %d times, want 1", hits.Load())
	}
}

func TestNewTokenClient_RetriesTransientFailures(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"access_token":"abc","token_type":"Bearer"}`)
	}))
	defer srv.Close()

	client := NewTokenClient(srv.Client(), nil)
	resp, err := client.Post(srv.URL, "application/x-www-form-urlencoded", nil)
	if err != nil {
		t.Fatalf("Post failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d, want 200", resp.StatusCode)
	}
	if hits.Load() != 2 {
		t.Errorf("server hit %d times, want 2", hits.Load())
	}
}
