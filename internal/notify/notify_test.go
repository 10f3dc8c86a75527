package notify

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/docupload/docupload/internal/config"
)

type sent struct {
	title, message string
	alert          bool
}

// recordingSender keeps every notification instead of showing it.
type recordingSender struct {
	mu       sync.Mutex
	sent     []sent
	alertErr error
}

func (r *recordingSender) Notify(title, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sent{title: title, message: message})
	return nil
}

func (r *recordingSender) Alert(title, message string) error {
	if r.alertErr != nil {
		return r.alertErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sent{title: title, message: message, alert: true})
	return nil
}

func allOn() config.NotificationConfig {
	return config.NotificationConfig{Enabled: true, ShowFailures: true, ShowSummary: true}
}

func TestUploadFailed(t *testing.T) {
	rec := &recordingSender{}
	n := NewNotifierWithSender(allOn(), rec, nil)

	n.UploadFailed("/home/user/doc1")

	if len(rec.sent) != 1 {
		t.Fatalf("got %d notifications, want 1", len(rec.sent))
	}
	if rec.sent[0].title != "Upload failed" {
		t.Errorf("title = %q", rec.sent[0].title)
	}
	if rec.sent[0].message != "Failed to upload document /home/user/doc1" {
		t.Errorf("message = %q", rec.sent[0].message)
	}
}

func TestUploadSummary(t *testing.T) {
	tests := []struct {
		succeeded int
		want      string
	}{
		{0, "0 document uploaded"},
		{1, "1 document uploaded"},
		{7, "7 document uploaded"},
	}

	for _, tt := range tests {
		rec := &recordingSender{}
		n := NewNotifierWithSender(allOn(), rec, nil)
		n.UploadSummary(tt.succeeded)

		if len(rec.sent) != 1 {
			t.Fatalf("got %d notifications, want 1", len(rec.sent))
		}
		if rec.sent[0].title != "Upload summary" || rec.sent[0].message != tt.want {
			t.Errorf("got %+v, want title %q message %q", rec.sent[0], "Upload summary", tt.want)
		}
	}
}

func TestNotifierGating(t *testing.T) {
	tests := []struct {
		name        string
		cfg         config.NotificationConfig
		wantFailure bool
		wantSummary bool
	}{
		{"all on", allOn(), true, true},
		{"disabled", config.NotificationConfig{ShowFailures: true, ShowSummary: true}, false, false},
		{"failures only", config.NotificationConfig{Enabled: true, ShowFailures: true}, true, false},
		{"summary only", config.NotificationConfig{Enabled: true, ShowSummary: true}, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recordingSender{}
			n := NewNotifierWithSender(tt.cfg, rec, nil)
			n.UploadFailed("doc1")
			n.UploadSummary(0)

			var gotFailure, gotSummary bool
			for _, s := range rec.sent {
				gotFailure = gotFailure || s.title == "Upload failed"
				gotSummary = gotSummary || s.title == "Upload summary"
			}
			if gotFailure != tt.wantFailure {
				t.Errorf("failure notification sent = %v, want %v", gotFailure, tt.wantFailure)
			}
			if gotSummary != tt.wantSummary {
				t.Errorf("summary notification sent = %v, want %v", gotSummary, tt.wantSummary)
			}
		})
	}
}

func TestSetEnabled(t *testing.T) {
	rec := &recordingSender{}
	n := NewNotifierWithSender(allOn(), rec, nil)

	n.SetEnabled(false)
	if n.IsEnabled() {
		t.Error("Expected disabled after SetEnabled(false)")
	}
	n.UploadSummary(3)
	if len(rec.sent) != 0 {
		t.Errorf("disabled notifier sent %d notifications", len(rec.sent))
	}

	n.SetEnabled(true)
	n.UploadSummary(3)
	if len(rec.sent) != 1 {
		t.Errorf("got %d notifications after re-enable, want 1", len(rec.sent))
	}
}

func TestAlert_FallsBackToNotify(t *testing.T) {
	rec := &recordingSender{alertErr: errors.New("alert unsupported")}
	n := NewNotifierWithSender(allOn(), rec, nil)

	n.Alert(strings.Repeat("x", 500))

	if len(rec.sent) != 1 {
		t.Fatalf("got %d notifications, want 1", len(rec.sent))
	}
	if rec.sent[0].alert {
		t.Error("expected fallback to a regular notification")
	}
	if len(rec.sent[0].message) != 200 {
		t.Errorf("message length = %d, want 200", len(rec.sent[0].message))
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		input    string
		maxLen   int
		expected string
	}{
		{"short", 10, "short"},
		{"exactly10c", 10, "exactly10c"},
		{"this is a long string", 10, "this is..."},
		{"", 10, ""},
		{"/home/zoë/Rechnungen/März", 10, "/home/z..."},
		{"/docs/résumé-été-2024", 12, "/docs/rés..."},
		{"日本語のドキュメントフォルダ", 8, "日本語のド..."},
	}

	for _, tt := range tests {
		result := truncate(tt.input, tt.maxLen)
		if !utf8.ValidString(result) {
			t.Errorf("truncate(%q, %d) produced invalid UTF-8", tt.input, tt.maxLen)
		}
		if result != tt.expected {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.input, tt.maxLen, result, tt.expected)
		}
	}
}
