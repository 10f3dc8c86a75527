// Package notify sends desktop notifications about upload outcomes.
// It uses github.com/gen2brain/beeep for cross-platform notification support.
package notify

import (
	"fmt"
	"sync"
	"unicode/utf8"

	"github.com/gen2brain/beeep"

	"github.com/docupload/docupload/internal/config"
	"github.com/docupload/docupload/internal/logging"
)

// Sender delivers a notification. Fire-and-forget: callers only log failures.
type Sender interface {
	Notify(title, message string) error
	Alert(title, message string) error
}

// beeepSender is the desktop Sender.
type beeepSender struct{}

func (beeepSender) Notify(title, message string) error {
	// Windows toast, macOS notification center, Linux D-Bus
	return beeep.Notify(title, message, "")
}

func (beeepSender) Alert(title, message string) error {
	return beeep.Alert(title, message, "")
}

// Notifier handles desktop notifications.
type Notifier struct {
	logger *logging.Logger
	sender Sender

	mu           sync.RWMutex
	enabled      bool
	showFailures bool
	showSummary  bool
}

// NewNotifier creates a notifier that delivers through beeep.
func NewNotifier(cfg config.NotificationConfig, logger *logging.Logger) *Notifier {
	return NewNotifierWithSender(cfg, beeepSender{}, logger)
}

// NewNotifierWithSender creates a notifier that delivers through sender.
func NewNotifierWithSender(cfg config.NotificationConfig, sender Sender, logger *logging.Logger) *Notifier {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Notifier{
		logger:       logger,
		sender:       sender,
		enabled:      cfg.Enabled,
		showFailures: cfg.ShowFailures,
		showSummary:  cfg.ShowSummary,
	}
}

// SetEnabled enables or disables notifications.
func (n *Notifier) SetEnabled(enabled bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.enabled = enabled
}

// IsEnabled returns whether notifications are enabled.
func (n *Notifier) IsEnabled() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.enabled
}

func (n *Notifier) wants(kind *bool) bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.enabled && *kind
}

// UploadFailed reports one document folder that could not be uploaded.
func (n *Notifier) UploadFailed(folder string) {
	if !n.wants(&n.showFailures) {
		return
	}

	if err := n.sender.Notify("Upload failed", fmt.Sprintf("Failed to upload document %s", folder)); err != nil {
		n.logger.Warn().Err(err).Str("folder", folder).Msg("Failed to send upload failed notification")
	}
}

// UploadSummary reports how many documents were uploaded in a batch.
func (n *Notifier) UploadSummary(succeeded int) {
	if !n.wants(&n.showSummary) {
		return
	}

	if err := n.sender.Notify("Upload summary", fmt.Sprintf("%d document uploaded", succeeded)); err != nil {
		n.logger.Warn().Err(err).Int("succeeded", succeeded).Msg("Failed to send upload summary notification")
	}
}

// Alert sends an alert notification (error level).
// This is for critical issues that require user attention, such as failed sign-in.
func (n *Notifier) Alert(message string) {
	if !n.IsEnabled() {
		return
	}

	title := "Document Uploader"
	message = truncate(message, 200)

	// Alert is more prominent on some platforms
	if err := n.sender.Alert(title, message); err != nil {
		// Fall back to regular notify
		if err := n.sender.Notify(title, message); err != nil {
			n.logger.Error().Err(err).Str("message", message).Msg("Failed to send alert notification")
		}
	}
}

// truncate shortens s to maxLen runes, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxLen-3]) + "..."
}
