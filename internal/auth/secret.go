// Package auth runs the OAuth installed-application flow against Google and
// keeps the resulting token in the user's cache directory.
package auth

import (
	"fmt"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
)

// RedirectURL is the loopback address the consent page redirects to.
func RedirectURL(port int) string {
	return fmt.Sprintf("http://127.0.0.1:%d/", port)
}

// LoadSecret reads a Google "installed" client secret JSON file and returns an
// OAuth config with full Drive scope and a loopback redirect on port.
func LoadSecret(path string, port int) (*oauth2.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, authError("read client secret", err)
	}

	cfg, err := google.ConfigFromJSON(data, drive.DriveScope)
	if err != nil {
		return nil, authError("parse client secret", err)
	}
	cfg.RedirectURL = RedirectURL(port)
	return cfg, nil
}
