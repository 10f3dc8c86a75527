package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/docupload/docupload/internal/constants"
)

// DefaultConfigPath returns the default path for config.ini.
//   - Windows: %APPDATA%\docupload\config.ini
//   - macOS: ~/Library/Application Support/docupload/config.ini
//   - Unix: ~/.config/docupload/config.ini
func DefaultConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get config directory: %w", err)
	}
	return filepath.Join(configDir, constants.ConfigDirName, "config.ini"), nil
}

// DefaultCacheDirectory returns the per-application cache directory that holds
// the OAuth application secret and the persisted user token.
func DefaultCacheDirectory() (string, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("failed to get cache directory: %w", err)
	}
	return filepath.Join(cacheDir, constants.CacheDirName), nil
}

// LogDirectory returns the log directory used by the GUI.
//
// Locations:
//   - Windows: %LOCALAPPDATA%\docupload\logs
//   - Unix: ~/.config/docupload/logs
func LogDirectory() string {
	if runtime.GOOS == "windows" {
		localAppData := os.Getenv("LOCALAPPDATA")
		if localAppData == "" {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return filepath.Join(os.TempDir(), "docupload-logs")
			}
			localAppData = filepath.Join(homeDir, "AppData", "Local")
		}
		return filepath.Join(localAppData, constants.ConfigDirName, "logs")
	}

	configDir, err := os.UserConfigDir()
	if err != nil {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(os.TempDir(), "docupload-logs")
		}
		return filepath.Join(homeDir, ".config", constants.ConfigDirName, "logs")
	}
	return filepath.Join(configDir, constants.ConfigDirName, "logs")
}
