// Package config provides configuration management for docupload.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"gopkg.in/ini.v1"

	"github.com/docupload/docupload/internal/constants"
)

// Config is the optional on-disk configuration. Every field has a default, so a
// missing config file yields a working Google Drive setup.
//
// INI format:
//
//	[storage]
//	backend = gdrive
//
//	[upload]
//	file_naming = document
//	detect_content_type = false
//	include_hidden = true
//	skip_subdirectories = false
//	exclude = .DS_Store, *.tmp
//
//	[drive]
//	parent_folder_id =
//
//	[auth]
//	callback_port = 8001
//	cache_dir =
//
//	[s3]
//	bucket = my-bucket
//	region = eu-west-1
//	prefix = documents
//
//	[azure]
//	service_url = https://account.blob.core.windows.net/?sv=...
//	container = documents
//
//	[proxy]
//	mode = no-proxy
//
//	[notifications]
//	enabled = true
//
//	[metrics]
//	listen_addr =
type Config struct {
	Backend string

	Upload        UploadConfig
	Drive         DriveConfig
	Auth          AuthConfig
	S3            S3Config
	Azure         AzureConfig
	Proxy         ProxyConfig
	Notifications NotificationConfig
	Metrics       MetricsConfig
}

// Backend names accepted by [storage] backend.
const (
	BackendDrive = "gdrive"
	BackendS3    = "s3"
	BackendAzure = "azure"
)

// File naming modes accepted by [upload] file_naming.
const (
	// NamingDocument names every uploaded file after the document.
	NamingDocument = "document"
	// NamingOriginal keeps each file's local name.
	NamingOriginal = "original"
)

// UploadConfig controls how a document folder is turned into uploads.
type UploadConfig struct {
	FileNaming         string
	DetectContentType  bool
	IncludeHidden      bool
	SkipSubdirectories bool
	Exclude            []string
}

// DriveConfig holds Google Drive backend settings.
type DriveConfig struct {
	// ParentFolderID places created document folders under this folder.
	// Empty means the Drive root.
	ParentFolderID string
}

// AuthConfig holds OAuth consent flow settings.
type AuthConfig struct {
	CallbackPort int
	// CacheDir overrides the directory holding secret.json and the token cache.
	CacheDir string
}

// S3Config holds S3 backend settings. Empty keys fall back to the default AWS credential chain.
type S3Config struct {
	Bucket          string
	Region          string
	Prefix          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

// AzureConfig holds Azure Blob backend settings.
type AzureConfig struct {
	// ServiceURL is the account URL including a SAS query string.
	ServiceURL string
	Container  string
	Prefix     string
}

// ProxyConfig mirrors the proxy modes supported by internal/http.
type ProxyConfig struct {
	Mode     string // no-proxy, system, basic, ntlm
	Host     string
	Port     int
	User     string
	Password string
	NoProxy  string
}

// NotificationConfig contains settings for desktop notifications.
type NotificationConfig struct {
	Enabled      bool
	ShowFailures bool
	ShowSummary  bool
}

// MetricsConfig controls the optional Prometheus endpoint.
type MetricsConfig struct {
	ListenAddr string
}

// Validation errors
var (
	ErrUnknownBackend     = errors.New("backend must be one of gdrive, s3, azure")
	ErrUnknownFileNaming  = errors.New("file_naming must be document or original")
	ErrInvalidCallback    = errors.New("callback_port must be between 1 and 65535")
	ErrMissingS3Bucket    = errors.New("s3 bucket is required when backend = s3")
	ErrMissingS3Region    = errors.New("s3 region is required when backend = s3")
	ErrMissingAzureURL    = errors.New("azure service_url is required when backend = azure")
	ErrMissingAzureTarget = errors.New("azure container is required when backend = azure")
	ErrUnknownProxyMode   = errors.New("proxy mode must be one of no-proxy, system, basic, ntlm")
	ErrMissingProxyHost   = errors.New("proxy host is required for basic and ntlm modes")
)

// New creates a Config with default values.
func New() *Config {
	return &Config{
		Backend: BackendDrive,
		Upload: UploadConfig{
			FileNaming:    NamingDocument,
			IncludeHidden: true,
		},
		Auth: AuthConfig{
			CallbackPort: constants.DefaultCallbackPort,
		},
		Proxy: ProxyConfig{
			Mode: "no-proxy",
		},
		Notifications: NotificationConfig{
			Enabled:      true,
			ShowFailures: true,
			ShowSummary:  true,
		},
	}
}

// Load loads configuration from an INI file.
// If the file doesn't exist, returns a config with default values and no error.
// If the file exists but is invalid, returns an error.
func Load(path string) (*Config, error) {
	cfg := New()

	if path == "" {
		var err error
		path, err = DefaultConfigPath()
		if err != nil {
			return cfg, nil // Return defaults if we can't determine path
		}
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	iniFile, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	storageSection := iniFile.Section("storage")
	cfg.Backend = strings.ToLower(storageSection.Key("backend").MustString(cfg.Backend))

	uploadSection := iniFile.Section("upload")
	cfg.Upload.FileNaming = strings.ToLower(uploadSection.Key("file_naming").MustString(cfg.Upload.FileNaming))
	cfg.Upload.DetectContentType = uploadSection.Key("detect_content_type").MustBool(false)
	cfg.Upload.IncludeHidden = uploadSection.Key("include_hidden").MustBool(true)
	cfg.Upload.SkipSubdirectories = uploadSection.Key("skip_subdirectories").MustBool(false)
	cfg.Upload.Exclude = splitList(uploadSection.Key("exclude").String())

	cfg.Drive.ParentFolderID = iniFile.Section("drive").Key("parent_folder_id").String()

	authSection := iniFile.Section("auth")
	cfg.Auth.CallbackPort = authSection.Key("callback_port").MustInt(constants.DefaultCallbackPort)
	cfg.Auth.CacheDir = authSection.Key("cache_dir").String()

	s3Section := iniFile.Section("s3")
	cfg.S3.Bucket = s3Section.Key("bucket").String()
	cfg.S3.Region = s3Section.Key("region").String()
	cfg.S3.Prefix = s3Section.Key("prefix").String()
	cfg.S3.Endpoint = s3Section.Key("endpoint").String()
	cfg.S3.AccessKeyID = s3Section.Key("access_key_id").String()
	cfg.S3.SecretAccessKey = s3Section.Key("secret_access_key").String()

	azureSection := iniFile.Section("azure")
	cfg.Azure.ServiceURL = azureSection.Key("service_url").String()
	cfg.Azure.Container = azureSection.Key("container").String()
	cfg.Azure.Prefix = azureSection.Key("prefix").String()

	proxySection := iniFile.Section("proxy")
	cfg.Proxy.Mode = strings.ToLower(proxySection.Key("mode").MustString(cfg.Proxy.Mode))
	cfg.Proxy.Host = proxySection.Key("host").String()
	cfg.Proxy.Port = proxySection.Key("port").MustInt(0)
	cfg.Proxy.User = proxySection.Key("user").String()
	cfg.Proxy.Password = proxySection.Key("password").String()
	cfg.Proxy.NoProxy = proxySection.Key("no_proxy").String()

	notifySection := iniFile.Section("notifications")
	cfg.Notifications.Enabled = notifySection.Key("enabled").MustBool(true)
	cfg.Notifications.ShowFailures = notifySection.Key("show_failures").MustBool(true)
	cfg.Notifications.ShowSummary = notifySection.Key("show_summary").MustBool(true)

	cfg.Metrics.ListenAddr = iniFile.Section("metrics").Key("listen_addr").String()

	return cfg, nil
}

// Save saves configuration to an INI file.
// Creates parent directories if they don't exist. Proxy passwords and S3 keys
// are stored in the file, so it is written with owner-only permissions.
func Save(cfg *Config, path string) error {
	if path == "" {
		var err error
		path, err = DefaultConfigPath()
		if err != nil {
			return fmt.Errorf("failed to determine config path: %w", err)
		}
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	iniFile := ini.Empty()

	sections := []struct {
		name   string
		values [][2]string
	}{
		{"storage", [][2]string{
			{"backend", cfg.Backend},
		}},
		{"upload", [][2]string{
			{"file_naming", cfg.Upload.FileNaming},
			{"detect_content_type", fmt.Sprintf("%t", cfg.Upload.DetectContentType)},
			{"include_hidden", fmt.Sprintf("%t", cfg.Upload.IncludeHidden)},
			{"skip_subdirectories", fmt.Sprintf("%t", cfg.Upload.SkipSubdirectories)},
			{"exclude", strings.Join(cfg.Upload.Exclude, ", ")},
		}},
		{"drive", [][2]string{
			{"parent_folder_id", cfg.Drive.ParentFolderID},
		}},
		{"auth", [][2]string{
			{"callback_port", fmt.Sprintf("%d", cfg.Auth.CallbackPort)},
			{"cache_dir", cfg.Auth.CacheDir},
		}},
		{"s3", [][2]string{
			{"bucket", cfg.S3.Bucket},
			{"region", cfg.S3.Region},
			{"prefix", cfg.S3.Prefix},
			{"endpoint", cfg.S3.Endpoint},
			{"access_key_id", cfg.S3.AccessKeyID},
			{"secret_access_key", cfg.S3.SecretAccessKey},
		}},
		{"azure", [][2]string{
			{"service_url", cfg.Azure.ServiceURL},
			{"container", cfg.Azure.Container},
			{"prefix", cfg.Azure.Prefix},
		}},
		{"proxy", [][2]string{
			{"mode", cfg.Proxy.Mode},
			{"host", cfg.Proxy.Host},
			{"port", fmt.Sprintf("%d", cfg.Proxy.Port)},
			{"user", cfg.Proxy.User},
			{"password", cfg.Proxy.Password},
			{"no_proxy", cfg.Proxy.NoProxy},
		}},
		{"notifications", [][2]string{
			{"enabled", fmt.Sprintf("%t", cfg.Notifications.Enabled)},
			{"show_failures", fmt.Sprintf("%t", cfg.Notifications.ShowFailures)},
			{"show_summary", fmt.Sprintf("%t", cfg.Notifications.ShowSummary)},
		}},
		{"metrics", [][2]string{
			{"listen_addr", cfg.Metrics.ListenAddr},
		}},
	}

	for _, s := range sections {
		section, err := iniFile.NewSection(s.name)
		if err != nil {
			return fmt.Errorf("failed to create %s section: %w", s.name, err)
		}
		for _, kv := range s.values {
			section.Key(kv[0]).SetValue(kv[1])
		}
	}

	// Temporary file + rename for atomicity
	tmpPath := path + ".tmp"
	if err := iniFile.SaveTo(tmpPath); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	if runtime.GOOS != "windows" {
		if err := os.Chmod(tmpPath, 0600); err != nil {
			os.Remove(tmpPath)
			return fmt.Errorf("failed to set config permissions: %w", err)
		}
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to save config: %w", err)
	}

	return nil
}

// Validate checks that the selected backend has what it needs.
// Returns nil if valid, or an error describing what's wrong.
func (cfg *Config) Validate() error {
	switch cfg.Backend {
	case BackendDrive:
	case BackendS3:
		if strings.TrimSpace(cfg.S3.Bucket) == "" {
			return ErrMissingS3Bucket
		}
		if strings.TrimSpace(cfg.S3.Region) == "" {
			return ErrMissingS3Region
		}
	case BackendAzure:
		if strings.TrimSpace(cfg.Azure.ServiceURL) == "" {
			return ErrMissingAzureURL
		}
		if strings.TrimSpace(cfg.Azure.Container) == "" {
			return ErrMissingAzureTarget
		}
	default:
		return ErrUnknownBackend
	}

	switch cfg.Upload.FileNaming {
	case NamingDocument, NamingOriginal:
	default:
		return ErrUnknownFileNaming
	}

	if cfg.Auth.CallbackPort < 1 || cfg.Auth.CallbackPort > 65535 {
		return ErrInvalidCallback
	}

	switch cfg.Proxy.Mode {
	case "", "no-proxy", "system":
	case "basic", "ntlm":
		if strings.TrimSpace(cfg.Proxy.Host) == "" {
			return ErrMissingProxyHost
		}
	default:
		return ErrUnknownProxyMode
	}

	return nil
}

// CacheDirectory returns the directory holding secret.json and the token cache,
// honoring the [auth] cache_dir override.
func (cfg *Config) CacheDirectory() (string, error) {
	if cfg.Auth.CacheDir != "" {
		return cfg.Auth.CacheDir, nil
	}
	return DefaultCacheDirectory()
}

// splitList parses a comma-separated INI value, dropping empty items.
func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}
