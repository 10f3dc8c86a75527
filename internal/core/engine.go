// Package core holds the Engine, the session context built once at startup
// and shared by the CLI and the GUI.
package core

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/docupload/docupload/internal/auth"
	"github.com/docupload/docupload/internal/config"
	"github.com/docupload/docupload/internal/events"
	inthttp "github.com/docupload/docupload/internal/http"
	"github.com/docupload/docupload/internal/logging"
	"github.com/docupload/docupload/internal/metrics"
	"github.com/docupload/docupload/internal/notify"
	"github.com/docupload/docupload/internal/storage"
	"github.com/docupload/docupload/internal/storage/providers"
	"github.com/docupload/docupload/internal/upload"
)

// Options customizes engine construction. The zero value is the production setup.
type Options struct {
	Logger   *logging.Logger
	EventBus *events.EventBus

	// Presenter shows the consent URL. Defaults to the system browser.
	Presenter auth.ConsentPresenter

	// Codes replaces the loopback redirect flow, e.g. with a stdin prompt.
	Codes auth.CodeSource

	// HTTPClient replaces the proxy-aware client built from [proxy].
	HTTPClient *http.Client

	// Backend replaces the backend built from [storage].
	Backend storage.Backend

	// Sender replaces the desktop notification sender.
	Sender notify.Sender
}

// Engine is the main orchestrator for document uploads.
type Engine struct {
	config   *config.Config
	logger   *logging.Logger
	eventBus *events.EventBus

	authenticator *auth.Authenticator
	backend       storage.Backend
	uploader      *upload.Uploader
	notifier      *notify.Notifier
	metrics       *metrics.Metrics
	metricsAddr   net.Addr

	cancel context.CancelFunc

	// held for the duration of an upload action
	uploadMu sync.Mutex
}

// NewAuthenticator builds the authenticator for cfg over the proxy-aware
// client. It performs no I/O.
func NewAuthenticator(cfg *config.Config, httpClient *http.Client, presenter auth.ConsentPresenter, codes auth.CodeSource, logger *logging.Logger) (*auth.Authenticator, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	cacheDir, err := cfg.CacheDirectory()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve cache directory: %w", err)
	}
	if httpClient == nil {
		httpClient, err = inthttp.CreateUploadClient(cfg.Proxy, logger)
		if err != nil {
			return nil, err
		}
	}
	if codes == nil {
		if presenter == nil {
			presenter = auth.BrowserPresenter{}
		}
		codes = &auth.RedirectCodeSource{
			Port:      cfg.Auth.CallbackPort,
			Presenter: presenter,
			Logger:    logger,
		}
	}
	return auth.NewAuthenticator(auth.Options{
		CacheDir:     cacheDir,
		CallbackPort: cfg.Auth.CallbackPort,
		Codes:        codes,
		Transport:    httpClient,
		TokenClient:  inthttp.NewTokenClient(httpClient, logger),
		Logger:       logger,
	}), nil
}

// NewEngine validates cfg, authenticates when the backend needs it and
// creates the backend. An *auth.AuthError from here is fatal: nothing can be
// uploaded without credentials.
func NewEngine(ctx context.Context, cfg *config.Config, opts Options) (*Engine, error) {
	if cfg == nil {
		cfg = config.New()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	bus := opts.EventBus
	if bus == nil {
		bus = events.NewEventBus(0)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		var err error
		httpClient, err = inthttp.CreateUploadClient(cfg.Proxy, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create HTTP client: %w", err)
		}
	}

	authenticator, err := NewAuthenticator(cfg, httpClient, opts.Presenter, opts.Codes, logger)
	if err != nil {
		return nil, err
	}

	backend := opts.Backend
	if backend == nil {
		factory := &providers.Factory{HTTPClient: httpClient, Authorizer: authenticator}
		backend, err = factory.NewBackend(ctx, cfg)
		if err != nil {
			return nil, err
		}
	}

	var notifier *notify.Notifier
	if opts.Sender != nil {
		notifier = notify.NewNotifierWithSender(cfg.Notifications, opts.Sender, logger)
	} else {
		notifier = notify.NewNotifier(cfg.Notifications, logger)
	}

	m := metrics.New()
	engineCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	e := &Engine{
		config:        cfg,
		logger:        logger,
		eventBus:      bus,
		authenticator: authenticator,
		backend:       backend,
		uploader:      upload.NewUploader(backend, upload.OptionsFromConfig(cfg.Upload), bus, m, logger),
		notifier:      notifier,
		metrics:       m,
		cancel:        cancel,
	}

	if cfg.Metrics.ListenAddr != "" {
		addr, err := m.Serve(engineCtx, cfg.Metrics.ListenAddr, logger)
		if err != nil {
			cancel()
			return nil, err
		}
		e.metricsAddr = addr
	}

	logger.Debug().Str("backend", backend.Name()).Msg("Engine ready")
	return e, nil
}

// Config returns the configuration the engine was built with.
func (e *Engine) Config() *config.Config { return e.config }

// Events returns the event bus upload progress is published on.
func (e *Engine) Events() *events.EventBus { return e.eventBus }

// Logger returns the engine logger.
func (e *Engine) Logger() *logging.Logger { return e.logger }

// Backend returns the storage backend.
func (e *Engine) Backend() storage.Backend { return e.backend }

// Notifier returns the desktop notifier.
func (e *Engine) Notifier() *notify.Notifier { return e.notifier }

// Metrics returns the upload metrics.
func (e *Engine) Metrics() *metrics.Metrics { return e.metrics }

// MetricsAddr returns the address of the /metrics endpoint, or nil when disabled.
func (e *Engine) MetricsAddr() net.Addr { return e.metricsAddr }

// Authenticator returns the OAuth authenticator.
func (e *Engine) Authenticator() *auth.Authenticator { return e.authenticator }

// Upload runs one upload action over folders and notifies the user: one
// notification per failed folder, then a summary. Calls are serialized.
func (e *Engine) Upload(ctx context.Context, folders []string) upload.Tally {
	e.uploadMu.Lock()
	defer e.uploadMu.Unlock()

	tally := e.uploader.UploadAll(ctx, folders)

	for _, f := range tally.Failures {
		e.notifier.UploadFailed(f.Folder)
	}
	e.notifier.UploadSummary(tally.Succeeded)

	return tally
}

// Close stops background services such as the metrics endpoint.
func (e *Engine) Close() {
	if e.cancel != nil {
		e.cancel()
	}
}
