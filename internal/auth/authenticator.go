package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/docupload/docupload/internal/constants"
	"github.com/docupload/docupload/internal/logging"
)

// Options configures an Authenticator.
type Options struct {
	// CacheDir holds secret.json and the token cache. Created if missing.
	CacheDir string

	// CallbackPort is the loopback redirect port registered with Google.
	CallbackPort int

	// Codes obtains the authorization code when no usable token is cached.
	Codes CodeSource

	// Transport carries API requests (the proxy-aware upload client).
	Transport *http.Client

	// TokenClient carries token exchange and refresh requests.
	TokenClient *http.Client

	Logger *logging.Logger
}

// Authenticator produces an authorized HTTP client, running the consent flow
// only when the cache holds no usable token.
type Authenticator struct {
	opts  Options
	store *TokenStore

	mu     sync.Mutex
	client *http.Client
}

// NewAuthenticator creates an Authenticator. No I/O happens until Client or Login.
func NewAuthenticator(opts Options) *Authenticator {
	if opts.CallbackPort == 0 {
		opts.CallbackPort = constants.DefaultCallbackPort
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNopLogger()
	}
	return &Authenticator{
		opts:  opts,
		store: NewTokenStore(filepath.Join(opts.CacheDir, constants.TokenFileName)),
	}
}

// SecretPath returns where the client secret is expected.
func (a *Authenticator) SecretPath() string {
	return filepath.Join(a.opts.CacheDir, constants.SecretFileName)
}

// TokenPath returns where the token is cached.
func (a *Authenticator) TokenPath() string {
	return a.store.Path()
}

// Client returns an HTTP client that authorizes every request.
// The first call may run the consent flow; later calls return the same client.
func (a *Authenticator) Client(ctx context.Context) (*http.Client, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.client != nil {
		return a.client, nil
	}

	cfg, err := a.prepare()
	if err != nil {
		return nil, err
	}

	tok, err := a.store.Load()
	switch {
	case errors.Is(err, os.ErrNotExist):
		a.opts.Logger.Info().Msg("No cached token, starting consent flow")
		tok, err = a.login(ctx, cfg)
		if err != nil {
			return nil, err
		}
	case err != nil:
		a.opts.Logger.Warn().Err(err).Msg("Ignoring unreadable token cache")
		tok, err = a.login(ctx, cfg)
		if err != nil {
			return nil, err
		}
	}

	source := newPersistingSource(cfg.TokenSource(a.tokenContext(ctx), tok), a.store, tok, a.opts.Logger)

	// A revoked or unrefreshable token sends the user back through consent once
	if _, err := source.Token(); err != nil {
		a.opts.Logger.Warn().Err(err).Msg("Cached token unusable, starting consent flow")
		tok, err = a.login(ctx, cfg)
		if err != nil {
			return nil, err
		}
		source = newPersistingSource(cfg.TokenSource(a.tokenContext(ctx), tok), a.store, tok, a.opts.Logger)
	}

	a.client = &http.Client{
		Transport: &oauth2.Transport{
			Base:   a.baseTransport(),
			Source: oauth2.ReuseTokenSource(nil, source),
		},
	}
	return a.client, nil
}

// Login runs the consent flow unconditionally and caches the new token.
func (a *Authenticator) Login(ctx context.Context) (*oauth2.Token, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	cfg, err := a.prepare()
	if err != nil {
		return nil, err
	}
	a.client = nil
	return a.login(ctx, cfg)
}

// Logout forgets the cached token.
func (a *Authenticator) Logout() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.client = nil
	if err := a.store.Remove(); err != nil {
		return fmt.Errorf("failed to remove token cache: %w", err)
	}
	return nil
}

// Status describes the cached credentials.
type Status struct {
	SecretPresent bool
	TokenPresent  bool
	HasRefresh    bool
	Expiry        time.Time
}

// Status reports what is cached without touching the network.
func (a *Authenticator) Status() Status {
	var st Status
	if _, err := os.Stat(a.SecretPath()); err == nil {
		st.SecretPresent = true
	}
	if tok, err := a.store.Load(); err == nil {
		st.TokenPresent = true
		st.HasRefresh = tok.RefreshToken != ""
		st.Expiry = tok.Expiry
	}
	return st
}

func (a *Authenticator) prepare() (*oauth2.Config, error) {
	if a.opts.CacheDir == "" {
		return nil, authError("locate cache directory", errors.New("no cache directory configured"))
	}
	if err := os.MkdirAll(a.opts.CacheDir, 0700); err != nil {
		return nil, authError("create cache directory", err)
	}
	return LoadSecret(a.SecretPath(), a.opts.CallbackPort)
}

func (a *Authenticator) login(ctx context.Context, cfg *oauth2.Config) (*oauth2.Token, error) {
	if a.opts.Codes == nil {
		return nil, authError("consent", errors.New("no code source configured"))
	}

	state := uuid.NewString()
	verifier := oauth2.GenerateVerifier()
	authURL := cfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.S256ChallengeOption(verifier))

	code, err := a.opts.Codes.Code(ctx, authURL, state)
	if err != nil {
		return nil, authError("consent", err)
	}

	tok, err := cfg.Exchange(a.tokenContext(ctx), code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, authError("exchange code", err)
	}
	if err := a.store.Save(tok); err != nil {
		return nil, authError("save token", err)
	}

	a.opts.Logger.Info().Str("token_file", a.store.Path()).Msg("Authorization complete")
	return tok, nil
}

// tokenContext carries the token client for oauth2. The refreshing token
// source keeps this context for the life of the process, so cancellation of
// the caller's context must not reach it.
func (a *Authenticator) tokenContext(ctx context.Context) context.Context {
	ctx = context.WithoutCancel(ctx)
	if a.opts.TokenClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, a.opts.TokenClient)
	}
	return ctx
}

func (a *Authenticator) baseTransport() http.RoundTripper {
	if a.opts.Transport != nil && a.opts.Transport.Transport != nil {
		return a.opts.Transport.Transport
	}
	return http.DefaultTransport
}
