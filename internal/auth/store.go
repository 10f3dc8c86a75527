package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/oauth2"

	"github.com/docupload/docupload/internal/logging"
)

// TokenStore persists one OAuth token as JSON, readable only by the user.
type TokenStore struct {
	path string
	mu   sync.Mutex
}

// NewTokenStore returns a store backed by the file at path.
func NewTokenStore(path string) *TokenStore {
	return &TokenStore{path: path}
}

// Path returns the token file location.
func (s *TokenStore) Path() string { return s.path }

// Load returns the cached token. A missing file yields an error matching os.ErrNotExist.
func (s *TokenStore) Load() (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, err
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("failed to parse token cache %s: %w", s.path, err)
	}
	return &tok, nil
}

// Save writes the token atomically with 0600 permissions.
func (s *TokenStore) Save(tok *oauth2.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write token: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace token: %w", err)
	}
	// WriteFile keeps the mode of an existing tmp file
	return os.Chmod(s.path, 0600)
}

// Remove deletes the cached token. Removing a missing token is not an error.
func (s *TokenStore) Remove() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// persistingSource writes every newly minted token back to the store.
type persistingSource struct {
	base   oauth2.TokenSource
	store  *TokenStore
	logger *logging.Logger

	mu   sync.Mutex
	last string
}

func newPersistingSource(base oauth2.TokenSource, store *TokenStore, current *oauth2.Token, logger *logging.Logger) *persistingSource {
	p := &persistingSource{base: base, store: store, logger: logger}
	if current != nil {
		p.last = current.AccessToken
	}
	return p
}

func (p *persistingSource) Token() (*oauth2.Token, error) {
	tok, err := p.base.Token()
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if tok.AccessToken != p.last {
		p.last = tok.AccessToken
		if err := p.store.Save(tok); err != nil {
			// The token is still usable for this session
			p.logger.Warn().Err(err).Msg("Failed to persist refreshed token")
		} else {
			p.logger.Debug().Time("expiry", tok.Expiry).Msg("Refreshed token saved")
		}
	}
	return tok, nil
}
