package auth

import (
	"context"

	"github.com/pkg/browser"
)

// ConsentPresenter shows the consent page URL to the user.
type ConsentPresenter interface {
	PresentUserURL(ctx context.Context, url string) error
}

// PresenterFunc adapts a function to ConsentPresenter.
type PresenterFunc func(ctx context.Context, url string) error

// PresentUserURL implements ConsentPresenter.
func (f PresenterFunc) PresentUserURL(ctx context.Context, url string) error {
	return f(ctx, url)
}

// BrowserPresenter opens the URL in the system browser.
type BrowserPresenter struct{}

// PresentUserURL implements ConsentPresenter.
func (BrowserPresenter) PresentUserURL(_ context.Context, url string) error {
	return browser.OpenURL(url)
}
