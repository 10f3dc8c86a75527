package auth

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/mux"

	"github.com/docupload/docupload/internal/constants"
	"github.com/docupload/docupload/internal/logging"
)

// CodeSource obtains an authorization code for the given consent URL.
// state is the value the consent page must echo back.
type CodeSource interface {
	Code(ctx context.Context, authURL, state string) (string, error)
}

// ErrStateMismatch is returned when the redirect carries a foreign state value.
var ErrStateMismatch = errors.New("oauth state mismatch")

// RedirectCodeSource listens on the loopback redirect address, hands the
// consent URL to a presenter and waits for the browser to come back.
type RedirectCodeSource struct {
	Port      int
	Presenter ConsentPresenter
	Logger    *logging.Logger
}

type callbackResult struct {
	code string
	err  error
}

// Code implements CodeSource.
func (s *RedirectCodeSource) Code(ctx context.Context, authURL, state string) (string, error) {
	logger := s.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if s.Presenter == nil {
		return "", errors.New("no consent presenter configured")
	}

	listener, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", s.Port))
	if err != nil {
		return "", fmt.Errorf("failed to listen for oauth redirect: %w", err)
	}

	results := make(chan callbackResult, 1)
	srv := &http.Server{Handler: callbackRouter(state, results)}
	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("OAuth redirect server failed")
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), constants.CallbackShutdownTimeout)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info().Str("addr", listener.Addr().String()).Msg("Waiting for OAuth consent")
	if err := s.Presenter.PresentUserURL(ctx, authURL); err != nil {
		return "", fmt.Errorf("failed to present consent page: %w", err)
	}

	select {
	case res := <-results:
		return res.code, res.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// callbackRouter answers the consent redirect. Only the first request that
// carries a code or an error is reported.
func callbackRouter(state string, results chan<- callbackResult) *mux.Router {
	report := func(res callbackResult) {
		select {
		case results <- res:
		default:
		}
	}

	router := mux.NewRouter()
	router.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		if e := q.Get("error"); e != "" {
			http.Error(w, "Authorization was not granted. You can close this window.", http.StatusBadRequest)
			report(callbackResult{err: fmt.Errorf("consent denied: %s", e)})
			return
		}
		code := q.Get("code")
		if code == "" {
			http.Error(w, "Authorization code not provided", http.StatusBadRequest)
			return
		}
		if q.Get("state") != state {
			http.Error(w, "State mismatch", http.StatusBadRequest)
			report(callbackResult{err: ErrStateMismatch})
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		io.WriteString(w, "<html><body><p>Authorization complete. You can close this window.</p></body></html>")
		report(callbackResult{code: code})
	}).Methods(http.MethodGet)

	return router
}

// PromptCodeSource prints the consent URL and reads the code from In.
// The user may paste either the bare code or the whole redirect URL.
type PromptCodeSource struct {
	In  io.Reader
	Out io.Writer
}

// Code implements CodeSource.
func (s *PromptCodeSource) Code(ctx context.Context, authURL, state string) (string, error) {
	fmt.Fprintf(s.Out, "Open this URL in a browser and grant access:\n\n  %s\n\n", authURL)
	fmt.Fprint(s.Out, "Paste the code (or the full redirect URL): ")

	lines := make(chan callbackResult, 1)
	go func() {
		line, err := bufio.NewReader(s.In).ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			lines <- callbackResult{err: fmt.Errorf("failed to read code: %w", err)}
			return
		}
		lines <- callbackResult{code: strings.TrimSpace(line)}
	}()

	var input string
	select {
	case res := <-lines:
		if res.err != nil {
			return "", res.err
		}
		input = res.code
	case <-ctx.Done():
		return "", ctx.Err()
	}

	return parsePastedCode(input, state)
}

// parsePastedCode accepts a bare code or a redirect URL carrying code and state.
func parsePastedCode(input, state string) (string, error) {
	if input == "" {
		return "", errors.New("no authorization code entered")
	}
	if !strings.Contains(input, "code=") {
		return input, nil
	}

	u, err := url.Parse(input)
	if err != nil {
		return "", fmt.Errorf("invalid redirect URL: %w", err)
	}
	q := u.Query()
	if got := q.Get("state"); got != "" && got != state {
		return "", ErrStateMismatch
	}
	code := q.Get("code")
	if code == "" {
		return "", errors.New("redirect URL has no code")
	}
	return code, nil
}
