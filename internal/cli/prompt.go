package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"

	"github.com/docupload/docupload/internal/config"
	inthttp "github.com/docupload/docupload/internal/http"
)

// ErrProxyPasswordRequired is returned when the proxy needs a password and
// stdin is not a terminal to ask for one.
var ErrProxyPasswordRequired = errors.New("proxy password required: set [proxy] password or run from a terminal")

// ensureProxyPassword asks for the proxy password when the configured proxy
// mode authenticates and no password is stored. The password lives only in cfg.
func ensureProxyPassword(cfg *config.Config) error {
	if !inthttp.NeedsProxyPassword(cfg.Proxy) {
		return nil
	}
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return ErrProxyPasswordRequired
	}

	fmt.Fprintf(os.Stderr, "Proxy password for %s@%s: ", cfg.Proxy.User, cfg.Proxy.Host)
	password, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return fmt.Errorf("failed to read proxy password: %w", err)
	}
	cfg.Proxy.Password = string(password)
	return nil
}

// prompter reads answers for interactive setup.
type prompter struct {
	in  *bufio.Reader
	out io.Writer
	eof bool
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{in: bufio.NewReader(in), out: out}
}

// String asks for a value; an empty answer keeps def.
func (p *prompter) String(label, def string) (string, error) {
	if def != "" {
		fmt.Fprintf(p.out, "%s [%s]: ", label, def)
	} else {
		fmt.Fprintf(p.out, "%s: ", label)
	}
	input, err := p.in.ReadString('\n')
	if errors.Is(err, io.EOF) {
		p.eof = true
	} else if err != nil {
		return "", err
	}
	input = strings.TrimSpace(input)
	if input == "" {
		return def, nil
	}
	return input, nil
}

// Choice asks until the answer is one of options.
func (p *prompter) Choice(label, def string, options ...string) (string, error) {
	for {
		answer, err := p.String(fmt.Sprintf("%s (%s)", label, strings.Join(options, "/")), def)
		if err != nil {
			return "", err
		}
		answer = strings.ToLower(answer)
		for _, opt := range options {
			if answer == opt {
				return answer, nil
			}
		}
		if p.eof {
			return "", fmt.Errorf("invalid answer %q for %s", answer, label)
		}
		fmt.Fprintln(p.out, "Invalid choice, please try again.")
	}
}

// Int asks until the answer parses as an integer.
func (p *prompter) Int(label string, def int) (int, error) {
	for {
		answer, err := p.String(label, strconv.Itoa(def))
		if err != nil {
			return 0, err
		}
		n, err := strconv.Atoi(answer)
		if err == nil {
			return n, nil
		}
		if p.eof {
			return 0, fmt.Errorf("invalid number %q for %s", answer, label)
		}
		fmt.Fprintln(p.out, "Please enter a number.")
	}
}

// Bool asks a yes/no question.
func (p *prompter) Bool(label string, def bool) (bool, error) {
	d := "n"
	if def {
		d = "y"
	}
	answer, err := p.Choice(label, d, "y", "n")
	if err != nil {
		return false, err
	}
	return answer == "y", nil
}
