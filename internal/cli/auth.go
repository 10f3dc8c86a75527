package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/docupload/docupload/internal/auth"
	"github.com/docupload/docupload/internal/core"
)

func newAuthCmd() *cobra.Command {
	authCmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage Google Drive sign-in",
		Long: `Manage the OAuth sign-in used by the Google Drive backend.

The OAuth client secret (secret.json) and the cached token live in the
cache directory ([auth] cache_dir, default <user cache dir>/document-upload-cli).

Commands:
  login   - Run the consent flow and cache a new token
  status  - Show what is cached
  logout  - Forget the cached token`,
	}

	authCmd.AddCommand(newAuthLoginCmd())
	authCmd.AddCommand(newAuthStatusCmd())
	authCmd.AddCommand(newAuthLogoutCmd())

	return authCmd
}

// newAuthenticator builds an authenticator from the loaded configuration.
func newAuthenticator(noBrowser bool) (*auth.Authenticator, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if err := ensureProxyPassword(cfg); err != nil {
		return nil, err
	}
	var codes auth.CodeSource
	if noBrowser {
		codes = &auth.PromptCodeSource{In: os.Stdin, Out: os.Stderr}
	}
	return core.NewAuthenticator(cfg, nil, nil, codes, GetLogger())
}

func newAuthLoginCmd() *cobra.Command {
	var noBrowser bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and cache a token",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newAuthenticator(noBrowser)
			if err != nil {
				return err
			}
			tok, err := a.Login(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s Signed in\n", color.GreenString("✓"))
			fmt.Fprintf(out, "  Token cache: %s\n", a.TokenPath())
			if tok.RefreshToken == "" {
				fmt.Fprintln(out, "  Warning: no refresh token was issued; you will need to sign in again when the token expires.")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&noBrowser, "no-browser", false, "Print the sign-in URL and read the code from stdin")

	return cmd
}

func newAuthStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show cached credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newAuthenticator(false)
			if err != nil {
				return err
			}
			st := a.Status()
			out := cmd.OutOrStdout()

			fmt.Fprintln(out, "Authentication Status")
			fmt.Fprintln(out, "=====================")
			fmt.Fprintf(out, "Client secret: %s (%s)\n", presence(st.SecretPresent), a.SecretPath())
			fmt.Fprintf(out, "Token:         %s (%s)\n", presence(st.TokenPresent), a.TokenPath())
			if st.TokenPresent {
				fmt.Fprintf(out, "Refreshable:   %t\n", st.HasRefresh)
				if !st.Expiry.IsZero() {
					fmt.Fprintf(out, "Expires:       %s\n", st.Expiry.Local().Format(time.RFC1123))
				}
			}
			if !st.SecretPresent {
				fmt.Fprintln(out)
				fmt.Fprintln(out, "Download an OAuth client (Desktop app) secret from the Google Cloud console")
				fmt.Fprintf(out, "and save it as %s.\n", a.SecretPath())
			}
			return nil
		},
	}
}

func newAuthLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the cached token",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newAuthenticator(false)
			if err != nil {
				return err
			}
			if err := a.Logout(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Signed out\n", color.GreenString("✓"))
			return nil
		},
	}
}

func presence(ok bool) string {
	if ok {
		return color.GreenString("present")
	}
	return color.RedString("missing")
}
