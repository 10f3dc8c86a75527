package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/docupload/docupload/internal/auth"
	"github.com/docupload/docupload/internal/config"
	"github.com/docupload/docupload/internal/constants"
	"github.com/docupload/docupload/internal/core"
	"github.com/docupload/docupload/internal/progress"
	"github.com/docupload/docupload/internal/storage"
	"github.com/docupload/docupload/internal/upload"
)

// ErrUploadFailed is returned when at least one folder could not be uploaded,
// so the process exits non-zero.
var ErrUploadFailed = errors.New("some documents failed to upload")

func newUploadCmd() *cobra.Command {
	var (
		noNotify  bool
		noBrowser bool
	)

	cmd := &cobra.Command{
		Use:   "upload <folder>...",
		Short: "Upload document folders",
		Long: `Upload each folder as one document.

Every folder must contain description.txt:

  Name: <document name>
  Category: <document category>

A container named after the document is created and every other file in
the folder is uploaded into it. Folders are processed one at a time; a
failed folder is reported and the next one is started. Uploads are not
retried.

Examples:
  docupload upload ./invoices/2024-03
  docupload upload ./contracts/*`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := ensureProxyPassword(cfg); err != nil {
				return err
			}

			folders, err := absFolders(args)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			engine, err := newEngine(ctx, cfg, noBrowser)
			if err != nil {
				return explainStartupError(err, cfg)
			}
			defer engine.Close()

			if noNotify {
				engine.Notifier().SetEnabled(false)
			}
			if addr := engine.MetricsAddr(); addr != nil {
				GetLogger().Info().Str("addr", addr.String()).Msg("Serving metrics")
			}

			tally := runUpload(ctx, engine, folders)
			printSummary(cmd.OutOrStdout(), tally)

			if tally.Failed() > 0 {
				return ErrUploadFailed
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&noNotify, "no-notify", false, "Do not show desktop notifications")
	cmd.Flags().BoolVar(&noBrowser, "no-browser", false, "Print the sign-in URL and read the code from stdin instead of opening a browser")

	return cmd
}

// newEngine builds the session engine. With noBrowser the consent flow
// prints the URL and reads the pasted code.
func newEngine(ctx context.Context, cfg *config.Config, noBrowser bool) (*core.Engine, error) {
	opts := core.Options{Logger: GetLogger()}
	if noBrowser {
		opts.Codes = &auth.PromptCodeSource{In: os.Stdin, Out: os.Stderr}
	}
	return core.NewEngine(ctx, cfg, opts)
}

func absFolders(args []string) ([]string, error) {
	folders := make([]string, 0, len(args))
	for _, arg := range args {
		abs, err := filepath.Abs(arg)
		if err != nil {
			return nil, fmt.Errorf("invalid folder %q: %w", arg, err)
		}
		folders = append(folders, abs)
	}
	return folders, nil
}

// runUpload runs the batch with terminal progress: a file bar for a single
// document, stacked bars for several.
func runUpload(ctx context.Context, engine *core.Engine, folders []string) upload.Tally {
	var (
		sink progress.Sink
		wait = func() {}
	)

	if len(folders) > 1 {
		ui := progress.NewUploadUI(len(folders))
		if ui.IsTerminal() {
			log := GetLogger()
			previous := log.Output()
			log.SetOutput(ui.Writer())
			defer log.SetOutput(previous)
		}
		sink = ui
		wait = ui.Wait
	} else {
		var reporter progress.Reporter = progress.NewNoOpProgress()
		if term.IsTerminal(int(os.Stderr.Fd())) {
			reporter = progress.NewCLIProgress(os.Stderr)
		}
		sink = progress.NewDocumentProgress(reporter)
	}

	stop := progress.Follow(engine.Events(), sink)
	tally := engine.Upload(ctx, folders)
	stop()
	wait()
	return tally
}

// printSummary writes the outcome of a batch.
func printSummary(w io.Writer, tally upload.Tally) {
	fmt.Fprintln(w)
	credentials, network := false, false
	for _, r := range tally.Results {
		if r.Err != nil {
			fmt.Fprintf(w, "%s %s: %v\n", color.RedString("✗"), r.Folder, r.Err)
			switch {
			case storage.IsCredentialError(r.Err):
				credentials = true
			case storage.IsNetworkError(r.Err):
				network = true
			}
			continue
		}
		line := fmt.Sprintf("%s %s → %s (%d files)", color.GreenString("✓"), r.Folder, r.Container.Name, r.Files)
		if r.Container.WebLink != "" {
			line += " " + color.HiBlackString(r.Container.WebLink)
		}
		fmt.Fprintln(w, line)
	}

	summary := fmt.Sprintf("%d document uploaded, %d failed", tally.Succeeded, tally.Failed())
	switch {
	case tally.Failed() == 0:
		fmt.Fprintln(w, color.GreenString(summary))
	case tally.Succeeded == 0:
		fmt.Fprintln(w, color.RedString(summary))
	default:
		fmt.Fprintln(w, color.YellowString(summary))
	}

	if credentials {
		fmt.Fprintln(w, "The storage service rejected the credentials. Run 'docupload auth login' to sign in again.")
	}
	if network {
		fmt.Fprintln(w, "The storage service could not be reached. Check the connection and the [proxy] settings ('docupload config show').")
	}
}

// explainStartupError adds a next step to errors that stop the engine from starting.
func explainStartupError(err error, cfg *config.Config) error {
	var authErr *auth.AuthError
	if !errors.As(err, &authErr) {
		return err
	}
	cacheDir, dirErr := cfg.CacheDirectory()
	if dirErr != nil {
		return err
	}
	return fmt.Errorf("%w\n\nPlace the OAuth client secret at %s and run 'docupload auth login'",
		err, filepath.Join(cacheDir, constants.SecretFileName))
}
