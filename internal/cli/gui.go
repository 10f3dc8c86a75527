package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/docupload/docupload/internal/gui"
)

func newGUICmd() *cobra.Command {
	return &cobra.Command{
		Use:   "gui",
		Short: "Open the graphical interface",
		Long: `Open the document upload window.

Sign-in happens before the window appears. If no valid token is cached,
the consent page opens in the browser first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGUI(cmd.Context())
		},
	}
}

func runGUI(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := ensureProxyPassword(cfg); err != nil {
		return err
	}
	if err := gui.LaunchGUI(ctx, cfg, debugEnabled()); err != nil {
		return explainStartupError(err, cfg)
	}
	return nil
}
