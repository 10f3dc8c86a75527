// Package gui provides the graphical user interface for docupload.
package gui

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"runtime"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"github.com/rs/zerolog"

	"github.com/docupload/docupload/internal/auth"
	"github.com/docupload/docupload/internal/config"
	"github.com/docupload/docupload/internal/constants"
	"github.com/docupload/docupload/internal/core"
	"github.com/docupload/docupload/internal/events"
	"github.com/docupload/docupload/internal/logging"
	"github.com/docupload/docupload/internal/notify"
)

// LaunchGUI builds the engine and runs the window until it is closed.
// Authentication happens before the window appears; an *auth.AuthError is
// returned with a desktop alert and no window.
func LaunchGUI(ctx context.Context, cfg *config.Config, debug bool) error {
	bus := events.NewEventBus(0)
	defer bus.Close()
	logger := logging.NewLogger("gui", bus)

	// GUI mode defaults to warnings and errors only
	if debug {
		logging.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		logging.SetGlobalLevel(zerolog.WarnLevel)
	}

	if closer, err := logger.AttachFile(config.LogDirectory(), constants.LogFileName); err != nil {
		logger.Warn().Err(err).Msg("Logging to console only")
	} else {
		defer closer.Close()
	}

	if runtime.GOOS == "linux" {
		if os.Getenv("DISPLAY") == "" && os.Getenv("WAYLAND_DISPLAY") == "" {
			return fmt.Errorf("GUI mode requires a display. No display detected.\n" +
				"DISPLAY and WAYLAND_DISPLAY are not set.\n" +
				"Use 'docupload upload <folder>...' instead")
		}
	}

	myApp := app.NewWithID(constants.AppID)
	myApp.Settings().SetTheme(&uploaderTheme{})

	engine, err := core.NewEngine(ctx, cfg, core.Options{
		Logger:    logger,
		EventBus:  bus,
		Presenter: appPresenter(myApp),
	})
	if err != nil {
		logger.Error().Err(err).Msg("Startup failed")
		alertStartupFailure(notify.NewNotifier(cfg.Notifications, logger), err)
		return err
	}
	defer engine.Close()
	if addr := engine.MetricsAddr(); addr != nil {
		logger.Info().Str("addr", addr.String()).Msg("Serving metrics")
	}

	mainWindow := myApp.NewWindow(constants.AppName)
	mainWindow.SetMaster()

	ui := NewWindow(ctx, mainWindow, engine, logger)
	mainWindow.SetContent(ui.Build())
	stopLogs := ui.FollowLogs()
	defer stopLogs()
	mainWindow.Resize(fyne.NewSize(720, 480))
	mainWindow.CenterOnScreen()

	logger.Info().Str("backend", engine.Backend().Name()).Msg("Window ready")
	mainWindow.ShowAndRun()
	return nil
}

// alertStartupFailure tells the user why no window appeared.
func alertStartupFailure(n *notify.Notifier, err error) {
	var authErr *auth.AuthError
	if errors.As(err, &authErr) {
		n.Alert("Sign-in failed. Run 'docupload auth login' and try again: " + err.Error())
		return
	}
	n.Alert("Could not start: " + err.Error())
}

// appPresenter opens the consent page through the platform URL handler.
func appPresenter(a fyne.App) auth.ConsentPresenter {
	return auth.PresenterFunc(func(_ context.Context, rawURL string) error {
		u, err := url.Parse(rawURL)
		if err != nil {
			return err
		}
		return a.OpenURL(u)
	})
}
