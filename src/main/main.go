package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"fyne.io/fyne/v2/app"
	"github.com/spf13/cobra"

	"screen-ocr-overlay/src/capture"
	"screen-ocr-overlay/src/clipboard"
	"screen-ocr-overlay/src/config"
	"screen-ocr-overlay/src/eventloop"
	"screen-ocr-overlay/src/events"
	"screen-ocr-overlay/src/notification"
	"screen-ocr-overlay/src/overlay"
	"screen-ocr-overlay/src/prefs"
	"screen-ocr-overlay/src/retry"
	"screen-ocr-overlay/src/runtimeinit"
	"screen-ocr-overlay/src/singleinstance"
	"screen-ocr-overlay/src/tray"
	"screen-ocr-overlay/src/worker"
	"screen-ocr-overlay/src/workflow"
)

const (
	appID    = "io.github.screen-ocr-overlay"
	appTitle = "Screen OCR"
)

var errNoResident = errors.New("no running screen-ocr-overlay instance found")

type mainOptions struct {
	capture bool
	dataDir string
	verbose bool
}

type captureClient interface {
	TryCapture(ctx context.Context) (bool, string, error)
}

func main() {
	if err := runWithArgs(normalizeLegacyArgs(os.Args)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runWithArgs(args []string) error {
	if len(args) == 0 {
		args = []string{"screen-ocr-overlay"}
	}
	opts := &mainOptions{}
	cmd := newRootCmd(opts)
	cmd.SetArgs(args[1:])
	return cmd.Execute()
}

func newRootCmd(opts *mainOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "screen-ocr-overlay",
		Short:         "Floating capture button that turns the screen into copyable text",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			loadOpts := config.LoadOptions{DataDirOverride: opts.dataDir}
			if opts.capture {
				// .env may move the resident port range.
				if _, err := config.LoadWithOptions(loadOpts); err != nil {
					return err
				}
				return runCapture(ctx, singleinstance.NewClient(), cmd.OutOrStdout())
			}
			return runResident(ctx, loadOpts, opts.verbose)
		},
	}
	cmd.Flags().BoolVar(&opts.capture, "capture", false, "Ask the running instance for one capture and print the copied text")
	cmd.Flags().StringVar(&opts.dataDir, "data-dir", "", "Directory for history, preferences and logs")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log to stderr")
	return cmd
}

// normalizeLegacyArgs maps single-dash long flags to their GNU form.
func normalizeLegacyArgs(args []string) []string {
	if len(args) == 0 {
		return args
	}
	normalized := make([]string, len(args))
	copy(normalized, args)
	for i := 1; i < len(normalized); i++ {
		arg := normalized[i]
		for _, name := range []string{"capture", "data-dir", "verbose"} {
			switch {
			case arg == "-"+name:
				normalized[i] = "--" + name
			case strings.HasPrefix(arg, "-"+name+"="):
				normalized[i] = "-" + arg
			}
		}
	}
	return normalized
}

// runCapture delegates one run to the resident and prints what the user
// copied.
func runCapture(ctx context.Context, client captureClient, out io.Writer) error {
	delegated, text, err := client.TryCapture(ctx)
	if err != nil {
		return fmt.Errorf("capture failed: %w", err)
	}
	if !delegated {
		return errNoResident
	}
	_, err = fmt.Fprint(out, text)
	return err
}

func runResident(ctx context.Context, loadOpts config.LoadOptions, verbose bool) error {
	enableDPIAwareness()

	rt, err := runtimeinit.Bootstrap(ctx, runtimeinit.Options{
		LoadOptions: loadOpts,
		Verbose:     verbose,
		History:     true,
		Prune:       true,
		Clipboard:   true,
		Recognizer:  true,
	})
	if err != nil {
		return err
	}
	defer rt.Close()
	cfg := rt.Config

	if port, ok := singleinstance.DetectResident(ctx); ok {
		return fmt.Errorf("already running on port %d", port)
	}
	logMonitorConfiguration()

	if !capture.Available() {
		notification.ShowBlockingError(appTitle, "No screen is available for capture. Grant screen recording access in the system settings and start Screen OCR again.")
		return workflow.ErrOverlayPermissionMissing
	}

	p, err := prefs.Load(cfg.PrefsPath())
	if err != nil {
		slog.Warn("Preferences unreadable, using defaults", "path", cfg.PrefsPath(), "error", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	bus := events.NewBus()
	defer bus.Shutdown()
	pool := worker.New(1, rt.Recognizer.Recognize)
	defer pool.Close()
	screen := capture.NewCoordinator(capture.ScreenDisplay{}, retry.Policy{
		MaxAttempts: cfg.CaptureRetryAttempts,
		Delay:       cfg.CaptureRetryDelay(),
	})

	var loop *eventloop.Loop
	ui := overlay.New(app.NewWithID(appID), overlay.Options{
		Title:       appTitle,
		Icon:        tray.Resource(),
		Threshold:   float32(cfg.ClickThresholdPx),
		ConsentMode: cfg.CaptureConsent,
		OnTap:       func() { loop.Tap() },
		OnDecision:  func(d workflow.Decision) { loop.Decide(d) },
	})
	ui.Button.SetEnabled(p.OverlayEnabled)

	coord, err := workflow.NewCoordinator(workflow.Options{
		Button:         ui.Button,
		Panel:          ui.Panel,
		Authorizer:     ui.Consent,
		Capture:        screen.Grab,
		Holder:         screen.Holder(),
		Recognize:      pool.Recognize,
		Clipboard:      clipboard.System{},
		History:        rt.History,
		Notifier:       ui.Notifier,
		Events:         bus,
		Deadline:       cfg.OCRDeadline(),
		RestoreTimeout: cfg.RestoreTimeout(),
	})
	if err != nil {
		return err
	}

	historyWin := overlay.NewHistoryWindow(ui.App, appTitle, rt.History, clipboard.System{}, cfg.HistoryLimit)

	tooltip := fmt.Sprintf("%s - Press %s to capture", appTitle, cfg.Hotkey)
	trayIcon := tray.New(tray.Config{
		Title:          appTitle,
		Tooltip:        tooltip,
		Hotkey:         cfg.Hotkey,
		PrefsPath:      cfg.PrefsPath(),
		OverlayEnabled: p.OverlayEnabled,
		Events:         bus,
		OnHistory: func() {
			if err := historyWin.Show(ctx); err != nil {
				slog.Error("History unavailable", "error", err)
				ui.Notifier.Notice("History unavailable")
			}
		},
		OnStop: cancel,
	})
	loop = eventloop.New(eventloop.Options{
		Workflow: coord,
		Server:   singleinstance.NewServer(),
		Bus:      bus,
		Notifier: ui.Notifier,
		Overlay:  ui.Button,
		Status:   trayIcon,
		Tooltip:  tooltip,
	})

	go trayIcon.Run()
	if err := loop.StartHotkey(ctx, cfg.Hotkey); err != nil {
		slog.Warn("Hotkey unavailable", "hotkey", cfg.Hotkey, "error", err)
	}

	go func() {
		select {
		case <-screen.Done():
			ui.Notifier.Blocking(appTitle, "Screen capture permission was revoked. Screen OCR will stop.")
			cancel()
		case <-ctx.Done():
		}
	}()

	loopErr := make(chan error, 1)
	go func() {
		err := loop.Run(ctx)
		slog.Info("Event loop stopped", "error", err)
		trayIcon.Quit()
		ui.Quit()
		loopErr <- err
	}()

	slog.Info("Screen OCR ready", "hotkey", cfg.Hotkey, "data_dir", cfg.DataDir, "consent", cfg.CaptureConsent)
	ui.Button.Show()
	ui.Run()

	cancel()
	if err := <-loopErr; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
