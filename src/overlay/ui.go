// Package overlay holds the fyne views the workflow drives: the floating
// capture button, the result panel, the consent prompt and user notices.
// Every view method may be called from any goroutine; widget work is handed
// to the fyne main thread.
package overlay

import (
	"fmt"
	"log/slog"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"

	"screen-ocr-overlay/src/gesture"
	"screen-ocr-overlay/src/workflow"
)

const defaultTitle = "Screen OCR"

type Options struct {
	Title string
	Icon  fyne.Resource
	// Threshold is the click-vs-drag distance in pixels.
	Threshold float32
	// ConsentMode is config.ConsentPrompt or config.ConsentAuto.
	ConsentMode string
	OnTap       func()
	OnDecision  func(workflow.Decision)
}

// UI bundles the views of one resident process.
type UI struct {
	App      fyne.App
	Button   *FloatingButton
	Panel    *Panel
	Consent  *Consent
	Notifier *Notifier
}

func New(a fyne.App, opts Options) *UI {
	if opts.Title == "" {
		opts.Title = defaultTitle
	}
	if opts.Icon != nil {
		a.SetIcon(opts.Icon)
	}
	prompt := newWindow(a, opts.Title, false)
	prompt.Resize(fyne.NewSize(360, 160))
	prompt.SetCloseIntercept(prompt.Hide)

	return &UI{
		App:      a,
		Button:   NewFloatingButton(a, gesture.NewTracker(opts.Threshold), opts.OnTap),
		Panel:    NewPanel(a, opts.Title, opts.OnDecision),
		Consent:  NewConsent(opts.ConsentMode, prompt),
		Notifier: NewNotifier(a, opts.Title, prompt),
	}
}

// Run blocks on the fyne event loop. It must be called from the main goroutine.
func (u *UI) Run() { u.App.Run() }

func (u *UI) Quit() { do("quit", u.App.Quit) }

// newWindow prefers an undecorated window where the driver offers one.
func newWindow(a fyne.App, title string, borderless bool) fyne.Window {
	if borderless {
		if drv, ok := a.Driver().(desktop.Driver); ok {
			w := drv.CreateSplashWindow()
			w.SetTitle(title)
			return w
		}
	}
	return a.NewWindow(title)
}

// do queues fn on the fyne main thread and logs a panic instead of taking the
// resident down.
func do(scope string, fn func()) {
	fyne.Do(guard(scope, fn))
}

// doAndWait is do for callers that need the change on screen before going on.
// It must not be called from the fyne main thread.
func doAndWait(scope string, fn func()) {
	fyne.DoAndWait(guard(scope, fn))
}

func guard(scope string, fn func()) func() {
	return func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("Overlay: UI update panicked", "scope", scope, "panic", fmt.Sprint(r))
			}
		}()
		fn()
	}
}
