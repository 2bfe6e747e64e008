// Package tray is the persistent status indicator: a tooltip that follows the
// workflow, an overlay show/hide switch, the copy history and a Stop action.
package tray

import (
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"github.com/getlantern/systray"

	"screen-ocr-overlay/src/events"
	"screen-ocr-overlay/src/prefs"
)

type Config struct {
	Title   string
	Tooltip string
	Hotkey  string
	// PrefsPath is where the overlay flag is persisted.
	PrefsPath      string
	OverlayEnabled bool
	Events         *events.Bus
	// OnHistory opens the recent copies. The menu item is omitted when nil.
	OnHistory func()
	OnStop    func()
}

type Tray struct {
	cfg Config

	mu      sync.Mutex
	ready   bool
	enabled bool
	toggle  *systray.MenuItem
}

func New(cfg Config) *Tray {
	return &Tray{cfg: cfg, enabled: cfg.OverlayEnabled}
}

// Run blocks on the native tray loop until Quit. The tray owns its OS thread
// so it does not compete with the window toolkit's main thread.
func (t *Tray) Run() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	systray.Run(t.onReady, t.onExit)
}

func (t *Tray) Quit() { systray.Quit() }

// SetTooltip is safe to call before the tray is ready; early updates are
// dropped.
func (t *Tray) SetTooltip(text string) {
	t.mu.Lock()
	ready := t.ready
	t.mu.Unlock()
	if ready {
		systray.SetTooltip(text)
	}
}

func (t *Tray) onReady() {
	if icon := iconBytes(); icon != nil {
		systray.SetIcon(icon)
	}
	systray.SetTitle(t.cfg.Title)
	systray.SetTooltip(t.cfg.Tooltip)

	about := systray.AddMenuItem(fmt.Sprintf("Hotkey: %s", t.cfg.Hotkey), "Global capture hotkey")
	about.Disable()
	systray.AddSeparator()

	t.mu.Lock()
	t.toggle = systray.AddMenuItem(toggleLabel(t.enabled), "Show or hide the floating button")
	t.ready = true
	toggle := t.toggle
	t.mu.Unlock()
	var historyCh chan struct{}
	if t.cfg.OnHistory != nil {
		historyCh = systray.AddMenuItem("History...", "Recently copied text").ClickedCh
	}
	systray.AddSeparator()
	mStop := systray.AddMenuItem("Stop", "Quit Screen OCR")

	go func() {
		for {
			select {
			case <-toggle.ClickedCh:
				if _, err := t.toggleOverlay(); err != nil {
					slog.Error("Tray: overlay toggle failed", "error", err)
				}
			case <-historyCh:
				t.cfg.OnHistory()
			case <-mStop.ClickedCh:
				slog.Info("Tray: stop requested")
				if t.cfg.OnStop != nil {
					t.cfg.OnStop()
				}
				systray.Quit()
				return
			}
		}
	}()
}

func (t *Tray) onExit() {
	t.mu.Lock()
	t.ready = false
	t.mu.Unlock()
}

// toggleOverlay flips the persisted flag and announces the new value.
func (t *Tray) toggleOverlay() (bool, error) {
	enabled, err := prefs.Toggle(t.cfg.PrefsPath)
	if err != nil {
		return false, err
	}
	t.mu.Lock()
	t.enabled = enabled
	item := t.toggle
	t.mu.Unlock()
	if item != nil {
		item.SetTitle(toggleLabel(enabled))
	}
	if t.cfg.Events != nil {
		if _, err := t.cfg.Events.Publish(events.OverlayToggled{Enabled: enabled}); err != nil {
			return enabled, err
		}
	}
	slog.Info("Tray: overlay toggled", "enabled", enabled)
	return enabled, nil
}

func toggleLabel(enabled bool) string {
	if enabled {
		return "Hide overlay"
	}
	return "Show overlay"
}
