// Package hotkey triggers a capture from a global key combination.
package hotkey

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	gohook "github.com/robotn/gohook"
)

// Combo tracks which keys of one combination are currently held.
type Combo struct {
	name    string
	mu      sync.Mutex
	keys    [][]uint16
	pressed []bool
}

// ParseCombo builds a Combo from a config string such as "Ctrl+Alt+O".
func ParseCombo(config string) (*Combo, error) {
	names := parseHotkey(config)
	c := &Combo{name: config}
	for _, name := range names {
		codes := keyNameToRawcodes(name)
		if len(codes) == 0 {
			return nil, fmt.Errorf("unknown key %q in hotkey %q", name, config)
		}
		c.keys = append(c.keys, codes)
	}
	if len(c.keys) == 0 {
		return nil, fmt.Errorf("no keys in hotkey %q", config)
	}
	c.pressed = make([]bool, len(c.keys))
	return c, nil
}

func (c *Combo) String() string { return c.name }

// Down records a key press and reports whether the whole combination is now
// held. A match resets the state so holding the keys fires once.
func (c *Combo) Down(rawcode uint16) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.set(rawcode, true)
	for _, p := range c.pressed {
		if !p {
			return false
		}
	}
	for i := range c.pressed {
		c.pressed[i] = false
	}
	return true
}

func (c *Combo) Up(rawcode uint16) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.set(rawcode, false)
}

func (c *Combo) set(rawcode uint16, v bool) {
	for i, codes := range c.keys {
		for _, code := range codes {
			if code == rawcode {
				c.pressed[i] = v
				break
			}
		}
	}
}

// Listen starts the global hook and calls callback on every match until ctx
// ends.
func Listen(ctx context.Context, config string, callback func()) error {
	combo, err := ParseCombo(config)
	if err != nil {
		return err
	}
	evChan := gohook.Start()
	if evChan == nil {
		return fmt.Errorf("global keyboard hook unavailable")
	}
	slog.Info("Hotkey: listening", "combo", combo)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("Hotkey: listener panic", "panic", r)
			}
		}()
		<-ctx.Done()
		gohook.End()
	}()

	go func() {
		for ev := range evChan {
			switch ev.Kind {
			case gohook.KeyDown:
				if combo.Down(ev.Rawcode) {
					slog.Debug("Hotkey: combination detected", "combo", combo)
					if callback != nil {
						callback()
					}
				}
			case gohook.KeyUp:
				combo.Up(ev.Rawcode)
			}
		}
		slog.Debug("Hotkey: event channel closed")
	}()
	return nil
}
