package tray

import (
	"bytes"
	"encoding/binary"
	"image/png"
	"path/filepath"
	"testing"
	"time"

	"screen-ocr-overlay/src/events"
	"screen-ocr-overlay/src/prefs"
)

func TestToggleOverlayPersistsAndPublishes(t *testing.T) {
	path := filepath.Join(t.TempDir(), prefs.FileName)
	bus := events.NewBus()
	defer bus.Shutdown()
	ch, err := bus.Subscribe("test", 1)
	if err != nil {
		t.Fatal(err)
	}

	tr := New(Config{PrefsPath: path, OverlayEnabled: true, Events: bus})
	enabled, err := tr.toggleOverlay()
	if err != nil {
		t.Fatalf("toggleOverlay() error = %v", err)
	}
	if enabled {
		t.Error("first toggle should hide the overlay")
	}
	msg, err := events.WaitFor(ch, events.TypeOverlayToggled, time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if msg.(events.OverlayToggled).Enabled {
		t.Error("published flag should be false")
	}
	p, err := prefs.Load(path)
	if err != nil || p.OverlayEnabled {
		t.Errorf("persisted prefs = %+v, %v", p, err)
	}
}

func TestToggleLabel(t *testing.T) {
	if toggleLabel(true) != "Hide overlay" || toggleLabel(false) != "Show overlay" {
		t.Errorf("labels: %q / %q", toggleLabel(true), toggleLabel(false))
	}
}

func TestIconEncodings(t *testing.T) {
	data, err := PNG()
	if err != nil {
		t.Fatal(err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("tray icon is not a PNG: %v", err)
	}
	if b := img.Bounds(); b.Dx() != iconSize || b.Dy() != iconSize {
		t.Errorf("icon size %v", b)
	}

	ico := wrapICO(data, iconSize)
	var header [3]uint16
	if err := binary.Read(bytes.NewReader(ico), binary.LittleEndian, &header); err != nil {
		t.Fatal(err)
	}
	if header != [3]uint16{0, 1, 1} {
		t.Errorf("ico header = %v", header)
	}
	if !bytes.Equal(ico[22:], data) {
		t.Error("ico payload should be the PNG data")
	}
	if Resource() == nil || len(Resource().Content()) == 0 {
		t.Error("embedded svg missing")
	}
}

func TestSetTooltipBeforeReady(t *testing.T) {
	New(Config{}).SetTooltip("ignored")
}
