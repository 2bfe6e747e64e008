package capture

import (
	"image"
	"testing"
)

func TestScreenDisplayBounds(t *testing.T) {
	// Needs a display; headless runs only log.
	b, err := ScreenDisplay{}.Bounds()
	if err != nil {
		t.Logf("Failed to get display bounds (expected in headless environment): %v", err)
		return
	}
	if b.Empty() {
		t.Error("Expected non-empty bounds")
	}
}

func TestScreenDisplayOpenRejectsEmptyBounds(t *testing.T) {
	if _, err := (ScreenDisplay{}).Open(image.Rectangle{}); err == nil {
		t.Error("Expected error for empty bounds")
	}
}

func TestScreenMirrorClosed(t *testing.T) {
	m, err := ScreenDisplay{}.Open(image.Rect(0, 0, 10, 10))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	_ = m.Close()
	if _, err := m.Acquire(); err != ErrStopped {
		t.Errorf("Expected ErrStopped after close, got %v", err)
	}
}
