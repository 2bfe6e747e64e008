package capture

import (
	"fmt"
	"image"
	"sync"

	"github.com/kbinani/screenshot"

	"screen-ocr-overlay/src/frame"
)

// ScreenDisplay mirrors one physical display through the OS screen grabber.
type ScreenDisplay struct {
	// Index selects the display; out-of-range values fall back to the primary.
	Index int
}

// Bounds is queried fresh on every call so a resolution change between
// sessions is picked up.
func (d ScreenDisplay) Bounds() (image.Rectangle, error) {
	n := screenshot.NumActiveDisplays()
	if n == 0 {
		return image.Rectangle{}, ErrNoDisplay
	}
	idx := d.Index
	if idx < 0 || idx >= n {
		idx = 0
	}
	b := screenshot.GetDisplayBounds(idx)
	if b.Empty() {
		return image.Rectangle{}, fmt.Errorf("display %d reports empty bounds", idx)
	}
	return b, nil
}

func (d ScreenDisplay) Open(bounds image.Rectangle) (Mirror, error) {
	if bounds.Empty() {
		return nil, fmt.Errorf("invalid mirror bounds: %v", bounds)
	}
	return &screenMirror{bounds: bounds}, nil
}

// Available reports whether any display can be mirrored at all.
func Available() bool { return screenshot.NumActiveDisplays() > 0 }

type screenMirror struct {
	bounds image.Rectangle

	mu     sync.Mutex
	closed bool
}

// Acquire grabs the mirrored rectangle. Grab failures are treated as a frame
// that has not landed yet so the caller's poll budget decides when to give up.
func (m *screenMirror) Acquire() (*frame.Frame, error) {
	m.mu.Lock()
	closed := m.closed
	m.mu.Unlock()
	if closed {
		return nil, ErrStopped
	}
	img, err := screenshot.CaptureRect(m.bounds)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotReady, err)
	}
	return frame.FromRGBA(img)
}

func (m *screenMirror) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
