package frame

import "sync"

// Holder is the handoff slot between the capture step (single writer) and the
// recognition step (single reader). It owns whatever frame it holds.
type Holder struct {
	mu  sync.Mutex
	cur *Frame
}

func NewHolder() *Holder { return &Holder{} }

// Publish stores f and releases the frame it replaces.
func (h *Holder) Publish(f *Frame) {
	h.mu.Lock()
	prev := h.cur
	h.cur = f
	h.mu.Unlock()
	if prev != nil && prev != f {
		prev.Release()
	}
}

// Frame returns the held frame without transferring ownership.
func (h *Holder) Frame() (*Frame, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cur == nil {
		return nil, false
	}
	return h.cur, true
}

// Release clears the slot and frees the held frame, if any.
func (h *Holder) Release() {
	h.mu.Lock()
	prev := h.cur
	h.cur = nil
	h.mu.Unlock()
	if prev != nil {
		prev.Release()
	}
}

func (h *Holder) Empty() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cur == nil
}
