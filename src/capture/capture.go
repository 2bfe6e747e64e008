// Package capture owns the screen mirror session: it consumes an authorization
// token, grabs exactly one frame with bounded polling and tears the session down.
package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"

	"screen-ocr-overlay/src/frame"
	"screen-ocr-overlay/src/retry"
)

var (
	ErrAuthorization     = errors.New("capture authorization invalid")
	ErrNotReady          = errors.New("frame not ready")
	ErrFrameUnavailable  = errors.New("no frame available within retry budget")
	ErrStopped           = errors.New("capture stopped")
	ErrNoDisplay         = errors.New("no active displays found")
	ErrSessionInProgress = errors.New("capture session already active")
)

func errAuthorization(reason string) error {
	return fmt.Errorf("%w: %s", ErrAuthorization, reason)
}

// Display opens mirrors of the physical screen.
type Display interface {
	// Bounds reports the current pixel geometry of the mirrored screen.
	Bounds() (image.Rectangle, error)
	// Open begins mirroring bounds into an off-screen buffer.
	Open(bounds image.Rectangle) (Mirror, error)
}

// Mirror yields frames of the mirrored screen. Acquire returns ErrNotReady
// (possibly wrapped) while no frame has landed yet.
type Mirror interface {
	Acquire() (*frame.Frame, error)
	Close() error
}

// Session is one mirror bound to one consumed token.
type Session struct {
	token   *Token
	mirror  Mirror
	bounds  image.Rectangle
	unwatch func()

	once    sync.Once
	mu      sync.Mutex
	stopped bool
}

func (s *Session) Bounds() image.Rectangle { return s.bounds }

func (s *Session) isStopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

// teardown releases the mirror and the revocation watch exactly once.
func (s *Session) teardown() error {
	var err error
	s.once.Do(func() {
		s.mu.Lock()
		s.stopped = true
		s.mu.Unlock()
		if s.unwatch != nil {
			s.unwatch()
		}
		err = s.mirror.Close()
	})
	return err
}

// Coordinator runs at most one session at a time. A revoked token stops the
// coordinator for good; Done is closed when that happens. It is the only
// writer of its Holder.
type Coordinator struct {
	display Display
	policy  retry.Policy
	holder  *frame.Holder

	mu      sync.Mutex
	active  *Session
	stopped bool
	done    chan struct{}
}

func NewCoordinator(display Display, policy retry.Policy) *Coordinator {
	return &Coordinator{display: display, policy: policy, holder: frame.NewHolder(), done: make(chan struct{})}
}

// Holder is the slot Grab publishes into. Readers may only Frame and Release it.
func (c *Coordinator) Holder() *frame.Holder { return c.holder }

func (c *Coordinator) Done() <-chan struct{} { return c.done }

func (c *Coordinator) Stopped() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopped
}

// StartSession consumes token and starts mirroring the screen at its current size.
func (c *Coordinator) StartSession(token *Token) (*Session, error) {
	if token == nil {
		return nil, errAuthorization("missing token")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return nil, ErrStopped
	}
	if c.active != nil {
		return nil, ErrSessionInProgress
	}
	if err := token.consume(); err != nil {
		return nil, err
	}

	bounds, err := c.display.Bounds()
	if err != nil {
		return nil, fmt.Errorf("query display bounds: %w", err)
	}
	mirror, err := c.display.Open(bounds)
	if err != nil {
		return nil, fmt.Errorf("open mirror: %w", err)
	}

	s := &Session{token: token, mirror: mirror, bounds: bounds}
	unwatch, ok := token.watch(func() { c.onRevoked(s) })
	if !ok {
		_ = mirror.Close()
		return nil, errAuthorization("token revoked")
	}
	s.unwatch = unwatch
	c.active = s
	slog.Debug("Capture: session started", "token", token.ID(), "width", bounds.Dx(), "height", bounds.Dy())
	return s, nil
}

// CaptureOneFrame polls the mirror until a frame lands or the retry budget is
// spent. The returned frame has no row padding.
func (c *Coordinator) CaptureOneFrame(ctx context.Context, s *Session) (*frame.Frame, error) {
	if s == nil || s.isStopped() {
		return nil, ErrStopped
	}
	f, err := retry.Poll(ctx, c.policy, func(attempt int) (*frame.Frame, bool, error) {
		if s.isStopped() {
			return nil, false, ErrStopped
		}
		f, err := s.mirror.Acquire()
		switch {
		case errors.Is(err, ErrNotReady):
			slog.Debug("Capture: frame not ready", "attempt", attempt)
			return nil, false, nil
		case err != nil:
			return nil, false, err
		case f == nil:
			return nil, false, nil
		}
		return f, true, nil
	})
	if errors.Is(err, retry.ErrExhausted) {
		return nil, fmt.Errorf("%w: %v", ErrFrameUnavailable, err)
	}
	if err != nil {
		return nil, err
	}

	compact, err := f.Compact()
	if err != nil {
		f.Release()
		return nil, err
	}
	if compact != f {
		f.Release()
	}
	return compact, nil
}

// StopSession releases the mirror and the revocation registration. Calling it
// on an already stopped session is a no-op.
func (c *Coordinator) StopSession(s *Session) error {
	if s == nil {
		return nil
	}
	err := s.teardown()
	c.mu.Lock()
	if c.active == s {
		c.active = nil
	}
	c.mu.Unlock()
	return err
}

// Capture runs a full start, grab, stop cycle for one token.
func (c *Coordinator) Capture(ctx context.Context, token *Token) (*frame.Frame, error) {
	s, err := c.StartSession(token)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := c.StopSession(s); err != nil {
			slog.Warn("Capture: failed to stop session", "err", err)
		}
	}()
	return c.CaptureOneFrame(ctx, s)
}

// Grab runs Capture and publishes the frame into the holder, releasing the
// frame held before it.
func (c *Coordinator) Grab(ctx context.Context, token *Token) error {
	f, err := c.Capture(ctx, token)
	if err != nil {
		return err
	}
	c.holder.Publish(f)
	return nil
}

func (c *Coordinator) onRevoked(s *Session) {
	slog.Warn("Capture: authorization revoked, stopping", "token", s.token.ID())
	if err := c.StopSession(s); err != nil {
		slog.Warn("Capture: failed to stop revoked session", "err", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.stopped {
		c.stopped = true
		close(c.done)
	}
}
