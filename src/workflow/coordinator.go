// Package workflow drives one capture run at a time: hide the button, obtain
// authorization, grab a frame, recognize it, present the result and put the
// button back. Every path out of a run ends in Idle with the button restored
// exactly once.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"screen-ocr-overlay/src/capture"
	"screen-ocr-overlay/src/events"
	"screen-ocr-overlay/src/frame"
	"screen-ocr-overlay/src/recognizer"
)

const (
	DefaultRestoreTimeout = 5 * time.Second
	DefaultDeadline       = 20 * time.Second
)

type ButtonView interface {
	Show()
	Hide()
}

type ResultPanel interface {
	ShowProgress()
	ShowResult(res recognizer.Result)
	ShowEmpty()
	ShowError(err error)
	Close()
}

// Authorizer obtains a single-use capture token, blocking until the user or
// the platform decides.
type Authorizer interface {
	RequestCapture(ctx context.Context) (*capture.Token, error)
}

// CaptureFunc grabs one frame and publishes it into the Holder given in
// Options. The workflow never writes the holder; it reads and releases it.
type CaptureFunc func(ctx context.Context, token *capture.Token) error

type RecognizeFunc func(ctx context.Context, img image.Image) (recognizer.Result, error)

type Clipboard interface {
	Write(text string) error
}

type HistoryWriter interface {
	Insert(ctx context.Context, text string) (int64, error)
}

type Notifier interface {
	// Notice shows a transient message.
	Notice(msg string)
	// Blocking shows an error the user has to acknowledge.
	Blocking(title, msg string)
}

type Publisher interface {
	Publish(msg events.Message) (int, error)
}

// ResultTarget receives the end of a run: the copied text, or the reason the
// run ended without a copy.
type ResultTarget interface {
	OnSuccess(text string) error
	OnFailure(err error) error
}

type Origin struct {
	FromOverlay bool
	Target      ResultTarget
}

type Decision int

const (
	Copy Decision = iota
	Cancel
	Dismiss
)

func (d Decision) String() string {
	switch d {
	case Copy:
		return "copy"
	case Cancel:
		return "cancel"
	case Dismiss:
		return "dismiss"
	default:
		return "unknown"
	}
}

func (d Decision) event() Event {
	switch d {
	case Copy:
		return EventCopy
	case Cancel:
		return EventCancel
	default:
		return EventDismiss
	}
}

type Options struct {
	Button     ButtonView
	Panel      ResultPanel
	Authorizer Authorizer
	Capture    CaptureFunc
	Recognize  RecognizeFunc

	Holder    *frame.Holder
	Clipboard Clipboard
	History   HistoryWriter
	Notifier  Notifier
	Events    Publisher

	// Deadline bounds a single recognition call.
	Deadline time.Duration
	// RestoreTimeout arms the fallback timer when capture begins.
	RestoreTimeout time.Duration
	// OnRestoreTimer runs if the fallback timer fires. The default only logs.
	OnRestoreTimer func(runID string, state State)
	NewRunID       func() string
}

// Outcome describes where a Tap or Resolve left the run.
type Outcome struct {
	RunID  string
	State  State
	Result recognizer.Result
	// Empty is set when recognition succeeded but found no text.
	Empty bool
	// Err is the recognition error shown in the panel, if any.
	Err error
}

type run struct {
	id        string
	origin    Origin
	cancel    context.CancelFunc
	timer     *time.Timer
	result    recognizer.Result
	err       error
	panelOpen bool
	resolving bool
	restored  bool
}

type Coordinator struct {
	opts Options

	mu     sync.Mutex
	state  State
	run    *run
	closed bool
}

func NewCoordinator(opts Options) (*Coordinator, error) {
	switch {
	case opts.Button == nil:
		return nil, errors.New("Button is required")
	case opts.Panel == nil:
		return nil, errors.New("Panel is required")
	case opts.Authorizer == nil:
		return nil, errors.New("Authorizer is required")
	case opts.Capture == nil:
		return nil, errors.New("Capture is required")
	case opts.Recognize == nil:
		return nil, errors.New("Recognize is required")
	case opts.Holder == nil:
		return nil, errors.New("Holder is required")
	}
	if opts.Notifier == nil {
		opts.Notifier = logNotifier{}
	}
	if opts.Deadline <= 0 {
		opts.Deadline = DefaultDeadline
	}
	if opts.RestoreTimeout <= 0 {
		opts.RestoreTimeout = DefaultRestoreTimeout
	}
	if opts.OnRestoreTimer == nil {
		opts.OnRestoreTimer = func(runID string, state State) {
			slog.Warn("Workflow: restore timer fired", "run", runID, "state", state)
		}
	}
	if opts.NewRunID == nil {
		opts.NewRunID = uuid.NewString
	}
	return &Coordinator{opts: opts}, nil
}

func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Tap starts a run. It returns once the run reaches PresentingResult or falls
// back to Idle. A recognition failure is not returned as an error; it is
// reported in Outcome.Err and shown in the panel so the user dismisses it.
func (c *Coordinator) Tap(ctx context.Context, origin Origin) (Outcome, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return Outcome{State: Idle}, ErrTornDown
	}
	next, err := Next(c.state, EventTap)
	if err != nil {
		state := c.state
		c.mu.Unlock()
		return Outcome{State: state}, ErrBusy
	}
	runCtx, cancel := context.WithCancel(ctx)
	r := &run{id: c.opts.NewRunID(), origin: origin, cancel: cancel}
	c.run = r
	c.state = next
	c.opts.Button.Hide()
	c.mu.Unlock()

	slog.Info("Workflow: run started", "run", r.id, "from_overlay", origin.FromOverlay)

	token, err := c.opts.Authorizer.RequestCapture(runCtx)
	if err != nil {
		return c.fail(r, EventDenied, classifyAuthorization(err), false)
	}
	if !c.step(r, EventAuthorized, func() { c.startTimer(r) }) {
		token.Revoke()
		return c.stale(r)
	}

	if err := c.opts.Capture(runCtx, token); err != nil {
		return c.fail(r, EventCaptureFailed, classifyCapture(err), true)
	}
	captured := c.step(r, EventFrameCaptured, func() {
		r.panelOpen = true
		c.opts.Panel.ShowProgress()
	})
	if !captured {
		// The run ended while the frame was landing; drop it.
		c.opts.Holder.Release()
		return c.stale(r)
	}
	if c.opts.Events != nil {
		_, _ = c.opts.Events.Publish(events.CaptureCompleted{RunID: r.id, FromOverlay: origin.FromOverlay})
	}

	res, recErr := c.recognizeHeld(runCtx)
	event := EventRecognized
	if recErr != nil {
		event = EventRecognitionFailed
		recErr = fmt.Errorf("%w: %w", ErrRecognitionFailure, recErr)
		slog.Warn("Workflow: recognition failed", "run", r.id, "error", recErr)
	}
	presented := c.step(r, event, func() {
		c.stopTimer(r)
		r.result = res
		r.err = recErr
		switch {
		case recErr != nil:
			c.opts.Panel.ShowError(recErr)
		case res.Empty():
			c.opts.Panel.ShowEmpty()
		default:
			c.opts.Panel.ShowResult(res)
		}
	})
	if !presented {
		return c.stale(r)
	}
	slog.Info("Workflow: presenting result", "run", r.id, "script", res.Script, "chars", len([]rune(res.Text)), "confidence", res.Confidence)
	return Outcome{
		RunID:  r.id,
		State:  PresentingResult,
		Result: res,
		Empty:  recErr == nil && res.Empty(),
		Err:    recErr,
	}, nil
}

func (c *Coordinator) recognizeHeld(ctx context.Context) (recognizer.Result, error) {
	held, ok := c.opts.Holder.Frame()
	if !ok {
		return recognizer.Result{}, frame.ErrReleased
	}
	img, err := held.Image()
	if err != nil {
		return recognizer.Result{}, err
	}
	recCtx, cancel := context.WithTimeout(ctx, c.opts.Deadline)
	defer cancel()
	return c.opts.Recognize(recCtx, img)
}

// Resolve ends a presented run with the user's decision. Copy on an empty or
// failed result behaves like Dismiss.
func (c *Coordinator) Resolve(ctx context.Context, d Decision) (Outcome, error) {
	c.mu.Lock()
	r := c.run
	if r == nil || c.state != PresentingResult || r.resolving {
		state := c.state
		c.mu.Unlock()
		return Outcome{State: state}, ErrInvalidTransition
	}
	r.resolving = true
	res, recErr := r.result, r.err
	c.mu.Unlock()

	if d == Copy && (recErr != nil || res.Empty()) {
		d = Dismiss
	}

	var cause error
	switch d {
	case Copy:
		cause = c.copyText(ctx, r, res.Text)
	case Cancel:
		cause = ErrCancelled
	default:
		cause = ErrDismissed
	}
	out := Outcome{RunID: r.id, State: Idle, Result: res, Empty: recErr == nil && res.Empty(), Err: recErr}
	if !c.end(r, d.event(), cause) {
		return out, ErrTornDown
	}
	slog.Info("Workflow: run resolved", "run", r.id, "decision", d)
	if d == Copy && cause != nil {
		return out, cause
	}
	return out, nil
}

func (c *Coordinator) copyText(ctx context.Context, r *run, text string) error {
	if c.opts.Clipboard != nil {
		if err := c.opts.Clipboard.Write(text); err != nil {
			slog.Error("Workflow: clipboard write failed", "run", r.id, "error", err)
			c.opts.Notifier.Notice("Clipboard error")
			return err
		}
	}
	if c.opts.History != nil {
		if _, err := c.opts.History.Insert(ctx, text); err != nil {
			slog.Warn("Workflow: history insert failed", "run", r.id, "error", err)
		}
	}
	return nil
}

// Teardown ends any active run, restoring the button if that run has not
// restored it yet. The coordinator accepts no further taps.
func (c *Coordinator) Teardown() {
	c.mu.Lock()
	c.closed = true
	r := c.run
	state := c.state
	c.mu.Unlock()
	if r == nil {
		return
	}
	slog.Info("Workflow: teardown", "run", r.id, "state", state)
	c.end(r, EventTeardown, ErrTornDown)
}

// step applies e to the current run and runs fn under the lock. It reports
// false when r is no longer the active run.
func (c *Coordinator) step(r *run, e Event, fn func()) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.run != r {
		return false
	}
	next, err := Next(c.state, e)
	if err != nil {
		slog.Error("Workflow: rejected transition", "run", r.id, "error", err)
		return false
	}
	slog.Debug("Workflow: transition", "run", r.id, "from", c.state, "event", e, "to", next)
	c.state = next
	if fn != nil {
		fn()
	}
	return true
}

func (c *Coordinator) fail(r *run, e Event, cause error, notify bool) (Outcome, error) {
	if !c.end(r, e, cause) {
		return c.stale(r)
	}
	slog.Warn("Workflow: run failed", "run", r.id, "event", e, "error", cause)
	if notify {
		if errors.Is(cause, ErrOverlayPermissionMissing) {
			c.opts.Notifier.Blocking("Screen OCR", "Screen capture is not available. Grant screen recording access in the system settings and try again.")
		} else {
			c.opts.Notifier.Notice(noticeFor(cause))
		}
	}
	return Outcome{RunID: r.id, State: Idle}, cause
}

func (c *Coordinator) stale(r *run) (Outcome, error) {
	return Outcome{RunID: r.id, State: Idle}, ErrTornDown
}

// end moves r to Idle and restores the button. Only the first caller for a
// given run wins.
func (c *Coordinator) end(r *run, e Event, cause error) bool {
	c.mu.Lock()
	if c.run != r || r.restored {
		c.mu.Unlock()
		return false
	}
	next, err := Next(c.state, e)
	if err != nil {
		slog.Error("Workflow: rejected transition", "run", r.id, "error", err)
		next = Idle
	}
	c.state = next
	c.run = nil
	r.restored = true
	c.stopTimer(r)
	c.opts.Holder.Release()
	if r.panelOpen {
		c.opts.Panel.Close()
	}
	c.opts.Button.Show()
	c.mu.Unlock()

	r.cancel()
	c.deliver(r, cause)
	if c.opts.Events != nil {
		outcome := "copied"
		if cause != nil {
			outcome = cause.Error()
		}
		_, _ = c.opts.Events.Publish(events.RunFinished{RunID: r.id, Outcome: outcome})
	}
	return true
}

func (c *Coordinator) deliver(r *run, cause error) {
	t := r.origin.Target
	if t == nil {
		return
	}
	var err error
	if cause == nil {
		err = t.OnSuccess(r.result.Text)
	} else {
		err = t.OnFailure(cause)
	}
	if err != nil {
		slog.Warn("Workflow: result delivery failed", "run", r.id, "error", err)
	}
}

func (c *Coordinator) startTimer(r *run) {
	r.timer = time.AfterFunc(c.opts.RestoreTimeout, func() {
		c.mu.Lock()
		active := c.run == r
		state := c.state
		c.mu.Unlock()
		if active {
			c.opts.OnRestoreTimer(r.id, state)
		}
	})
}

func (c *Coordinator) stopTimer(r *run) {
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}

type logNotifier struct{}

func (logNotifier) Notice(msg string) { slog.Info("Notice", "message", msg) }

func (logNotifier) Blocking(title, msg string) { slog.Error(title, "message", msg) }
