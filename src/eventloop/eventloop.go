package eventloop

import (
	"context"
	"errors"
	"log/slog"

	"screen-ocr-overlay/src/events"
	"screen-ocr-overlay/src/hotkey"
	"screen-ocr-overlay/src/singleinstance"
	"screen-ocr-overlay/src/workflow"
)

const subscriberName = "eventloop"

// Runner is the part of workflow.Coordinator the loop drives.
type Runner interface {
	Tap(ctx context.Context, origin workflow.Origin) (workflow.Outcome, error)
	Resolve(ctx context.Context, d workflow.Decision) (workflow.Outcome, error)
	Teardown()
}

// StatusIndicator reflects whether a run is in progress.
type StatusIndicator interface {
	SetTooltip(text string)
}

// OverlaySwitch applies the persisted overlay flag to the button.
type OverlaySwitch interface {
	SetEnabled(on bool)
}

type Options struct {
	Workflow Runner
	// Server answers delegated captures. Optional.
	Server   singleinstance.Server
	Bus      *events.Bus
	Notifier workflow.Notifier
	Overlay  OverlaySwitch
	Status   StatusIndicator
	Tooltip  string
}

// Loop is the single goroutine that serializes button taps, hotkey presses,
// delegated requests and panel decisions. Workflow calls run on their own
// goroutines and report back over channels so the loop never blocks on them.
type Loop struct {
	opts Options

	taps      chan struct{}
	hotkeys   chan struct{}
	decisions chan workflow.Decision
	results   chan result

	busy       bool
	presenting bool
	// pending is a decision that arrived before the result was on screen,
	// e.g. the panel closed during recognition.
	pending *workflow.Decision
}

type result struct {
	op       string
	decision workflow.Decision
	out      workflow.Outcome
	err      error
}

func New(opts Options) *Loop {
	if opts.Bus == nil {
		opts.Bus = events.NewBus()
	}
	if opts.Tooltip == "" {
		opts.Tooltip = "Screen OCR"
	}
	return &Loop{
		opts:      opts,
		taps:      make(chan struct{}, 1),
		hotkeys:   make(chan struct{}, 4),
		decisions: make(chan workflow.Decision, 4),
		results:   make(chan result, 4),
	}
}

// Tap posts a floating-button click. Safe from any goroutine, never blocks.
func (l *Loop) Tap() { post(l.taps, struct{}{}) }

// Hotkey posts a hotkey press.
func (l *Loop) Hotkey() { post(l.hotkeys, struct{}{}) }

// Decide posts a result panel decision.
func (l *Loop) Decide(d workflow.Decision) { post(l.decisions, d) }

func post[T any](ch chan T, v T) {
	select {
	case ch <- v:
	default:
		slog.Debug("Event loop: input dropped, queue full")
	}
}

// StartHotkey registers the global hotkey; presses land in the loop until ctx
// ends.
func (l *Loop) StartHotkey(ctx context.Context, combo string) error {
	if combo == "" {
		return nil
	}
	return hotkey.Listen(ctx, combo, l.Hotkey)
}

func (l *Loop) setBusy(b bool) {
	l.busy = b
	if l.opts.Status == nil {
		return
	}
	if b {
		l.opts.Status.SetTooltip("Screen OCR: capturing...")
	} else {
		l.opts.Status.SetTooltip(l.opts.Tooltip)
	}
}

// Run processes inputs until ctx is cancelled, then tears the workflow down.
func (l *Loop) Run(ctx context.Context) error {
	msgs, err := l.opts.Bus.Subscribe(subscriberName, 16)
	if err != nil {
		return err
	}
	defer l.opts.Bus.Unsubscribe(subscriberName)

	var reqCh <-chan singleinstance.Conn
	if l.opts.Server != nil {
		if err := l.opts.Server.Start(ctx); err != nil {
			return err
		}
		defer l.opts.Server.Close()
		if p := l.opts.Server.Port(); p > 0 {
			slog.Info("Resident listening", "addr", "127.0.0.1", "port", p)
		}
		reqCh = l.accept(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			l.opts.Workflow.Teardown()
			return ctx.Err()
		case <-l.taps:
			l.start(ctx, workflow.Origin{FromOverlay: true}, func() { l.notice(workflow.ErrBusy) })
		case <-l.hotkeys:
			l.start(ctx, workflow.Origin{}, func() { l.notice(workflow.ErrBusy) })
		case conn, ok := <-reqCh:
			if !ok {
				reqCh = nil
				continue
			}
			l.handleConn(ctx, conn)
		case d := <-l.decisions:
			l.resolve(ctx, d)
		case res := <-l.results:
			l.handleResult(ctx, res)
		case msg, ok := <-msgs:
			if !ok {
				msgs = nil
				continue
			}
			l.handleMessage(msg)
		}
	}
}

// accept moves connections off the server so a slow client never stalls the
// loop.
func (l *Loop) accept(ctx context.Context) <-chan singleinstance.Conn {
	ch := make(chan singleinstance.Conn, 4)
	go func() {
		defer close(ch)
		for {
			conn, err := l.opts.Server.Next(ctx)
			if err != nil {
				return
			}
			ch <- conn
		}
	}()
	return ch
}

func (l *Loop) handleConn(ctx context.Context, conn singleinstance.Conn) {
	target := delegatedTarget{conn: conn}
	if conn.Request().Kind != singleinstance.RequestCapture {
		_ = target.OnFailure(errors.New("unsupported request"))
		return
	}
	l.start(ctx, workflow.Origin{Target: target}, func() {
		_ = target.OnFailure(workflow.ErrBusy)
	})
}

func (l *Loop) start(ctx context.Context, origin workflow.Origin, onBusy func()) {
	if l.busy {
		slog.Info("Event loop: busy, trigger rejected", "from_overlay", origin.FromOverlay)
		onBusy()
		return
	}
	l.setBusy(true)
	go func() {
		out, err := l.opts.Workflow.Tap(ctx, origin)
		l.results <- result{op: "tap", out: out, err: err}
	}()
}

func (l *Loop) resolve(ctx context.Context, d workflow.Decision) {
	if !l.busy {
		slog.Debug("Event loop: decision without an active run", "decision", d)
		return
	}
	go func() {
		out, err := l.opts.Workflow.Resolve(ctx, d)
		l.results <- result{op: "resolve", decision: d, out: out, err: err}
	}()
}

// deferDecision keeps a decision the workflow rejected because the run had
// not reached PresentingResult yet.
func (l *Loop) deferDecision(ctx context.Context, res result) {
	switch {
	case !l.busy || res.out.State == workflow.Idle:
		slog.Debug("Event loop: decision ignored", "state", res.out.State)
	case res.out.State == workflow.PresentingResult:
		// Another decision is already being resolved.
		slog.Debug("Event loop: duplicate decision ignored", "decision", res.decision)
	case l.presenting:
		l.resolve(ctx, res.decision)
	default:
		slog.Debug("Event loop: decision deferred", "decision", res.decision, "state", res.out.State)
		d := res.decision
		l.pending = &d
	}
}

func (l *Loop) handleResult(ctx context.Context, res result) {
	switch {
	case errors.Is(res.err, workflow.ErrInvalidTransition):
		l.deferDecision(ctx, res)
		return
	case errors.Is(res.err, workflow.ErrBusy):
		l.notice(res.err)
	case res.err != nil:
		slog.Info("Event loop: run ended", "op", res.op, "run", res.out.RunID, "error", res.err)
	}
	switch res.out.State {
	case workflow.Idle:
		l.presenting = false
		l.pending = nil
		l.setBusy(false)
	case workflow.PresentingResult:
		l.presenting = true
		if l.pending != nil {
			d := *l.pending
			l.pending = nil
			slog.Debug("Event loop: applying deferred decision", "decision", d)
			l.resolve(ctx, d)
		}
	}
}

func (l *Loop) handleMessage(msg events.Message) {
	switch m := msg.(type) {
	case events.OverlayToggled:
		slog.Info("Event loop: overlay toggled", "enabled", m.Enabled)
		if l.opts.Overlay != nil {
			l.opts.Overlay.SetEnabled(m.Enabled)
		}
	case events.CaptureCompleted:
		if l.busy && l.opts.Status != nil {
			l.opts.Status.SetTooltip("Screen OCR: recognizing...")
		}
	case events.RunFinished:
		slog.Debug("Event loop: run finished", "run", m.RunID, "outcome", m.Outcome)
	}
}

func (l *Loop) notice(err error) {
	if l.opts.Notifier != nil {
		l.opts.Notifier.Notice("Busy, please retry")
		return
	}
	slog.Info("Event loop: notice", "error", err)
}
