// Package recognizer runs a Latin-script and a CJK OCR engine side by side over
// one preprocessed image and picks the better transcription.
package recognizer

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
)

var (
	ErrClosed    = errors.New("recognizer closed")
	ErrNoEngines = errors.New("both engine factories are required")
)

// Line is one recognized text line with the engine's confidence in [0,1].
type Line struct {
	Text       string
	Confidence float64
}

// EngineOutput is what a single engine pass produced.
type EngineOutput struct {
	Text  string
	Lines []Line
}

// Confidence is the mean line confidence; no lines means 0.
func (o EngineOutput) Confidence() float64 {
	if len(o.Lines) == 0 {
		return 0
	}
	var sum float64
	for _, l := range o.Lines {
		sum += l.Confidence
	}
	return sum / float64(len(o.Lines))
}

// Engine is a black-box OCR pass. Implementations need not honor ctx.
type Engine interface {
	Recognize(ctx context.Context, img image.Image) (EngineOutput, error)
	Close() error
}

// EngineFactory builds an engine on first use.
type EngineFactory func() (Engine, error)

// Recognizer owns two lazily built engines. Close releases them once; after
// that Recognize fails with ErrClosed.
type Recognizer struct {
	opts  Options
	latin *lazyEngine
	cjk   *lazyEngine

	mu       sync.Mutex
	closed   bool
	inflight sync.WaitGroup
}

func New(latin, cjk EngineFactory, opts Options) (*Recognizer, error) {
	if latin == nil || cjk == nil {
		return nil, ErrNoEngines
	}
	return &Recognizer{
		opts:  opts.withDefaults(),
		latin: &lazyEngine{factory: latin, script: ScriptLatin},
		cjk:   &lazyEngine{factory: cjk, script: ScriptCJK},
	}, nil
}

type pass struct {
	out EngineOutput
	err error
}

// Recognize issues both engine passes before waiting on either. If ctx ends
// first the call returns ctx.Err(); the engines keep running and their output
// is dropped.
func (r *Recognizer) Recognize(ctx context.Context, img image.Image) (Result, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return Result{}, ErrClosed
	}
	r.inflight.Add(1)
	r.mu.Unlock()

	prepared := Preprocess(img, r.opts.Contrast)

	latinCh := make(chan pass, 1)
	cjkCh := make(chan pass, 1)
	go func() { latinCh <- r.latin.run(ctx, prepared) }()
	go func() { cjkCh <- r.cjk.run(ctx, prepared) }()

	type outcome struct {
		res Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		defer r.inflight.Done()
		l, c := <-latinCh, <-cjkCh
		res, err := r.combine(l, c)
		done <- outcome{res, err}
	}()

	select {
	case o := <-done:
		return o.res, o.err
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

func (r *Recognizer) combine(l, c pass) (Result, error) {
	if l.err != nil && c.err != nil {
		return Result{}, fmt.Errorf("both engines failed: %w", errors.Join(l.err, c.err))
	}
	if l.err != nil {
		slog.Warn("Recognizer: latin engine failed, using CJK output only", "err", l.err)
		l.out = EngineOutput{}
	}
	if c.err != nil {
		slog.Warn("Recognizer: CJK engine failed, using latin output only", "err", c.err)
		c.out = EngineOutput{}
	}
	res := Merge(l.out, c.out, r.opts)
	slog.Debug("Recognizer: outputs merged",
		"script", res.Script.String(),
		"latin_conf", l.out.Confidence(),
		"cjk_conf", c.out.Confidence(),
		"cjk_ratio", CJKRatio(c.out.Text),
		"chars", len([]rune(res.Text)))
	return res, nil
}

// Close waits for in-flight passes and releases every engine that was built.
func (r *Recognizer) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	r.inflight.Wait()
	return errors.Join(r.latin.close(), r.cjk.close())
}

type lazyEngine struct {
	factory EngineFactory
	script  Script

	once   sync.Once
	engine Engine
	err    error
}

func (e *lazyEngine) get() (Engine, error) {
	e.once.Do(func() {
		e.engine, e.err = e.factory()
		if e.err == nil {
			slog.Debug("Recognizer: engine created", "script", e.script.String())
		}
	})
	return e.engine, e.err
}

func (e *lazyEngine) run(ctx context.Context, img image.Image) pass {
	eng, err := e.get()
	if err != nil {
		return pass{err: fmt.Errorf("create %s engine: %w", e.script, err)}
	}
	out, err := eng.Recognize(ctx, img)
	if err != nil {
		return pass{err: fmt.Errorf("%s engine: %w", e.script, err)}
	}
	return pass{out: out}
}

// close is only reached once, from Recognizer.Close.
func (e *lazyEngine) close() error {
	if e.engine == nil {
		return nil
	}
	err := e.engine.Close()
	e.engine = nil
	return err
}
