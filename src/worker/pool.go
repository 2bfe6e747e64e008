package worker

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"runtime"
	"sync"

	"screen-ocr-overlay/src/recognizer"
)

var ErrQueueFull = errors.New("recognition queue full")

// RecognizeFunc is the work a job performs.
type RecognizeFunc func(ctx context.Context, img image.Image) (recognizer.Result, error)

// ResultCallback is invoked on completion (from a worker goroutine).
// The event loop should pass a closure that posts back into the event loop safely.
type ResultCallback func(res recognizer.Result, err error)

// Pool is a fixed-size recognition worker pool with a 1-slot input queue (strict back-pressure).
type Pool struct {
	recognize RecognizeFunc
	jobs      chan job
	wg        sync.WaitGroup
	closeOnce sync.Once
}

type job struct {
	ctx context.Context
	img image.Image
	cb  ResultCallback
}

// New creates a worker pool. Size defaults to NumCPU when size<=0. Queue is 1 slot.
func New(size int, recognize RecognizeFunc) *Pool {
	if size <= 0 {
		size = runtime.NumCPU()
	}
	p := &Pool{recognize: recognize, jobs: make(chan job, 1)}
	p.start(size)
	return p
}

func (p *Pool) start(n int) {
	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for j := range p.jobs {
				b := j.img.Bounds()
				slog.Debug("Worker: starting recognition", "width", b.Dx(), "height", b.Dy())
				res, err := withDeadline(j.ctx, j.img, p.recognize)
				slog.Debug("Worker: recognition completed", "chars", len([]rune(res.Text)), "error", err)
				j.cb(res, err)
			}
		}()
	}
}

// Submit enqueues a job if the single-slot queue is free. Returns false if dropped.
func (p *Pool) Submit(ctx context.Context, img image.Image, cb ResultCallback) bool {
	select {
	case p.jobs <- job{ctx: ctx, img: img, cb: cb}:
		return true
	default:
		return false
	}
}

// Recognize submits img and waits for the result or ctx. An abandoned job
// keeps running; its late result is dropped.
func (p *Pool) Recognize(ctx context.Context, img image.Image) (recognizer.Result, error) {
	type outcome struct {
		res recognizer.Result
		err error
	}
	ch := make(chan outcome, 1)
	if !p.Submit(ctx, img, func(res recognizer.Result, err error) { ch <- outcome{res, err} }) {
		return recognizer.Result{}, ErrQueueFull
	}
	select {
	case o := <-ch:
		return o.res, o.err
	case <-ctx.Done():
		return recognizer.Result{}, ctx.Err()
	}
}

// Close stops the pool after draining current work.
func (p *Pool) Close() {
	p.closeOnce.Do(func() { close(p.jobs) })
	p.wg.Wait()
}

// withDeadline runs fn, honoring ctx even though fn may not.
func withDeadline(ctx context.Context, img image.Image, fn RecognizeFunc) (recognizer.Result, error) {
	if _, ok := ctx.Deadline(); !ok && ctx.Done() == nil {
		return fn(ctx, img)
	}
	resCh := make(chan struct {
		res recognizer.Result
		err error
	}, 1)
	go func() {
		res, err := fn(ctx, img)
		resCh <- struct {
			res recognizer.Result
			err error
		}{res, err}
	}()
	select {
	case r := <-resCh:
		return r.res, r.err
	case <-ctx.Done():
		// Allow the engine to continue in background; we return the context error.
		return recognizer.Result{}, ctx.Err()
	}
}
