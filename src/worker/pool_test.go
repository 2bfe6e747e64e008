package worker

import (
	"context"
	"errors"
	"image"
	"testing"
	"time"

	"screen-ocr-overlay/src/recognizer"
)

func img() image.Image { return image.NewRGBA(image.Rect(0, 0, 2, 2)) }

func TestRecognize(t *testing.T) {
	p := New(1, func(ctx context.Context, img image.Image) (recognizer.Result, error) {
		return recognizer.Result{Text: "ok"}, nil
	})
	defer p.Close()

	res, err := p.Recognize(context.Background(), img())
	if err != nil || res.Text != "ok" {
		t.Fatalf("Recognize() = %q, %v", res.Text, err)
	}
}

func TestSubmitBackPressure(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 2)
	p := New(1, func(ctx context.Context, img image.Image) (recognizer.Result, error) {
		started <- struct{}{}
		<-release
		return recognizer.Result{}, nil
	})
	defer p.Close()

	done := make(chan struct{}, 3)
	cb := func(recognizer.Result, error) { done <- struct{}{} }

	if !p.Submit(context.Background(), img(), cb) {
		t.Fatal("first job should be accepted")
	}
	<-started
	if !p.Submit(context.Background(), img(), cb) {
		t.Fatal("second job should fill the queue slot")
	}
	if p.Submit(context.Background(), img(), cb) {
		t.Error("third job should be dropped while the queue is full")
	}
	close(release)
	<-done
	<-done
}

func TestAbandonedRecognitionReturnsContextError(t *testing.T) {
	release := make(chan struct{})
	finished := make(chan struct{})
	p := New(1, func(ctx context.Context, img image.Image) (recognizer.Result, error) {
		<-release
		close(finished)
		return recognizer.Result{Text: "late"}, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := p.Recognize(ctx, img())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Recognize() error = %v, want deadline exceeded", err)
	}

	close(release)
	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("engine should keep running after the caller gave up")
	}
	p.Close()
}

func TestCloseIsIdempotent(t *testing.T) {
	p := New(2, func(ctx context.Context, img image.Image) (recognizer.Result, error) {
		return recognizer.Result{}, nil
	})
	p.Close()
	p.Close()
}
