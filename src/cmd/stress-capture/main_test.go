package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"screen-ocr-overlay/src/singleinstance"
)

func TestNewRootCmdDefaults(t *testing.T) {
	opts := &stressOptions{}
	cmd := newRootCmd(opts)
	if err := cmd.ParseFlags([]string{}); err != nil {
		t.Fatalf("ParseFlags failed: %v", err)
	}
	if opts.n != 50 {
		t.Fatalf("Expected default n=50, got %d", opts.n)
	}
	if opts.deadline != 5*time.Second {
		t.Fatalf("Expected default deadline=5s, got %v", opts.deadline)
	}
}

func TestNewRootCmdCustomFlags(t *testing.T) {
	opts := &stressOptions{}
	cmd := newRootCmd(opts)
	if err := cmd.ParseFlags([]string{"--n", "3", "--deadline", "7s"}); err != nil {
		t.Fatalf("ParseFlags failed: %v", err)
	}
	if opts.n != 3 || opts.deadline != 7*time.Second {
		t.Fatalf("Expected n=3 deadline=7s, got %d %v", opts.n, opts.deadline)
	}
}

type scriptedClient struct {
	delegated bool
	err       error
}

func (c scriptedClient) TryCapture(context.Context) (bool, string, error) {
	return c.delegated, "", c.err
}

func TestTallyClassifiesOutcomes(t *testing.T) {
	outcomes := []scriptedClient{
		{delegated: true},
		{delegated: true, err: errors.New("busy, please retry")},
		{delegated: true, err: errors.New("busy, please retry")},
		{},
		{delegated: true, err: context.DeadlineExceeded},
		{delegated: true, err: errors.New("capture cancelled")},
	}
	next := make(chan scriptedClient, len(outcomes))
	for _, o := range outcomes {
		next <- o
	}

	tl := runWithOptions(context.Background(), stressOptions{n: len(outcomes), deadline: time.Second}, func() singleinstance.Client {
		return <-next
	})
	if tl.ok != 1 || tl.busy != 2 || tl.none != 1 || tl.timedOut != 1 || tl.failed != 1 {
		t.Errorf("tally = ok %d busy %d none %d timeout %d err %d", tl.ok, tl.busy, tl.none, tl.timedOut, tl.failed)
	}
}
