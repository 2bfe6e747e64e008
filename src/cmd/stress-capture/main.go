package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"screen-ocr-overlay/src/config"
	"screen-ocr-overlay/src/singleinstance"
)

type stressOptions struct {
	n        int
	deadline time.Duration
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	opts := &stressOptions{}
	cmd := newRootCmd(opts)
	return cmd.Execute()
}

func newRootCmd(opts *stressOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "stress-capture",
		Short:         "Fire concurrent --capture delegations at a running resident",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := config.Load(); err != nil {
				return err
			}
			t := runWithOptions(cmd.Context(), *opts, singleinstance.NewClient)
			t.print(cmd.OutOrStdout(), opts.n)
			return nil
		},
	}

	cmd.Flags().IntVar(&opts.n, "n", 50, "number of clients to launch")
	cmd.Flags().DurationVar(&opts.deadline, "deadline", 5*time.Second, "per-client timeout")

	return cmd
}

// tally counts how each delegated capture ended. Only one run can be active,
// so with a resident present every client but one should come back busy.
type tally struct {
	mu       sync.Mutex
	ok       int
	busy     int
	none     int
	failed   int
	timedOut int
	elapsed  time.Duration
}

func (t *tally) add(delegated bool, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch {
	case err == nil && delegated:
		t.ok++
	case err == nil:
		t.none++
	case strings.Contains(strings.ToLower(err.Error()), "busy"):
		t.busy++
	case errors.Is(err, context.DeadlineExceeded):
		t.timedOut++
	default:
		t.failed++
	}
}

func (t *tally) print(w io.Writer, launched int) {
	fmt.Fprintf(w, "launched=%d ok=%d busy=%d none=%d timeout=%d err=%d elapsed=%s\n",
		launched, t.ok, t.busy, t.none, t.timedOut, t.failed, t.elapsed)
}

func runWithOptions(ctx context.Context, opts stressOptions, newClient func() singleinstance.Client) *tally {
	if ctx == nil {
		ctx = context.Background()
	}
	t := &tally{}
	var wg sync.WaitGroup
	start := time.Now()
	for i := 0; i < opts.n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(ctx, opts.deadline)
			defer cancel()
			delegated, _, err := newClient().TryCapture(ctx)
			t.add(delegated, err)
		}()
	}
	wg.Wait()
	t.elapsed = time.Since(start)
	return t
}
