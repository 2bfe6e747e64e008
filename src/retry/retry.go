// Package retry implements a bounded-attempt, fixed-delay polling policy.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var ErrExhausted = errors.New("retry attempts exhausted")

// Policy polls at most MaxAttempts times, sleeping Delay between attempts.
type Policy struct {
	MaxAttempts int
	Delay       time.Duration
}

// DefaultPolicy matches the frame acquisition budget: 10 polls, 100ms apart.
var DefaultPolicy = Policy{MaxAttempts: 10, Delay: 100 * time.Millisecond}

func (p Policy) attempts() int {
	if p.MaxAttempts <= 0 {
		return 1
	}
	return p.MaxAttempts
}

// Poll calls fn until it reports ready, returns an error, ctx ends, or the
// attempt budget runs out. Attempts are numbered from 1. There is no delay
// after the final attempt.
func Poll[T any](ctx context.Context, p Policy, fn func(attempt int) (T, bool, error)) (T, error) {
	var zero T
	n := p.attempts()
	for attempt := 1; attempt <= n; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		v, ready, err := fn(attempt)
		if err != nil {
			return zero, err
		}
		if ready {
			return v, nil
		}
		if attempt == n {
			break
		}
		if p.Delay > 0 {
			t := time.NewTimer(p.Delay)
			select {
			case <-ctx.Done():
				t.Stop()
				return zero, ctx.Err()
			case <-t.C:
			}
		}
	}
	return zero, fmt.Errorf("%w after %d attempts", ErrExhausted, n)
}
