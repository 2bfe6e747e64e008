// Package events is the process-local broadcast bus.
package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const DefaultSendTimeout = time.Second

var ErrShutdown = errors.New("event bus is shutting down")

type subscriber struct {
	ch     chan Message
	name   string
	active bool
}

// Bus fans each published message out to every subscriber. A subscriber that
// stays full for longer than the send timeout misses that message.
type Bus struct {
	mu          sync.RWMutex
	subs        map[string]*subscriber
	ctx         context.Context
	cancel      context.CancelFunc
	sendTimeout time.Duration
}

func NewBus() *Bus {
	ctx, cancel := context.WithCancel(context.Background())
	return &Bus{
		subs:        make(map[string]*subscriber),
		ctx:         ctx,
		cancel:      cancel,
		sendTimeout: DefaultSendTimeout,
	}
}

// SetSendTimeout changes how long Publish waits on one full subscriber.
func (b *Bus) SetSendTimeout(d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if d > 0 {
		b.sendTimeout = d
	}
}

// Subscribe registers name and returns its receive channel.
func (b *Bus) Subscribe(name string, buffer int) (<-chan Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.ctx.Err() != nil {
		return nil, ErrShutdown
	}
	if _, exists := b.subs[name]; exists {
		return nil, fmt.Errorf("subscriber %s already registered", name)
	}
	ch := make(chan Message, buffer)
	b.subs[name] = &subscriber{ch: ch, name: name, active: true}
	slog.Debug("Events: subscribed", "name", name, "buffer", buffer)
	return ch, nil
}

// Unsubscribe closes the subscriber's channel.
func (b *Bus) Unsubscribe(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if s, exists := b.subs[name]; exists {
		s.active = false
		close(s.ch)
		delete(b.subs, name)
		slog.Debug("Events: unsubscribed", "name", name)
	}
}

// Publish delivers msg to every active subscriber and returns how many
// received it.
func (b *Bus) Publish(msg Message) (int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.ctx.Err() != nil {
		return 0, ErrShutdown
	}
	slog.Debug("Events: publish", "type", msg.Type(), "subscribers", len(b.subs))

	delivered := 0
	var missed []string
	for name, s := range b.subs {
		if !s.active {
			continue
		}
		timer := time.NewTimer(b.sendTimeout)
		select {
		case s.ch <- msg:
			delivered++
		case <-timer.C:
			missed = append(missed, name)
		case <-b.ctx.Done():
			timer.Stop()
			return delivered, ErrShutdown
		}
		timer.Stop()
	}
	if len(missed) > 0 {
		slog.Warn("Events: delivery timed out", "type", msg.Type(), "subscribers", missed)
	}
	return delivered, nil
}

func (b *Bus) Subscribers() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	names := make([]string, 0, len(b.subs))
	for name := range b.subs {
		names = append(names, name)
	}
	return names
}

// Shutdown stops delivery and closes every subscriber channel.
func (b *Bus) Shutdown() {
	b.cancel()

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, s := range b.subs {
		if s.active {
			s.active = false
			close(s.ch)
		}
	}
	b.subs = make(map[string]*subscriber)
	slog.Debug("Events: shutdown complete")
}

// WaitFor reads ch until a message of msgType arrives or timeout elapses.
func WaitFor(ch <-chan Message, msgType string, timeout time.Duration) (Message, error) {
	deadline := time.After(timeout)
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return nil, ErrShutdown
			}
			if msg.Type() == msgType {
				return msg, nil
			}
		case <-deadline:
			return nil, fmt.Errorf("timeout waiting for %s", msgType)
		}
	}
}
