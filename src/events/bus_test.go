package events

import (
	"errors"
	"testing"
	"time"
)

func TestPublishFansOut(t *testing.T) {
	b := NewBus()
	defer b.Shutdown()

	a, err := b.Subscribe("a", 1)
	if err != nil {
		t.Fatal(err)
	}
	c, err := b.Subscribe("c", 1)
	if err != nil {
		t.Fatal(err)
	}

	n, err := b.Publish(CaptureCompleted{RunID: "r1", FromOverlay: true})
	if err != nil || n != 2 {
		t.Fatalf("Publish() = %d, %v; want 2, nil", n, err)
	}
	for _, ch := range []<-chan Message{a, c} {
		msg, err := WaitFor(ch, TypeCaptureCompleted, time.Second)
		if err != nil {
			t.Fatal(err)
		}
		got := msg.(CaptureCompleted)
		if got.RunID != "r1" || !got.FromOverlay {
			t.Errorf("unexpected message %+v", got)
		}
	}
}

func TestDuplicateSubscribe(t *testing.T) {
	b := NewBus()
	defer b.Shutdown()
	if _, err := b.Subscribe("x", 0); err != nil {
		t.Fatal(err)
	}
	if _, err := b.Subscribe("x", 0); err == nil {
		t.Error("expected duplicate subscription to fail")
	}
}

func TestFullSubscriberIsSkipped(t *testing.T) {
	b := NewBus()
	defer b.Shutdown()
	b.SetSendTimeout(10 * time.Millisecond)

	slow, _ := b.Subscribe("slow", 0)
	_ = slow
	fast, _ := b.Subscribe("fast", 1)

	n, err := b.Publish(OverlayToggled{Enabled: false})
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("delivered = %d, want 1", n)
	}
	if _, err := WaitFor(fast, TypeOverlayToggled, time.Second); err != nil {
		t.Error(err)
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	b := NewBus()
	defer b.Shutdown()
	ch, _ := b.Subscribe("gone", 1)
	b.Unsubscribe("gone")
	if _, ok := <-ch; ok {
		t.Error("channel should be closed")
	}
	b.Unsubscribe("gone")
}

func TestShutdown(t *testing.T) {
	b := NewBus()
	ch, _ := b.Subscribe("s", 1)
	b.Shutdown()

	if _, ok := <-ch; ok {
		t.Error("channel should be closed after shutdown")
	}
	if _, err := b.Publish(RunFinished{}); !errors.Is(err, ErrShutdown) {
		t.Errorf("Publish after shutdown = %v, want ErrShutdown", err)
	}
	if _, err := b.Subscribe("late", 1); !errors.Is(err, ErrShutdown) {
		t.Errorf("Subscribe after shutdown = %v, want ErrShutdown", err)
	}
}

func TestWaitForTimeout(t *testing.T) {
	ch := make(chan Message, 1)
	ch <- RunFinished{}
	if _, err := WaitFor(ch, TypeCaptureCompleted, 20*time.Millisecond); err == nil {
		t.Error("expected timeout")
	}
}
