package rigging

import (
	"context"
	"testing"
	"time"
)

func TestSignal_NotifySubscriber(t *testing.T) {
	var s Signal
	ch := s.Subscriber()

	if err := s.Notify(context.Background()); err != nil {
		t.Fatalf("Failed to notify: %v", err)
	}

	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("Expected a tick after Notify")
	}
}

func TestSignal_CoalescesWhenUndrained(t *testing.T) {
	var s Signal
	ch := s.Subscriber()

	for i := 0; i < 3; i++ {
		if err := s.Notify(context.Background()); err != nil {
			t.Fatalf("Failed to notify: %v", err)
		}
	}

	<-ch
	select {
	case <-ch:
		t.Fatal("Expected undrained ticks to coalesce into one")
	default:
	}
}

func TestSignal_NotifyCanceledContext(t *testing.T) {
	var s Signal
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := s.Notify(ctx); err == nil {
		t.Fatal("Expected context error from canceled Notify")
	}
}

func TestSignal_Close(t *testing.T) {
	var s Signal
	ch := s.Subscriber()

	s.Close()
	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("Expected closed channel, got a tick")
		}
	case <-time.After(time.Second):
		t.Fatal("Expected subscriber channel to close")
	}

	if err := s.Notify(context.Background()); err != nil {
		t.Fatalf("Expected Notify after Close to be a no-op, got %v", err)
	}

	late := s.Subscriber()
	if _, ok := <-late; ok {
		t.Fatal("Expected post-Close subscriber to be already closed")
	}

	s.Close()
}
