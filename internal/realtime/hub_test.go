package realtime

import (
	"context"
	"testing"
	"time"
)

func TestHubWakesOnlyMatchingChannel(t *testing.T) {
	h := NewHub(nil)
	a, unsubA := h.Subscribe("poll:user:a")
	defer unsubA()
	b, unsubB := h.Subscribe("poll:user:b")
	defer unsubB()

	h.Wake("poll:user:a")

	select {
	case <-a:
	case <-time.After(time.Second):
		t.Fatalf("subscriber a not woken")
	}
	select {
	case <-b:
		t.Fatalf("subscriber b woken for another channel")
	default:
	}
}

func TestHubCoalescesSignals(t *testing.T) {
	h := NewHub(nil)
	ch, unsub := h.Subscribe("c")
	defer unsub()

	h.Wake("c")
	h.Wake("c")
	h.Wake("c")

	<-ch
	select {
	case <-ch:
		t.Fatalf("expected a single pending signal")
	default:
	}
}

func TestHubUnsubscribeIsIdempotent(t *testing.T) {
	h := NewHub(nil)
	_, unsub := h.Subscribe("c")
	_, unsub2 := h.Subscribe("c")
	if n := h.Waiters("c"); n != 2 {
		t.Fatalf("waiters: got=%d want=2", n)
	}
	unsub()
	unsub()
	if n := h.Waiters("c"); n != 1 {
		t.Fatalf("waiters: got=%d want=1", n)
	}
	unsub2()
	if n := h.Waiters("c"); n != 0 {
		t.Fatalf("waiters: got=%d want=0", n)
	}
	h.Wake("c")
}

type fakeBus struct {
	published []string
	err       error
}

func (b *fakeBus) Publish(_ context.Context, channel string) error {
	b.published = append(b.published, channel)
	return b.err
}

func (b *fakeBus) StartForwarder(context.Context, func(string)) error { return nil }

func TestNotifierWithoutBusWakesLocally(t *testing.T) {
	n := NewNotifier(nil, NewHub(nil), nil)
	ch, unsub := n.Subscribe("c")
	defer unsub()

	n.Notify(context.Background(), "c")
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatalf("local waiter not woken")
	}
}

func TestNotifierFallsBackWhenBusFails(t *testing.T) {
	bus := &fakeBus{err: context.DeadlineExceeded}
	n := NewNotifier(nil, NewHub(nil), bus)
	ch, unsub := n.Subscribe("c")
	defer unsub()

	n.Notify(context.Background(), "c")
	if len(bus.published) != 1 {
		t.Fatalf("bus publish not attempted")
	}
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatalf("local waiter not woken after bus failure")
	}
}
