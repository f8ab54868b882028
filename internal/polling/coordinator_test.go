package polling

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/yungbote/ordersignal-backend/internal/domain/events"
	"github.com/yungbote/ordersignal-backend/internal/platform/apierr"
	"github.com/yungbote/ordersignal-backend/internal/realtime"
)

var (
	admin = Identity{UserID: "admin-1", IsAdmin: true}
	user  = Identity{UserID: "u1"}
)

func TestPollAdminSeesNewOrder(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	coord := NewCoordinator(nil, f.store, nil, nil, CoordinatorConfig{})

	ev, err := f.pub.PublishNewOrderForAdmin(ctx, "order-1", "Ann", "42.50")
	if err != nil {
		t.Fatalf("publish: %v", err)
	}

	resp, err := coord.Poll(ctx, admin, PollRequest{Scope: ScopeAdmin})
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if len(resp.Events) != 1 || resp.Events[0].EventID != ev.EventID {
		t.Fatalf("events: got=%v", ids(resp.Events))
	}
	if resp.LastEventID != ev.EventID {
		t.Fatalf("lastEventId: got=%q want=%q", resp.LastEventID, ev.EventID)
	}
	if resp.PollInterval != 5000 || resp.HasMore {
		t.Fatalf("hints: interval=%d hasMore=%v", resp.PollInterval, resp.HasMore)
	}
}

func TestPollUserResumesFromCursor(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	coord := NewCoordinator(nil, f.store, nil, nil, CoordinatorConfig{})

	first, _ := f.pub.PublishOrderStatusChange(ctx, "order-1", "u1", "PAID")
	f.clock.Advance(5 * time.Second)
	second, _ := f.pub.PublishOrderStatusChange(ctx, "order-1", "u1", "SHIPPED")

	resp, err := coord.Poll(ctx, user, PollRequest{Scope: ScopeUser, LastEventID: first.EventID})
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if len(resp.Events) != 1 || resp.LastEventID != second.EventID {
		t.Fatalf("got=%v last=%q", ids(resp.Events), resp.LastEventID)
	}
}

func TestPollEmptyKeepsCursor(t *testing.T) {
	f := newFixture(t, nil)
	coord := NewCoordinator(nil, f.store, nil, nil, CoordinatorConfig{})

	resp, err := coord.Poll(context.Background(), user, PollRequest{Scope: ScopeUser, LastEventID: "abc"})
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if resp.Events == nil || len(resp.Events) != 0 {
		t.Fatalf("events should be an empty slice, got %#v", resp.Events)
	}
	if resp.LastEventID != "abc" {
		t.Fatalf("lastEventId: got=%q", resp.LastEventID)
	}
}

func TestPollHasMoreOnFullPage(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	coord := NewCoordinator(nil, f.store, nil, nil, CoordinatorConfig{})

	for i := 0; i < DefaultMaxPage+5; i++ {
		_, _ = f.pub.PublishOrderStatusChange(ctx, "order-1", "u1", "PAID")
		f.clock.Advance(time.Millisecond)
	}
	resp, err := coord.Poll(ctx, user, PollRequest{Scope: ScopeUser})
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if len(resp.Events) != DefaultMaxPage || !resp.HasMore {
		t.Fatalf("got=%d hasMore=%v", len(resp.Events), resp.HasMore)
	}
}

func TestPollAuthorization(t *testing.T) {
	f := newFixture(t, nil)
	coord := NewCoordinator(nil, f.store, nil, nil, CoordinatorConfig{})

	cases := []struct {
		name   string
		id     Identity
		req    PollRequest
		status int
	}{
		{"anonymous", Identity{}, PollRequest{Scope: ScopeUser}, http.StatusUnauthorized},
		{"user on admin scope", user, PollRequest{Scope: ScopeAdmin}, http.StatusForbidden},
		{"user on admin type", user, PollRequest{Scope: ScopeTyped, EventType: events.AdminNewOrder}, http.StatusForbidden},
		{"invalid type", user, PollRequest{Scope: ScopeTyped, EventType: "BOGUS"}, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := coord.Poll(context.Background(), tc.id, tc.req)
			ae, ok := apierr.As(err)
			if !ok || ae.Status != tc.status {
				t.Fatalf("got err=%v want status %d", err, tc.status)
			}
		})
	}
}

func TestPollTypedUserEventReadsOwnChannel(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	coord := NewCoordinator(nil, f.store, nil, nil, CoordinatorConfig{})

	_, _ = f.pub.PublishOrderStatusChange(ctx, "order-1", "u1", "PAID")
	_, _ = f.pub.PublishOrderStatusChange(ctx, "order-2", "someone-else", "PAID")

	resp, err := coord.Poll(ctx, user, PollRequest{Scope: ScopeTyped, EventType: events.CustomerOrderStatus})
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if len(resp.Events) != 1 || resp.Events[0].EntityID != "order-1" {
		t.Fatalf("got=%v", ids(resp.Events))
	}
}

func TestLongPollTimesOutEmpty(t *testing.T) {
	f := newFixture(t, nil)
	coord := NewCoordinator(nil, f.store, nil, nil, CoordinatorConfig{
		LongPollTimeout: 200 * time.Millisecond,
		RetryInterval:   50 * time.Millisecond,
	})

	start := time.Now()
	resp, err := coord.Poll(context.Background(), user, PollRequest{Scope: ScopeUser, LongPoll: true})
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 200*time.Millisecond {
		t.Fatalf("returned before the budget elapsed: %s", elapsed)
	}
	if len(resp.Events) != 0 || resp.PollInterval != 30000 || resp.HasMore {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestLongPollPicksUpEventOnRetry(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	coord := NewCoordinator(nil, f.store, nil, nil, CoordinatorConfig{
		LongPollTimeout: 5 * time.Second,
		RetryInterval:   20 * time.Millisecond,
	})

	go func() {
		time.Sleep(60 * time.Millisecond)
		_, _ = f.pub.PublishOrderStatusChange(ctx, "order-1", "u1", "PAID")
	}()

	resp, err := coord.Poll(ctx, user, PollRequest{Scope: ScopeUser, LongPoll: true})
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if len(resp.Events) != 1 {
		t.Fatalf("got=%v", ids(resp.Events))
	}
}

func TestLongPollWokenByNotifier(t *testing.T) {
	hub := realtime.NewHub(nil)
	notifier := realtime.NewNotifier(nil, hub, nil)
	f := newFixture(t, notifier)
	ctx := context.Background()
	coord := NewCoordinator(nil, f.store, notifier, nil, CoordinatorConfig{
		LongPollTimeout: 5 * time.Second,
		RetryInterval:   time.Hour,
	})

	type result struct {
		resp *PollResponse
		err  error
	}
	done := make(chan result, 1)
	go func() {
		resp, err := coord.Poll(ctx, admin, PollRequest{Scope: ScopeAdmin, LongPoll: true})
		done <- result{resp, err}
	}()

	deadline := time.Now().Add(2 * time.Second)
	for hub.Waiters(AdminChannel) == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("poller never parked")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if _, err := f.pub.PublishNewOrderForAdmin(ctx, "order-7", "Bo", "5.00"); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case r := <-done:
		if r.err != nil {
			t.Fatalf("poll: %v", r.err)
		}
		if len(r.resp.Events) != 1 || r.resp.Events[0].EntityID != "order-7" {
			t.Fatalf("got=%v", ids(r.resp.Events))
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("poller was not woken")
	}
	if n := hub.Waiters(AdminChannel); n != 0 {
		t.Fatalf("subscription leaked: waiters=%d", n)
	}
}

func TestLongPollHonoursCancellation(t *testing.T) {
	f := newFixture(t, nil)
	coord := NewCoordinator(nil, f.store, nil, nil, CoordinatorConfig{
		LongPollTimeout: 10 * time.Second,
		RetryInterval:   time.Hour,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := coord.Poll(ctx, user, PollRequest{Scope: ScopeUser, LongPoll: true})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestPollDegradesStoreErrorsToEmpty(t *testing.T) {
	coord := NewCoordinator(nil, failingStore{err: errors.New("redis down")}, nil, nil, CoordinatorConfig{})

	resp, err := coord.Poll(context.Background(), user, PollRequest{Scope: ScopeUser, LastEventID: "c1"})
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if len(resp.Events) != 0 || resp.LastEventID != "c1" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}
