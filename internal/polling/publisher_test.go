package polling

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/yungbote/ordersignal-backend/internal/domain/events"
	"github.com/yungbote/ordersignal-backend/internal/platform/apierr"
)

type recordingSignaler struct {
	mu       sync.Mutex
	channels []string
}

func (r *recordingSignaler) Notify(_ context.Context, channel string) {
	r.mu.Lock()
	r.channels = append(r.channels, channel)
	r.mu.Unlock()
}

type failingStore struct{ err error }

func (s failingStore) Append(context.Context, string, events.Event) error { return s.err }
func (s failingStore) Read(context.Context, string, string, events.EventType) ([]events.Event, error) {
	return nil, s.err
}
func (s failingStore) Ping(context.Context) error { return s.err }

func TestPublishOrderStatusChangeTargetsUserChannel(t *testing.T) {
	sig := &recordingSignaler{}
	f := newFixture(t, sig)

	ev, err := f.pub.PublishOrderStatusChange(context.Background(), "order-9", "u42", "SHIPPED")
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if ev.EventType != events.CustomerOrderStatus || ev.Action != events.Refresh {
		t.Fatalf("unexpected event: type=%s action=%s", ev.EventType, ev.Action)
	}
	if ev.EntityID != "order-9" || ev.EntityType != events.EntityTypeOrder {
		t.Fatalf("unexpected entity: %s/%s", ev.EntityType, ev.EntityID)
	}
	if ev.TTL != DefaultTTLSeconds {
		t.Fatalf("ttl: got=%d want=%d", ev.TTL, DefaultTTLSeconds)
	}
	if n, _ := f.rdb.ZCard(context.Background(), "poll:user:u42").Result(); n != 1 {
		t.Fatalf("user channel size: got=%d want=1", n)
	}
	if len(sig.channels) != 1 || sig.channels[0] != "poll:user:u42" {
		t.Fatalf("notify: got=%v", sig.channels)
	}
}

func TestPublishOrderStatusChangeRequiresUser(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.pub.PublishOrderStatusChange(context.Background(), "order-9", " ", "SHIPPED")
	ae, ok := apierr.As(err)
	if !ok || ae.Status != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestPublishNewOrderForAdmin(t *testing.T) {
	sig := &recordingSignaler{}
	f := newFixture(t, sig)

	ev, err := f.pub.PublishNewOrderForAdmin(context.Background(), "order-1", "Ann Smith", "129.99")
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	meta, ok := ev.Metadata.(events.NewOrderMetadata)
	if !ok {
		t.Fatalf("metadata type: %T", ev.Metadata)
	}
	if meta.CustomerName != "Ann Smith" || meta.TotalAmount != "129.99" || meta.PlacedAt == "" {
		t.Fatalf("metadata: %+v", meta)
	}
	if ev.Action != events.FetchNew {
		t.Fatalf("action: got=%s", ev.Action)
	}
	if len(sig.channels) != 1 || sig.channels[0] != AdminChannel {
		t.Fatalf("notify: got=%v", sig.channels)
	}
}

func TestPublishOrderUpdateKeepsReservedFields(t *testing.T) {
	f := newFixture(t, nil)

	ev, err := f.pub.PublishOrderUpdateForAdmin(context.Background(), "order-1", "PAYMENT", map[string]any{
		"orderId":    "spoofed",
		"updateType": "spoofed",
		"amount":     "12.00",
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	meta := ev.Metadata.(events.OrderUpdateMetadata)
	if meta.OrderID != "order-1" || meta.UpdateType != "PAYMENT" {
		t.Fatalf("reserved fields overwritten: %+v", meta)
	}
	if meta.Details["amount"] != "12.00" {
		t.Fatalf("details lost: %+v", meta.Details)
	}
}

func TestPublishGenericRoutesByUser(t *testing.T) {
	sig := &recordingSignaler{}
	f := newFixture(t, sig)
	ctx := context.Background()

	_, err := f.pub.PublishGeneric(ctx, GenericEventRequest{
		EventType:  events.InventoryUpdate,
		Action:     events.Refresh,
		EntityID:   "sku-1",
		EntityType: "PRODUCT",
		Metadata:   map[string]any{"stock": 3},
	})
	if err != nil {
		t.Fatalf("publish admin: %v", err)
	}
	ev, err := f.pub.PublishGeneric(ctx, GenericEventRequest{
		EventType:  events.PaymentStatus,
		Action:     events.UpdatePartial,
		EntityID:   "order-1",
		EntityType: "ORDER",
		UserID:     "u1",
	})
	if err != nil {
		t.Fatalf("publish user: %v", err)
	}
	if ev.EntityType != "ORDER" {
		t.Fatalf("entity type: got=%s", ev.EntityType)
	}
	want := []string{AdminChannel, UserChannel("u1")}
	if len(sig.channels) != 2 || sig.channels[0] != want[0] || sig.channels[1] != want[1] {
		t.Fatalf("notify: got=%v want=%v", sig.channels, want)
	}
}

func TestPublishGenericRejectsUnknownType(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.pub.PublishGeneric(context.Background(), GenericEventRequest{
		EventType: "NOPE",
		Action:    events.Refresh,
		EntityID:  "x",
	})
	if ae, ok := apierr.As(err); !ok || ae.Status != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestPublishPropagatesStoreFailure(t *testing.T) {
	boom := errors.New("redis down")
	sig := &recordingSignaler{}
	pub := NewPublisher(nil, failingStore{err: boom}, sig, nil, PublisherConfig{})

	_, err := pub.PublishNewOrderForAdmin(context.Background(), "order-1", "Ann", "1.00")
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
	if len(sig.channels) != 0 {
		t.Fatalf("notified despite failed append: %v", sig.channels)
	}
}
