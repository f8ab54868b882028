package polling

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/ordersignal-backend/internal/domain/events"
	"github.com/yungbote/ordersignal-backend/internal/platform/apierr"
	"github.com/yungbote/ordersignal-backend/internal/platform/logger"
)

// Signaler wakes long-pollers parked on a channel after an append.
type Signaler interface {
	Notify(ctx context.Context, channel string)
}

type PublisherConfig struct {
	DefaultTTLSeconds int64
	Now               func() time.Time
	NewID             func() string
}

// GenericEventRequest publishes an arbitrary event type. UserID selects the
// user's channel; without it the event goes to the admin channel.
type GenericEventRequest struct {
	EventType  events.EventType `json:"eventType" binding:"required"`
	Action     events.Action    `json:"action" binding:"required"`
	EntityID   string           `json:"entityId" binding:"required"`
	EntityType string           `json:"entityType" binding:"required"`
	UserID     string           `json:"userId,omitempty"`
	Metadata   map[string]any   `json:"metadata"`
}

type Publisher struct {
	log     *logger.Logger
	store   Store
	signal  Signaler
	metrics Metrics
	cfg     PublisherConfig
}

func NewPublisher(log *logger.Logger, store Store, signal Signaler, metrics Metrics, cfg PublisherConfig) *Publisher {
	if log == nil {
		log = logger.Nop()
	}
	if cfg.DefaultTTLSeconds <= 0 {
		cfg.DefaultTTLSeconds = DefaultTTLSeconds
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.NewID == nil {
		cfg.NewID = func() string { return uuid.New().String() }
	}
	return &Publisher{
		log:     log.With("service", "EventPublisher"),
		store:   store,
		signal:  signal,
		metrics: metricsOrNop(metrics),
		cfg:     cfg,
	}
}

func (p *Publisher) PublishOrderStatusChange(ctx context.Context, orderID, userID, newStatus string) (*events.Event, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, apierr.Validation("userId is required")
	}
	ev := p.newEvent(events.CustomerOrderStatus, events.Refresh, orderID, events.OrderStatusMetadata{
		OrderID: orderID,
		Status:  newStatus,
	})
	return p.publish(ctx, UserChannel(userID), ev)
}

func (p *Publisher) PublishNewOrderForAdmin(ctx context.Context, orderID, customerName, totalAmount string) (*events.Event, error) {
	ev := p.newEvent(events.AdminNewOrder, events.FetchNew, orderID, nil)
	ev.Metadata = events.NewOrderMetadata{
		OrderID:      orderID,
		CustomerName: customerName,
		TotalAmount:  totalAmount,
		PlacedAt:     ev.Timestamp.Format(time.RFC3339),
	}
	return p.publish(ctx, AdminChannel, ev)
}

func (p *Publisher) PublishOrderUpdateForAdmin(ctx context.Context, orderID, updateType string, details map[string]any) (*events.Event, error) {
	merged := make(map[string]any, len(details))
	for k, v := range details {
		if k == "orderId" || k == "updateType" {
			continue
		}
		merged[k] = v
	}
	ev := p.newEvent(events.AdminOrderUpdate, events.UpdatePartial, orderID, events.OrderUpdateMetadata{
		OrderID:    orderID,
		UpdateType: updateType,
		Details:    merged,
	})
	return p.publish(ctx, AdminChannel, ev)
}

func (p *Publisher) PublishGeneric(ctx context.Context, req GenericEventRequest) (*events.Event, error) {
	if !req.EventType.IsValid() || !req.Action.IsValid() {
		return nil, apierr.Validation("invalid event type or action")
	}
	meta, err := events.MetadataFromMap(req.EventType, req.Metadata)
	if err != nil {
		return nil, apierr.Validation("invalid metadata for %s: %v", req.EventType, err)
	}
	ev := p.newEvent(req.EventType, req.Action, req.EntityID, meta)
	ev.EntityType = req.EntityType

	channel := AdminChannel
	if strings.TrimSpace(req.UserID) != "" {
		channel = UserChannel(req.UserID)
	}
	return p.publish(ctx, channel, ev)
}

func (p *Publisher) newEvent(t events.EventType, action events.Action, entityID string, meta events.Metadata) events.Event {
	return events.Event{
		EventID:    p.cfg.NewID(),
		EventType:  t,
		Action:     action,
		EntityID:   entityID,
		EntityType: events.EntityTypeOrder,
		Metadata:   meta,
		Timestamp:  p.cfg.Now().UTC(),
		TTL:        p.cfg.DefaultTTLSeconds,
	}
}

func (p *Publisher) publish(ctx context.Context, channel string, ev events.Event) (*events.Event, error) {
	if err := p.store.Append(ctx, channel, ev); err != nil {
		p.metrics.IncEventPublished(ev.EventType.String(), "error")
		p.metrics.IncStoreError("append")
		p.log.Error("Failed to publish event", "event_id", ev.EventID, "event_type", ev.EventType, "channel", channel, "error", err)
		return nil, fmt.Errorf("publish %s: %w", ev.EventType, err)
	}
	p.metrics.IncEventPublished(ev.EventType.String(), "ok")
	p.log.Debug("Event published", "event_id", ev.EventID, "event_type", ev.EventType, "channel", channel)
	if p.signal != nil {
		p.signal.Notify(ctx, channel)
	}
	return &ev, nil
}
