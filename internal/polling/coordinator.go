package polling

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/yungbote/ordersignal-backend/internal/domain/events"
	"github.com/yungbote/ordersignal-backend/internal/platform/apierr"
	"github.com/yungbote/ordersignal-backend/internal/platform/logger"
)

var (
	ErrUnauthorized = apierr.New(http.StatusUnauthorized, "unauthorized", errors.New("unauthorized access"))
	ErrForbidden    = apierr.New(http.StatusForbidden, "forbidden", errors.New("admin access required"))
)

// Waiter lets a long-poller park until a publisher touches its channel.
type Waiter interface {
	Subscribe(channel string) (<-chan struct{}, func())
}

// Scope selects which endpoint semantics a poll uses.
type Scope string

const (
	ScopeUser  Scope = "user"
	ScopeAdmin Scope = "admin"
	ScopeTyped Scope = "typed"
)

type Identity struct {
	UserID  string
	IsAdmin bool
}

type PollRequest struct {
	Scope       Scope
	EventType   events.EventType
	LastEventID string
	LongPoll    bool
}

type PollResponse struct {
	Events       []events.Event `json:"events"`
	LastEventID  string         `json:"lastEventId"`
	PollInterval int64          `json:"pollInterval"`
	HasMore      bool           `json:"hasMore"`
}

type CoordinatorConfig struct {
	MaxPage int
	// LongPollTimeout bounds a single long-poll request.
	LongPollTimeout time.Duration
	// RetryInterval is how often a parked poller re-reads the store.
	RetryInterval time.Duration
	// Client hints, in milliseconds.
	ShortPollIntervalMs int64
	LongPollIntervalMs  int64
}

func (c CoordinatorConfig) withDefaults() CoordinatorConfig {
	if c.MaxPage <= 0 {
		c.MaxPage = DefaultMaxPage
	}
	if c.LongPollTimeout <= 0 {
		c.LongPollTimeout = 25 * time.Second
	}
	if c.RetryInterval <= 0 {
		c.RetryInterval = time.Second
	}
	if c.ShortPollIntervalMs <= 0 {
		c.ShortPollIntervalMs = 5000
	}
	if c.LongPollIntervalMs <= 0 {
		c.LongPollIntervalMs = 30000
	}
	return c
}

// Coordinator serves cursor based reads, optionally holding the request
// open until events arrive or the long-poll budget runs out.
type Coordinator struct {
	log     *logger.Logger
	store   Store
	waiter  Waiter
	metrics Metrics
	cfg     CoordinatorConfig
}

func NewCoordinator(log *logger.Logger, store Store, waiter Waiter, metrics Metrics, cfg CoordinatorConfig) *Coordinator {
	if log == nil {
		log = logger.Nop()
	}
	return &Coordinator{
		log:     log.With("service", "LongPollCoordinator"),
		store:   store,
		waiter:  waiter,
		metrics: metricsOrNop(metrics),
		cfg:     cfg.withDefaults(),
	}
}

// Poll authorizes the request, reads the selected channel and, when asked to
// and nothing is there yet, waits. A cancelled ctx ends the wait promptly and
// is returned as the error.
func (c *Coordinator) Poll(ctx context.Context, id Identity, req PollRequest) (*PollResponse, error) {
	start := time.Now()
	channel, filter, err := c.resolve(id, req)
	if err != nil {
		c.metrics.ObservePoll(string(req.Scope), pollMode(req.LongPoll), "rejected", 0, time.Since(start))
		return nil, err
	}

	evs := c.read(ctx, channel, req.LastEventID, filter)
	if len(evs) == 0 && req.LongPoll {
		evs, err = c.wait(ctx, channel, req.LastEventID, filter)
		if err != nil {
			c.metrics.ObservePoll(string(req.Scope), pollMode(req.LongPoll), "cancelled", 0, time.Since(start))
			return nil, err
		}
	}

	outcome := "empty"
	if len(evs) > 0 {
		outcome = "events"
	}
	c.metrics.ObservePoll(string(req.Scope), pollMode(req.LongPoll), outcome, len(evs), time.Since(start))
	return c.buildResponse(evs, req.LastEventID, req.LongPoll), nil
}

func (c *Coordinator) resolve(id Identity, req PollRequest) (string, events.EventType, error) {
	if id.UserID == "" {
		return "", "", ErrUnauthorized
	}
	switch req.Scope {
	case ScopeAdmin:
		if !id.IsAdmin {
			return "", "", ErrForbidden
		}
		return AdminChannel, "", nil
	case ScopeUser, "":
		return UserChannel(id.UserID), "", nil
	case ScopeTyped:
		if !req.EventType.IsValid() {
			return "", "", apierr.Validation("invalid event type %q", req.EventType)
		}
		if req.EventType.IsAdminScoped() {
			if !id.IsAdmin {
				return "", "", ErrForbidden
			}
			return AdminChannel, req.EventType, nil
		}
		return UserChannel(id.UserID), req.EventType, nil
	default:
		return "", "", apierr.Validation("unknown poll scope %q", req.Scope)
	}
}

// read degrades store failures to an empty result; pollers simply re-poll.
func (c *Coordinator) read(ctx context.Context, channel, cursor string, filter events.EventType) []events.Event {
	evs, err := c.store.Read(ctx, channel, cursor, filter)
	if err != nil {
		if ctx.Err() == nil {
			c.metrics.IncStoreError("read")
			c.log.Error("Failed to retrieve events", "channel", channel, "error", err)
		}
		return nil
	}
	return evs
}

func (c *Coordinator) wait(ctx context.Context, channel, cursor string, filter events.EventType) ([]events.Event, error) {
	budget := time.NewTimer(c.cfg.LongPollTimeout)
	defer budget.Stop()
	ticker := time.NewTicker(c.cfg.RetryInterval)
	defer ticker.Stop()

	var wake <-chan struct{}
	if c.waiter != nil {
		ch, unsubscribe := c.waiter.Subscribe(channel)
		defer unsubscribe()
		wake = ch
	}

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-budget.C:
			return nil, nil
		case <-ticker.C:
		case <-wake:
		}
		if evs := c.read(ctx, channel, cursor, filter); len(evs) > 0 {
			return evs, nil
		}
	}
}

func (c *Coordinator) buildResponse(evs []events.Event, cursor string, longPoll bool) *PollResponse {
	if evs == nil {
		evs = []events.Event{}
	}
	last := cursor
	if len(evs) > 0 {
		last = evs[len(evs)-1].EventID
	}
	interval := c.cfg.ShortPollIntervalMs
	if longPoll {
		interval = c.cfg.LongPollIntervalMs
	}
	return &PollResponse{
		Events:       evs,
		LastEventID:  last,
		PollInterval: interval,
		HasMore:      len(evs) >= c.cfg.MaxPage,
	}
}

func pollMode(longPoll bool) string {
	if longPoll {
		return "long"
	}
	return "immediate"
}
