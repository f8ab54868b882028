package realtime

import (
	"strings"
	"sync"

	"github.com/yungbote/ordersignal-backend/internal/platform/logger"
)

type subscriber struct {
	wake chan struct{}
}

// Hub fans wake-up signals out to the long-pollers waiting on a channel.
// Signals coalesce: a waiter that has not consumed the previous signal does
// not get a second one.
type Hub struct {
	mu            sync.RWMutex
	log           *logger.Logger
	subscriptions map[string]map[*subscriber]struct{}
}

func NewHub(log *logger.Logger) *Hub {
	if log == nil {
		log = logger.Nop()
	}
	return &Hub{
		log:           log.With("component", "PollWakeHub"),
		subscriptions: make(map[string]map[*subscriber]struct{}),
	}
}

// Subscribe registers interest in channel. The returned func must be called
// once the caller stops waiting.
func (h *Hub) Subscribe(channel string) (<-chan struct{}, func()) {
	channel = strings.TrimSpace(channel)
	sub := &subscriber{wake: make(chan struct{}, 1)}

	h.mu.Lock()
	subs, ok := h.subscriptions[channel]
	if !ok {
		subs = make(map[*subscriber]struct{})
		h.subscriptions[channel] = subs
	}
	subs[sub] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return sub.wake, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if subs, ok := h.subscriptions[channel]; ok {
				delete(subs, sub)
				if len(subs) == 0 {
					delete(h.subscriptions, channel)
				}
			}
		})
	}
}

// Wake signals every waiter on channel without blocking.
func (h *Hub) Wake(channel string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subscriptions[strings.TrimSpace(channel)] {
		select {
		case sub.wake <- struct{}{}:
		default:
		}
	}
}

// Waiters reports how many pollers are parked on channel.
func (h *Hub) Waiters(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscriptions[strings.TrimSpace(channel)])
}
