package realtime

import (
	"context"

	"github.com/yungbote/ordersignal-backend/internal/platform/logger"
)

// Bus carries wake-up signals between processes.
type Bus interface {
	Publish(ctx context.Context, channel string) error
	StartForwarder(ctx context.Context, onMsg func(channel string)) error
}

// Notifier connects publishers to long-pollers. With a Bus, a signal raised
// in one process reaches pollers parked in every process; without one, only
// local pollers are woken.
type Notifier struct {
	log *logger.Logger
	hub *Hub
	bus Bus
}

func NewNotifier(log *logger.Logger, hub *Hub, bus Bus) *Notifier {
	if log == nil {
		log = logger.Nop()
	}
	return &Notifier{log: log.With("service", "PollNotifier"), hub: hub, bus: bus}
}

// Start forwards bus messages into the local hub until ctx is done.
func (n *Notifier) Start(ctx context.Context) error {
	if n.bus == nil {
		return nil
	}
	return n.bus.StartForwarder(ctx, n.hub.Wake)
}

func (n *Notifier) Notify(ctx context.Context, channel string) {
	if n.bus == nil {
		n.hub.Wake(channel)
		return
	}
	if err := n.bus.Publish(ctx, channel); err != nil {
		n.log.Warn("Wake signal publish failed, waking local pollers only", "channel", channel, "error", err)
		n.hub.Wake(channel)
	}
}

func (n *Notifier) Subscribe(channel string) (<-chan struct{}, func()) {
	return n.hub.Subscribe(channel)
}
