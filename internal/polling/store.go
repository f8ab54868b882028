package polling

import (
	"context"
	"time"

	"github.com/yungbote/ordersignal-backend/internal/domain/events"
)

const (
	DefaultMaxPage    = 50
	DefaultTTLSeconds = 300
)

// Store is a per-channel, time ordered, append-only event log.
type Store interface {
	// Append inserts ev into channel, refreshes the channel expiry and trims
	// the channel back to one page once it grows past two pages.
	Append(ctx context.Context, channel string, ev events.Event) error
	// Read returns up to one page of events strictly after the cursor, oldest
	// first. An empty or unknown cursor reads from the start of the channel.
	// A non-empty filter keeps only events of that type.
	Read(ctx context.Context, channel, cursor string, filter events.EventType) ([]events.Event, error)
	Ping(ctx context.Context) error
}

type StoreConfig struct {
	MaxPage    int
	DefaultTTL time.Duration
	Now        func() time.Time
}

func (c StoreConfig) withDefaults() StoreConfig {
	if c.MaxPage <= 0 {
		c.MaxPage = DefaultMaxPage
	}
	if c.DefaultTTL <= 0 {
		c.DefaultTTL = DefaultTTLSeconds * time.Second
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}
