package bus

import (
	"context"
	"fmt"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/ordersignal-backend/internal/platform/logger"
)

const DefaultTopic = "poll:notify"

// RedisBus publishes channel names on a Redis pub/sub topic.
type RedisBus struct {
	log   *logger.Logger
	rdb   goredis.UniversalClient
	topic string
}

func NewRedisBus(log *logger.Logger, rdb goredis.UniversalClient, topic string) (*RedisBus, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if rdb == nil {
		return nil, fmt.Errorf("redis client required")
	}
	topic = strings.TrimSpace(topic)
	if topic == "" {
		topic = DefaultTopic
	}
	return &RedisBus{
		log:   log.With("service", "RedisPollBus"),
		rdb:   rdb,
		topic: topic,
	}, nil
}

func (b *RedisBus) Publish(ctx context.Context, channel string) error {
	return b.rdb.Publish(ctx, b.topic, channel).Err()
}

func (b *RedisBus) StartForwarder(ctx context.Context, onMsg func(channel string)) error {
	if onMsg == nil {
		return fmt.Errorf("onMsg callback required")
	}
	sub := b.rdb.Subscribe(ctx, b.topic)

	// ensures subscription actually started
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

	go func() {
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					_ = sub.Close()
					return
				}
				if m.Payload == "" {
					b.log.Warn("Empty wake payload")
					continue
				}
				onMsg(m.Payload)
			}
		}
	}()
	return nil
}
