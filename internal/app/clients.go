package app

import (
	"context"
	"fmt"

	"github.com/bsm/redislock"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/ordersignal-backend/internal/platform/logger"
	"github.com/yungbote/ordersignal-backend/internal/platform/redisx"
	"github.com/yungbote/ordersignal-backend/internal/platform/sendgrid"
	"github.com/yungbote/ordersignal-backend/internal/realtime/bus"
)

type Clients struct {
	Redis    *goredis.Client
	WakeBus  *bus.RedisBus
	Locker   *redislock.Client
	SendGrid sendgrid.Client
}

func wireClients(ctx context.Context, log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")

	// Redis
	rdb, err := redisx.NewClient(ctx, log, cfg.Redis)
	if err != nil {
		return Clients{}, fmt.Errorf("init redis: %w", err)
	}
	wake, err := bus.NewRedisBus(log, rdb, bus.DefaultTopic)
	if err != nil {
		_ = rdb.Close()
		return Clients{}, fmt.Errorf("init wake bus: %w", err)
	}
	var locker *redislock.Client
	if cfg.LockEnabled {
		locker = redislock.New(rdb)
	}

	// SendGrid is optional; without it emails are rendered and logged.
	var sg sendgrid.Client
	if cfg.SendGrid.APIKey != "" {
		sg, err = sendgrid.New(log, cfg.SendGrid)
		if err != nil {
			_ = rdb.Close()
			return Clients{}, fmt.Errorf("init sendgrid: %w", err)
		}
	} else {
		log.Warn("SENDGRID_API_KEY not set; emails will be logged instead of sent")
	}

	return Clients{
		Redis:    rdb,
		WakeBus:  wake,
		Locker:   locker,
		SendGrid: sg,
	}, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
}
