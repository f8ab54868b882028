package app

import (
	"fmt"

	"github.com/yungbote/ordersignal-backend/internal/mail"
	"github.com/yungbote/ordersignal-backend/internal/mailqueue"
	"github.com/yungbote/ordersignal-backend/internal/observability"
	"github.com/yungbote/ordersignal-backend/internal/platform/logger"
	"github.com/yungbote/ordersignal-backend/internal/polling"
	"github.com/yungbote/ordersignal-backend/internal/realtime"
)

type Services struct {
	Store       *polling.RedisStore
	Hub         *realtime.Hub
	Notifier    *realtime.Notifier
	Publisher   *polling.Publisher
	Coordinator *polling.Coordinator

	EmailQueue  *mailqueue.RedisQueue
	EmailWorker *mailqueue.Worker
}

func wireServices(log *logger.Logger, cfg Config, clients Clients, metrics *observability.Metrics) (Services, error) {
	log.Info("Wiring services...")

	store := polling.NewRedisStore(log, clients.Redis, cfg.Store)
	hub := realtime.NewHub(log)
	notifier := realtime.NewNotifier(log, hub, clients.WakeBus)
	publisher := polling.NewPublisher(log, store, notifier, metrics, cfg.Publisher)
	coordinator := polling.NewCoordinator(log, store, notifier, metrics, cfg.Coordinator)

	renderer, err := mail.NewRenderer(cfg.Company)
	if err != nil {
		return Services{}, fmt.Errorf("init email renderer: %w", err)
	}
	var sender mailqueue.Sender
	if clients.SendGrid != nil {
		sender = mail.NewTemplateSender(log, renderer, clients.SendGrid)
	} else {
		sender = mail.NewLogSender(log, renderer)
	}
	queue := mailqueue.NewRedisQueue(log, clients.Redis, metrics, cfg.Queue)
	worker := mailqueue.NewWorker(log, queue, sender, clients.Locker, metrics, cfg.Worker)

	return Services{
		Store:       store,
		Hub:         hub,
		Notifier:    notifier,
		Publisher:   publisher,
		Coordinator: coordinator,
		EmailQueue:  queue,
		EmailWorker: worker,
	}, nil
}
