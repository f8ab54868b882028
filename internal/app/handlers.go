package app

import (
	httpH "github.com/yungbote/ordersignal-backend/internal/http/handlers"
	"github.com/yungbote/ordersignal-backend/internal/platform/logger"
)

type Handlers struct {
	Health         *httpH.HealthHandler
	Polling        *httpH.PollingHandler
	InternalEvents *httpH.InternalEventsHandler
	Email          *httpH.EmailHandler
}

func wireHandlers(log *logger.Logger, cfg Config, services Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:         httpH.NewHealthHandler(log, services.Store),
		Polling:        httpH.NewPollingHandler(log, services.Coordinator),
		InternalEvents: httpH.NewInternalEventsHandler(log, services.Publisher),
		Email:          httpH.NewEmailHandler(log, services.EmailQueue, cfg.AdminRecipient),
	}
}
