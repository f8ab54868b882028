package app

import (
	"github.com/gin-gonic/gin"

	server "github.com/yungbote/ordersignal-backend/internal/http"
	"github.com/yungbote/ordersignal-backend/internal/observability"
	"github.com/yungbote/ordersignal-backend/internal/platform/logger"
)

func wireRouter(log *logger.Logger, cfg Config, metrics *observability.Metrics, handlers Handlers, middleware Middleware) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	return server.NewRouter(server.RouterConfig{
		Log:                   log,
		Metrics:               metrics,
		ServiceName:           cfg.Otel.ServiceName,
		TracingEnabled:        cfg.Otel.Enabled,
		CORSOrigins:           cfg.CORSOrigins,
		InternalAPIKey:        cfg.InternalAPIKey,
		AuthMiddleware:        middleware.Auth,
		HealthHandler:         handlers.Health,
		PollingHandler:        handlers.Polling,
		InternalEventsHandler: handlers.InternalEvents,
		EmailHandler:          handlers.Email,
	})
}
