package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/ordersignal-backend/internal/http/handlers"
	httpMW "github.com/yungbote/ordersignal-backend/internal/http/middleware"
	"github.com/yungbote/ordersignal-backend/internal/observability"
	"github.com/yungbote/ordersignal-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	Metrics        *observability.Metrics
	ServiceName    string
	TracingEnabled bool
	CORSOrigins    []string
	InternalAPIKey string

	AuthMiddleware *httpMW.AuthMiddleware

	HealthHandler         *httpH.HealthHandler
	PollingHandler        *httpH.PollingHandler
	InternalEventsHandler *httpH.InternalEventsHandler
	EmailHandler          *httpH.EmailHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.TracingEnabled {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapF(cfg.Metrics.WriteHTTP))
	}

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/health", cfg.HealthHandler.HealthCheck)
		r.HEAD("/health", cfg.HealthHandler.HealthCheck)
	}

	v1 := r.Group("/v1")
	if cfg.HealthHandler != nil {
		v1.GET("/ping", cfg.HealthHandler.HealthCheck)
	}

	if cfg.PollingHandler != nil && cfg.AuthMiddleware != nil {
		polling := v1.Group("/polling")
		polling.Use(cfg.AuthMiddleware.RequireAuth())
		{
			polling.GET("/events", cfg.PollingHandler.PollEvents)
			polling.GET("/user/events", cfg.PollingHandler.PollUserEvents)
			polling.GET("/admin/events", cfg.AuthMiddleware.RequireAdmin(), cfg.PollingHandler.PollAdminEvents)
		}
	}

	internal := v1.Group("/internal")
	internal.Use(httpMW.RequireInternalKey(cfg.InternalAPIKey))
	{
		if cfg.HealthHandler != nil {
			internal.GET("/ping", cfg.HealthHandler.HealthCheck)
		}
		if cfg.InternalEventsHandler != nil {
			events := internal.Group("/events")
			events.POST("/publish", cfg.InternalEventsHandler.Publish)
			events.POST("/order-status-change", cfg.InternalEventsHandler.OrderStatusChange)
			events.POST("/new-order", cfg.InternalEventsHandler.NewOrder)
			events.POST("/order-update", cfg.InternalEventsHandler.OrderUpdate)
		}
		if cfg.EmailHandler != nil {
			internal.POST("/emails", cfg.EmailHandler.Enqueue)
		}
	}

	return r
}
