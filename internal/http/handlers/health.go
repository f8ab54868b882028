package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/ordersignal-backend/internal/platform/logger"
)

// Pinger reports whether a backing dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	log   *logger.Logger
	redis Pinger
}

func NewHealthHandler(log *logger.Logger, redis Pinger) *HealthHandler {
	return &HealthHandler{log: log.With("handler", "HealthHandler"), redis: redis}
}

type healthResponse struct {
	Service      string            `json:"service"`
	Status       string            `json:"status"`
	Dependencies map[string]string `json:"dependencies"`
	Error        string            `json:"error,omitempty"`
}

func (h *HealthHandler) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.redis.Ping(ctx); err != nil {
		h.log.Warn("Health check failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, healthResponse{
			Service:      "ordersignal",
			Status:       "unhealthy",
			Dependencies: map[string]string{"redis": "disconnected"},
			Error:        err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, healthResponse{
		Service:      "ordersignal",
		Status:       "healthy",
		Dependencies: map[string]string{"redis": "connected"},
	})
}
