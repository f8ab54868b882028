package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/ordersignal-backend/internal/domain/events"
	"github.com/yungbote/ordersignal-backend/internal/http/response"
	"github.com/yungbote/ordersignal-backend/internal/platform/logger"
	"github.com/yungbote/ordersignal-backend/internal/polling"
)

// InternalEventsHandler lets other services publish order events.
type InternalEventsHandler struct {
	log       *logger.Logger
	publisher *polling.Publisher
}

func NewInternalEventsHandler(log *logger.Logger, publisher *polling.Publisher) *InternalEventsHandler {
	return &InternalEventsHandler{log: log.With("handler", "InternalEventsHandler"), publisher: publisher}
}

type orderStatusChangeRequest struct {
	OrderID   string `json:"orderId" binding:"required"`
	UserID    string `json:"userId" binding:"required"`
	NewStatus string `json:"newStatus" binding:"required"`
}

type newOrderRequest struct {
	OrderID      string `json:"orderId" binding:"required"`
	CustomerName string `json:"customerName" binding:"required"`
	TotalAmount  string `json:"totalAmount" binding:"required"`
}

type orderUpdateRequest struct {
	OrderID    string         `json:"orderId" binding:"required"`
	UpdateType string         `json:"updateType" binding:"required"`
	Details    map[string]any `json:"details"`
}

type publishedResponse struct {
	EventID   string           `json:"eventId"`
	EventType events.EventType `json:"eventType"`
}

func (h *InternalEventsHandler) Publish(c *gin.Context) {
	var req polling.GenericEventRequest
	if !bindJSON(c, &req) {
		return
	}
	ev, err := h.publisher.PublishGeneric(c.Request.Context(), req)
	h.respond(c, ev, err)
}

func (h *InternalEventsHandler) OrderStatusChange(c *gin.Context) {
	var req orderStatusChangeRequest
	if !bindJSON(c, &req) {
		return
	}
	ev, err := h.publisher.PublishOrderStatusChange(c.Request.Context(), req.OrderID, req.UserID, req.NewStatus)
	h.respond(c, ev, err)
}

func (h *InternalEventsHandler) NewOrder(c *gin.Context) {
	var req newOrderRequest
	if !bindJSON(c, &req) {
		return
	}
	ev, err := h.publisher.PublishNewOrderForAdmin(c.Request.Context(), req.OrderID, req.CustomerName, req.TotalAmount)
	h.respond(c, ev, err)
}

func (h *InternalEventsHandler) OrderUpdate(c *gin.Context) {
	var req orderUpdateRequest
	if !bindJSON(c, &req) {
		return
	}
	ev, err := h.publisher.PublishOrderUpdateForAdmin(c.Request.Context(), req.OrderID, req.UpdateType, req.Details)
	h.respond(c, ev, err)
}

func (h *InternalEventsHandler) respond(c *gin.Context, ev *events.Event, err error) {
	if err != nil {
		h.log.Warn("Publish failed", "path", c.FullPath(), "error", err)
		response.RespondAPIError(c, err, "failed to publish event")
		return
	}
	response.RespondOK(c, publishedResponse{EventID: ev.EventID, EventType: ev.EventType})
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", errors.New("invalid request body"))
		return false
	}
	return true
}
