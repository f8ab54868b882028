package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/ordersignal-backend/internal/domain/events"
	"github.com/yungbote/ordersignal-backend/internal/http/response"
	"github.com/yungbote/ordersignal-backend/internal/platform/ctxutil"
	"github.com/yungbote/ordersignal-backend/internal/platform/logger"
	"github.com/yungbote/ordersignal-backend/internal/polling"
)

type PollingHandler struct {
	log         *logger.Logger
	coordinator *polling.Coordinator
}

func NewPollingHandler(log *logger.Logger, coordinator *polling.Coordinator) *PollingHandler {
	return &PollingHandler{log: log.With("handler", "PollingHandler"), coordinator: coordinator}
}

type pollQuery struct {
	EventType   string `form:"eventType"`
	LastEventID string `form:"lastEventId"`
	LongPoll    bool   `form:"longPoll"`
}

// PollEvents serves GET /v1/polling/events. With eventType the read is
// restricted to that type; without it the caller's own channel is read.
func (h *PollingHandler) PollEvents(c *gin.Context) {
	h.poll(c, func(q pollQuery) polling.Scope {
		if q.EventType != "" {
			return polling.ScopeTyped
		}
		return polling.ScopeUser
	})
}

func (h *PollingHandler) PollUserEvents(c *gin.Context) {
	h.poll(c, func(pollQuery) polling.Scope { return polling.ScopeUser })
}

func (h *PollingHandler) PollAdminEvents(c *gin.Context) {
	h.poll(c, func(pollQuery) polling.Scope { return polling.ScopeAdmin })
}

func (h *PollingHandler) poll(c *gin.Context, scopeOf func(pollQuery) polling.Scope) {
	var q pollQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", errors.New("invalid request parameters"))
		return
	}
	rd := ctxutil.GetRequestData(c.Request.Context())
	id := polling.Identity{}
	if rd != nil {
		id = polling.Identity{UserID: rd.UserID, IsAdmin: rd.IsAdmin()}
	}
	scope := scopeOf(q)
	req := polling.PollRequest{
		Scope:       scope,
		LastEventID: q.LastEventID,
		LongPoll:    q.LongPoll,
	}
	if scope == polling.ScopeTyped {
		req.EventType = events.EventType(q.EventType)
	}

	res, err := h.coordinator.Poll(c.Request.Context(), id, req)
	if err != nil {
		if c.Request.Context().Err() != nil {
			// Client went away; nobody is left to read a response.
			c.Abort()
			return
		}
		response.RespondAPIError(c, err, "failed to retrieve events")
		return
	}
	response.RespondOK(c, res)
}
