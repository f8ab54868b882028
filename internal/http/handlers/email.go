package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/yungbote/ordersignal-backend/internal/domain/notification"
	"github.com/yungbote/ordersignal-backend/internal/http/response"
	"github.com/yungbote/ordersignal-backend/internal/mailqueue"
	"github.com/yungbote/ordersignal-backend/internal/platform/logger"
)

// EmailHandler accepts email jobs from other services and queues them for
// the worker.
type EmailHandler struct {
	log              *logger.Logger
	queue            mailqueue.Queue
	validate         *validator.Validate
	defaultRecipient string
}

// NewEmailHandler uses defaultRecipient for jobs that arrive without one.
func NewEmailHandler(log *logger.Logger, queue mailqueue.Queue, defaultRecipient string) *EmailHandler {
	return &EmailHandler{
		log:              log.With("handler", "EmailHandler"),
		queue:            queue,
		validate:         validator.New(),
		defaultRecipient: strings.TrimSpace(defaultRecipient),
	}
}

type enqueuedResponse struct {
	EventID string `json:"eventId"`
}

func (h *EmailHandler) Enqueue(c *gin.Context) {
	var job notification.EmailJob
	if !bindJSON(c, &job) {
		return
	}
	if strings.TrimSpace(job.RecipientEmail) == "" {
		job.RecipientEmail = h.defaultRecipient
	}
	if err := h.check(job); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if job.EventID == "" {
		job.EventID = uuid.NewString()
	}
	job.RetryCount = 0

	if err := h.queue.Publish(c.Request.Context(), job); err != nil {
		h.log.Error("Email enqueue failed", "event_id", job.EventID, "error", err)
		response.RespondError(c, http.StatusInternalServerError, "internal_error", fmt.Errorf("failed to queue email"))
		return
	}
	response.RespondAccepted(c, enqueuedResponse{EventID: job.EventID})
}

// NEW_ORDER jobs are validated in full. Other types only need an addressable
// envelope; the worker decides what to do with them.
func (h *EmailHandler) check(job notification.EmailJob) error {
	if job.EventType == notification.EmailNewOrder {
		if err := h.validate.Struct(job); err != nil {
			return fmt.Errorf("invalid email job: %w", err)
		}
		return nil
	}
	if strings.TrimSpace(job.EventType) == "" {
		return fmt.Errorf("eventType is required")
	}
	if err := h.validate.Var(job.RecipientEmail, "required,email"); err != nil {
		return fmt.Errorf("invalid recipientEmail: %w", err)
	}
	return nil
}
