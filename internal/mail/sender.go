package mail

import (
	"context"
	"fmt"

	"github.com/yungbote/ordersignal-backend/internal/domain/notification"
	"github.com/yungbote/ordersignal-backend/internal/platform/logger"
	"github.com/yungbote/ordersignal-backend/internal/platform/sendgrid"
)

// TemplateSender renders jobs and delivers them through SendGrid.
type TemplateSender struct {
	log      *logger.Logger
	renderer *Renderer
	client   sendgrid.Client
}

func NewTemplateSender(log *logger.Logger, renderer *Renderer, client sendgrid.Client) *TemplateSender {
	if log == nil {
		log = logger.Nop()
	}
	return &TemplateSender{log: log.With("service", "EmailSender"), renderer: renderer, client: client}
}

func (s *TemplateSender) SendNewOrder(ctx context.Context, job notification.EmailJob) error {
	msg, err := s.renderer.NewOrder(job)
	if err != nil {
		return err
	}
	res, err := s.client.Send(ctx, sendgrid.SendEmailRequest{
		To:         []sendgrid.EmailAddress{{Email: job.RecipientEmail}},
		Subject:    msg.Subject,
		HTML:       msg.HTML,
		Text:       msg.Text,
		Categories: []string{"new-order"},
		CustomArgs: map[string]string{"event_id": job.EventID, "order_id": job.Metadata.OrderID},
	})
	if err != nil {
		return fmt.Errorf("send new order email: %w", err)
	}
	s.log.Debug("New order email accepted", "order_id", job.Metadata.OrderID, "message_id", res.MessageID)
	return nil
}

// LogSender renders and logs instead of sending. Used when no mail provider
// is configured.
type LogSender struct {
	log      *logger.Logger
	renderer *Renderer
}

func NewLogSender(log *logger.Logger, renderer *Renderer) *LogSender {
	if log == nil {
		log = logger.Nop()
	}
	return &LogSender{log: log.With("service", "LogEmailSender"), renderer: renderer}
}

func (s *LogSender) SendNewOrder(_ context.Context, job notification.EmailJob) error {
	msg, err := s.renderer.NewOrder(job)
	if err != nil {
		return err
	}
	s.log.Info("Email delivery disabled, message rendered only",
		"event_id", job.EventID,
		"subject", msg.Subject,
		"recipient", job.RecipientEmail,
		"html_bytes", len(msg.HTML),
	)
	return nil
}
