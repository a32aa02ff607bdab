package notify

import (
	"context"
	"log/slog"
	"time"

	"heirloom/internal/liveness/models"
	"heirloom/internal/liveness/ports"
	"heirloom/internal/platform/kafka"
)

// outboundMessage is the envelope published to the messages topic. The
// delivery transport (email/push provider) consumes it; actual delivery is
// outside this service.
type outboundMessage struct {
	RecipientID    string    `json:"recipientId"`
	RecipientEmail string    `json:"recipientEmail,omitempty"`
	RecipientName  string    `json:"recipientName,omitempty"`
	Kind           string    `json:"kind"`
	Subject        string    `json:"subject"`
	Body           string    `json:"body"`
	QueuedAt       time.Time `json:"queuedAt"`
}

// KafkaDispatcher hands rendered messages to the messages topic. Publication
// success means "sent" from this engine's point of view; downstream delivery
// failures are the transport's retry problem.
type KafkaDispatcher struct {
	publisher *kafka.Publisher
	logger    *slog.Logger
}

func NewKafkaDispatcher(publisher *kafka.Publisher, logger *slog.Logger) *KafkaDispatcher {
	return &KafkaDispatcher{publisher: publisher, logger: logger}
}

func (d *KafkaDispatcher) Send(ctx context.Context, recipient models.Contact, kind models.NotificationKind, msg ports.RenderedMessage) ports.DeliveryResult {
	envelope := outboundMessage{
		RecipientID:    recipient.ID.String(),
		RecipientEmail: recipient.Email,
		RecipientName:  recipient.Name,
		Kind:           string(kind),
		Subject:        msg.Subject,
		Body:           msg.Body,
		QueuedAt:       time.Now().UTC(),
	}

	if err := d.publisher.PublishMessage(ctx, recipient.ID.String(), envelope); err != nil {
		d.logger.WarnContext(ctx, "outbound message publication failed",
			"recipient", recipient.ID, "kind", kind, "error", err)
		return ports.DeliveryResult{Status: models.DeliveryFailed, Err: err}
	}
	return ports.DeliveryResult{Status: models.DeliverySent}
}
