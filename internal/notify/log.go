package notify

import (
	"context"
	"log/slog"

	"heirloom/internal/liveness/models"
	"heirloom/internal/liveness/ports"
)

// LogDispatcher writes outbound messages to the log instead of a transport.
// It is the fallback when no Kafka brokers are configured (local runs).
type LogDispatcher struct {
	logger *slog.Logger
}

func NewLogDispatcher(logger *slog.Logger) *LogDispatcher {
	return &LogDispatcher{logger: logger}
}

func (d *LogDispatcher) Send(ctx context.Context, recipient models.Contact, kind models.NotificationKind, msg ports.RenderedMessage) ports.DeliveryResult {
	d.logger.InfoContext(ctx, "outbound message (log transport)",
		"recipient", recipient.ID,
		"kind", kind,
		"subject", msg.Subject,
	)
	return ports.DeliveryResult{Status: models.DeliverySent}
}
