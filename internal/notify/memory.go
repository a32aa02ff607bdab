package notify

import (
	"context"
	"sync"

	"heirloom/internal/liveness/models"
	"heirloom/internal/liveness/ports"
)

// SentMessage is one dispatch captured by the memory dispatcher.
type SentMessage struct {
	Recipient models.Contact
	Kind      models.NotificationKind
	Message   ports.RenderedMessage
}

// MemoryDispatcher records dispatches in memory. Tests script failures per
// recipient to exercise partial-failure isolation.
type MemoryDispatcher struct {
	mu       sync.Mutex
	sent     []SentMessage
	failWith map[string]error
}

func NewMemoryDispatcher() *MemoryDispatcher {
	return &MemoryDispatcher{failWith: make(map[string]error)}
}

// FailFor makes every send to the given recipient fail with err.
func (d *MemoryDispatcher) FailFor(recipient models.Contact, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failWith[recipient.ID.String()] = err
}

func (d *MemoryDispatcher) Send(_ context.Context, recipient models.Contact, kind models.NotificationKind, msg ports.RenderedMessage) ports.DeliveryResult {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err, ok := d.failWith[recipient.ID.String()]; ok {
		return ports.DeliveryResult{Status: models.DeliveryFailed, Err: err}
	}
	d.sent = append(d.sent, SentMessage{Recipient: recipient, Kind: kind, Message: msg})
	return ports.DeliveryResult{Status: models.DeliverySent}
}

// Sent returns a copy of everything dispatched so far.
func (d *MemoryDispatcher) Sent() []SentMessage {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]SentMessage(nil), d.sent...)
}
