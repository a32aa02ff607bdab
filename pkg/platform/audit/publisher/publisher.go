// Package publisher delivers audit events to a store, either synchronously or
// through a buffered background worker.
package publisher

import (
	"context"
	"sync"
	"time"

	id "heirloom/pkg/domain"
	audit "heirloom/pkg/platform/audit"
)

type Publisher struct {
	store audit.Store

	// async mode
	inbox  chan audit.Event
	wg     sync.WaitGroup
	closed sync.Once
}

type Option func(*Publisher)

// WithAsyncBuffer switches the publisher to asynchronous delivery with the
// given buffer size. When the buffer is full events are dropped rather than
// blocking domain operations; the audit trail is best-effort except for the
// trigger path, which appends through the store transaction directly.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		p.inbox = make(chan audit.Event, size)
	}
}

func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{store: store}
	for _, opt := range opts {
		opt(p)
	}

	if p.inbox != nil {
		p.wg.Add(1)
		go p.drain()
	}
	return p
}

func (p *Publisher) drain() {
	defer p.wg.Done()
	for event := range p.inbox {
		// Detached context: the emitting request may already be gone.
		_ = p.store.Append(context.Background(), event)
	}
}

// Emit records an audit event. The timestamp is set if the caller left it zero
// and the category is derived from the action when absent.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.Category == "" {
		event.Category = audit.AuditEvent(event.Action).Category()
	}

	if p.inbox == nil {
		return p.store.Append(ctx, event)
	}

	select {
	case p.inbox <- event:
	default:
		// Buffer full: drop rather than stall the caller.
	}
	return nil
}

// List returns the audit trail for a user, delegating to the store.
func (p *Publisher) List(ctx context.Context, userID id.UserID) ([]audit.Event, error) {
	return p.store.ListByUser(ctx, userID)
}

// Close drains any buffered events and stops the background worker.
func (p *Publisher) Close() {
	p.closed.Do(func() {
		if p.inbox != nil {
			close(p.inbox)
			p.wg.Wait()
		}
	})
}
