// Package ports defines shared interfaces for the liveness module.
// Interfaces are placed here when consumed by multiple services to avoid duplication.
package ports

import (
	"context"
	"log/slog"
	"time"

	"heirloom/internal/liveness/models"
	id "heirloom/pkg/domain"
	"heirloom/pkg/platform/audit"
)

// RecordStore persists liveness records with per-key optimistic concurrency.
type RecordStore interface {
	// Create inserts a new record; sentinel.ErrConflict when the user already
	// has one.
	Create(ctx context.Context, record *models.LivenessRecord) error

	// Get returns the record for a user; sentinel.ErrNotFound when absent.
	Get(ctx context.Context, userID id.UserID) (*models.LivenessRecord, error)

	// Update writes the record if record.Version still matches the stored
	// version, then bumps it; sentinel.ErrVersionMismatch on a stale write.
	Update(ctx context.Context, record *models.LivenessRecord) error

	// ListActive returns every record with IsActive=true.
	ListActive(ctx context.Context) ([]*models.LivenessRecord, error)
}

// NotificationLog is the append-only store of notification records.
type NotificationLog interface {
	AppendNotification(ctx context.Context, n *models.NotificationRecord) error

	// ListNotifications returns a user's notifications, most recent first.
	ListNotifications(ctx context.Context, userID id.UserID) ([]*models.NotificationRecord, error)
}

// ReleaseLog is the append-only store of inheritance release events.
type ReleaseLog interface {
	AppendReleaseEvent(ctx context.Context, e *models.InheritanceReleaseEvent) error
	ListReleaseEvents(ctx context.Context, userID id.UserID) ([]*models.InheritanceReleaseEvent, error)
}

// Store bundles the three persistence surfaces; the memory and postgres
// implementations satisfy all of them against one backend.
type Store interface {
	RecordStore
	NotificationLog
	ReleaseLog
}

// ContactDirectory resolves a user's contacts. External collaborator; the
// estate application owns contact bookkeeping.
type ContactDirectory interface {
	FamilyContacts(ctx context.Context, userID id.UserID) ([]models.Contact, error)
	ProfessionalContacts(ctx context.Context, userID id.UserID) ([]models.Contact, error)
}

// AssetDirectory resolves a user's assets and their beneficiary mappings.
type AssetDirectory interface {
	AssetsWithBeneficiaries(ctx context.Context, userID id.UserID) ([]models.AssetHolding, error)
}

// RenderedMessage is the renderer output handed to the dispatcher.
type RenderedMessage struct {
	Subject string
	Body    string
}

// RenderContext is the structured input to the renderer. The engine never
// builds message text itself.
type RenderContext struct {
	UserID      id.UserID
	Recipient   models.Contact
	DaysPastDue int
	// AppendMessage is the user's custom text (family or professional
	// variant, already selected by the caller), appended verbatim.
	AppendMessage string
}

// Renderer turns a message variant plus context into subject and body.
// Template styling is outside this core.
type Renderer interface {
	Render(kind models.NotificationKind, rc RenderContext) (RenderedMessage, error)
}

// DeliveryResult reports a dispatch outcome. A failed result carries the
// transport error; the sweep records it and moves on.
type DeliveryResult struct {
	Status models.DeliveryStatus
	Err    error
}

// Dispatcher sends one rendered message to one recipient. The real transport
// (email/push provider) sits behind this port.
type Dispatcher interface {
	Send(ctx context.Context, recipient models.Contact, kind models.NotificationKind, msg RenderedMessage) DeliveryResult
}

// ReminderDedup guards against duplicate upcoming reminders across repeated
// same-day sweep runs. Acquire returns true exactly once per key within ttl.
type ReminderDedup interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// SweepLock serializes sweep runs across processes. TryAcquire returns false
// when another runner holds the lease.
type SweepLock interface {
	TryAcquire(ctx context.Context, ttl time.Duration) (bool, error)
	Release(ctx context.Context) error
}

// ReleasePublisher fans release events out to downstream consumers (asset
// distribution pipeline). Optional; nil disables publication.
type ReleasePublisher interface {
	PublishRelease(ctx context.Context, key string, payload any) error
}

// AuditPublisher emits audit events for every notification and trigger.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// LogAudit is a shared helper for logging audit events across liveness
// services. It logs to both the structured logger and the audit publisher if
// available.
func LogAudit(ctx context.Context, logger *slog.Logger, publisher AuditPublisher, event audit.Event, attrs ...any) {
	args := append(attrs, "event", event.Action, "log_type", "audit")
	if logger != nil {
		logger.InfoContext(ctx, event.Action, args...)
	}

	if publisher == nil {
		return
	}
	if err := publisher.Emit(ctx, event); err != nil && logger != nil {
		logger.WarnContext(ctx, "failed to emit audit event", "event", event.Action, "error", err)
	}
}
