// Package audit defines the append-only event trail for the liveness engine.
// Every notification, policy change, and trigger attempt lands here; the sweep
// and tests use it both for observability and for idempotency checks.
package audit

import (
	"context"
	"time"

	id "heirloom/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies, storage backends, and routing.
type EventCategory string

const (
	// CategoryCompliance covers events with legal significance. An inheritance
	// release is irreversible, so its trail requires tamper-proof storage and
	// long retention.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers events relevant to monitoring and forensics,
	// such as rejected resurrection attempts on triggered records.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers events useful for debugging and operational
	// visibility. These can be sampled or aggregated with shorter retention.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	UserID    id.UserID
	Action    string
	// Recipient identifies the contact a notification went to, empty for
	// record-level events.
	Recipient string
	// Kind is the message variant for notification events.
	Kind string
	// Decision captures the escalation branch taken (e.g. "professional_only").
	Decision string
	Reason   string
	// RequestID correlates user-initiated events with HTTP requests. Sweep
	// events carry the sweep run ID instead.
	RequestID string
}

type AuditEvent string

const (
	// Record lifecycle
	EventCheckinInitialized AuditEvent = "checkin_initialized"
	EventCheckinRecorded    AuditEvent = "checkin_recorded"
	EventPolicyUpdated      AuditEvent = "policy_updated"

	// Sweep and escalation
	EventSweepStarted          AuditEvent = "sweep_started"
	EventSweepCompleted        AuditEvent = "sweep_completed"
	EventUpcomingReminderSent  AuditEvent = "upcoming_reminder_sent"
	EventOverdueReminderSent   AuditEvent = "overdue_reminder_sent"
	EventFamilyAlertSent       AuditEvent = "family_alert_sent"
	EventProfessionalAlertSent AuditEvent = "professional_alert_sent"
	EventDispatchFailed        AuditEvent = "dispatch_failed"

	// Terminal trigger
	EventInheritanceTriggered    AuditEvent = "inheritance_triggered"
	EventReleaseEventEmitted     AuditEvent = "release_event_emitted"
	EventTriggerDuplicateIgnored AuditEvent = "trigger_duplicate_ignored"
	EventCheckinAfterTrigger     AuditEvent = "checkin_after_trigger_rejected"
)

// eventCategories maps each audit event to its category.
var eventCategories = map[AuditEvent]EventCategory{
	// Compliance events - require tamper-proof storage
	EventInheritanceTriggered: CategoryCompliance,
	EventReleaseEventEmitted:  CategoryCompliance,
	EventPolicyUpdated:        CategoryCompliance,

	// Security events - anomalies around the terminal state
	EventTriggerDuplicateIgnored: CategorySecurity,
	EventCheckinAfterTrigger:     CategorySecurity,

	// Operations events - routine activity, can be sampled
	EventCheckinInitialized:    CategoryOperations,
	EventCheckinRecorded:       CategoryOperations,
	EventSweepStarted:          CategoryOperations,
	EventSweepCompleted:        CategoryOperations,
	EventUpcomingReminderSent:  CategoryOperations,
	EventOverdueReminderSent:   CategoryOperations,
	EventFamilyAlertSent:       CategoryOperations,
	EventProfessionalAlertSent: CategoryOperations,
	EventDispatchFailed:        CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByUser(ctx context.Context, userID id.UserID) ([]Event, error)
}
