package models

import (
	"time"

	id "heirloom/pkg/domain"
)

// RecipientClass segregates family from professional recipients; the two
// classes can receive different message variants and are counted separately.
type RecipientClass string

const (
	// RecipientUser marks reminders addressed to the account holder; they are
	// never suppressed by escalation policy.
	RecipientUser         RecipientClass = "user"
	RecipientFamily       RecipientClass = "family"
	RecipientProfessional RecipientClass = "professional"
)

// NotificationKind enumerates the message variants the engine can emit.
// Rendering the variant into subject/body text is the Renderer's concern.
type NotificationKind string

const (
	KindUpcomingReminder            NotificationKind = "upcoming_reminder"
	KindOverdueReminder             NotificationKind = "overdue_reminder"
	KindFamilyConcern               NotificationKind = "family_concern"
	KindProfessionalConcern         NotificationKind = "professional_concern"
	KindDirectInheritanceNotice     NotificationKind = "direct_inheritance_notice"
	KindInheritanceTriggered        NotificationKind = "inheritance_triggered"
	KindProfessionalInheritanceNote NotificationKind = "professional_inheritance_notice"
)

// DeliveryStatus records the dispatcher outcome. Failed deliveries are not
// retried within a sweep; the next scheduled sweep picks them up.
type DeliveryStatus string

const (
	DeliverySent   DeliveryStatus = "sent"
	DeliveryFailed DeliveryStatus = "failed"
)

// NotificationRecord is the append-only trail of every message the engine
// attempted. Records are never mutated after creation.
type NotificationRecord struct {
	ID             id.NotificationID
	UserID         id.UserID
	RecipientID    id.ContactID
	RecipientClass RecipientClass
	Kind           NotificationKind
	SentAt         time.Time
	// RequiresAction marks messages that ask the recipient to do something
	// (confirm wellness, contact the estate executor).
	RequiresAction       bool
	TriggeredInheritance bool
	// PrivacyRespected is true when the record was produced under a policy
	// branch that suppressed notifications the user opted out of.
	PrivacyRespected bool
	DeliveryStatus   DeliveryStatus
	// DedupKey is the idempotency key for upcoming reminders
	// (userID|dueBucket|kind), empty for all other kinds.
	DedupKey string
}

// RequiresRecipientAction reports whether a message variant asks the
// recipient to act.
func RequiresRecipientAction(kind NotificationKind) bool {
	switch kind {
	case KindUpcomingReminder, KindOverdueReminder, KindFamilyConcern, KindProfessionalConcern:
		return true
	default:
		return false
	}
}
