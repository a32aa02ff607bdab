// Package models holds the liveness domain types: the per-user check-in
// record, its escalation policy, and the append-only notification and
// release-event records the engine emits.
package models

import (
	"time"

	id "heirloom/pkg/domain"
)

// Status is the stored state of a liveness record. "Warning" is a UI label
// derived from days-until-due and is never persisted.
type Status string

const (
	StatusActive    Status = "active"
	StatusOverdue   Status = "overdue"
	StatusTriggered Status = "triggered"
)

// LivenessRecord tracks whether an account holder is still present. One
// record exists per user; it is created at onboarding, reset by check-ins,
// advanced by the sweep, and soft-terminated by the inheritance trigger.
type LivenessRecord struct {
	ID     id.RecordID
	UserID id.UserID

	LastCheckinAt time.Time
	NextDueAt     time.Time

	Status          Status
	RemindersSent   uint
	MaxReminders    uint
	GracePeriodDays uint

	// IsActive is false only after the terminal trigger.
	IsActive bool

	Policy EscalationPolicy

	// Version is the optimistic concurrency token. Stores reject writes that
	// carry a stale version, which is what keeps a check-in racing the sweep
	// from resurrecting a triggered record or double-firing the trigger.
	Version uint64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// DaysPastDue returns floor((now - NextDueAt) / 1 day). Negative values mean
// the record is not yet due.
func (r *LivenessRecord) DaysPastDue(now time.Time) int {
	d := now.Sub(r.NextDueAt)
	days := int(d / (24 * time.Hour))
	// Round toward negative infinity so "23 hours before due" is day -1,
	// matching the upcoming-reminder offsets.
	if d < 0 && d%(24*time.Hour) != 0 {
		days--
	}
	return days
}

// IncrementReminders bumps the reminder counter, holding the invariant
// RemindersSent <= MaxReminders.
func (r *LivenessRecord) IncrementReminders() bool {
	if r.RemindersSent >= r.MaxReminders {
		return false
	}
	r.RemindersSent++
	return true
}

// TriggerEligible reports whether the record still satisfies the terminal
// trigger precondition: past the grace period with the reminder budget spent.
// A check-in resets the due date and the counter, so a record reset between a
// sweep's read and the trigger's write stops being eligible.
func (r *LivenessRecord) TriggerEligible(now time.Time) bool {
	return r.Status != StatusTriggered &&
		r.DaysPastDue(now) > int(r.GracePeriodDays) &&
		r.RemindersSent >= r.MaxReminders
}

// WarningLabel derives the presentation-only urgency label from the due date.
func (r *LivenessRecord) WarningLabel(now time.Time) string {
	if r.Status == StatusTriggered {
		return "triggered"
	}
	days := r.DaysPastDue(now)
	switch {
	case days >= 0:
		return "overdue"
	case days >= -30:
		return "warning"
	default:
		return "ok"
	}
}

// Clone returns a deep copy so sweep workers can mutate without aliasing the
// store's copy.
func (r *LivenessRecord) Clone() *LivenessRecord {
	cp := *r
	cp.Policy = r.Policy.Clone()
	return &cp
}
