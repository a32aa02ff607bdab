package models

import (
	"time"

	"github.com/google/uuid"

	id "heirloom/pkg/domain"
)

// ReleaseReasonCheckinFailure is the only reason this engine emits; other
// release paths (court order, manual executor action) live outside this core.
const ReleaseReasonCheckinFailure = "checkin_failure"

// ReleaseStatus is the lifecycle state of a release event. This engine only
// ever emits "pending"; downstream asset distribution owns later transitions.
type ReleaseStatus string

const ReleasePending ReleaseStatus = "pending"

// InheritanceReleaseEvent is emitted once per (asset, beneficiary) pair when
// the terminal trigger fires. Append-only.
type InheritanceReleaseEvent struct {
	ID            id.ReleaseEventID
	UserID        id.UserID
	AssetID       id.AssetID
	BeneficiaryID id.BeneficiaryID
	TriggeredAt   time.Time
	Reason        string
	Status        ReleaseStatus
}

// Contact is the directory DTO for a family or professional contact.
type Contact struct {
	ID           id.ContactID
	Name         string
	Email        string
	Relationship string
}

// AssetHolding is the directory DTO mapping an asset to its beneficiaries.
type AssetHolding struct {
	AssetID        id.AssetID
	Name           string
	BeneficiaryIDs []id.BeneficiaryID
}

// BeneficiaryIsContact reports whether a beneficiary is the same person as a
// contact; the estate application keys both off the same person identity.
func BeneficiaryIsContact(b id.BeneficiaryID, c id.ContactID) bool {
	return uuid.UUID(b) == uuid.UUID(c)
}

// SweepResult aggregates one sweep run. Per-record failures increment
// Failures but never abort the batch, so Processed always reflects the number
// of records actually visited.
type SweepResult struct {
	Processed          int `json:"processed"`
	RemindersSent      int `json:"remindersSent"`
	FamilyAlerts       int `json:"familyAlerts"`
	ProfessionalAlerts int `json:"professionalAlerts"`
	Triggered          int `json:"triggered"`
	PrivacyRespected   int `json:"privacyRespected"`
	Failures           int `json:"failures"`
}

// Add accumulates another result into r; used when merging worker outputs.
func (r *SweepResult) Add(o SweepResult) {
	r.Processed += o.Processed
	r.RemindersSent += o.RemindersSent
	r.FamilyAlerts += o.FamilyAlerts
	r.ProfessionalAlerts += o.ProfessionalAlerts
	r.Triggered += o.Triggered
	r.PrivacyRespected += o.PrivacyRespected
	r.Failures += o.Failures
}
